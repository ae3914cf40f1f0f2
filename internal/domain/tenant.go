package domain

import (
	"slices"
	"strings"
)

// TenantID identifies the tenant that owns a deployment or a runtime entity.
// The empty value is the "no tenant" sentinel, see NoTenant.
type TenantID string

// NoTenant marks data that belongs to no tenant. It is shared by every tenant.
const NoTenant TenantID = ""

// IsNone reports whether t is the no-tenant sentinel.
func (t TenantID) IsNone() bool {
	return t == NoTenant
}

// String renders the tenant id for messages. NoTenant renders as "null".
func (t TenantID) String() string {
	if t.IsNone() {
		return "null"
	}
	return string(t)
}

// CompareTenantIDs orders tenant ids with NoTenant first, then lexically.
func CompareTenantIDs(a, b TenantID) int {
	switch {
	case a == b:
		return 0
	case a.IsNone():
		return -1
	case b.IsNone():
		return 1
	default:
		return strings.Compare(string(a), string(b))
	}
}

// TenantSet is an ordered, de-duplicated list of tenant ids.
type TenantSet []TenantID

// NewTenantSet builds a set preserving first-seen order. NoTenant entries are dropped.
func NewTenantSet(ids ...TenantID) TenantSet {
	out := make(TenantSet, 0, len(ids))
	for _, id := range ids {
		if id.IsNone() || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Contains reports whether id is a member of the set.
func (s TenantSet) Contains(id TenantID) bool {
	return slices.Contains(s, id)
}

// TenantFilter is an explicit tenant choice made by a caller. The zero value
// means the caller did not specify a tenant.
type TenantFilter struct {
	tenant TenantID
	set    bool
}

// ForTenant selects a specific tenant.
func ForTenant(id TenantID) TenantFilter {
	return TenantFilter{tenant: id, set: true}
}

// WithoutTenant selects data that belongs to no tenant.
func WithoutTenant() TenantFilter {
	return TenantFilter{tenant: NoTenant, set: true}
}

// IsSet reports whether the caller made an explicit choice.
func (f TenantFilter) IsSet() bool {
	return f.set
}

// TenantID returns the selected tenant. Only meaningful when IsSet is true.
func (f TenantFilter) TenantID() TenantID {
	return f.tenant
}

// Matches reports whether id satisfies the filter. An unset filter matches everything.
func (f TenantFilter) Matches(id TenantID) bool {
	return !f.set || f.tenant == id
}

func (f TenantFilter) String() string {
	if !f.set {
		return "unspecified"
	}
	return f.tenant.String()
}
