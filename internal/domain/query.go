package domain

import (
	"slices"
	"sort"
)

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TenantQuery holds the tenant predicates every query supports. Builder
// methods return a copy; the first invalid call is reported by Err.
type TenantQuery struct {
	ids            []TenantID
	without        bool
	includeWithout bool
	order          SortOrder
	err            error
}

// TenantIDIn restricts results to the given tenants. A NoTenant entry is a
// null value and is rejected rather than matched against tenant-less rows.
func (q TenantQuery) TenantIDIn(ids ...TenantID) TenantQuery {
	if len(ids) == 0 || slices.Contains(ids, NoTenant) {
		q.err = ErrNullTenantID
		return q
	}
	q.ids = append(slices.Clone(q.ids), ids...)
	return q
}

// WithoutTenantID restricts results to tenant-less rows.
func (q TenantQuery) WithoutTenantID() TenantQuery {
	q.without = true
	return q
}

// IncludeWithoutTenantID widens a TenantIDIn filter to tenant-less rows.
func (q TenantQuery) IncludeWithoutTenantID() TenantQuery {
	q.includeWithout = true
	return q
}

// OrderByTenantID sorts results by tenant id, NoTenant first when ascending.
func (q TenantQuery) OrderByTenantID(order SortOrder) TenantQuery {
	q.order = order
	return q
}

// Err reports the first invalid builder call or an inconsistent combination.
func (q TenantQuery) Err() error {
	if q.err != nil {
		return q.err
	}
	if q.without && len(q.ids) > 0 {
		return ErrTenantFilterClash
	}
	return nil
}

func (q TenantQuery) IDs() []TenantID { return slices.Clone(q.ids) }

func (q TenantQuery) Without() bool { return q.without }

func (q TenantQuery) IncludeWithout() bool { return q.includeWithout }

func (q TenantQuery) Order() SortOrder { return q.order }

// Matches reports whether a row owned by id passes the tenant predicates.
func (q TenantQuery) Matches(id TenantID) bool {
	if q.without {
		return id.IsNone()
	}
	if len(q.ids) > 0 {
		return slices.Contains(q.ids, id) || (q.includeWithout && id.IsNone())
	}
	return true
}

// Visibility limits rows to what the caller may see. The zero value is unrestricted.
type Visibility struct {
	Restricted bool
	Tenants    TenantSet
}

// Matches reports whether rows owned by id are visible.
func (v Visibility) Matches(id TenantID) bool {
	return !v.Restricted || id.IsNone() || v.Tenants.Contains(id)
}

// DefinitionQuery selects deployed definitions.
type DefinitionQuery struct {
	Kind         DefinitionKind
	Key          string
	DeploymentID string
	Tenants      TenantQuery
	Visibility   Visibility
}

// EntityQuery selects runtime entities.
type EntityQuery struct {
	Kind         EntityKind
	InstanceID   string
	ParentID     string
	DefinitionID string
	Name         string
	EventType    EventType
	Tenants      TenantQuery
	Visibility   Visibility
}

// JobQuery selects jobs.
type JobQuery struct {
	Type         JobType
	DeploymentID string
	DefinitionID string
	BatchID      string
	Tenants      TenantQuery
	Visibility   Visibility
}

// BatchQuery selects batches.
type BatchQuery struct {
	Type       BatchType
	Tenants    TenantQuery
	Visibility Visibility
}

// SortByTenant orders items in place by the tenant returned from tenantOf.
// SortNone leaves the order untouched.
func SortByTenant[T any](items []T, order SortOrder, tenantOf func(T) TenantID) {
	if order == SortNone {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := CompareTenantIDs(tenantOf(items[i]), tenantOf(items[j]))
		if order == SortDesc {
			return c > 0
		}
		return c < 0
	})
}
