package app

import (
	"fmt"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// VariableTenantIDProvider assigns the tenant named by a creation variable.
// Sub-instances are only given a tenant when RootsOnly is false.
type VariableTenantIDProvider struct {
	Variable  string
	RootsOnly bool
}

var _ domain.TenantIDProvider = VariableTenantIDProvider{}

func (p VariableTenantIDProvider) ProvideTenantID(pc domain.ProviderContext) domain.TenantID {
	if p.Variable == "" || (p.RootsOnly && !pc.IsRoot()) {
		return domain.NoTenant
	}
	v, ok := pc.Variables[p.Variable]
	if !ok || v == nil {
		return domain.NoTenant
	}
	if s, ok := v.(string); ok {
		return domain.TenantID(s)
	}
	return domain.TenantID(fmt.Sprint(v))
}
