package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// QueryService runs tenant-filtered queries restricted to what the caller
// on ctx may see.
type QueryService struct {
	store domain.Store
	gate  *TenantGate
}

// NewQueryService creates a query service.
func NewQueryService(store domain.Store, gate *TenantGate) *QueryService {
	return &QueryService{store: store, gate: gate}
}

// Definitions returns deployed definitions.
func (s *QueryService) Definitions(ctx context.Context, q domain.DefinitionQuery) ([]domain.Definition, error) {
	if err := q.Tenants.Err(); err != nil {
		return nil, err
	}
	q.Visibility = s.gate.Visibility(ctx)

	defs, err := s.store.FindDefinitions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("finding definitions: %w", err)
	}
	domain.SortByTenant(defs, q.Tenants.Order(), func(d domain.Definition) domain.TenantID { return d.TenantID })
	return defs, nil
}

// Entities returns runtime entities.
func (s *QueryService) Entities(ctx context.Context, q domain.EntityQuery) ([]domain.Entity, error) {
	if err := q.Tenants.Err(); err != nil {
		return nil, err
	}
	q.Visibility = s.gate.Visibility(ctx)

	entities, err := s.store.FindEntities(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("finding entities: %w", err)
	}
	domain.SortByTenant(entities, q.Tenants.Order(), func(e domain.Entity) domain.TenantID { return e.TenantID })
	return entities, nil
}

// Jobs returns jobs.
func (s *QueryService) Jobs(ctx context.Context, q domain.JobQuery) ([]domain.Job, error) {
	if err := q.Tenants.Err(); err != nil {
		return nil, err
	}
	q.Visibility = s.gate.Visibility(ctx)

	jobs, err := s.store.FindJobs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("finding jobs: %w", err)
	}
	domain.SortByTenant(jobs, q.Tenants.Order(), func(j domain.Job) domain.TenantID { return j.TenantID })
	return jobs, nil
}

// Batches returns batches.
func (s *QueryService) Batches(ctx context.Context, q domain.BatchQuery) ([]domain.Batch, error) {
	if err := q.Tenants.Err(); err != nil {
		return nil, err
	}
	q.Visibility = s.gate.Visibility(ctx)

	batches, err := s.store.FindBatches(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("finding batches: %w", err)
	}
	domain.SortByTenant(batches, q.Tenants.Order(), func(b domain.Batch) domain.TenantID { return b.TenantID })
	return batches, nil
}

// exactTenant selects rows owned by exactly tenant, tenant-less rows for NoTenant.
func exactTenant(tenant domain.TenantID) domain.TenantQuery {
	if tenant.IsNone() {
		return domain.TenantQuery{}.WithoutTenantID()
	}
	return domain.TenantQuery{}.TenantIDIn(tenant)
}

// filterTenant converts a TenantFilter into query predicates. An unset filter matches everything.
func filterTenant(f domain.TenantFilter) domain.TenantQuery {
	if !f.IsSet() {
		return domain.TenantQuery{}
	}
	return exactTenant(f.TenantID())
}
