package app

import (
	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Propagator derives the tenant of every entity at creation time.
//
// Edges, in priority order:
//  1. definition -> root instance (provider when the definition has no tenant)
//  2. execution -> child execution, exact copy
//  3. execution/task -> variables, incidents, jobs, subscriptions, external tasks, exact copy
//  4. call activity / process task / case task / decision task -> called instance
//
// A tenant set explicitly on the new entity always wins over the copied one.
type Propagator struct {
	provider domain.TenantIDProvider
	logger   *zap.Logger
}

// NewPropagator creates a propagator. provider may be nil.
func NewPropagator(provider domain.TenantIDProvider, logger *zap.Logger) *Propagator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Propagator{provider: provider, logger: logger}
}

// RootTenant returns the tenant of a root instance of def. The provider is
// consulted only when def has no tenant.
func (p *Propagator) RootTenant(kind domain.CreationKind, def domain.Definition, vars map[string]any) domain.TenantID {
	if !def.TenantID.IsNone() {
		return def.TenantID
	}
	return p.provide(domain.NewProviderContext(kind, def, vars, nil, nil))
}

// CalledTenant returns the tenant of an instance created by caller for the
// called definition. explicit is the tenant the called element named, if any.
func (p *Propagator) CalledTenant(kind domain.CreationKind, called domain.Definition, caller domain.Entity, explicit domain.TenantFilter, vars map[string]any) domain.TenantID {
	if !called.TenantID.IsNone() {
		return called.TenantID
	}

	var superExec, superCaseExec *domain.Entity
	if caller.Kind == domain.EntityCaseExecution {
		superCaseExec = &caller
	} else {
		superExec = &caller
	}
	if provided := p.provide(domain.NewProviderContext(kind, called, vars, superExec, superCaseExec)); !provided.IsNone() {
		return provided
	}

	if explicit.IsSet() {
		return explicit.TenantID()
	}
	return caller.TenantID
}

func (p *Propagator) provide(pc domain.ProviderContext) domain.TenantID {
	if p.provider == nil {
		return domain.NoTenant
	}
	tenant := p.provider.ProvideTenantID(pc)
	p.logger.Debug("tenant id provider invoked",
		zap.String("creation", string(pc.Kind)),
		zap.String("definition_id", pc.Definition.ID),
		zap.Bool("root", pc.IsRoot()),
		zap.String("tenant_id", string(tenant)))
	return tenant
}

// Stamp copies the tenant of source onto child unless child already carries
// an explicit tenant. Instance and definition references are inherited too.
func (p *Propagator) Stamp(child *domain.Entity, source domain.Entity) domain.TenantID {
	switch {
	case child.TenantID.IsNone():
		child.TenantID = source.TenantID
	case child.TenantID != source.TenantID:
		p.logger.Debug("explicit tenant overrides propagated tenant",
			zap.String("entity_id", child.ID),
			zap.String("kind", string(child.Kind)),
			zap.String("tenant_id", string(child.TenantID)),
			zap.String("source_tenant_id", string(source.TenantID)))
	}
	if child.InstanceID == "" {
		child.InstanceID = source.InstanceID
	}
	if child.DefinitionID == "" {
		child.DefinitionID = source.DefinitionID
	}
	return child.TenantID
}

// StampJob copies the tenant of the execution that created job.
func (p *Propagator) StampJob(job *domain.Job, source domain.Entity) domain.TenantID {
	if job.TenantID.IsNone() {
		job.TenantID = source.TenantID
	}
	if job.ExecutionID == "" {
		job.ExecutionID = source.ID
	}
	if job.InstanceID == "" {
		job.InstanceID = source.InstanceID
	}
	if job.DefinitionID == "" {
		job.DefinitionID = source.DefinitionID
	}
	return job.TenantID
}
