package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// TenantGate checks the caller's authenticated tenants against the tenant
// owning a resource. It must run before the guarded operation mutates state.
type TenantGate struct {
	checkEnabled bool
	recorder     domain.Recorder
	logger       *zap.Logger
}

// NewTenantGate creates a gate. With checkEnabled false every check passes.
func NewTenantGate(checkEnabled bool, recorder domain.Recorder, logger *zap.Logger) *TenantGate {
	if recorder == nil {
		recorder = domain.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantGate{checkEnabled: checkEnabled, recorder: recorder, logger: logger}
}

// CheckEnabled reports whether tenant checks are enforced.
func (g *TenantGate) CheckEnabled() bool {
	return g.checkEnabled
}

// Authorize decides access to a resource owned by tenant.
func (g *TenantGate) Authorize(ctx context.Context, tenant domain.TenantID) domain.Decision {
	return domain.AuthorizeTenant(tenant, domain.AuthenticationFromContext(ctx), g.checkEnabled)
}

// Check returns a TenantAuthorizationError naming the operation and the
// resource when the caller may not touch it.
func (g *TenantGate) Check(ctx context.Context, operation, resource, resourceID string, tenant domain.TenantID) error {
	decision := g.Authorize(ctx, tenant)
	if decision.Allowed {
		return nil
	}

	g.recorder.AuthorizationDenied(operation)
	g.logger.Info("tenant authorization denied",
		zap.String("operation", operation),
		zap.String("resource", resource),
		zap.String("resource_id", resourceID),
		zap.String("tenant_id", string(tenant)),
		zap.String("reason", decision.Reason))

	return &domain.TenantAuthorizationError{
		Operation:  operation,
		Resource:   resource,
		ResourceID: resourceID,
		TenantID:   tenant,
	}
}

// Visibility returns the tenants whose data the caller may read.
func (g *TenantGate) Visibility(ctx context.Context) domain.Visibility {
	if !g.checkEnabled {
		return domain.Visibility{}
	}
	auth := domain.AuthenticationFromContext(ctx)
	if auth == nil {
		return domain.Visibility{Restricted: true}
	}
	return domain.Visibility{Restricted: true, Tenants: auth.TenantIDs}
}
