package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// DefinitionResolver picks the one definition a request executes against.
type DefinitionResolver struct {
	repo     domain.DefinitionRepository
	gate     *TenantGate
	recorder domain.Recorder
	logger   *zap.Logger
}

// NewDefinitionResolver creates a resolver reading from repo.
func NewDefinitionResolver(repo domain.DefinitionRepository, gate *TenantGate, recorder domain.Recorder, logger *zap.Logger) *DefinitionResolver {
	if recorder == nil {
		recorder = domain.NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefinitionResolver{repo: repo, gate: gate, recorder: recorder, logger: logger}
}

// Resolve returns the definition selected by l, restricted to the tenants
// the caller on ctx may see.
func (r *DefinitionResolver) Resolve(ctx context.Context, l domain.Lookup) (domain.Definition, error) {
	return r.resolve(ctx, l, r.gate.Visibility(ctx), true)
}

// ResolveCalled resolves the definition referenced by a call activity,
// process task, case task or decision task executed by caller.
//
// Without an explicit tenant the lookup is scoped to the caller's tenant and
// falls back to shared (tenant-less) definitions; the caller's tenant was
// checked by the command. An explicit tenant is checked against the caller
// on ctx.
func (r *DefinitionResolver) ResolveCalled(ctx context.Context, caller domain.Entity, l domain.Lookup) (domain.Definition, error) {
	if l.Binding == domain.BindingDeployment {
		callerDef, err := r.repo.GetDefinition(ctx, caller.DefinitionID)
		if err != nil {
			return domain.Definition{}, fmt.Errorf("loading calling definition: %w", err)
		}
		l.DeploymentID = callerDef.DeploymentID
		return r.resolve(ctx, l, domain.Visibility{}, false)
	}

	if l.Tenant.IsSet() {
		def, err := r.resolve(ctx, l, domain.Visibility{}, false)
		if err != nil {
			return domain.Definition{}, err
		}
		if err := r.gate.Check(ctx, "call", "definition", def.ID, def.TenantID); err != nil {
			return domain.Definition{}, err
		}
		return def, nil
	}

	scoped := l
	scoped.Tenant = domain.ForTenant(caller.TenantID)
	def, err := r.resolve(ctx, scoped, domain.Visibility{}, false)
	if err == nil || caller.TenantID.IsNone() || !errors.Is(err, domain.ErrDefinitionNotFound) {
		return def, err
	}

	shared := l
	shared.Tenant = domain.WithoutTenant()
	if def, sharedErr := r.resolve(ctx, shared, domain.Visibility{}, false); sharedErr == nil {
		return def, nil
	}
	return domain.Definition{}, err
}

func (r *DefinitionResolver) resolve(ctx context.Context, l domain.Lookup, vis domain.Visibility, checked bool) (domain.Definition, error) {
	def, err := r.lookup(ctx, l, vis, checked)
	outcome := "resolved"
	var ambiguous *domain.AmbiguousTenantError
	switch {
	case err == nil:
	case errors.As(err, &ambiguous):
		outcome = "ambiguous"
	case errors.Is(err, domain.ErrDefinitionNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	r.recorder.DefinitionResolved(l.Kind, outcome)

	if err != nil {
		r.logger.Debug("definition lookup failed",
			zap.String("kind", string(l.Kind)),
			zap.String("key", l.Key),
			zap.String("id", l.ID),
			zap.String("binding", string(l.Binding)),
			zap.Stringer("tenant", l.Tenant),
			zap.Error(err))
	}
	return def, err
}

func (r *DefinitionResolver) lookup(ctx context.Context, l domain.Lookup, vis domain.Visibility, checked bool) (domain.Definition, error) {
	if l.ID != "" {
		return r.byID(ctx, l, checked)
	}
	if l.Key == "" {
		return domain.Definition{}, domain.ErrInvalidLookup
	}

	if l.Binding == domain.BindingDeployment {
		return r.inDeployment(ctx, l)
	}

	candidates, err := r.repo.FindDefinitions(ctx, domain.DefinitionQuery{
		Kind:       l.Kind,
		Key:        l.Key,
		Visibility: vis,
	})
	if err != nil {
		return domain.Definition{}, fmt.Errorf("finding definitions: %w", err)
	}
	candidates = filterBinding(candidates, l)

	var tenant domain.TenantID
	if l.Tenant.IsSet() {
		tenant = l.Tenant.TenantID()
	} else {
		tenant, err = chooseTenant(ctx, l, candidates)
		if err != nil {
			return domain.Definition{}, err
		}
	}

	def, ok := latestFor(candidates, tenant)
	if !ok {
		return domain.Definition{}, notFound(l)
	}
	return def, nil
}

func (r *DefinitionResolver) byID(ctx context.Context, l domain.Lookup, checked bool) (domain.Definition, error) {
	if l.Tenant.IsSet() {
		return domain.Definition{}, &domain.IllegalTenantSpecError{Context: "looking up by id"}
	}

	def, err := r.repo.GetDefinition(ctx, l.ID)
	if errors.Is(err, domain.ErrDefinitionNotFound) || (err == nil && l.Kind != "" && def.Kind != l.Kind) {
		return domain.Definition{}, &domain.DefinitionNotFoundError{Kind: l.Kind, ID: l.ID}
	}
	if err != nil {
		return domain.Definition{}, fmt.Errorf("getting definition: %w", err)
	}

	if checked {
		if err := r.gate.Check(ctx, "get", string(def.Kind)+" definition", def.ID, def.TenantID); err != nil {
			return domain.Definition{}, err
		}
	}
	return def, nil
}

func (r *DefinitionResolver) inDeployment(ctx context.Context, l domain.Lookup) (domain.Definition, error) {
	defs, err := r.repo.FindDefinitions(ctx, domain.DefinitionQuery{
		Kind:         l.Kind,
		Key:          l.Key,
		DeploymentID: l.DeploymentID,
	})
	if err != nil {
		return domain.Definition{}, fmt.Errorf("finding definitions: %w", err)
	}
	if len(defs) == 0 || l.DeploymentID == "" {
		return domain.Definition{}, &domain.DefinitionNotFoundError{Kind: l.Kind, Key: l.Key, DeploymentID: l.DeploymentID}
	}
	return defs[len(defs)-1], nil
}

// filterBinding narrows candidates to the requested version or version tag.
func filterBinding(defs []domain.Definition, l domain.Lookup) []domain.Definition {
	switch l.Binding {
	case domain.BindingVersion:
		return filterDefs(defs, func(d domain.Definition) bool { return d.Version == l.Version })
	case domain.BindingVersionTag:
		return filterDefs(defs, func(d domain.Definition) bool { return d.VersionTag == l.VersionTag })
	default:
		return defs
	}
}

func filterDefs(defs []domain.Definition, keep func(domain.Definition) bool) []domain.Definition {
	out := make([]domain.Definition, 0, len(defs))
	for _, d := range defs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// chooseTenant picks the tenant of an unfiltered by-key lookup.
func chooseTenant(ctx context.Context, l domain.Lookup, candidates []domain.Definition) (domain.TenantID, error) {
	var owners domain.TenantSet
	shared := false
	for _, d := range candidates {
		if d.TenantID.IsNone() {
			shared = true
			continue
		}
		if !owners.Contains(d.TenantID) {
			owners = append(owners, d.TenantID)
		}
	}

	if len(owners) > 1 {
		return domain.NoTenant, &domain.AmbiguousTenantError{Kind: l.Kind, Key: l.Key}
	}

	auth := domain.AuthenticationFromContext(ctx)
	if auth != nil && len(auth.TenantIDs) == 1 && len(owners) == 1 && owners[0] == auth.TenantIDs[0] {
		return owners[0], nil
	}
	if shared {
		return domain.NoTenant, nil
	}
	if len(owners) == 1 {
		return owners[0], nil
	}
	return domain.NoTenant, notFound(l)
}

// latestFor returns the highest version owned by tenant. Versions never
// compare across tenants.
func latestFor(defs []domain.Definition, tenant domain.TenantID) (domain.Definition, bool) {
	var best domain.Definition
	found := false
	for _, d := range defs {
		if d.TenantID != tenant {
			continue
		}
		if !found || d.Version > best.Version {
			best = d
			found = true
		}
	}
	return best, found
}

func notFound(l domain.Lookup) *domain.DefinitionNotFoundError {
	err := &domain.DefinitionNotFoundError{
		Kind:   l.Kind,
		Key:    l.Key,
		Tenant: l.Tenant,
	}
	switch l.Binding {
	case domain.BindingVersion:
		err.Version = l.Version
	case domain.BindingVersionTag:
		err.VersionTag = l.VersionTag
		if !l.Tenant.IsSet() {
			err.Tenant = domain.WithoutTenant()
		}
	}
	return err
}
