package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// StartRequest starts a root process instance or creates a root case instance.
type StartRequest struct {
	Lookup    domain.Lookup
	Variables map[string]any
}

// DependentSpec describes an entity created under an existing execution or task.
// A non-empty TenantID is an explicit override of the propagated tenant.
type DependentSpec struct {
	Kind      domain.EntityKind
	Name      string
	EventType domain.EventType
	Value     any
	TenantID  domain.TenantID
}

// CalledElement is a call activity, process task or case task.
type CalledElement struct {
	Kind       domain.DefinitionKind
	Key        string
	Binding    domain.Binding
	Version    int
	VersionTag string
	Tenant     domain.TenantFilter
	Variables  map[string]any
}

// Correlation delivers a message or signal to waiting event subscriptions.
type Correlation struct {
	EventType  domain.EventType
	Name       string
	Tenant     domain.TenantFilter
	InstanceID string
	All        bool
	Variables  map[string]any
}

// RuntimeService creates instances and their dependent entities, stamping
// each with its tenant at creation.
type RuntimeService struct {
	store      domain.Store
	resolver   *DefinitionResolver
	propagator *Propagator
	gate       *TenantGate
	jobs       *JobService
	logger     *zap.Logger
}

// NewRuntimeService creates a runtime service.
func NewRuntimeService(store domain.Store, resolver *DefinitionResolver, propagator *Propagator, gate *TenantGate, jobs *JobService, logger *zap.Logger) *RuntimeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuntimeService{
		store:      store,
		resolver:   resolver,
		propagator: propagator,
		gate:       gate,
		jobs:       jobs,
		logger:     logger,
	}
}

// StartProcessInstance starts a root process instance.
func (s *RuntimeService) StartProcessInstance(ctx context.Context, req StartRequest) (domain.Entity, error) {
	return s.startRoot(ctx, domain.KindProcess, domain.CreateProcessInstance, domain.EntityExecution, req)
}

// CreateCaseInstance creates a root case instance.
func (s *RuntimeService) CreateCaseInstance(ctx context.Context, req StartRequest) (domain.Entity, error) {
	return s.startRoot(ctx, domain.KindCase, domain.CreateCaseInstance, domain.EntityCaseExecution, req)
}

func (s *RuntimeService) startRoot(ctx context.Context, kind domain.DefinitionKind, creation domain.CreationKind, entityKind domain.EntityKind, req StartRequest) (domain.Entity, error) {
	l := req.Lookup
	l.Kind = kind
	def, err := s.resolver.Resolve(ctx, l)
	if err != nil {
		return domain.Entity{}, err
	}

	root := newRoot(entityKind, def, s.propagator.RootTenant(creation, def, req.Variables))
	if err := s.createInstance(ctx, root, req.Variables); err != nil {
		return domain.Entity{}, err
	}

	s.logger.Info("instance started",
		zap.String("instance_id", root.ID),
		zap.String("kind", string(entityKind)),
		zap.String("definition_id", def.ID),
		zap.String("tenant_id", string(root.TenantID)))
	return root, nil
}

// StartCalledInstance creates the sub-instance started by a call activity,
// process task or case task of the execution callerID.
func (s *RuntimeService) StartCalledInstance(ctx context.Context, callerID string, ce CalledElement) (domain.Entity, error) {
	caller, err := s.loadExecution(ctx, "start called instance", callerID)
	if err != nil {
		return domain.Entity{}, err
	}
	if caller.Kind != domain.EntityExecution && caller.Kind != domain.EntityCaseExecution {
		return domain.Entity{}, fmt.Errorf("entity %q is a %s, not an execution", caller.ID, caller.Kind)
	}

	binding := ce.Binding
	if binding == "" {
		binding = domain.BindingLatest
	}
	def, err := s.resolver.ResolveCalled(ctx, caller, domain.Lookup{
		Kind:       ce.Kind,
		Key:        ce.Key,
		Binding:    binding,
		Version:    ce.Version,
		VersionTag: ce.VersionTag,
		Tenant:     ce.Tenant,
	})
	if err != nil {
		return domain.Entity{}, err
	}

	creation, entityKind := domain.CreateProcessInstance, domain.EntityExecution
	if def.Kind == domain.KindCase {
		creation, entityKind = domain.CreateCaseInstance, domain.EntityCaseExecution
	}

	sub := newRoot(entityKind, def, s.propagator.CalledTenant(creation, def, caller, ce.Tenant, ce.Variables))
	if caller.Kind == domain.EntityCaseExecution {
		sub.SuperCaseExecutionID = caller.ID
	} else {
		sub.SuperExecutionID = caller.ID
	}
	if err := s.createInstance(ctx, sub, ce.Variables); err != nil {
		return domain.Entity{}, err
	}

	s.logger.Info("called instance started",
		zap.String("instance_id", sub.ID),
		zap.String("caller_id", caller.ID),
		zap.String("definition_id", def.ID),
		zap.String("tenant_id", string(sub.TenantID)),
		zap.String("caller_tenant_id", string(caller.TenantID)))
	return sub, nil
}

// CreateDependent creates an entity under sourceID, copying its tenant.
func (s *RuntimeService) CreateDependent(ctx context.Context, sourceID string, spec DependentSpec) (domain.Entity, error) {
	source, err := s.loadExecution(ctx, "create "+string(spec.Kind), sourceID)
	if err != nil {
		return domain.Entity{}, err
	}
	return s.createDependent(ctx, source, spec)
}

func (s *RuntimeService) createDependent(ctx context.Context, source domain.Entity, spec DependentSpec) (domain.Entity, error) {
	value, err := encodeValue(spec.Value)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("encoding %s %q: %w", spec.Kind, spec.Name, err)
	}

	child := domain.Entity{
		ID:        newID(),
		Kind:      spec.Kind,
		TenantID:  spec.TenantID,
		ParentID:  source.ID,
		Name:      spec.Name,
		EventType: spec.EventType,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	s.propagator.Stamp(&child, source)

	if err := s.store.CreateEntity(ctx, child); err != nil {
		return domain.Entity{}, fmt.Errorf("creating %s: %w", child.Kind, err)
	}
	return child, nil
}

// CreateAsyncJob creates an asynchronous continuation job for executionID.
func (s *RuntimeService) CreateAsyncJob(ctx context.Context, executionID, activity string) (domain.Job, error) {
	exec, err := s.loadExecution(ctx, "create async job", executionID)
	if err != nil {
		return domain.Job{}, err
	}

	def, err := s.store.GetDefinition(ctx, exec.DefinitionID)
	if err != nil {
		return domain.Job{}, fmt.Errorf("loading definition of execution %q: %w", exec.ID, err)
	}

	job := domain.Job{
		Type:          domain.JobAsyncContinue,
		DeploymentID:  def.DeploymentID,
		Configuration: activity,
	}
	s.propagator.StampJob(&job, exec)
	return s.jobs.Create(ctx, job)
}

// continueAsync runs an asynchronous continuation: the execution moves on to
// the activity named in the job configuration as a child execution.
func (s *RuntimeService) continueAsync(ctx context.Context, job domain.Job) error {
	exec, err := s.store.GetEntity(ctx, job.ExecutionID)
	if err != nil {
		return fmt.Errorf("loading execution: %w", err)
	}
	if err := s.gate.Check(ctx, "continue", "execution", exec.ID, exec.TenantID); err != nil {
		return err
	}
	_, err = s.createDependent(ctx, exec, DependentSpec{Kind: domain.EntityExecution, Name: job.Configuration})
	return err
}

// Correlate delivers a message or signal. Without a tenant filter the
// matching subscriptions must belong to one tenant unless All is set.
// A message not correlated with All must match exactly one execution.
//
// Every target is loaded and every variable encoded before anything is
// written. A store failure during delivery leaves the targets handled so far
// updated.
func (s *RuntimeService) Correlate(ctx context.Context, c Correlation) ([]domain.Entity, error) {
	if c.EventType == "" {
		c.EventType = domain.EventMessage
	}
	if c.InstanceID != "" && c.Tenant.IsSet() {
		return nil, &domain.IllegalTenantSpecError{Context: "correlating by process instance id"}
	}

	subs, err := s.store.FindEntities(ctx, domain.EntityQuery{
		Kind:       domain.EntityEventSubscription,
		EventType:  c.EventType,
		Name:       c.Name,
		InstanceID: c.InstanceID,
		Tenants:    filterTenant(c.Tenant),
		Visibility: s.gate.Visibility(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("finding event subscriptions: %w", err)
	}

	if len(subs) == 0 {
		return nil, &domain.CorrelationError{EventType: c.EventType, Name: c.Name, Reason: domain.CorrelationNoMatch}
	}
	if !c.All {
		if !c.Tenant.IsSet() && len(distinctTenants(subs)) > 1 {
			return nil, &domain.CorrelationError{EventType: c.EventType, Name: c.Name, Reason: domain.CorrelationMultipleTenants, Matches: len(subs)}
		}
		if c.EventType == domain.EventMessage && len(subs) > 1 {
			return nil, &domain.CorrelationError{EventType: c.EventType, Name: c.Name, Reason: domain.CorrelationMultipleExecutions, Matches: len(subs)}
		}
	}

	targets := make([]domain.Entity, 0, len(subs))
	for _, sub := range subs {
		exec, err := s.store.GetEntity(ctx, sub.ParentID)
		if err != nil {
			return nil, fmt.Errorf("loading subscribed execution: %w", err)
		}
		targets = append(targets, exec)
	}
	for name, v := range c.Variables {
		if _, err := encodeValue(v); err != nil {
			return nil, fmt.Errorf("encoding variable %q: %w", name, err)
		}
	}

	for i, sub := range subs {
		exec := targets[i]
		for _, name := range slices.Sorted(maps.Keys(c.Variables)) {
			if _, err := s.createDependent(ctx, exec, DependentSpec{Kind: domain.EntityVariable, Name: name, Value: c.Variables[name]}); err != nil {
				return nil, err
			}
		}
		if c.EventType == domain.EventMessage {
			if err := s.store.DeleteEntity(ctx, sub.ID); err != nil && !errors.Is(err, domain.ErrEntityNotFound) {
				return nil, fmt.Errorf("consuming subscription: %w", err)
			}
		}
	}

	s.logger.Info("event correlated",
		zap.String("event_type", string(c.EventType)),
		zap.String("name", c.Name),
		zap.Stringer("tenant", c.Tenant),
		zap.Bool("all", c.All),
		zap.Int("executions", len(targets)))
	return targets, nil
}

// Signal broadcasts a signal to every waiting subscription of one tenant.
func (s *RuntimeService) Signal(ctx context.Context, name string, tenant domain.TenantFilter, vars map[string]any) ([]domain.Entity, error) {
	return s.Correlate(ctx, Correlation{
		EventType: domain.EventSignal,
		Name:      name,
		Tenant:    tenant,
		Variables: vars,
	})
}

// loadExecution loads the entity a runtime command acts on and checks the
// caller may touch its tenant.
func (s *RuntimeService) loadExecution(ctx context.Context, operation, id string) (domain.Entity, error) {
	e, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return domain.Entity{}, err
	}
	if err := s.gate.Check(ctx, operation, string(e.Kind), e.ID, e.TenantID); err != nil {
		return domain.Entity{}, err
	}
	return e, nil
}

func (s *RuntimeService) createInstance(ctx context.Context, root domain.Entity, vars map[string]any) error {
	if err := s.store.CreateEntity(ctx, root); err != nil {
		return fmt.Errorf("creating instance: %w", err)
	}
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		if _, err := s.createDependent(ctx, root, DependentSpec{Kind: domain.EntityVariable, Name: name, Value: vars[name]}); err != nil {
			return err
		}
	}
	return nil
}

func newRoot(kind domain.EntityKind, def domain.Definition, tenant domain.TenantID) domain.Entity {
	id := newID()
	return domain.Entity{
		ID:           id,
		Kind:         kind,
		TenantID:     tenant,
		InstanceID:   id,
		DefinitionID: def.ID,
		Name:         def.Key,
		CreatedAt:    time.Now().UTC(),
	}
}

func distinctTenants(entities []domain.Entity) []domain.TenantID {
	var out []domain.TenantID
	for _, e := range entities {
		if !slices.Contains(out, e.TenantID) {
			out = append(out, e.TenantID)
		}
	}
	return out
}

func encodeValue(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
