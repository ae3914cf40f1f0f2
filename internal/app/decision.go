package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// DecisionRequest evaluates a decision definition outside of any process.
type DecisionRequest struct {
	Lookup    domain.Lookup
	Variables map[string]any
}

// DecisionTask evaluates a decision from a business rule task or a
// case decision task.
type DecisionTask struct {
	Key        string
	Binding    domain.Binding
	Version    int
	VersionTag string
	Tenant     domain.TenantFilter
	Variables  map[string]any
}

// DecisionResult holds the outputs of an evaluation and the historic
// decision instance recorded for it.
type DecisionResult struct {
	Definition domain.Definition
	Outputs    map[string]any
	Historic   domain.Entity
}

// DecisionService evaluates decisions and records historic decision instances.
type DecisionService struct {
	store      domain.Store
	resolver   *DefinitionResolver
	propagator *Propagator
	gate       *TenantGate
	evaluator  domain.DecisionEvaluator
	logger     *zap.Logger
}

// NewDecisionService creates a decision service.
func NewDecisionService(store domain.Store, resolver *DefinitionResolver, propagator *Propagator, gate *TenantGate, evaluator domain.DecisionEvaluator, logger *zap.Logger) *DecisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionService{
		store:      store,
		resolver:   resolver,
		propagator: propagator,
		gate:       gate,
		evaluator:  evaluator,
		logger:     logger,
	}
}

// Evaluate resolves and evaluates a decision as a root-level creation.
func (s *DecisionService) Evaluate(ctx context.Context, req DecisionRequest) (DecisionResult, error) {
	l := req.Lookup
	l.Kind = domain.KindDecision
	def, err := s.resolver.Resolve(ctx, l)
	if err != nil {
		return DecisionResult{}, err
	}

	tenant := s.propagator.RootTenant(domain.CreateHistoricDecisionInstance, def, req.Variables)
	return s.evaluate(ctx, def, tenant, domain.Entity{}, req.Variables)
}

// EvaluateDecisionTask evaluates the decision referenced by a decision task
// of the execution callerID.
func (s *DecisionService) EvaluateDecisionTask(ctx context.Context, callerID string, task DecisionTask) (DecisionResult, error) {
	caller, err := s.store.GetEntity(ctx, callerID)
	if err != nil {
		return DecisionResult{}, err
	}
	if err := s.gate.Check(ctx, "evaluate decision task", string(caller.Kind), caller.ID, caller.TenantID); err != nil {
		return DecisionResult{}, err
	}

	binding := task.Binding
	if binding == "" {
		binding = domain.BindingLatest
	}
	def, err := s.resolver.ResolveCalled(ctx, caller, domain.Lookup{
		Kind:       domain.KindDecision,
		Key:        task.Key,
		Binding:    binding,
		Version:    task.Version,
		VersionTag: task.VersionTag,
		Tenant:     task.Tenant,
	})
	if err != nil {
		return DecisionResult{}, err
	}

	tenant := s.propagator.CalledTenant(domain.CreateHistoricDecisionInstance, def, caller, task.Tenant, task.Variables)
	return s.evaluate(ctx, def, tenant, caller, task.Variables)
}

func (s *DecisionService) evaluate(ctx context.Context, def domain.Definition, tenant domain.TenantID, caller domain.Entity, vars map[string]any) (DecisionResult, error) {
	outputs, err := s.evaluator.Evaluate(ctx, def, vars)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("evaluating decision %q: %w", def.Key, err)
	}

	value, err := encodeValue(outputs)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("encoding decision outputs: %w", err)
	}

	historic := domain.Entity{
		ID:           newID(),
		Kind:         domain.EntityHistoricDecisionInstance,
		TenantID:     tenant,
		DefinitionID: def.ID,
		Name:         def.Key,
		Value:        value,
		CreatedAt:    time.Now().UTC(),
	}
	if caller.ID != "" {
		historic.ParentID = caller.ID
		historic.InstanceID = caller.InstanceID
		if caller.Kind == domain.EntityCaseExecution {
			historic.SuperCaseExecutionID = caller.ID
		} else {
			historic.SuperExecutionID = caller.ID
		}
	}
	if err := s.store.CreateEntity(ctx, historic); err != nil {
		return DecisionResult{}, fmt.Errorf("recording historic decision instance: %w", err)
	}

	s.logger.Debug("decision evaluated",
		zap.String("definition_id", def.ID),
		zap.String("key", def.Key),
		zap.Int("version", def.Version),
		zap.String("tenant_id", string(tenant)))
	return DecisionResult{Definition: def, Outputs: outputs, Historic: historic}, nil
}
