package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Config holds the engine settings.
type Config struct {
	TenantCheckEnabled bool
	JobRetries         int
	MonitorInterval    time.Duration
}

// Dependencies are the ports the engine is built from. Provider, Migrator,
// Recorder and Logger are optional.
type Dependencies struct {
	Store     domain.Store
	Publisher domain.JobPublisher
	Validator domain.TransitionValidator
	Provider  domain.TenantIDProvider
	Evaluator domain.DecisionEvaluator
	Migrator  domain.InstanceMigrator
	Recorder  domain.Recorder
	Logger    *zap.Logger
}

// Engine wires the tenant-aware services together.
type Engine struct {
	Gate        *TenantGate
	Resolver    *DefinitionResolver
	Propagator  *Propagator
	Scope       *JobContextScope
	Deployments *DeploymentService
	Runtime     *RuntimeService
	Decisions   *DecisionService
	Tasks       *TaskService
	Migrations  *MigrationService
	Batches     *BatchService
	Jobs        *JobService
	Queries     *QueryService
}

// NewEngine builds an engine and registers the built-in job handlers.
func NewEngine(cfg Config, deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = domain.NopRecorder{}
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 5 * time.Second
	}

	gate := NewTenantGate(cfg.TenantCheckEnabled, recorder, logger.Named("gate"))
	resolver := NewDefinitionResolver(deps.Store, gate, recorder, logger.Named("resolver"))
	propagator := NewPropagator(deps.Provider, logger.Named("propagation"))
	scope := NewJobContextScope(deps.Validator, logger.Named("jobscope"))
	jobs := NewJobService(deps.Store, deps.Publisher, gate, scope, cfg.JobRetries, recorder, logger.Named("jobs"))

	e := &Engine{
		Gate:        gate,
		Resolver:    resolver,
		Propagator:  propagator,
		Scope:       scope,
		Jobs:        jobs,
		Deployments: NewDeploymentService(deps.Store, gate, jobs, logger.Named("deployments")),
		Runtime:     NewRuntimeService(deps.Store, resolver, propagator, gate, jobs, logger.Named("runtime")),
		Decisions:   NewDecisionService(deps.Store, resolver, propagator, gate, deps.Evaluator, logger.Named("decisions")),
		Tasks:       NewTaskService(deps.Store, gate, logger.Named("tasks")),
		Migrations:  NewMigrationService(deps.Store, resolver, gate, jobs, deps.Migrator, deps.Validator, cfg.MonitorInterval, logger.Named("migrations")),
		Batches:     NewBatchService(deps.Store, gate, jobs, deps.Validator, logger.Named("batches")),
		Queries:     NewQueryService(deps.Store, gate),
	}

	jobs.RegisterHandler(domain.JobTimerStart, JobHandlerFunc(e.fireTimerStart))
	jobs.RegisterHandler(domain.JobAsyncContinue, JobHandlerFunc(e.Runtime.continueAsync))
	jobs.RegisterHandler(domain.JobBatchSeed, JobHandlerFunc(e.Migrations.seed))
	jobs.RegisterHandler(domain.JobBatchMigration, JobHandlerFunc(e.Migrations.executeJob))
	jobs.RegisterHandler(domain.JobBatchMonitor, JobHandlerFunc(e.Migrations.monitor))
	return e
}

// fireTimerStart starts an instance of the job's definition. The caller is
// whatever the job scope installed, so a tenant job may only start its own
// tenant's definition.
func (e *Engine) fireTimerStart(ctx context.Context, job domain.Job) error {
	_, err := e.Runtime.StartProcessInstance(ctx, StartRequest{
		Lookup: domain.ByID(domain.KindProcess, job.DefinitionID),
	})
	return err
}
