package domain

import "context"

// DefinitionRepository defines the persistence contract for deployments and definitions.
type DefinitionRepository interface {
	// SaveDeployment persists d and its definitions, allocating each
	// definition's version as max(version)+1 for (kind, key, tenant) inside
	// the same transaction.
	SaveDeployment(ctx context.Context, d Deployment) (Deployment, error)
	GetDeployment(ctx context.Context, id string) (Deployment, error)
	DeleteDeployment(ctx context.Context, id string) error
	GetDefinition(ctx context.Context, id string) (Definition, error)
	// FindDefinitions returns matches ordered by tenant, then version ascending.
	FindDefinitions(ctx context.Context, q DefinitionQuery) ([]Definition, error)
}

// EntityRepository defines the persistence contract for runtime entities.
type EntityRepository interface {
	CreateEntity(ctx context.Context, e Entity) error
	GetEntity(ctx context.Context, id string) (Entity, error)
	UpdateEntity(ctx context.Context, e Entity) error
	DeleteEntity(ctx context.Context, id string) error
	FindEntities(ctx context.Context, q EntityQuery) ([]Entity, error)
}

// JobRepository defines the persistence contract for jobs.
type JobRepository interface {
	CreateJob(ctx context.Context, j Job) error
	GetJob(ctx context.Context, id string) (Job, error)
	UpdateJob(ctx context.Context, j Job) error
	DeleteJob(ctx context.Context, id string) error
	FindJobs(ctx context.Context, q JobQuery) ([]Job, error)
}

// BatchRepository defines the persistence contract for batches.
type BatchRepository interface {
	CreateBatch(ctx context.Context, b Batch) error
	GetBatch(ctx context.Context, id string) (Batch, error)
	UpdateBatch(ctx context.Context, b Batch) error
	DeleteBatch(ctx context.Context, id string) error
	FindBatches(ctx context.Context, q BatchQuery) ([]Batch, error)
}

// Store bundles every repository the core needs.
type Store interface {
	DefinitionRepository
	EntityRepository
	JobRepository
	BatchRepository
}

// JobPublisher hands a persisted job to the background executor.
type JobPublisher interface {
	Publish(ctx context.Context, job Job) error
}

// TransitionValidator checks lifecycle transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, lc Lifecycle, current State, event Event) (State, error)
}

// DecisionEvaluator runs a decision definition. The DMN engine lives behind it.
type DecisionEvaluator interface {
	Evaluate(ctx context.Context, def Definition, vars map[string]any) (map[string]any, error)
}

// InstanceMigrator moves the activity instances of one process instance
// onto the target definition. The BPMN engine lives behind it.
type InstanceMigrator interface {
	Migrate(ctx context.Context, instance Entity, plan MigrationPlan) error
}

// Recorder receives counters about tenant decisions.
type Recorder interface {
	DefinitionResolved(kind DefinitionKind, outcome string)
	AuthorizationDenied(operation string)
	JobExecuted(jobType JobType, scoped bool, failed bool)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) DefinitionResolved(DefinitionKind, string) {}

func (NopRecorder) AuthorizationDenied(string) {}

func (NopRecorder) JobExecuted(JobType, bool, bool) {}
