package domain

import "time"

// EntityKind names the runtime entities that carry a tenant id.
type EntityKind string

const (
	EntityExecution                EntityKind = "execution"
	EntityCaseExecution            EntityKind = "case_execution"
	EntityTask                     EntityKind = "task"
	EntityVariable                 EntityKind = "variable"
	EntityJobDefinition            EntityKind = "job_definition"
	EntityEventSubscription        EntityKind = "event_subscription"
	EntityIncident                 EntityKind = "incident"
	EntityExternalTask             EntityKind = "external_task"
	EntityHistoricDecisionInstance EntityKind = "historic_decision_instance"
)

// EventType distinguishes event subscriptions.
type EventType string

const (
	EventMessage EventType = "message"
	EventSignal  EventType = "signal"
)

// Entity is a runtime record stamped with a tenant id at creation.
//
// InstanceID points at the root execution (or case execution) of the
// instance tree the entity belongs to; for a root it equals ID.
// SuperExecutionID / SuperCaseExecutionID are set on sub-instance roots.
type Entity struct {
	ID                   string
	Kind                 EntityKind
	TenantID             TenantID
	ParentID             string
	InstanceID           string
	SuperExecutionID     string
	SuperCaseExecutionID string
	DefinitionID         string
	Name                 string
	EventType            EventType
	Value                string
	CreatedAt            time.Time
}

// IsInstanceRoot reports whether e is the root of a process or case instance.
func (e Entity) IsInstanceRoot() bool {
	return (e.Kind == EntityExecution || e.Kind == EntityCaseExecution) && e.ID == e.InstanceID
}

// JobType selects the handler that runs a job.
type JobType string

const (
	JobTimerStart     JobType = "timer-start-event"
	JobBatchSeed      JobType = "batch-seed-job"
	JobBatchMigration JobType = "instance-migration"
	JobBatchMonitor   JobType = "batch-monitor-job"
	JobAsyncContinue  JobType = "async-continuation"
)

// DefaultJobRetries is the retry budget of a new job.
const DefaultJobRetries = 3

// Job is a unit of background work. Its tenant is copied from whatever
// created it: a definition, an execution or a batch.
type Job struct {
	ID               string
	Type             JobType
	TenantID         TenantID
	DeploymentID     string
	DefinitionID     string
	JobDefinitionID  string
	ExecutionID      string
	InstanceID       string
	BatchID          string
	Configuration    string
	Retries          int
	ExceptionMessage string
	Suspended        bool
	DueDate          time.Time
	CreatedAt        time.Time
}

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

// BatchType names the bulk operation a batch performs.
type BatchType string

const BatchMigration BatchType = "instance-migration"

// Batch groups the jobs of a bulk operation. Its tenant is derived, see BatchTenant.
type Batch struct {
	ID                     string
	Type                   BatchType
	TenantID               TenantID
	Status                 Status
	TotalJobs              int
	JobsCreated            int
	SeedJobDefinitionID    string
	MonitorJobDefinitionID string
	BatchJobDefinitionID   string
	Configuration          string
	CreatedAt              time.Time
}

// Authentication is the caller identity and the tenants it may access.
type Authentication struct {
	UserID    string
	TenantIDs TenantSet
}
