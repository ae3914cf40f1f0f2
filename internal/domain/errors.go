package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrDefinitionNotFound = errors.New("definition not found")
	ErrDeploymentNotFound = errors.New("deployment not found")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrBatchNotFound      = errors.New("batch not found")
	ErrNullTenantID       = errors.New("tenantIdIn contains null value")
	ErrTenantFilterClash  = errors.New("cannot combine tenantIdIn with withoutTenantId")
	ErrInvalidLookup      = errors.New("definition lookup needs an id or a key")
	ErrInvalidDeployment  = errors.New("invalid deployment")
	ErrNoInstances        = errors.New("migration needs at least one process instance")
)

// AmbiguousTenantError is returned when a by-key lookup matches definitions
// of more than one tenant and the caller gave no tenant filter.
type AmbiguousTenantError struct {
	Kind DefinitionKind
	Key  string
}

func (e *AmbiguousTenantError) Error() string {
	return fmt.Sprintf("cannot resolve a unique %s definition for key '%s' because it exists for multiple tenants", e.Kind, e.Key)
}

// DefinitionNotFoundError is returned when no definition matches a lookup.
// The message echoes exactly the criteria that were used.
type DefinitionNotFoundError struct {
	Kind         DefinitionKind
	ID           string
	Key          string
	Version      int
	VersionTag   string
	DeploymentID string
	Tenant       TenantFilter
}

func (e *DefinitionNotFoundError) Error() string {
	var parts []string
	if e.ID != "" {
		parts = append(parts, fmt.Sprintf("id='%s'", e.ID))
	}
	if e.Key != "" {
		parts = append(parts, fmt.Sprintf("key='%s'", e.Key))
	}
	if e.Version > 0 {
		parts = append(parts, "version="+strconv.Itoa(e.Version))
	}
	if e.VersionTag != "" {
		parts = append(parts, fmt.Sprintf("versionTag='%s'", e.VersionTag))
	}
	if e.DeploymentID != "" {
		parts = append(parts, fmt.Sprintf("deploymentId='%s'", e.DeploymentID))
	}
	if e.Tenant.IsSet() {
		parts = append(parts, fmt.Sprintf("tenant-id='%s'", e.Tenant.TenantID()))
	}
	return fmt.Sprintf("no %s definition deployed with %s", e.Kind, strings.Join(parts, ", "))
}

func (e *DefinitionNotFoundError) Is(target error) bool {
	return target == ErrDefinitionNotFound
}

// IllegalTenantSpecError is returned when a caller combines an id-based
// lookup with a tenant filter.
type IllegalTenantSpecError struct {
	Context string
}

func (e *IllegalTenantSpecError) Error() string {
	return "cannot specify a tenant-id when " + e.Context
}

// PlanTenantMismatchError rejects a migration plan between two different tenants.
type PlanTenantMismatchError struct {
	Source TenantID
	Target TenantID
}

func (e *PlanTenantMismatchError) Error() string {
	return fmt.Sprintf("cannot migrate process instances between processes of different tenants ('%s' != '%s')", e.Source, e.Target)
}

// InstanceTenantError rejects the migration of one process instance.
type InstanceTenantError struct {
	InstanceID     string
	InstanceTenant TenantID
	TargetTenant   TenantID
}

func (e *InstanceTenantError) Error() string {
	if e.InstanceTenant.IsNone() {
		return fmt.Sprintf("cannot migrate process instance '%s' without tenant to a process definition with a tenant ('%s')", e.InstanceID, e.TargetTenant)
	}
	return fmt.Sprintf("cannot migrate process instance '%s' to a process definition of a different tenant ('%s' != '%s')", e.InstanceID, e.InstanceTenant, e.TargetTenant)
}

// TenantImmutabilityError is returned when a task would change tenant, or a
// subtask would get a tenant different from its parent.
type TenantImmutabilityError struct {
	TaskID       string
	ParentTaskID string
	Current      TenantID
	Requested    TenantID
}

func (e *TenantImmutabilityError) Error() string {
	if e.ParentTaskID != "" {
		return fmt.Sprintf("cannot set different tenantId on subtask than on parent task: parent task '%s' has tenant-id '%s', subtask has tenant-id '%s'",
			e.ParentTaskID, e.Current, e.Requested)
	}
	return fmt.Sprintf("cannot change tenantId of task '%s': current tenant-id '%s', new tenant-id '%s'", e.TaskID, e.Current, e.Requested)
}

// TenantAuthorizationError is returned when the caller is not authenticated
// for the tenant owning a resource. It is raised before any mutation.
type TenantAuthorizationError struct {
	Operation  string
	Resource   string
	ResourceID string
	TenantID   TenantID
}

func (e *TenantAuthorizationError) Error() string {
	return fmt.Sprintf("cannot %s %s '%s' because it belongs to no authenticated tenant", e.Operation, e.Resource, e.ResourceID)
}

// CorrelationReason classifies correlation failures.
type CorrelationReason string

const (
	CorrelationNoMatch            CorrelationReason = "no-match"
	CorrelationMultipleTenants    CorrelationReason = "multiple-tenants"
	CorrelationMultipleExecutions CorrelationReason = "multiple-executions"
)

// CorrelationError is returned when a message or signal cannot be delivered
// to a single, unambiguous target.
type CorrelationError struct {
	EventType EventType
	Name      string
	Reason    CorrelationReason
	Matches   int
}

func (e *CorrelationError) Error() string {
	switch e.Reason {
	case CorrelationMultipleTenants:
		return fmt.Sprintf("cannot correlate %s '%s' because it matches subscriptions of multiple tenants", e.EventType, e.Name)
	case CorrelationMultipleExecutions:
		return fmt.Sprintf("cannot correlate %s '%s' to a single execution: %d executions match", e.EventType, e.Name, e.Matches)
	default:
		return fmt.Sprintf("cannot correlate %s '%s': no execution matches", e.EventType, e.Name)
	}
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Lifecycle string
	Event     Event
	Current   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %q is not valid from state %q", e.Lifecycle, e.Event, e.Current)
}

// JobFailureError reports a failed job execution together with the retry
// bookkeeping recorded for it.
type JobFailureError struct {
	JobID   string
	Retries int
	Err     error
}

func (e *JobFailureError) Error() string {
	return fmt.Sprintf("job '%s' failed (%d retries left): %v", e.JobID, e.Retries, e.Err)
}

func (e *JobFailureError) Unwrap() error {
	return e.Err
}
