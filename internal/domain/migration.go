package domain

// MigrationInstruction maps an activity of the source definition to one of the target.
type MigrationInstruction struct {
	SourceActivityID string `json:"source"`
	TargetActivityID string `json:"target"`
}

// MigrationPlan moves instances of Source onto Target.
type MigrationPlan struct {
	SourceDefinitionID string                 `json:"sourceDefinitionId"`
	TargetDefinitionID string                 `json:"targetDefinitionId"`
	SourceTenantID     TenantID               `json:"sourceTenantId,omitempty"`
	TargetTenantID     TenantID               `json:"targetTenantId,omitempty"`
	Instructions       []MigrationInstruction `json:"instructions,omitempty"`
}

// CheckPlanTenants is the build-time check. Plans where one side has no
// tenant are allowed; the per-instance check decides later.
func CheckPlanTenants(source, target TenantID) error {
	if source.IsNone() || target.IsNone() || source == target {
		return nil
	}
	return &PlanTenantMismatchError{Source: source, Target: target}
}

// CheckInstanceTenant is the execution-time check against the actual
// instance tenant. Moving a tenant instance to a shared definition is allowed.
func CheckInstanceTenant(instanceID string, instanceTenant, target TenantID) error {
	if target.IsNone() || instanceTenant == target {
		return nil
	}
	return &InstanceTenantError{
		InstanceID:     instanceID,
		InstanceTenant: instanceTenant,
		TargetTenant:   target,
	}
}

// BatchTenant derives the tenant of a batch operating on source and target.
func BatchTenant(source, target TenantID) TenantID {
	if source == target {
		return source
	}
	return NoTenant
}
