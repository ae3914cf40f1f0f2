package domain

import "maps"

// CreationKind names the root-level creation events the provider is asked about.
type CreationKind string

const (
	CreateProcessInstance          CreationKind = "process-instance"
	CreateCaseInstance             CreationKind = "case-instance"
	CreateHistoricDecisionInstance CreationKind = "historic-decision-instance"
)

// ProviderContext is the read-only view handed to a TenantIDProvider.
// All fields are copies; mutating them has no effect on the runtime.
type ProviderContext struct {
	Kind               CreationKind
	Definition         Definition
	Variables          map[string]any
	SuperExecution     *Entity
	SuperCaseExecution *Entity
}

// IsRoot reports whether the creation has no super execution or super case execution.
func (c ProviderContext) IsRoot() bool {
	return c.SuperExecution == nil && c.SuperCaseExecution == nil
}

// NewProviderContext copies its inputs so the provider cannot reach runtime state.
func NewProviderContext(kind CreationKind, def Definition, vars map[string]any, superExec, superCaseExec *Entity) ProviderContext {
	pc := ProviderContext{
		Kind:       kind,
		Definition: def,
		Variables:  maps.Clone(vars),
	}
	if pc.Variables == nil {
		pc.Variables = map[string]any{}
	}
	if def.Content != nil {
		pc.Definition.Content = append([]byte(nil), def.Content...)
	}
	if superExec != nil {
		e := *superExec
		pc.SuperExecution = &e
	}
	if superCaseExec != nil {
		e := *superCaseExec
		pc.SuperCaseExecution = &e
	}
	return pc
}

// TenantIDProvider assigns a tenant to instances of definitions that have none.
// Returning NoTenant keeps the instance tenant-less.
type TenantIDProvider interface {
	ProvideTenantID(pc ProviderContext) TenantID
}

// TenantIDProviderFunc adapts a function to TenantIDProvider.
type TenantIDProviderFunc func(pc ProviderContext) TenantID

func (f TenantIDProviderFunc) ProvideTenantID(pc ProviderContext) TenantID {
	return f(pc)
}
