package domain

import "time"

// DefinitionKind distinguishes the deployable artifacts.
type DefinitionKind string

const (
	KindProcess  DefinitionKind = "process"
	KindCase     DefinitionKind = "case"
	KindDecision DefinitionKind = "decision"
)

// Valid reports whether k is one of the known definition kinds.
func (k DefinitionKind) Valid() bool {
	switch k {
	case KindProcess, KindCase, KindDecision:
		return true
	}
	return false
}

// Definition is a deployed process, case or decision definition.
// Version is unique per (Kind, Key, TenantID).
type Definition struct {
	ID           string
	Kind         DefinitionKind
	Key          string
	Name         string
	Version      int
	VersionTag   string
	TenantID     TenantID
	DeploymentID string
	ResourceName string
	Checksum     string
	// TimerStart is a duration ("5m", "1h") after which a timer start event fires.
	TimerStart string
	Content    []byte
}

// HasTimerStart reports whether the definition starts instances from a timer.
func (d Definition) HasTimerStart() bool {
	return d.TimerStart != ""
}

// Deployment owns the definitions created from one deploy call. Its tenant is
// an input and is inherited by every definition it contains.
type Deployment struct {
	ID          string
	Name        string
	TenantID    TenantID
	Source      string
	DeployedAt  time.Time
	Definitions []Definition
}

// Resource is one artifact submitted for deployment.
type Resource struct {
	Name       string
	Kind       DefinitionKind
	Key        string
	DefName    string
	VersionTag string
	TimerStart string
	Content    []byte
}

// DeploymentRequest is the input of a deploy call.
type DeploymentRequest struct {
	Name      string
	TenantID  TenantID
	Source    string
	Resources []Resource
}

// Binding selects which version of a definition a lookup returns.
type Binding string

const (
	BindingLatest     Binding = "latest"
	BindingVersion    Binding = "version"
	BindingVersionTag Binding = "versionTag"
	BindingDeployment Binding = "deployment"
)

// Lookup describes how a definition should be resolved.
type Lookup struct {
	Kind         DefinitionKind
	ID           string
	Key          string
	Binding      Binding
	Version      int
	VersionTag   string
	DeploymentID string
	Tenant       TenantFilter
}

// ByID builds a lookup by definition id.
func ByID(kind DefinitionKind, id string) Lookup {
	return Lookup{Kind: kind, ID: id}
}

// ByKey builds a lookup for the latest version of key.
func ByKey(kind DefinitionKind, key string) Lookup {
	return Lookup{Kind: kind, Key: key, Binding: BindingLatest}
}
