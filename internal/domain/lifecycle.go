package domain

// Event represents an action that triggers a state transition.
type Event string

const (
	EventSuspend  Event = "suspend"
	EventActivate Event = "activate"
	EventComplete Event = "complete"
	EventDelete   Event = "delete"

	EventInstall Event = "install"
	EventRelease Event = "release"
)

// State is a node of a Lifecycle.
type State string

// Transition defines a valid state change: an event moves from Src to Dst.
type Transition struct {
	Event Event
	Src   State
	Dst   State
}

// Lifecycle is a named set of transitions consumed by the FSM adapter.
type Lifecycle struct {
	Name        string
	Transitions []Transition
}

// BatchLifecycle governs administrative operations on batches.
var BatchLifecycle = Lifecycle{
	Name: "batch",
	Transitions: []Transition{
		{Event: EventSuspend, Src: State(StatusActive), Dst: State(StatusSuspended)},
		{Event: EventActivate, Src: State(StatusSuspended), Dst: State(StatusActive)},
		{Event: EventComplete, Src: State(StatusActive), Dst: State(StatusCompleted)},
		{Event: EventDelete, Src: State(StatusActive), Dst: State(StatusDeleted)},
		{Event: EventDelete, Src: State(StatusSuspended), Dst: State(StatusDeleted)},
		{Event: EventDelete, Src: State(StatusCompleted), Dst: State(StatusDeleted)},
	},
}

const (
	ScopeIdle   State = "idle"
	ScopeScoped State = "scoped"
)

// JobScopeLifecycle is the per-job authentication scope: idle -> scoped -> idle.
var JobScopeLifecycle = Lifecycle{
	Name: "job-scope",
	Transitions: []Transition{
		{Event: EventInstall, Src: ScopeIdle, Dst: ScopeScoped},
		{Event: EventRelease, Src: ScopeScoped, Dst: ScopeIdle},
	},
}
