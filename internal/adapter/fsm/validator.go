package fsm

import (
	"context"
	"errors"
	"sync"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/tenantscope/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// buildEvents converts a lifecycle into looplab/fsm EventDesc format.
// Transitions with the same event+destination are consolidated into a
// single EventDesc with multiple source states (e.g., EventDelete from
// "active", "suspended" and "completed" all go to "deleted").
func buildEvents(lc domain.Lifecycle) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range lc.Transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Apply call, initialized with
// the current state, because looplab/fsm tracks state internally. Event
// tables are built once per lifecycle name.
type Validator struct {
	mu     sync.Mutex
	events map[string][]loopfsm.EventDesc
}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{events: make(map[string][]loopfsm.EventDesc)}
}

func (v *Validator) eventsFor(lc domain.Lifecycle) []loopfsm.EventDesc {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ev, ok := v.events[lc.Name]; ok {
		return ev
	}
	ev := buildEvents(lc)
	v.events[lc.Name] = ev
	return ev
}

// Apply checks if the given event is valid from the current state and
// returns the destination state. Returns a domain.TransitionError if
// the transition is not allowed.
func (v *Validator) Apply(ctx context.Context, lc domain.Lifecycle, current domain.State, event domain.Event) (domain.State, error) {
	machine := loopfsm.NewFSM(string(current), v.eventsFor(lc), nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) || errors.As(err, &unknownEvent) {
			return "", &domain.TransitionError{
				Lifecycle: lc.Name,
				Event:     event,
				Current:   current,
			}
		}
		return "", err
	}

	return domain.State(machine.Current()), nil
}
