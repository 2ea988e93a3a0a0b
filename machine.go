package hsm

// StateMachine holds the static, immutable structure of an HSM: its
// state tree, transitions, and the policies that apply across the
// whole tree. A StateMachine is built once via NewStateMachine and the
// fluent State/Transition builders, then Finalize'd; any number of
// independent StateMachineInstance values can then be created from it.
type StateMachine[E any] struct {
	top *State[E]

	// LocalDefault makes every subsequently-declared transition between
	// a state and one of its (direct or transitive) sub-states local
	// unless explicitly overridden with TransitionBuilder.Local.
	LocalDefault bool

	// DefaultActionsPolicy selects what is synthesized for states that
	// do not override entry/exit/during (see DefaultActions).
	DefaultActionsPolicy DefaultActions

	// ClearTimersOnExit, when true, makes the engine automatically
	// clear every timer registered under a state's StateId whenever
	// that state's exit path runs, scoping timers to the lifetime of
	// the state that armed them.
	ClearTimersOnExit bool
}

// NewStateMachine creates an empty StateMachine whose root (Top) state
// carries the given StateId. Top is its own parent, per UML2 HSM
// convention, so ancestry walks terminate without a nil check.
func NewStateMachine[E any](topId StateId) *StateMachine[E] {
	sm := &StateMachine[E]{}
	sm.top = &State[E]{id: topId, kind: KindTop, sm: sm}
	sm.top.parent = sm.top
	return sm
}

// Top returns the machine's root state. Use Top().State(id) to declare
// its top-level children.
func (sm *StateMachine[E]) Top() *State[E] { return sm.top }

// State creates a builder for a new top-level child state.
func (sm *StateMachine[E]) State(id StateId) *StateBuilder[E] {
	return sm.top.State(id)
}

// Finalize validates that the machine can be entered (Top resolves to
// a leaf via default-child links), that every composite state in the
// tree has a default child, and that every declared transition target
// also resolves to a leaf. Panics on any structural error, so that
// definition-time mistakes surface immediately to the caller.
func (sm *StateMachine[E]) Finalize() {
	sm.top.validate()

	var recurse func(*State[E])
	recurse = func(s *State[E]) {
		s.validate()
		for _, t := range s.transitions {
			if t.target != nil {
				t.target.validate()
			}
		}
		for _, child := range s.children {
			recurse(child)
		}
	}
	recurse(sm.top)
}
