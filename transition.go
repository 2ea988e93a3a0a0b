package hsm

import "fmt"

// transition is one declared edge in the state tree: on eventId, from
// the state that declared it (the source), to target, subject to an
// optional guard and carrying an optional action run between the exit
// and entry phases.
type transition[E any] struct {
	internal bool
	local    bool
	eventId  EventId
	target   *State[E] // nil => terminal transition (machine stops)
	guard    func(Event, E) bool
	action   func(Event, E)
	history  History

	guardName, actionName string
}

func (t *transition[E]) String() string {
	s := ""
	if t.guardName != "" {
		s += "[" + t.guardName + "]"
	}
	if t.actionName != "" {
		s += " / " + t.actionName
	}
	return s
}

// TransitionBuilder provides a fluent API for declaring a transition
// from one state to another: an optional guard, an optional action,
// and a transition kind (external, internal, local, or history).
type TransitionBuilder[E any] struct {
	src     *State[E]
	t       *transition[E]
	options []func(*State[E], *transition[E])
	guards  []namedGuard[E]
	actions []namedAction[E]
	built   bool
}

type namedGuard[E any] struct {
	name  string
	guard func(Event, E) bool
}

func combineGuards[E any](items []namedGuard[E]) (string, func(Event, E) bool) {
	if len(items) == 1 {
		return items[0].name, items[0].guard
	}
	var names string
	for _, it := range items {
		if it.name == "" {
			continue
		}
		if names != "" {
			names += ";"
		}
		names += it.name
	}
	return names, func(e Event, ext E) bool {
		for _, it := range items {
			if !it.guard(e, ext) {
				return false
			}
		}
		return true
	}
}

// Transition creates a builder for a transition declared on s,
// triggered by eventId, landing on target. Pass nil for target to
// declare a terminal transition (the machine stops processing further
// events once taken).
func (s *State[E]) Transition(eventId EventId, target *State[E]) *TransitionBuilder[E] {
	t := &transition[E]{eventId: eventId, target: target}
	return &TransitionBuilder[E]{src: s, t: t}
}

// AddTransition is shorthand for s.Transition(eventId, target).Build().
func (s *State[E]) AddTransition(eventId EventId, target *State[E]) {
	s.Transition(eventId, target).Build()
}

// Guard adds a guard condition; the transition is only taken if every
// guard attached returns true. May be called multiple times.
func (tb *TransitionBuilder[E]) Guard(f func(Event, E) bool) *TransitionBuilder[E] {
	return tb.GuardNamed("", f)
}

// GuardNamed is like Guard but attaches a name used only for diagrams.
func (tb *TransitionBuilder[E]) GuardNamed(name string, f func(Event, E) bool) *TransitionBuilder[E] {
	tb.guards = append(tb.guards, namedGuard[E]{name: name, guard: f})
	if len(tb.guards) == 1 {
		tb.options = append(tb.options, func(s *State[E], t *transition[E]) { t.guardName, t.guard = combineGuards(tb.guards) })
	}
	return tb
}

// Action adds a transition action, run after exit actions and before
// entry actions. May be called multiple times; actions run in the
// order assigned.
func (tb *TransitionBuilder[E]) Action(f func(Event, E)) *TransitionBuilder[E] {
	return tb.ActionNamed("", f)
}

// ActionNamed is like Action but attaches a name used only for diagrams.
func (tb *TransitionBuilder[E]) ActionNamed(name string, f func(Event, E)) *TransitionBuilder[E] {
	tb.actions = append(tb.actions, namedAction[E]{name: name, action: f})
	if len(tb.actions) == 1 {
		tb.options = append(tb.options, func(s *State[E], t *transition[E]) { t.actionName, t.action = combineActions(tb.actions) })
	}
	return tb
}

// Internal marks the transition as internal: only valid for a
// self-transition (target == source). An internal transition runs its
// guard/action but never exits or re-enters any state.
func (tb *TransitionBuilder[E]) Internal() *TransitionBuilder[E] {
	if tb.src != tb.t.target {
		panic(fmt.Sprintf("transition %d -> %v can not be internal", tb.src.id, targetId(tb.t.target)))
	}
	tb.options = append(tb.options, func(s *State[E], t *transition[E]) { t.internal = true })
	return tb
}

// Local marks the transition as using UML2 local semantics instead of
// the default external semantics. Only valid when one of source/target
// (directly or transitively) contains the other.
func (tb *TransitionBuilder[E]) Local(b bool) *TransitionBuilder[E] {
	tb.options = append(tb.options, func(s *State[E], t *transition[E]) {
		if t.target == nil {
			panic(fmt.Sprintf("transition %d -> <terminal> can not be local", s.id))
		}
		if getParent(s, t.target) == nil {
			panic(fmt.Sprintf("transition %d -> %d can not be local", s.id, t.target.id))
		}
		t.local = b
	})
	return tb
}

// History marks the transition as entering the shallow or deep history
// of target (target must be Composite/Top). If the history has not yet
// been recorded (target has never been active), the transition falls
// back to target's static default-child chain.
func (tb *TransitionBuilder[E]) History(h History) *TransitionBuilder[E] {
	tb.options = append(tb.options, func(s *State[E], t *transition[E]) { t.history = h })
	return tb
}

// Build completes and registers the transition. Each TransitionBuilder
// may only be used once.
func (tb *TransitionBuilder[E]) Build() {
	if tb.built {
		panic(fmt.Sprintf("transition builder for event %d, %d -> %v used twice; Build() called more than once", tb.t.eventId, tb.src.id, targetId(tb.t.target)))
	}
	tb.built = true
	if tb.src.sm.LocalDefault && tb.t.target != nil {
		if getParent(tb.src, tb.t.target) != nil {
			tb.t.local = true
		}
	}
	for _, opt := range tb.options {
		opt(tb.src, tb.t)
	}
	tb.src.transitions = append(tb.src.transitions, tb.t)
}

func targetId[E any](s *State[E]) any {
	if s == nil {
		return "<terminal>"
	}
	return s.id
}

// getParent returns whichever of s1, s2 is a (direct or transitive)
// ancestor of the other, or nil if neither contains the other.
func getParent[E any](s1, s2 *State[E]) *State[E] {
	if isAncestorOf(s1, s2) && s1 != s2 {
		return s1
	}
	if isAncestorOf(s2, s1) && s1 != s2 {
		return s2
	}
	return nil
}
