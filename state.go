// Package hsm implements a hierarchical state machine (HSM) engine
// conforming to UML2 statechart semantics: nested composite states,
// entry/exit actions, default-substate initialization, and local vs
// external transition semantics.
//
// A state tree is declared once, at definition time, via the fluent
// State/Transition builders. Finalize validates the tree (every
// composite/top state must resolve to a leaf via its default-child
// chain) before any StateMachineInstance can be created from it.
package hsm

import (
	"fmt"
	"math"
)

// StateId identifies a state within a single HSM's state tree. Hosts
// enumerate their own StateId values (typically a small int-based
// const block) and pass the id for the root state to NewStateMachine.
type StateId int

// NoState is the sentinel "no state" StateId. Hosts must not use it
// for any real state.
const NoState StateId = -1

// EventId identifies a kind of event. NoEvent is the sentinel
// returned by an empty event queue, and sorts as lowest priority in
// a priority queue (see hsm/equeue).
type EventId int

// NoEvent is the sentinel "no event / empty" EventId.
const NoEvent EventId = math.MaxInt32

// Kind classifies a state's position in the tree.
type Kind int

const (
	KindTop Kind = iota
	KindComposite
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindTop:
		return "Top"
	case KindComposite:
		return "Composite"
	case KindLeaf:
		return "Leaf"
	default:
		return "Unknown"
	}
}

// Semantics selects UML2 local vs the UML1 default external transition
// behavior for a transition between a state and one of its (direct or
// transitive) sub-states.
type Semantics int

const (
	External Semantics = iota
	Local
)

// History selects whether a transition targeting a composite state
// enters its static default child (HistoryNone), the child most
// recently active (HistoryShallow), or recursively restores the
// deepest previously active leaf (HistoryDeep).
type History int

const (
	HistoryNone History = iota
	HistoryShallow
	HistoryDeep
)

// DefaultActions selects what the dispatcher synthesizes for a state
// that does not override entry/exit/tick.
type DefaultActions int

const (
	// DefaultActionsNothing performs no synthesized action.
	DefaultActionsNothing DefaultActions = iota
	// DefaultActionsEntryExitOnly synthesizes host.OnDefaultEntry/OnDefaultExit.
	DefaultActionsEntryExitOnly
	// DefaultActionsControlUpdate synthesizes entry/exit plus host.OnDefaultTick.
	DefaultActionsControlUpdate
)

// Event is delivered to a StateMachineInstance, causing it to run
// actions and possibly change states. Data is an optional arbitrary
// payload.
type Event struct {
	Id   EventId
	Data any
}

// HandlerResult is returned by a state's optional raw event hook to
// say whether the event was consumed or should be delegated to the
// parent's handler chain.
type HandlerResult int

const (
	PassToParent HandlerResult = iota
	Consumed
)

// State is a node (Top, Composite, or Leaf) in an HSM's state tree.
// State is parameterized by E, the host's extended-state type holding
// the quantitative data a handler/action/guard needs; use struct{} if
// none is needed.
type State[E any] struct {
	id        StateId
	parent    *State[E]
	children []*State[E]
	initial  *State[E] // default substate, required for Top/Composite
	kind     Kind
	validated bool

	entry, exit     func(Event, E)
	during          func(*StateMachineInstance[E])
	duringWithInput func(*StateMachineInstance[E], any)
	onEvent         func(Event, E) HandlerResult

	entryName, exitName string

	transitions []*transition[E]
	sm          *StateMachine[E]
}

// Id returns the state's StateId.
func (s *State[E]) Id() StateId {
	if s == nil {
		return NoState
	}
	return s.id
}

// Kind returns whether s is Top, Composite, or Leaf.
func (s *State[E]) Kind() Kind { return s.kind }

// IsLeaf reports whether s has no children.
func (s *State[E]) IsLeaf() bool { return len(s.children) == 0 }

// Parent returns s's parent. Top is its own parent.
func (s *State[E]) Parent() *State[E] { return s.parent }

// String renders the state as its StateId, useful for %v/%s formatting
// and diagram generation.
func (s *State[E]) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d", s.id)
}

// isAncestorOf reports whether a == d or a lies on d's parent chain.
// O(depth). This backs the transition executor's boundary computation
// and the local-transition legality check (getParent).
func isAncestorOf[E any](a, d *State[E]) bool {
	for s := d; s != nil; s = s.parent {
		if s == a {
			return true
		}
		if s.kind == KindTop && s.parent == s {
			break
		}
	}
	return false
}

// validate checks that, starting from s, a unique path exists through
// default-child (initial) links down to a Leaf. Panics (a
// definition-time structural error) if any composite/top state along
// the way lacks a default child.
func (s *State[E]) validate() {
	for !s.IsLeaf() && !s.validated {
		if s.initial == nil {
			panic(fmt.Sprintf("state %d must have a default (initial) sub-state", s.id))
		}
		s.validated = true
		s = s.initial
	}
}

// StateBuilder provides a fluent API for building a new State.
type StateBuilder[E any] struct {
	parent  *State[E]
	id      StateId
	options []func(*State[E])
	entries []namedAction[E]
	exits   []namedAction[E]
	built   bool
}

type namedAction[E any] struct {
	name   string
	action func(Event, E)
}

func combineActions[E any](items []namedAction[E]) (string, func(Event, E)) {
	if len(items) == 1 {
		return items[0].name, items[0].action
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
	return names, func(e Event, ext E) {
		for _, it := range items {
			it.action(e, ext)
		}
	}
}

// Entry sets f as an entry action for the state being built. May be
// called multiple times; actions run in the order assigned.
func (sb *StateBuilder[E]) Entry(f func(Event, E)) *StateBuilder[E] {
	return sb.EntryNamed("", f)
}

// EntryNamed is like Entry but attaches a name used only for diagram
// generation.
func (sb *StateBuilder[E]) EntryNamed(name string, f func(Event, E)) *StateBuilder[E] {
	sb.entries = append(sb.entries, namedAction[E]{name: name, action: f})
	if len(sb.entries) == 1 {
		sb.options = append(sb.options, func(s *State[E]) { s.entryName, s.entry = combineActions(sb.entries) })
	}
	return sb
}

// Exit sets f as an exit action for the state being built. May be
// called multiple times; actions run in the order assigned.
func (sb *StateBuilder[E]) Exit(f func(Event, E)) *StateBuilder[E] {
	return sb.ExitNamed("", f)
}

// ExitNamed is like Exit but attaches a name used only for diagram
// generation.
func (sb *StateBuilder[E]) ExitNamed(name string, f func(Event, E)) *StateBuilder[E] {
	sb.exits = append(sb.exits, namedAction[E]{name: name, action: f})
	if len(sb.exits) == 1 {
		sb.options = append(sb.options, func(s *State[E]) { s.exitName, s.exit = combineActions(sb.exits) })
	}
	return sb
}

// During sets f to run on every tick while the machine is in this
// leaf state, separate from event dispatch. f receives the owning
// instance so it may itself trigger a guarded auto-transition (see
// StateMachineInstance.AutoTransition); watch out for recursion, since
// the instance's current state may no longer be this one once f calls
// AutoTransition.
func (sb *StateBuilder[E]) During(f func(*StateMachineInstance[E])) *StateBuilder[E] {
	sb.options = append(sb.options, func(s *State[E]) { s.during = f })
	return sb
}

// DuringWithInput is like During but additionally receives a
// host-owned input snapshot on each tick.
func (sb *StateBuilder[E]) DuringWithInput(f func(*StateMachineInstance[E], any)) *StateBuilder[E] {
	sb.options = append(sb.options, func(s *State[E]) { s.duringWithInput = f })
	return sb
}

// OnEvent sets a raw handler invoked before this state's declarative
// transition table is consulted. Returning Consumed stops the
// dispatcher from walking further up the parent chain and from
// consulting this state's transition table for this event;
// PassToParent falls through to the transition table and then,
// absent a match, to the parent state.
func (sb *StateBuilder[E]) OnEvent(f func(Event, E) HandlerResult) *StateBuilder[E] {
	sb.options = append(sb.options, func(s *State[E]) { s.onEvent = f })
	return sb
}

// Initial marks the state being built as the default sub-state its
// parent transitions into when entered without a more specific target
// (the default-child / init chain).
func (sb *StateBuilder[E]) Initial() *StateBuilder[E] {
	sb.options = append(sb.options, func(s *State[E]) {
		p := s.parent
		if p.initial != nil && p.initial != s {
			panic(fmt.Sprintf("states %d and %d can not both be marked initial sub-states of %d", s.id, p.initial.id, p.id))
		}
		p.initial = s
	})
	return sb
}

// Build finalizes and returns the new State. Each StateBuilder may
// only be used once.
func (sb *StateBuilder[E]) Build() *State[E] {
	if sb.built {
		panic(fmt.Sprintf("state %d builder used twice; Build() called more than once", sb.id))
	}
	sb.built = true
	ss := &State[E]{parent: sb.parent, id: sb.id, kind: KindLeaf, sm: sb.parent.sm}
	for _, opt := range sb.options {
		opt(ss)
	}
	sb.parent.children = append(sb.parent.children, ss)
	sb.parent.kind = sb.parent.effectiveKind()
	return ss
}

// effectiveKind returns Top if s is the root, Composite if it has
// children, Leaf otherwise.
func (s *State[E]) effectiveKind() Kind {
	if s.kind == KindTop {
		return KindTop
	}
	if len(s.children) > 0 {
		return KindComposite
	}
	return KindLeaf
}

// State creates a builder for a new sub-state of s.
func (s *State[E]) State(id StateId) *StateBuilder[E] {
	return &StateBuilder[E]{parent: s, id: id}
}
