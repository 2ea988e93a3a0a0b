package hsm

// TimerClearer is the minimal capability a timer bank must expose for
// the engine to honor StateMachine.ClearTimersOnExit: clearing every
// timer scoped to a state whenever that state's exit path runs. See
// hsm/timer for concrete implementations.
type TimerClearer interface {
	ClearAllTimersInGroup(group StateId)
}

// defaultEntryExitHost is implemented by a host extended-state type
// that wants DefaultActionsEntryExitOnly/DefaultActionsControlUpdate
// synthesis for states that don't declare their own entry/exit.
type defaultEntryExitHost interface {
	OnDefaultEntry(StateId)
	OnDefaultExit(StateId)
}

// defaultTickHost is implemented by a host wanting DefaultActionsControlUpdate
// synthesis for states that don't declare their own During.
type defaultTickHost interface {
	OnDefaultTick(StateId)
}

// defaultTickInputHost is the input-carrying variant of defaultTickHost.
type defaultTickInputHost interface {
	OnDefaultTickInput(StateId, any)
}

// StateMachineInstance is a single running instance of a StateMachine:
// it holds the current leaf, the host's extended state, and (once
// Initialize has run) drives dispatch, tick, and transitions.
//
// Multiple independent instances may share one *StateMachine[E]; each
// instance keeps its own current-leaf pointer, history bookkeeping,
// and Ext.
type StateMachineInstance[E any] struct {
	SM  *StateMachine[E]
	Ext E

	// Timers, if set, is cleared per-group automatically on state exit
	// when SM.ClearTimersOnExit is true.
	Timers TimerClearer

	current     *State[E]
	initialized bool
	// historyChild records, for each composite/top state visited, the
	// child most recently entered under it -- the storage backing
	// shallow/deep history transitions.
	historyChild map[StateId]*State[E]
}

// Initialize performs the synthetic Top -> Top transition: it enters
// Top and then walks default-child links down to a Leaf, entering
// every composite state along the way. Must be called exactly once,
// before any Dispatch or Tick.
func (smi *StateMachineInstance[E]) Initialize() {
	if smi.SM == nil {
		panic("StateMachineInstance.SM must be set before Initialize")
	}
	if !smi.SM.top.validated {
		panic("state machine must be Finalize()d before creating instances")
	}
	smi.historyChild = make(map[StateId]*State[E])
	e := Event{Id: NoEvent}

	s := smi.SM.top
	smi.runEntry(s, e)
	for s.initial != nil {
		child := s.initial
		smi.historyChild[s.id] = child
		smi.runEntry(child, e)
		s = child
	}
	smi.current = s
	smi.initialized = true
}

// Identify returns the StateId of the current leaf, or NoState if the
// machine has reached a terminal transition.
func (smi *StateMachineInstance[E]) Identify() StateId {
	return smi.current.Id()
}

// IsInSubstateOf reports whether q is the current leaf or lies on its
// parent chain up to and including Top.
func (smi *StateMachineInstance[E]) IsInSubstateOf(q StateId) bool {
	for s := smi.current; s != nil; s = s.parent {
		if s.id == q {
			return true
		}
		if s.kind == KindTop {
			break
		}
	}
	return false
}

// DirectlySetStateForTesting bypasses entry/exit actions and sets the
// current leaf directly. Tests only -- never call this from production
// handler code.
func (smi *StateMachineInstance[E]) DirectlySetStateForTesting(leaf *State[E]) {
	smi.current = leaf
	smi.initialized = true
}

// Dispatch routes one event to the current leaf's handler chain: the
// current leaf's raw OnEvent hook (if any) runs first, then its
// declarative transition table is checked, then its parent's, and so
// on up to Top. The first state whose OnEvent returns Consumed, or
// whose transition table yields a transition with a passing guard,
// stops the walk. If nothing along the chain consumes the event, it
// is silently discarded.
func (smi *StateMachineInstance[E]) Dispatch(e Event) {
	if !smi.initialized {
		panic("Dispatch called before Initialize")
	}
	if smi.current == nil {
		return // machine reached a terminal transition; further events are ignored
	}
	src, t, rawConsumed := smi.route(e)
	if rawConsumed || t == nil {
		return
	}
	smi.fire(src, t, e)
}

func (smi *StateMachineInstance[E]) route(e Event) (src *State[E], t *transition[E], rawConsumed bool) {
	for s := smi.current; ; s = s.parent {
		if s.onEvent != nil && s.onEvent(e, smi.Ext) == Consumed {
			return nil, nil, true
		}
		for _, cand := range s.transitions {
			if cand.eventId == e.Id && (cand.guard == nil || cand.guard(e, smi.Ext)) {
				return s, cand, false
			}
		}
		if s.kind == KindTop {
			return nil, nil, false
		}
	}
}

// Tick invokes the current leaf's During handler, if any, or else the
// default-actions synthesis (DefaultActionsControlUpdate). Tick is
// independent of event dispatch. The leaf whose During runs is fixed
// for the duration of this call even if During triggers a transition.
func (smi *StateMachineInstance[E]) Tick() { smi.tick(nil, false) }

// TickWithInput is like Tick but passes input to a DuringWithInput
// handler (or the input-carrying default-actions hook).
func (smi *StateMachineInstance[E]) TickWithInput(input any) { smi.tick(input, true) }

func (smi *StateMachineInstance[E]) tick(input any, hasInput bool) {
	if smi.current == nil {
		return
	}
	s := smi.current
	switch {
	case hasInput && s.duringWithInput != nil:
		s.duringWithInput(smi, input)
	case s.during != nil:
		s.during(smi)
	case smi.SM.DefaultActionsPolicy == DefaultActionsControlUpdate:
		if hasInput {
			if h, ok := any(smi.Ext).(defaultTickInputHost); ok {
				h.OnDefaultTickInput(s.id, input)
				return
			}
		}
		if h, ok := any(smi.Ext).(defaultTickHost); ok {
			h.OnDefaultTick(s.id)
		}
	}
}

// AutoTransition lets a During (tick) handler trigger a transition
// directly, without going through event dispatch -- the mechanism
// behind a guarded auto-transition out of a state's tick handler.
func (smi *StateMachineInstance[E]) AutoTransition(target *State[E], semantics Semantics) {
	if smi.current == nil {
		return
	}
	t := &transition[E]{eventId: NoEvent, target: target, local: semantics == Local}
	smi.fire(smi.current, t, Event{Id: NoEvent})
}

// fire performs the exit/entry sequencing for a non-internal
// transition: exits from the current leaf up to (not including) the
// LCA of source and target, runs the transition action, enters from
// just below the LCA down to target, and finally runs target's init
// chain (honoring shallow/deep history if requested).
func (smi *StateMachineInstance[E]) fire(src *State[E], t *transition[E], e Event) {
	if t.internal {
		if t.action != nil {
			t.action(e, smi.Ext)
		}
		return
	}
	if t.target == nil {
		smi.exitToTop(e)
		if t.action != nil {
			t.action(e, smi.Ext)
		}
		smi.current = nil
		return
	}

	dst := t.target
	srcPath := ancestryPath(src)
	dstPath := ancestryPath(dst)

	// lca is the deepest state that stays untouched by this transition;
	// everything from the current leaf up to (not including) lca exits,
	// and everything from just below lca down to dst (given by
	// dstPath[0..j]) enters.
	var lca *State[E]
	var j int
	switch {
	case src == dst:
		// A self-transition's source and target are the same state: per
		// UML2 semantics it fully exits and re-enters that state, so the
		// boundary sits one level above it.
		lca = src.parent
		j = 0
	case isAncestorOf(src, dst):
		// The declared source contains the target. External semantics
		// exits and re-enters src itself (boundary at src.parent); local
		// semantics leaves src alone (boundary at src itself).
		if t.local {
			lca = src
		} else {
			lca = src.parent
		}
		j = indexInPath(dstPath, lca) - 1
	case isAncestorOf(dst, src):
		// The target contains the declared source (the reverse case):
		// external semantics exits and re-enters dst (boundary at
		// dst.parent); local semantics leaves dst alone (boundary at dst
		// itself, and the subsequent default/history descent takes over
		// without re-entering dst).
		if t.local {
			lca = dst
		} else {
			lca = dst.parent
		}
		j = indexInPath(dstPath, lca) - 1
	default:
		// Neither contains the other: plain longest-common-ancestor walk.
		i := len(srcPath) - 2
		j = len(dstPath) - 2
		for i >= 0 && j >= 0 && srcPath[i] == dstPath[j] {
			i--
			j--
		}
		lca = srcPath[i+1]
	}

	for s := smi.current; s != lca; s = s.parent {
		smi.runExit(s, e)
	}

	if t.action != nil {
		t.action(e, smi.Ext)
	}

	for k := j; k >= 0; k-- {
		smi.enter(dstPath[k], e)
	}
	smi.current = dst

	s := dst
	history := t.history
	for !s.IsLeaf() {
		next := s.initial
		if history != HistoryNone {
			if child, ok := smi.historyChild[s.id]; ok && child != nil {
				next = child
			}
			if history == HistoryShallow {
				history = HistoryNone // only the first hop honors recorded history
			}
		}
		smi.enter(next, e)
		s = next
	}
	smi.current = s
}

func (smi *StateMachineInstance[E]) exitToTop(e Event) {
	for s := smi.current; ; s = s.parent {
		smi.runExit(s, e)
		if s.kind == KindTop {
			return
		}
	}
}

// enter runs s's entry action and records it as the most recently
// active child of its parent, for future history transitions.
func (smi *StateMachineInstance[E]) enter(s *State[E], e Event) {
	smi.runEntry(s, e)
	if s.kind != KindTop {
		smi.historyChild[s.parent.id] = s
	}
}

func (smi *StateMachineInstance[E]) runEntry(s *State[E], e Event) {
	switch {
	case s.entry != nil:
		s.entry(e, smi.Ext)
	case smi.SM.DefaultActionsPolicy != DefaultActionsNothing:
		if h, ok := any(smi.Ext).(defaultEntryExitHost); ok {
			h.OnDefaultEntry(s.id)
		}
	}
}

func (smi *StateMachineInstance[E]) runExit(s *State[E], e Event) {
	switch {
	case s.exit != nil:
		s.exit(e, smi.Ext)
	case smi.SM.DefaultActionsPolicy != DefaultActionsNothing:
		if h, ok := any(smi.Ext).(defaultEntryExitHost); ok {
			h.OnDefaultExit(s.id)
		}
	}
	if smi.SM.ClearTimersOnExit && smi.Timers != nil {
		smi.Timers.ClearAllTimersInGroup(s.id)
	}
}

// indexInPath returns the index of s within path (as built by
// ancestryPath), or -1 if absent.
func indexInPath[E any](path []*State[E], s *State[E]) int {
	for idx, p := range path {
		if p == s {
			return idx
		}
	}
	return -1
}

// ancestryPath returns s, s.parent, ..., Top.
func ancestryPath[E any](s *State[E]) []*State[E] {
	path := make([]*State[E], 0, 8)
	for {
		path = append(path, s)
		if s.kind == KindTop {
			return path
		}
		s = s.parent
	}
}
