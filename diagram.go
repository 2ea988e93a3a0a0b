package hsm

import (
	"fmt"
	"strings"
)

type edge[E any] struct {
	src, dst *State[E]
}

// DiagramBuilder allows minor customizations of PlantUML diagram layout
// before building the diagram. To create a builder, use
// StateMachine.DiagramBuilder.
type DiagramBuilder[E any] struct {
	sm           *StateMachine[E]
	evNameMapper func(EventId) string
	defaultArrow string
	arrows       map[edge[E]]string
}

// DefaultArrow changes the arrow style used for transitions. The
// default is "-->".
func (db *DiagramBuilder[E]) DefaultArrow(arrow string) *DiagramBuilder[E] {
	db.defaultArrow = arrow
	return db
}

// Arrow specifies the arrow style used for all transitions from src
// to dst state. See
// https://crashedmind.github.io/PlantUMLHitchhikersGuide/layout/layout.html
// for available arrow styles.
func (db *DiagramBuilder[E]) Arrow(src, dst *State[E], arrow string) *DiagramBuilder[E] {
	db.arrows[edge[E]{src, dst}] = arrow
	return db
}

// Build creates and returns a PlantUML diagram as a string.
func (db *DiagramBuilder[E]) Build() string {
	sm := db.sm
	evNameMapper := db.evNameMapper
	if !sm.top.validated {
		panic("state machine not finalized")
	}

	var (
		bld, bldTrans strings.Builder
		dump          func(indent int, s *State[E])
	)

	alias := func(s *State[E]) string { return fmt.Sprintf("s%d", s.id) }

	dump = func(indent int, s *State[E]) {
		prefix := strings.Repeat("   ", indent)

		fmt.Fprintf(&bld, "%sstate \"%d\" as %s", prefix, s.id, alias(s))
		if !s.IsLeaf() {
			bld.WriteString(" {\n")
			for _, child := range s.children {
				dump(indent+1, child)
			}
			bld.WriteString(prefix)
			bld.WriteString("}")
		}
		bld.WriteString("\n")
		if s.entry != nil {
			fmt.Fprintf(&bld, "%s%s : entry / %s\n", prefix, alias(s), s.entryName)
		}
		if s.exit != nil {
			fmt.Fprintf(&bld, "%s%s : exit / %s\n", prefix, alias(s), s.exitName)
		}

		if s.parent.initial == s {
			fmt.Fprintf(&bld, "%s[*] --> %s\n", prefix, alias(s))
		}

		// combine multiple arrows connecting same src and dst into one
		type edgeH struct {
			src, dst *State[E]
			hist     string
		}
		local, normal := make(map[edgeH][]string), make(map[edgeH][]string)

		for _, t := range s.transitions {
			var hist string
			if t.history == HistoryShallow {
				hist = "[H]"
			} else if t.history == HistoryDeep {
				hist = "[H*]"
			}
			if t.internal {
				fmt.Fprintf(&bld, "%s%s : %s%s\n", prefix, alias(s), evNameMapper(t.eventId), t)
				continue
			}
			if t.target == nil {
				fmt.Fprintf(&bldTrans, "%s %s [*] : %s%s\n", alias(s), db.arrow(s, nil), evNameMapper(t.eventId), t)
				continue
			}
			var m map[edgeH][]string // maps edgeH to labels above that edge
			if t.local {
				m = local
			} else {
				m = normal
			}
			e := edgeH{src: s, dst: t.target, hist: hist}
			m[e] = append(m[e], evNameMapper(t.eventId)+t.String())
		}

		for e, labels := range local {
			fmt.Fprintf(&bld, "%s%s %s %s%s : %s\n", prefix, alias(e.src), db.arrow(e.src, e.dst), alias(e.dst), e.hist, strings.Join(labels, "\\n"))
		}
		for e, labels := range normal {
			fmt.Fprintf(&bldTrans, "%s %s %s%s : %s\n", alias(e.src), db.arrow(e.src, e.dst), alias(e.dst), e.hist, strings.Join(labels, "\\n"))
		}
	}

	bld.WriteString("@startuml\n\n")
	for _, s := range sm.top.children {
		dump(0, s)
	}
	bld.WriteString(bldTrans.String())
	bld.WriteString("\n@enduml\n")
	return bld.String()
}

func (db *DiagramBuilder[E]) arrow(src, dst *State[E]) string {
	if a, ok := db.arrows[edge[E]{src, dst}]; ok {
		return a
	}
	return db.defaultArrow
}

// DiagramBuilder creates a builder for customizing the PlantUML
// diagram before building it. evNameMapper provides the mapping of
// event ids to the names shown on transition labels.
func (sm *StateMachine[E]) DiagramBuilder(evNameMapper func(EventId) string) *DiagramBuilder[E] {
	return &DiagramBuilder[E]{
		sm:           sm,
		evNameMapper: evNameMapper,
		defaultArrow: "-->",
		arrows:       make(map[edge[E]]string),
	}
}

// DiagramPUML builds a PlantUML diagram of a finalized state machine.
// Shorthand for sm.DiagramBuilder(evNameMapper).Build().
func (sm *StateMachine[E]) DiagramPUML(evNameMapper func(EventId) string) string {
	return sm.DiagramBuilder(evNameMapper).Build()
}
