package hsm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dragomit/hsm"
)

const (
	ovenTop hsm.StateId = iota
	doorOpenId
	doorClosedId
	bakingId
	offId
)

const (
	evOpen hsm.EventId = iota
	evClose
	evBake
	evOff
)

// TestOven demonstrates a small, complete usage of the engine: entry/exit
// actions, guarded terminal transitions, and history-backed resumption.
func TestOven(t *testing.T) {
	// extended state tracks how many times the oven door was opened
	type eState struct {
		opened int
	}

	sm := hsm.NewStateMachine[*eState](ovenTop)

	heatingOn := func(e hsm.Event, s *eState) { fmt.Println("Heating On") }
	heatingOff := func(e hsm.Event, s *eState) { fmt.Println("Heating Off") }
	lightOn := func(e hsm.Event, s *eState) { s.opened++; fmt.Println("Light On") }
	lightOff := func(e hsm.Event, s *eState) { fmt.Println("Light Off") }
	dying := func(e hsm.Event, s *eState) { fmt.Println("Giving up a ghost") }

	isBroken := func(e hsm.Event, s *eState) bool { return s.opened == 100 }
	isNotBroken := func(e hsm.Event, s *eState) bool { return !isBroken(e, s) }

	doorOpen := sm.State(doorOpenId).EntryNamed("light_on", lightOn).ExitNamed("light_off", lightOff).Build()
	doorClosed := sm.State(doorClosedId).Initial().Build()
	baking := doorClosed.State(bakingId).EntryNamed("heating_on", heatingOn).ExitNamed("heating_off", heatingOff).Build()
	off := doorClosed.State(offId).Initial().Build()

	doorClosed.Transition(evOpen, doorOpen).GuardNamed("not broken", isNotBroken).Build()
	// Transitioning to nil terminates the state machine.
	doorClosed.Transition(evOpen, nil).GuardNamed("broken", isBroken).ActionNamed("dying", dying).Build()

	// When the door closes, return to whichever state was active before.
	doorOpen.Transition(evClose, doorClosed).History(hsm.HistoryShallow).Build()
	baking.AddTransition(evOff, off)
	off.AddTransition(evBake, baking)

	sm.Finalize()

	evMapper := func(ev hsm.EventId) string {
		return []string{"open", "close", "bake", "off"}[ev]
	}
	fmt.Println(sm.DiagramPUML(evMapper))

	smi := &hsm.StateMachineInstance[*eState]{SM: sm, Ext: &eState{}}
	smi.Initialize()

	assert.Equal(t, offId, smi.Identify())

	smi.Dispatch(hsm.Event{Id: evBake}) // prints "Heating On"
	assert.Equal(t, bakingId, smi.Identify())

	smi.Dispatch(hsm.Event{Id: evOpen}) // prints "Heating Off", "Light On"
	assert.Equal(t, doorOpenId, smi.Identify())

	smi.Dispatch(hsm.Event{Id: evClose}) // prints "Light Off", "Heating On"
	assert.Equal(t, bakingId, smi.Identify())

	// open and close 99 more times
	for i := 0; i < 99; i++ {
		smi.Dispatch(hsm.Event{Id: evOpen})
		smi.Dispatch(hsm.Event{Id: evClose})
	}
	assert.Equal(t, 100, smi.Ext.opened)
	assert.Equal(t, bakingId, smi.Identify())

	// the next door-open should break it, and the machine should terminate
	smi.Dispatch(hsm.Event{Id: evOpen}) // prints "Heating Off", "Giving up a ghost"
	assert.Equal(t, hsm.NoState, smi.Identify())

	// further events are silently ignored once terminated
	smi.Dispatch(hsm.Event{Id: evBake})
	assert.Equal(t, hsm.NoState, smi.Identify())
}
