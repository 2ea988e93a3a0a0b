package hsm

import (
	"time"

	"github.com/dragomit/hsm/hsm/equeue"
	"github.com/dragomit/hsm/hsm/timer"
)

// Driver composes a StateMachineInstance with an event queue and a
// timer bank into the three-step machine-driver cycle: check armed
// timers against the supplied time, dispatch the next queued event (if
// any), then tick. A Driver never reads a clock itself -- every Step
// call takes now explicitly, so a host fully controls simulated or
// wall-clock time.
type Driver[E any] struct {
	Instance *StateMachineInstance[E]
	Queue    equeue.Queue[EventId]
	Timers   timer.Bank[EventId, StateId, int]
}

// NewDriver wires an instance, a FIFO event queue, and a dynamic timer
// bank into a Driver, and wraps the timer bank so
// StateMachine.ClearTimersOnExit reaches it automatically.
func NewDriver[E any](sm *StateMachine[E], ext E) *Driver[E] {
	q := equeue.NewOrdered[EventId](NoEvent)
	tb := timer.NewDynamic[EventId, StateId, int]()
	smi := &StateMachineInstance[E]{SM: sm, Ext: ext}
	d := &Driver[E]{Instance: smi, Queue: q, Timers: tb}
	smi.Timers = timerClearerAdapter[E]{tb}
	return d
}

type timerClearerAdapter[E any] struct {
	tb timer.Bank[EventId, StateId, int]
}

func (a timerClearerAdapter[E]) ClearAllTimersInGroup(group StateId) {
	a.tb.ClearAllTimersInGroup(group)
}

// PostEvent enqueues e for the next Step to dispatch.
func (d *Driver[E]) PostEvent(e Event) { d.Queue.Add(e.Id) }

// ArmTimer arms a timer under group (cleared automatically on that
// state's exit when ClearTimersOnExit is set), unique disambiguating
// multiple timers sharing event+group.
func (d *Driver[E]) ArmTimer(event EventId, group StateId, deadline time.Time, unique int) {
	d.Timers.AddTimer(event, group, deadline, unique)
}

// ArmTimerAfter is like ArmTimer but specified as a duration from now.
func (d *Driver[E]) ArmTimerAfter(event EventId, group StateId, now time.Time, d2 time.Duration, unique int) {
	d.Timers.AddTimerAfter(event, group, now, d2, unique)
}

// Step runs one driver cycle: fired timers (due at or before now) are
// pushed onto the event queue, then at most one queued event is popped
// and dispatched, then the current state's tick handler runs (with
// input if hasInput). Calling Step repeatedly with input undefined
// (hasInput=false) drives plain event/timer processing without tick
// payloads.
func (d *Driver[E]) Step(now time.Time, input any, hasInput bool) {
	d.Timers.CheckTimers(now, d.Queue)
	if id := d.Queue.Get(); id != NoEvent {
		d.Instance.Dispatch(Event{Id: id})
	}
	if hasInput {
		d.Instance.TickWithInput(input)
	} else {
		d.Instance.Tick()
	}
}
