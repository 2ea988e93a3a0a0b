package hsm_test

import (
	"fmt"
	"testing"

	"github.com/dragomit/hsm"
)

const (
	pumlTop hsm.StateId = iota
	state1Id
	state2Id
	state3Id
	accEnoughDataId
	processDataId
)

const (
	evNewData hsm.EventId = iota
	evEnoughData
	evPause
	evSucceeded
	evFailed
	evResume
	evDeepResume
	evAborted
)

func TestPumlExample1(t *testing.T) {
	sm := hsm.NewStateMachine[struct{}](pumlTop)

	state1 := sm.State(state1Id).Initial().Build()
	state2 := sm.State(state2Id).Build()
	state3 := sm.State(state3Id).Build()

	accEnoughData := state3.State(accEnoughDataId).Initial().Build()
	accEnoughData.AddTransition(evNewData, accEnoughData)

	processData := state3.State(processDataId).Build()
	accEnoughData.AddTransition(evEnoughData, processData)

	state3.AddTransition(evPause, state2)
	state2.AddTransition(evSucceeded, state3)
	state2.Transition(evResume, state3).History(hsm.HistoryShallow).Build()
	state2.Transition(evDeepResume, state3).History(hsm.HistoryDeep).Build()

	state1.AddTransition(evSucceeded, state2)
	state3.AddTransition(evFailed, state3)

	state1.AddTransition(evAborted, nil)
	state2.AddTransition(evAborted, nil)
	state3.AddTransition(evAborted, nil)
	state3.Transition(evSucceeded, nil).ActionNamed("Save Result", func(hsm.Event, struct{}) {}).Build()

	sm.Finalize()
	fmt.Println(sm.DiagramBuilder(func(i hsm.EventId) string {
		return []string{
			"New data",
			"Enough data",
			"Pause",
			"Succeeded",
			"Failed",
			"Resume",
			"Deep resume",
			"Aborted",
		}[i]
	}).DefaultArrow("->").Arrow(state2, state3, "--->").Build())
}
