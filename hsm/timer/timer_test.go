package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dragomit/hsm/hsm/timer"
)

type fakeQueue struct {
	got []string
}

func (q *fakeQueue) Add(e string) { q.got = append(q.got, e) }

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDynamicFiresInDeadlineOrder(t *testing.T) {
	bank := timer.NewDynamic[string, int, int]()
	bank.AddTimer("late", 1, t0.Add(3*time.Second), 0)
	bank.AddTimer("early", 1, t0.Add(1*time.Second), 1)
	bank.AddTimer("mid", 1, t0.Add(2*time.Second), 2)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"early", "mid", "late"}, q.got)
}

func TestDynamicOnlyFiresDueTimers(t *testing.T) {
	bank := timer.NewDynamic[string, int, int]()
	bank.AddTimerAfter("soon", 1, t0, 1*time.Second, 0)
	bank.AddTimerAfter("later", 1, t0, 10*time.Second, 1)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(2*time.Second), q)
	assert.Equal(t, []string{"soon"}, q.got)

	q.got = nil
	bank.CheckTimers(t0.Add(20*time.Second), q)
	assert.Equal(t, []string{"later"}, q.got)
}

func TestDynamicClearTimer(t *testing.T) {
	bank := timer.NewDynamic[string, int, int]()
	bank.AddTimer("a", 1, t0.Add(time.Second), 0)
	bank.AddTimer("b", 1, t0.Add(time.Second), 1)
	bank.ClearTimer("a", 1, 0)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"b"}, q.got)
}

// TestDynamicRearmReplaces covers arming the same (event, group,
// unique) triple twice: the second AddTimer must replace the first
// rather than leaving two live timers that both fire.
func TestDynamicRearmReplaces(t *testing.T) {
	bank := timer.NewDynamic[string, int, int]()
	bank.AddTimer("a", 1, t0.Add(time.Second), 0)
	bank.AddTimer("a", 1, t0.Add(2*time.Second), 0)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"a"}, q.got)
}

// TestDynamicClearTimerDistinguishesEvent covers that two timers
// sharing a (group, unique) pair but differing in event are not
// confused with one another by ClearTimer.
func TestDynamicClearTimerDistinguishesEvent(t *testing.T) {
	bank := timer.NewDynamic[string, int, int]()
	bank.AddTimer("a", 1, t0.Add(time.Second), 0)
	bank.AddTimer("b", 1, t0.Add(time.Second), 0)
	bank.ClearTimer("a", 1, 0)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"b"}, q.got)
}

func TestDynamicClearAllTimersInGroup(t *testing.T) {
	bank := timer.NewDynamic[string, int, int]()
	bank.AddTimer("a", 1, t0.Add(time.Second), 0)
	bank.AddTimer("b", 1, t0.Add(2*time.Second), 1)
	bank.AddTimer("c", 2, t0.Add(time.Second), 0)
	bank.ClearAllTimersInGroup(1)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"c"}, q.got)
}

func TestStaticOneTimerPerGroup(t *testing.T) {
	bank := timer.NewStatic[string, int, int]([]int{1, 2}, "")
	bank.AddTimer("first", 1, t0.Add(time.Second), 0)
	bank.AddTimer("second", 1, t0.Add(2*time.Second), 0) // replaces "first"

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"second"}, q.got)
}

func TestStaticClearAllTimersInGroup(t *testing.T) {
	bank := timer.NewStatic[string, int, int]([]int{1, 2}, "")
	bank.AddTimer("a", 1, t0.Add(time.Second), 0)
	bank.AddTimer("b", 2, t0.Add(time.Second), 0)
	bank.ClearAllTimersInGroup(1)

	q := &fakeQueue{}
	bank.CheckTimers(t0.Add(5*time.Second), q)
	assert.Equal(t, []string{"b"}, q.got)
}
