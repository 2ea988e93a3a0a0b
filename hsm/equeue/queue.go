// Package equeue implements the event queue component of the hsm
// engine: a pending-event holding area the machine driver pops from
// between dispatch steps. Two shapes are provided: Ordered, a plain
// FIFO queue, and Priority, a min-heap ordered queue for hosts that
// need to service a higher-priority event ahead of older ones.
package equeue

import (
	"container/heap"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Ordered is any type usable as an event id: comparable for equality
// and identity, and ordered so Priority can compare two pending items.
type Ordered interface {
	comparable
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Queue holds events of type T awaiting dispatch.
type Queue[T Ordered] interface {
	// Add enqueues e.
	Add(e T)
	// Get removes and returns the next event, or none (as supplied to
	// the constructor) if the queue is empty.
	Get() T
	// Empty reports whether the queue holds no events.
	Empty() bool
	// Size returns the number of pending events.
	Size() int
	// Clear discards every pending event.
	Clear()
}

// fifo is a FIFO Queue backed by an OrderedMap keyed by a monotonic
// sequence number, giving Add/Get/Empty/Size/Clear plus the bonus
// AddSeq/Cancel capability a plain ring buffer can't provide.
type fifo[T Ordered] struct {
	none T
	seq  uint64
	m    *orderedmap.OrderedMap[uint64, T]
}

// NewOrdered returns a FIFO Queue. none is the sentinel value Get
// returns when the queue is empty (e.g. a host's NoEvent constant).
func NewOrdered[T Ordered](none T) *fifo[T] {
	return &fifo[T]{none: none, m: orderedmap.New[uint64, T]()}
}

// AddSeq enqueues e and returns the sequence number assigned to it, which
// Cancel can later use to remove it before it is popped.
func (q *fifo[T]) AddSeq(e T) uint64 {
	q.seq++
	q.m.Set(q.seq, e)
	return q.seq
}

func (q *fifo[T]) Add(e T) { q.AddSeq(e) }

func (q *fifo[T]) Get() T {
	pair := q.m.Oldest()
	if pair == nil {
		return q.none
	}
	q.m.Delete(pair.Key)
	return pair.Value
}

// Cancel removes the event previously returned by AddSeq, if it is
// still pending. Reports whether anything was removed.
func (q *fifo[T]) Cancel(seq uint64) bool {
	_, present := q.m.Delete(seq)
	return present
}

func (q *fifo[T]) Empty() bool { return q.m.Len() == 0 }
func (q *fifo[T]) Size() int   { return q.m.Len() }
func (q *fifo[T]) Clear()      { q.m = orderedmap.New[uint64, T]() }

// priority is a min-heap Queue: Get always returns the smallest
// pending value, breaking ties by insertion order (lower sequence
// number first), so a host whose EventId encodes priority in its
// numeric value gets highest-priority-first delivery.
type priority[T Ordered] struct {
	none T
	seq  uint64
	h    priorityHeap[T]
}

type priorityItem[T Ordered] struct {
	val T
	seq uint64
}

type priorityHeap[T Ordered] []priorityItem[T]

func (h priorityHeap[T]) Len() int { return len(h) }
func (h priorityHeap[T]) Less(i, j int) bool {
	if h[i].val != h[j].val {
		return h[i].val < h[j].val
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap[T]) Push(x any)   { *h = append(*h, x.(priorityItem[T])) }
func (h *priorityHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewPriority returns a min-heap Queue ordered by value, with lower
// values (and, for ties, earlier insertion) dispatched first. none is
// the sentinel value Get returns when the queue is empty.
func NewPriority[T Ordered](none T) *priority[T] {
	return &priority[T]{none: none}
}

func (q *priority[T]) Add(e T) {
	q.seq++
	heap.Push(&q.h, priorityItem[T]{val: e, seq: q.seq})
}

func (q *priority[T]) Get() T {
	if len(q.h) == 0 {
		return q.none
	}
	item := heap.Pop(&q.h).(priorityItem[T])
	return item.val
}

func (q *priority[T]) Empty() bool { return len(q.h) == 0 }
func (q *priority[T]) Size() int   { return len(q.h) }
func (q *priority[T]) Clear()      { q.h = nil }
