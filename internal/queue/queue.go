// Package queue implements the bounded FIFO described by the data model:
// fixed capacity at construction, a non-blocking Offer, a timed Poll, and
// size/capacity introspection. It is the only shared mutable object on the
// hot path between request handlers and workers, and it carries its own
// synchronization via the buffered channel beneath it.
package queue

import (
	"time"

	"github.com/chuliyu/jobgate/pkg/types"
)

// Queue is a capacity-bounded FIFO of *types.Job. The zero value is not
// usable; construct with New.
type Queue struct {
	ch chan *types.Job
}

// New returns a Queue with the given fixed capacity.
func New(capacity int) *Queue {
	return &Queue{ch: make(chan *types.Job, capacity)}
}

// Offer appends job to the queue without blocking. It returns false
// (the full-signal) and leaves the queue unmodified when the queue is at
// capacity.
func (q *Queue) Offer(job *types.Job) bool {
	select {
	case q.ch <- job:
		return true
	default:
		return false
	}
}

// Poll waits up to timeout for a job to become available. It returns
// (nil, false) — the empty-signal — on timeout without side effects.
func (q *Queue) Poll(timeout time.Duration) (*types.Job, bool) {
	select {
	case job := <-q.ch:
		return job, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Size returns the number of jobs currently queued.
func (q *Queue) Size() int {
	return len(q.ch)
}

// Capacity returns the fixed capacity this queue was constructed with.
func (q *Queue) Capacity() int {
	return cap(q.ch)
}

// IsFull reports whether Size() == Capacity().
func (q *Queue) IsFull() bool {
	return len(q.ch) == cap(q.ch)
}

// IsEmpty reports whether the queue currently holds no jobs.
func (q *Queue) IsEmpty() bool {
	return len(q.ch) == 0
}
