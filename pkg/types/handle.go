package types

import (
	"context"

	"go.uber.org/atomic"
)

// Handle is the single-producer/single-consumer completion rendezvous
// described by the data model: the producer is the worker that dequeues a
// job, the consumer is the request handler that submitted it. It is
// fulfilled exactly once.
//
// A consumer that gives up waiting (deadline expiry) marks the handle
// fulfilled without a Result, so that a worker finishing later discovers
// the handle already fulfilled and skips rendezvous instead of blocking on
// a channel nobody drains. This is the "fulfilled-by-timeout" case §4.2
// requires workers to tolerate.
type Handle struct {
	fulfilled atomic.Bool
	done      chan Result
}

// NewHandle returns a fresh, not-yet-fulfilled handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan Result, 1)}
}

// Fulfill fulfills the handle with r. Returns false without sending r if
// the handle was already fulfilled (by a worker, or abandoned by a timed
// out consumer) — callers must treat false as "skip, do not retry".
func (h *Handle) Fulfill(r Result) bool {
	if !h.fulfilled.CompareAndSwap(false, true) {
		return false
	}
	h.done <- r
	return true
}

// IsFulfilled reports whether the handle has already been fulfilled or
// abandoned. Safe to call from any goroutine.
func (h *Handle) IsFulfilled() bool {
	return h.fulfilled.Load()
}

// Wait blocks until the handle is fulfilled with a Result or ctx is done,
// whichever comes first. On ctx expiry it marks the handle fulfilled
// (abandoned) so a worker that completes the job afterwards will skip
// rendezvous instead of delivering a Result nobody reads.
func (h *Handle) Wait(ctx context.Context) (Result, bool) {
	select {
	case r := <-h.done:
		return r, true
	case <-ctx.Done():
		h.fulfilled.Store(true)
		return Result{}, false
	}
}
