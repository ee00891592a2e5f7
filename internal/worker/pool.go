package worker

import (
	"context"
	"fmt"

	"github.com/chuliyu/jobgate/internal/queue"
)

// Pool is an ordered collection of workers (§3, §4.3). Workers in a Pool
// may share a single queue (fan-out) or hold private queues (per-worker
// queues); both topologies are first-class and the router (LeastBusyQueue)
// handles both uniformly.
type Pool struct {
	name    string
	workers []*Worker
}

// NewPool groups workers under name for logging/metrics purposes.
func NewPool(name string, workers []*Worker) *Pool {
	return &Pool{name: name, workers: workers}
}

// Name returns the pool's identity.
func (p *Pool) Name() string { return p.name }

// Workers returns the pool's workers in construction order.
func (p *Pool) Workers() []*Worker { return p.workers }

// StartAll launches every worker's loop in its own goroutine.
func (p *Pool) StartAll() {
	for _, w := range p.workers {
		go w.Run()
	}
}

// AwaitReady blocks until every worker in the pool has signaled readiness,
// or ctx expires first.
func (p *Pool) AwaitReady(ctx context.Context) error {
	for _, w := range p.workers {
		if _, ok := w.Ready().Wait(ctx); !ok {
			return fmt.Errorf("pool %s: worker %s did not become ready: %w", p.name, w.Name(), ctx.Err())
		}
	}
	return nil
}

// StopAll requests every worker to stop, then joins all of them.
func (p *Pool) StopAll() {
	for _, w := range p.workers {
		w.Stop()
	}
	for _, w := range p.workers {
		w.Join()
	}
}

// LeastBusyQueue groups workers by the physical queue they hold and
// returns the queue with the minimum load, where load is
// queue.Size() + Σ(1 if worker.IsRunningJob() for workers sharing that
// queue). Ties resolve by first encountered. Returns nil for an empty
// worker list.
func LeastBusyQueue(workers []*Worker) *queue.Queue {
	type load struct {
		q     *queue.Queue
		total int
	}

	var order []*load
	index := make(map[*queue.Queue]*load)

	for _, w := range workers {
		q := w.Queue()
		l, seen := index[q]
		if !seen {
			l = &load{q: q, total: q.Size()}
			index[q] = l
			order = append(order, l)
		}
		if w.IsRunningJob() {
			l.total++
		}
	}

	var best *load
	for _, l := range order {
		if best == nil || l.total < best.total {
			best = l
		}
	}
	if best == nil {
		return nil
	}
	return best.q
}

// DefaultPollTimeout is exported so callers constructing queues/pools can
// size deadlines relative to a worker's idle-poll cadence.
const DefaultPollTimeout = pollTimeout
