// Package isolated implements the isolated-process manager (§4.4): N
// worker processes spawned via os/exec sharing a cross-process job
// descriptor queue and a cross-process result queue, bridged back to
// local completion handles by a reconciler goroutine that maps
// (handleId, Result) tuples arriving from the worker processes onto the
// pending map.
//
// This is used only for the PDF2IMAGE job kind, when operator policy
// prefers OS-level CPU isolation over running the conversion in-process.
package isolated

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chuliyu/jobgate/internal/queue"
	"github.com/chuliyu/jobgate/pkg/types"
	"go.uber.org/zap"
)

// ErrDuplicateHandle is returned by Enqueue when a job id is already
// registered in the pending map — an infrastructure invariant violation
// per §7 ("Infrastructure" error kind).
var ErrDuplicateHandle = errors.New("isolated: duplicate handle id")

const feedPollTimeout = 5 * time.Second

// Config controls how many processes Manager spawns and how it reaches
// them.
type Config struct {
	WorkerCount    int
	QueueCapacity  int
	BinaryPath     string
	WorkerProcArgs []string // appended to BinaryPath to select the child's workerproc entry point
}

// Manager is the isolated-process manager described by §4.4.
type Manager struct {
	cfg Config
	log *zap.SugaredLogger

	jobQueue *queue.Queue // shared cross-process job-descriptor FIFO
	resultCh chan resultTuple

	mu      sync.Mutex
	pending map[types.JobID]*types.Handle

	procs []*process

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager constructs a Manager without spawning any processes yet.
func NewManager(cfg Config, log *zap.SugaredLogger) *Manager {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 10
	}
	return &Manager{
		cfg:      cfg,
		log:      log,
		jobQueue: queue.New(cfg.QueueCapacity),
		resultCh: make(chan resultTuple, cfg.QueueCapacity),
		pending:  make(map[types.JobID]*types.Handle),
		stopCh:   make(chan struct{}),
	}
}

// Start spawns cfg.WorkerCount processes and starts the feed, collect, and
// reconcile goroutines.
func (m *Manager) Start() error {
	for i := 0; i < m.cfg.WorkerCount; i++ {
		name := fmt.Sprintf("pdfProcess-%d", i)
		args := append(append([]string{}, m.cfg.WorkerProcArgs...), "--name", name)
		p, err := spawnProcess(name, m.cfg.BinaryPath, args)
		if err != nil {
			return fmt.Errorf("isolated: spawn %s: %w", name, err)
		}
		m.procs = append(m.procs, p)

		m.wg.Add(2)
		go m.feedLoop(p)
		go m.collectLoop(p)
	}

	m.wg.Add(1)
	go m.reconcileLoop()

	return nil
}

// Enqueue registers job's handle under its id (opportunistically sweeping
// already-fulfilled entries first) and publishes its descriptor onto the
// shared job queue. Returns ErrDuplicateHandle when job.ID is already
// pending, and ErrQueueFull (after removing the entry it just registered)
// when the shared job queue is at capacity.
func (m *Manager) Enqueue(job *types.Job) error {
	m.mu.Lock()
	m.sweepLocked()
	if _, exists := m.pending[job.ID]; exists {
		m.mu.Unlock()
		return ErrDuplicateHandle
	}
	m.pending[job.ID] = job.Handle
	m.mu.Unlock()

	if !m.jobQueue.Offer(job) {
		m.mu.Lock()
		delete(m.pending, job.ID)
		m.mu.Unlock()
		return ErrQueueFull
	}
	return nil
}

// ErrQueueFull is returned by Enqueue when the shared cross-process job
// queue is at capacity.
var ErrQueueFull = errors.New("isolated: job queue full")

// sweepLocked drops pending entries whose handle was already fulfilled
// (typically a consumer that timed out) — called under mu.
func (m *Manager) sweepLocked() {
	for id, h := range m.pending {
		if h.IsFulfilled() {
			delete(m.pending, id)
		}
	}
}

func (m *Manager) feedLoop(p *process) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		job, ok := m.jobQueue.Poll(feedPollTimeout)
		if !ok {
			continue
		}

		if err := p.sendDescriptor(descriptorFromJob(job)); err != nil {
			m.log.Errorw("failed to send job descriptor to worker process", "process", p.name, "jobID", job.ID, "error", err)
			// Best-effort requeue so another feeder can pick it up; this
			// feeder exits and is not restarted.
			m.jobQueue.Offer(job)
			return
		}
	}
}

func (m *Manager) collectLoop(p *process) {
	defer m.wg.Done()
	for {
		tuple, ok := p.readResult()
		if !ok {
			return
		}
		select {
		case m.resultCh <- tuple:
		case <-m.stopCh:
			return
		}
	}
}

// reconcileLoop is the single reconciler thread described by §4.4: it
// consumes the result FIFO, looks up the pending handle by id under mu,
// fulfills it if not already fulfilled, and deletes the entry.
func (m *Manager) reconcileLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case tuple := <-m.resultCh:
			m.mu.Lock()
			h, ok := m.pending[tuple.HandleID]
			if ok {
				delete(m.pending, tuple.HandleID)
			}
			m.mu.Unlock()

			if !ok {
				m.log.Warnw("result arrived for unknown handle id", "handleID", tuple.HandleID)
				continue
			}
			if !h.Fulfill(tuple.Result) {
				m.log.Infow("handle already fulfilled by deadline expiry, discarding late result", "handleID", tuple.HandleID)
			}
		}
	}
}

// Stop signals the feed, collect, and reconcile goroutines to stop, kills
// every worker process, waits for the goroutines to exit, then joins every
// worker process. The reconciler goroutine is
// daemonized by stopCh, not by the process group, so it cannot hold the
// driver alive.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		for _, p := range m.procs {
			p.terminate()
		}
		m.wg.Wait()
		for _, p := range m.procs {
			p.join()
		}
	})
}
