// Package controller implements the lifecycle controller (§4.6): it owns
// the message pool, the PDF pool (and its optional isolated-process
// manager), orchestrates startup readiness, and coordinates orderly
// shutdown. It is the only place these components are constructed —
// every other package receives references through its constructor rather
// than reaching for ambient globals, per the design notes' "process-wide
// state" guidance.
package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/chuliyu/jobgate/internal/config"
	"github.com/chuliyu/jobgate/internal/isolated"
	"github.com/chuliyu/jobgate/internal/metrics"
	"github.com/chuliyu/jobgate/internal/pdfconvert"
	"github.com/chuliyu/jobgate/internal/queue"
	"github.com/chuliyu/jobgate/internal/worker"
	"go.uber.org/zap"
)

const (
	messagePoolName = "messagePool"
	pdfPoolName     = "pdfPool"
	messageWorker   = "messageWorker"
)

// Controller is the process-wide lifecycle object: constructed once at
// startup, started, and stopped exactly once.
type Controller struct {
	cfg       config.Config
	log       *zap.SugaredLogger
	metrics   *metrics.Collector
	converter pdfconvert.Converter

	messageQueue *queue.Queue
	messagePool  *worker.Pool

	pdfWorkers []*worker.Worker
	pdfPool    *worker.Pool

	isolatedMgr *isolated.Manager

	stopOnce sync.Once
}

// New constructs the message pool and the PDF pool (in-process or
// isolated-process, per cfg.PDFPool.Isolated) without starting anything.
// binaryPath is only used when the isolated-process manager is enabled —
// it tells the manager which binary to re-exec (with the "workerproc"
// subcommand) as a worker process.
func New(cfg config.Config, log *zap.SugaredLogger, collector *metrics.Collector, converter pdfconvert.Converter, binaryPath string) *Controller {
	c := &Controller{
		cfg:       cfg,
		log:       log,
		metrics:   collector,
		converter: converter,
	}

	c.messageQueue = queue.New(cfg.MessagePool.QueueCapacity)
	messageWorkers := make([]*worker.Worker, 0, cfg.MessagePool.WorkerCount)
	for i := 0; i < cfg.MessagePool.WorkerCount; i++ {
		name := messageWorker
		if cfg.MessagePool.WorkerCount > 1 {
			name = fmt.Sprintf("%s-%d", messageWorker, i)
		}
		messageWorkers = append(messageWorkers, worker.New(name, c.messageQueue, nil, log))
	}
	c.messagePool = worker.NewPool(messagePoolName, messageWorkers)

	if cfg.PDFPool.Isolated {
		c.isolatedMgr = isolated.NewManager(isolated.Config{
			WorkerCount:    cfg.PDFPool.IsolatedProcs,
			QueueCapacity:  cfg.PDFPool.IsolatedQueueCap,
			BinaryPath:     binaryPath,
			WorkerProcArgs: []string{"workerproc"},
		}, log)
	} else {
		c.pdfWorkers = buildPDFWorkers(cfg, converter, log)
		c.pdfPool = worker.NewPool(pdfPoolName, c.pdfWorkers)
	}

	return c
}

func buildPDFWorkers(cfg config.Config, converter pdfconvert.Converter, log *zap.SugaredLogger) []*worker.Worker {
	workers := make([]*worker.Worker, 0, cfg.PDFPool.WorkerCount)

	if cfg.PDFPool.SingleQueue {
		shared := queue.New(cfg.PDFPool.QueueCapacity)
		for i := 0; i < cfg.PDFPool.WorkerCount; i++ {
			workers = append(workers, worker.New(fmt.Sprintf("pdfWorker-%d", i), shared, converter, log))
		}
		return workers
	}

	for i := 0; i < cfg.PDFPool.WorkerCount; i++ {
		q := queue.New(cfg.PDFPool.QueueCapacity)
		workers = append(workers, worker.New(fmt.Sprintf("pdfWorker-%d", i), q, converter, log))
	}
	return workers
}

// Start launches every worker and awaits readiness before returning, then
// starts the isolated-process manager if configured.
func (c *Controller) Start(ctx context.Context) error {
	c.messagePool.StartAll()
	if c.pdfPool != nil {
		c.pdfPool.StartAll()
	}

	if err := c.messagePool.AwaitReady(ctx); err != nil {
		return fmt.Errorf("controller: message pool: %w", err)
	}
	if c.pdfPool != nil {
		if err := c.pdfPool.AwaitReady(ctx); err != nil {
			return fmt.Errorf("controller: pdf pool: %w", err)
		}
	}

	if c.isolatedMgr != nil {
		if err := c.isolatedMgr.Start(); err != nil {
			return fmt.Errorf("controller: isolated manager: %w", err)
		}
	}

	c.log.Infow("controller started",
		"messageWorkers", c.cfg.MessagePool.WorkerCount,
		"pdfWorkers", c.cfg.PDFPool.WorkerCount,
		"isolated", c.cfg.PDFPool.Isolated,
	)
	return nil
}

// Stop requests every in-process worker to stop and joins them, then
// terminates and joins every isolated process. Idempotent: a second call
// is a no-op, satisfying the "stopping an already-stopped pool" design
// note.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.messagePool.StopAll()
		if c.pdfPool != nil {
			c.pdfPool.StopAll()
		}
		if c.isolatedMgr != nil {
			c.isolatedMgr.Stop()
		}
		c.log.Info("controller stopped")
	})
}

// RouteMessage returns the single message-worker queue.
func (c *Controller) RouteMessage() *queue.Queue {
	return c.messageQueue
}

// IsolatedEnabled reports whether PDF2IMAGE jobs are routed to the
// isolated-process manager instead of the in-process PDF pool.
func (c *Controller) IsolatedEnabled() bool {
	return c.isolatedMgr != nil
}

// RoutePDF returns the least-busy in-process PDF worker queue. Only valid
// when IsolatedEnabled() is false.
func (c *Controller) RoutePDF() *queue.Queue {
	return worker.LeastBusyQueue(c.pdfWorkers)
}

// IsolatedManager returns the isolated-process manager. Only valid when
// IsolatedEnabled() is true.
func (c *Controller) IsolatedManager() *isolated.Manager {
	return c.isolatedMgr
}

// QueueDepths reports every queue's current depth, keyed by a label
// suitable for the queueDepth gauge.
func (c *Controller) QueueDepths() map[string]int {
	depths := map[string]int{"messageQueue": c.messageQueue.Size()}
	seen := map[*queue.Queue]bool{}
	for _, w := range c.pdfWorkers {
		if seen[w.Queue()] {
			continue
		}
		seen[w.Queue()] = true
		depths[fmt.Sprintf("pdfQueue-%s", w.Name())] = w.Queue().Size()
	}
	return depths
}

// WorkersBusy counts in-flight workers per pool.
func (c *Controller) WorkersBusy() (messageBusy, pdfBusy int) {
	for _, w := range c.messagePool.Workers() {
		if w.IsRunningJob() {
			messageBusy++
		}
	}
	for _, w := range c.pdfWorkers {
		if w.IsRunningJob() {
			pdfBusy++
		}
	}
	return
}
