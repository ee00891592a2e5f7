// Package worker implements the in-process execution unit (§4.2) and the
// pool/least-busy router (§4.3). Each Worker is an independent goroutine
// that owns exactly one queue and runs a single cooperative loop: signal
// readiness once, poll with a short timeout, execute whatever it dequeues,
// fulfill the job's handle, repeat until stopped.
package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/chuliyu/jobgate/internal/pdfconvert"
	"github.com/chuliyu/jobgate/internal/queue"
	"github.com/chuliyu/jobgate/pkg/types"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	pollTimeout       = 5 * time.Second
	heartbeatInterval = 5 * time.Minute
	pdfThreadHint     = 4
	pdfOutputRoot     = "./out/pdf2image"
)

// Worker is a long-lived executor consuming one queue. Its zero value is
// not usable; construct with New.
type Worker struct {
	name      string
	q         *queue.Queue
	ready     *types.Handle
	converter pdfconvert.Converter
	log       *zap.SugaredLogger

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	lastHeartbeat time.Time
}

// New constructs a Worker bound to q. converter may be nil for a worker
// that only ever sees MESSAGE jobs.
func New(name string, q *queue.Queue, converter pdfconvert.Converter, log *zap.SugaredLogger) *Worker {
	return &Worker{
		name:      name,
		q:         q,
		ready:     types.NewHandle(),
		converter: converter,
		log:       log,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Name returns the worker's identity, as recorded in Result.WorkerName.
func (w *Worker) Name() string { return w.name }

// Queue returns the queue this worker consumes. Several workers may share
// the same *queue.Queue (fan-out topology).
func (w *Worker) Queue() *queue.Queue { return w.q }

// IsRunningJob reports whether the worker is currently between dequeue and
// result-fulfillment. Reads may race writes; per §5 this is acceptable
// because the router only uses it as an advisory load signal.
func (w *Worker) IsRunningJob() bool { return w.running.Load() }

// Ready returns the startup handle that is fulfilled exactly once, the
// first time the worker's loop runs. The lifecycle controller awaits this
// before accepting traffic.
func (w *Worker) Ready() *types.Handle { return w.ready }

// Stop requests the worker to exit after it finishes any job currently in
// flight. Idempotent.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Join blocks until the worker's loop has returned.
func (w *Worker) Join() {
	<-w.doneCh
}

// Run is the worker's main loop. Callers run it in its own goroutine.
func (w *Worker) Run() {
	defer close(w.doneCh)

	signaledReady := false
	for {
		if !signaledReady {
			w.ready.Fulfill(types.Result{WorkerName: w.name})
			signaledReady = true
		}

		job, ok := w.q.Poll(pollTimeout)

		if !ok {
			w.running.Store(false)
			w.maybeHeartbeat()
			if w.stopRequested() {
				return
			}
			continue
		}

		w.running.Store(true)
		w.execute(job)
		w.running.Store(false)

		if w.stopRequested() {
			return
		}
	}
}

func (w *Worker) stopRequested() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker) maybeHeartbeat() {
	if time.Since(w.lastHeartbeat) < heartbeatInterval {
		return
	}
	w.lastHeartbeat = time.Now()
	if w.log != nil {
		w.log.Debugw("worker idle heartbeat", "worker", w.name)
	}
}

// execute runs the execution policy for a single job (§4.2) and fulfills
// its handle in a guaranteed-release block: a panic is recovered and
// turned into a worker-failure result rather than terminating the loop,
// and an already-fulfilled handle (consumer timed out) is skipped, not
// retried.
func (w *Worker) execute(job *types.Job) {
	dequeueTime := time.Now()
	createTime := time.UnixMilli(job.CreateEpochMs)

	result := types.Result{
		WorkerName:     w.name,
		DequeueElapsed: dequeueTime.Sub(createTime).Milliseconds(),
	}
	processStart := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.ErrCode = "err"
			result.Err = "error processing job request"
			if w.log != nil {
				w.log.Errorw("job panicked", "jobID", job.ID, "worker", w.name, "panic", r)
			}
		}

		finish := time.Now()
		result.ProcessElapsed = finish.Sub(processStart).Milliseconds()
		result.TotalElapsed = finish.Sub(createTime).Milliseconds()

		if !job.Handle.Fulfill(result) {
			if w.log != nil {
				w.log.Infow("handle already fulfilled, skipping rendezvous", "jobID", job.ID, "worker", w.name)
			}
		}
	}()

	switch job.Kind {
	case types.KindMessage:
		w.executeMessage(job, &result)
	case types.KindPDF2Image:
		w.executePDF2Image(job, &result)
	default:
		result.ErrCode = "err"
		result.Err = fmt.Sprintf("unknown job kind %q", job.Kind)
	}
}

// executeMessage simulates a bimodal CPU load: jobs with randomNo < 8 run
// "fast" (3s), everything else runs "slow" (10s).
func (w *Worker) executeMessage(job *types.Job, result *types.Result) {
	if job.Message == nil {
		result.ErrCode = "err"
		result.Err = "missing message payload"
		return
	}

	if job.Message.RandomNo < 8 {
		time.Sleep(3 * time.Second)
	} else {
		time.Sleep(10 * time.Second)
	}

	result.Data = fmt.Sprintf("message job finished (%d)", time.Now().UnixMilli())
}

func (w *Worker) executePDF2Image(job *types.Job, result *types.Result) {
	if job.PDF2Image == nil {
		result.ErrCode = "err"
		result.Err = "missing pdf2image payload"
		return
	}
	if w.converter == nil {
		result.ErrCode = "err"
		result.Err = "no pdf converter configured"
		return
	}

	outDir := fmt.Sprintf("%s/%s", pdfOutputRoot, job.ID)
	pages, err := w.converter.Convert(job.PDF2Image.PDFFilePath, outDir, pdfThreadHint)
	if err != nil {
		result.ErrCode = "err"
		result.Err = "error processing job request"
		if w.log != nil {
			w.log.Errorw("pdf2image conversion failed", "jobID", job.ID, "worker", w.name, "error", err)
		}
		return
	}

	result.Data = fmt.Sprintf("pdf2image job finished (%d), pages=%d", time.Now().UnixMilli(), pages)
}
