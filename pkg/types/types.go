// Package types defines the domain model shared by every jobgate package:
// the tagged Job/Result records that flow through queues, and the
// completion handle that rendezvous a worker with the request handler
// that submitted the job.
//
// Core types:
//   - Job: immutable once enqueued, tagged by Kind, carries a Handle
//   - Result: the outcome a worker produces for a Job
//   - Handle: a single-fulfillment rendezvous between worker and requester
//
// Timestamps are Unix milliseconds throughout, matching the timing
// counters the dispatch API reports back to callers.
package types

import (
	"time"

	"github.com/google/uuid"
)

// JobID uniquely identifies a job. It is also used as the handle id when a
// job crosses a process boundary (see the isolated-process manager).
type JobID string

// NewJobID mints a fresh, globally unique job id.
func NewJobID() JobID {
	return JobID(uuid.NewString())
}

// Kind discriminates the payload variant carried by a Job.
type Kind string

const (
	KindMessage   Kind = "message"
	KindPDF2Image Kind = "pdf2image"
)

// MessagePayload is the variant carried by Kind == KindMessage.
type MessagePayload struct {
	RandomNo int    `json:"randomNo"`
	Message  string `json:"message"`
}

// PDF2ImagePayload is the variant carried by Kind == KindPDF2Image.
type PDF2ImagePayload struct {
	PDFFilePath string `json:"pdfFilePath"`
}

// Job is a unit of work submitted by a request handler. It is immutable
// once enqueued: nothing about it changes in transit except that its
// Handle eventually becomes fulfilled.
type Job struct {
	ID            JobID
	CreateEpochMs int64
	Kind          Kind
	Message       *MessagePayload
	PDF2Image     *PDF2ImagePayload
	Handle        *Handle
}

// NewMessageJob constructs a MESSAGE job with a fresh id, handle, and
// creation timestamp.
func NewMessageJob(payload MessagePayload) *Job {
	return &Job{
		ID:            NewJobID(),
		CreateEpochMs: nowMs(),
		Kind:          KindMessage,
		Message:       &payload,
		Handle:        NewHandle(),
	}
}

// NewPDF2ImageJob constructs a PDF2IMAGE job with a fresh id, handle, and
// creation timestamp.
func NewPDF2ImageJob(payload PDF2ImagePayload) *Job {
	return &Job{
		ID:            NewJobID(),
		CreateEpochMs: nowMs(),
		Kind:          KindPDF2Image,
		PDF2Image:     &payload,
		Handle:        NewHandle(),
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// Result is what a worker produces for a Job. ErrCode == "" means success.
// The three *Elapsed fields are milliseconds measured against the job's
// CreateEpochMs: DequeueElapsed at the moment a worker pulled the job off
// its queue, ProcessElapsed for the execution body alone, TotalElapsed for
// the whole lifetime. TotalElapsed is always >= DequeueElapsed+ProcessElapsed
// within clock resolution.
type Result struct {
	ErrCode        string `json:"errCode"`
	Err            string `json:"err,omitempty"`
	WorkerName     string `json:"workerName"`
	Data           string `json:"data,omitempty"`
	DequeueElapsed int64  `json:"dequeueElapsed"`
	ProcessElapsed int64  `json:"processElapsed"`
	TotalElapsed   int64  `json:"totalElapsed"`
}

// Failed reports whether the result represents a worker-side failure.
func (r Result) Failed() bool {
	return r.ErrCode != ""
}
