// Package metrics collects and exposes Prometheus metrics for the
// dispatch gateway: job throughput and outcome counters by kind, a
// per-kind latency histogram, and gauges for queue depth and in-flight
// workers. The shape follows RED (rate, errors, duration): every job
// outcome increments exactly one counter, and every completed job
// observes one latency sample.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every metric jobgate exposes at /metrics.
type Collector struct {
	jobsEnqueued  *prometheus.CounterVec // by kind
	jobsRejected  *prometheus.CounterVec // by kind, reason
	jobsCompleted *prometheus.CounterVec // by kind
	jobsFailed    *prometheus.CounterVec // by kind
	jobsTimedOut  *prometheus.CounterVec // by kind

	jobLatency *prometheus.HistogramVec // by kind, seconds

	queueDepth   *prometheus.GaugeVec // by queue name
	workersBusy  *prometheus.GaugeVec // by pool name
	workersTotal *prometheus.GaugeVec // by pool name
}

// NewCollector constructs a Collector and registers every metric on
// prometheus.DefaultRegisterer. Constructing a second Collector in the
// same process panics on duplicate registration — by design, a process
// owns exactly one Collector.
func NewCollector() *Collector {
	c := &Collector{
		jobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgate_jobs_enqueued_total",
			Help: "Total number of jobs accepted onto a destination queue, by kind",
		}, []string{"kind"}),
		jobsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgate_jobs_rejected_total",
			Help: "Total number of jobs rejected before enqueue, by kind and reason",
		}, []string{"kind", "reason"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgate_jobs_completed_total",
			Help: "Total number of jobs whose handle was fulfilled with a successful result, by kind",
		}, []string{"kind"}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgate_jobs_failed_total",
			Help: "Total number of jobs whose handle was fulfilled with a worker-failure result, by kind",
		}, []string{"kind"}),
		jobsTimedOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgate_jobs_timed_out_total",
			Help: "Total number of requests that abandoned their handle at the deadline, by kind",
		}, []string{"kind"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobgate_job_latency_seconds",
			Help:    "End-to-end job latency (totalElapsed) in seconds, by kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobgate_queue_depth",
			Help: "Current number of jobs queued, by queue name",
		}, []string{"queue"}),
		workersBusy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobgate_workers_busy",
			Help: "Current number of workers executing a job, by pool",
		}, []string{"pool"}),
		workersTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobgate_workers_total",
			Help: "Configured worker count, by pool",
		}, []string{"pool"}),
	}

	prometheus.MustRegister(
		c.jobsEnqueued,
		c.jobsRejected,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsTimedOut,
		c.jobLatency,
		c.queueDepth,
		c.workersBusy,
		c.workersTotal,
	)

	return c
}

// RecordEnqueue records a job accepted onto a destination queue.
func (c *Collector) RecordEnqueue(kind string) {
	c.jobsEnqueued.WithLabelValues(kind).Inc()
}

// RecordRejected records a job rejected before enqueue (saturation or
// validation).
func (c *Collector) RecordRejected(kind, reason string) {
	c.jobsRejected.WithLabelValues(kind, reason).Inc()
}

// RecordCompleted records a successful handle fulfillment and its
// end-to-end latency.
func (c *Collector) RecordCompleted(kind string, latencySeconds float64) {
	c.jobsCompleted.WithLabelValues(kind).Inc()
	c.jobLatency.WithLabelValues(kind).Observe(latencySeconds)
}

// RecordFailed records a worker-failure handle fulfillment.
func (c *Collector) RecordFailed(kind string) {
	c.jobsFailed.WithLabelValues(kind).Inc()
}

// RecordTimedOut records a request that abandoned its handle at the
// deadline.
func (c *Collector) RecordTimedOut(kind string) {
	c.jobsTimedOut.WithLabelValues(kind).Inc()
}

// SetQueueDepth sets the current depth gauge for a named queue.
func (c *Collector) SetQueueDepth(queueName string, depth int) {
	c.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

// SetWorkersBusy sets the current in-flight-worker gauge for a named pool.
func (c *Collector) SetWorkersBusy(poolName string, busy int) {
	c.workersBusy.WithLabelValues(poolName).Set(float64(busy))
}

// SetWorkersTotal sets the configured-worker-count gauge for a named pool.
func (c *Collector) SetWorkersTotal(poolName string, total int) {
	c.workersTotal.WithLabelValues(poolName).Set(float64(total))
}
