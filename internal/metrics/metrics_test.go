package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector := NewCollector()

	assert.NotNil(t, collector, "NewCollector should return a non-nil collector")
	assert.NotNil(t, collector.jobsEnqueued, "jobsEnqueued should be initialized")
	assert.NotNil(t, collector.jobsRejected, "jobsRejected should be initialized")
	assert.NotNil(t, collector.jobsCompleted, "jobsCompleted should be initialized")
	assert.NotNil(t, collector.jobsFailed, "jobsFailed should be initialized")
	assert.NotNil(t, collector.jobsTimedOut, "jobsTimedOut should be initialized")
	assert.NotNil(t, collector.jobLatency, "jobLatency should be initialized")
	assert.NotNil(t, collector.queueDepth, "queueDepth should be initialized")
	assert.NotNil(t, collector.workersBusy, "workersBusy should be initialized")
	assert.NotNil(t, collector.workersTotal, "workersTotal should be initialized")
}

func TestRecordEnqueue(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordEnqueue("message")
	})
	for i := 0; i < 5; i++ {
		collector.RecordEnqueue("pdf2image")
	}
}

func TestRecordRejected(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordRejected("message", "saturation")
		collector.RecordRejected("", "validation")
	})
}

func TestRecordCompleted(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	latencies := []float64{0.001, 0.01, 0.1, 1.0, 5.0}
	for _, latency := range latencies {
		assert.NotPanics(t, func() {
			collector.RecordCompleted("message", latency)
		}, "RecordCompleted should not panic with latency %f", latency)
	}
}

func TestRecordFailedAndTimedOut(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordFailed("pdf2image")
		collector.RecordTimedOut("message")
	})
}

func TestSetQueueAndWorkerGauges(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	testCases := []struct {
		name     string
		depth    int
		busy     int
		total    int
	}{
		{"zero values", 0, 0, 1},
		{"normal values", 10, 5, 8},
		{"equal values", 20, 20, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				collector.SetQueueDepth("messageQueue", tc.depth)
				collector.SetWorkersBusy("messagePool", tc.busy)
				collector.SetWorkersTotal("messagePool", tc.total)
			})
		})
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			collector.RecordEnqueue("message")
			collector.RecordCompleted("message", 0.1)
			collector.SetQueueDepth("messageQueue", 10)
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}

func TestCollectorIsolation(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	collector1 := NewCollector()
	require.NotNil(t, collector1)

	// Second collector in the same process panics on duplicate
	// registration; a process owns exactly one Collector.
	assert.Panics(t, func() {
		NewCollector()
	})
}

func TestJobLifecycleSequence(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	collector := NewCollector()

	assert.NotPanics(t, func() {
		collector.RecordEnqueue("message")
		collector.SetQueueDepth("messageQueue", 1)

		collector.SetWorkersBusy("messagePool", 1)
		collector.RecordCompleted("message", 0.5)
		collector.SetWorkersBusy("messagePool", 0)
		collector.SetQueueDepth("messageQueue", 0)
	})
}
