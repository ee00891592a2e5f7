package controller

import (
	"context"
	"testing"
	"time"

	"github.com/chuliyu/jobgate/internal/config"
	"github.com/chuliyu/jobgate/internal/metrics"
	"github.com/chuliyu/jobgate/internal/pdfconvert"
	"github.com/chuliyu/jobgate/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MessagePool.WorkerCount = 1
	cfg.MessagePool.QueueCapacity = 4
	cfg.PDFPool.WorkerCount = 2
	cfg.PDFPool.QueueCapacity = 4
	cfg.PDFPool.Isolated = false
	return cfg
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	c := New(testConfig(), zap.NewNop().Sugar(), metrics.NewCollector(), pdfconvert.NewBasic(), "")
	t.Cleanup(c.Stop)
	return c
}

func TestControllerStartAwaitsReadiness(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Start(ctx))
	assert.False(t, c.IsolatedEnabled())
}

func TestControllerRouteMessageDispatchesAndCompletes(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	q := c.RouteMessage()
	job := types.NewMessageJob(types.MessagePayload{RandomNo: 1, Message: "hi"})
	require.True(t, q.Offer(job))

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer waitCancel()
	result, ok := job.Handle.Wait(waitCtx)
	require.True(t, ok)
	assert.Empty(t, result.ErrCode)
}

func TestControllerRoutePDFPicksLeastBusyQueue(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	q := c.RoutePDF()
	assert.NotNil(t, q)
}

func TestControllerStopIsIdempotent(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	c.Stop()
	assert.NotPanics(t, c.Stop)
}

func TestControllerQueueDepthsAndWorkersBusy(t *testing.T) {
	c := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))

	depths := c.QueueDepths()
	assert.Contains(t, depths, "messageQueue")

	messageBusy, pdfBusy := c.WorkersBusy()
	assert.Equal(t, 0, messageBusy)
	assert.Equal(t, 0, pdfBusy)
}
