package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chuliyu/jobgate/internal/config"
	"github.com/chuliyu/jobgate/internal/controller"
	"github.com/chuliyu/jobgate/internal/metrics"
	"github.com/chuliyu/jobgate/internal/pdfconvert"
	"github.com/chuliyu/jobgate/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*echo.Echo, *Handler, *controller.Controller) {
	t.Helper()
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	cfg := config.Default()
	cfg.MessagePool.WorkerCount = 1
	cfg.MessagePool.QueueCapacity = 10
	cfg.PDFPool.WorkerCount = 1
	cfg.PDFPool.QueueCapacity = 2

	collector := metrics.NewCollector()
	ctrl := controller.New(cfg, zap.NewNop().Sugar(), collector, pdfconvert.NewBasic(), "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Start(ctx))
	t.Cleanup(ctrl.Stop)

	deadlines := Deadlines{Message: 200 * time.Millisecond, PDF2Image: 60 * time.Second}
	h := New(ctrl, collector, zap.NewNop().Sugar(), deadlines, t.TempDir())

	e := echo.New()
	h.RegisterRoutes(e)
	return e, h, ctrl
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHello(t *testing.T) {
	e, _, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodPost, "/hello", `{"data":"world"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "received data=world!")
}

func TestGetInfoSuccess(t *testing.T) {
	e, _, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodPost, "/getInfo", `{"data":"hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetInfoFailsOnWrongData(t *testing.T) {
	e, _, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodPost, "/getInfo", `{"data":"nope"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMultiThreadUnknownKindRejected(t *testing.T) {
	e, _, ctrl := newTestHandler(t)
	before := ctrl.RouteMessage().Size()

	rec := doJSON(e, http.MethodPost, "/multiThread", `{"data":"x","jobType":"foo"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, before, ctrl.RouteMessage().Size(), "unknown kind must not enqueue a job")
}

func TestMultiThreadMessageDeadlineExceeded(t *testing.T) {
	// randomNo is randomized server-side, so this test cannot pick the
	// fast or slow path; it does not need to — the message deadline
	// (200ms) is shorter than even the fast 3s execution policy, so every
	// live request times out deterministically.
	e, _, _ := newTestHandler(t)
	start := time.Now()
	rec := doJSON(e, http.MethodPost, "/multiThread", `{"data":"hi","jobType":"message"}`)
	elapsed := time.Since(start)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestMultiThreadSaturationReturns503(t *testing.T) {
	e, _, ctrl := newTestHandler(t)
	q := ctrl.RouteMessage()

	// The single worker immediately dequeues the first job and blocks on
	// its sleep, so every job offered after that sits in the queue. Fill
	// it to capacity with real (never-awaited) jobs before driving a
	// request through the HTTP surface.
	for i := 0; i < q.Capacity()+1; i++ {
		job := types.NewMessageJob(types.MessagePayload{RandomNo: 1, Message: "filler"})
		q.Offer(job)
	}

	rec := doJSON(e, http.MethodPost, "/multiThread", `{"data":"x","jobType":"message"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
