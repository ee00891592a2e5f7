// Package dispatch implements the dispatch API (§4.5): per request it
// fingerprints a job, enqueues it on the routed destination, suspends
// until the completion handle is fulfilled or a deadline elapses, and
// translates the outcome to an HTTP status. It also carries the
// collaborator-specified echo/getInfo/uploadFiles endpoints, which are
// pass-through glue rather than the hard part (§1).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chuliyu/jobgate/internal/controller"
	"github.com/chuliyu/jobgate/internal/isolated"
	"github.com/chuliyu/jobgate/internal/metrics"
	"github.com/chuliyu/jobgate/internal/queue"
	"github.com/chuliyu/jobgate/pkg/types"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Deadlines holds the per-kind consumer-side wait bound (§4.5 step 1).
type Deadlines struct {
	Message   time.Duration
	PDF2Image time.Duration
}

// Handler wires the dispatch API's HTTP surface to a Controller.
type Handler struct {
	ctrl       *controller.Controller
	metrics    *metrics.Collector
	log        *zap.SugaredLogger
	deadlines  Deadlines
	uploadsDir string
}

// New constructs a Handler.
func New(ctrl *controller.Controller, collector *metrics.Collector, log *zap.SugaredLogger, deadlines Deadlines, uploadsDir string) *Handler {
	return &Handler{ctrl: ctrl, metrics: collector, log: log, deadlines: deadlines, uploadsDir: uploadsDir}
}

// RegisterRoutes wires every HTTP-surface endpoint from §6 onto e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/hello", h.Hello)
	e.POST("/hello", h.Hello)
	e.POST("/getInfo", h.GetInfo)
	e.POST("/multiThread", h.MultiThread)
	e.POST("/uploadFiles", h.UploadFiles)
}

type dataRequest struct {
	Data string `json:"data"`
}

// Hello is a pass-through demonstration endpoint (§1, §6).
func (h *Handler) Hello(c echo.Context) error {
	var req dataRequest
	_ = c.Bind(&req)
	return c.JSON(http.StatusOK, echo.Map{"data": fmt.Sprintf("received data=%s!", req.Data)})
}

// GetInfo is a pass-through demonstration endpoint that only succeeds for
// a single magic input (§6).
func (h *Handler) GetInfo(c echo.Context) error {
	var req dataRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errBody("malformed request"))
	}
	if req.Data != "hello" {
		return echo.NewHTTPError(http.StatusInternalServerError, errBody("unexpected data"))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": "received data=hello!"})
}

type multiThreadRequest struct {
	Data    string `json:"data"`
	JobType string `json:"jobType"`
}

// MultiThread implements the dispatch API (§4.5).
func (h *Handler) MultiThread(c echo.Context) error {
	var req multiThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errBody("malformed request body"))
	}
	if req.JobType == "" {
		req.JobType = string(types.KindMessage)
	}

	switch types.Kind(req.JobType) {
	case types.KindMessage:
		return h.dispatchMessage(c, req.Data)
	case types.KindPDF2Image:
		return h.dispatchPDF2Image(c, req.Data)
	default:
		h.metrics.RecordRejected(req.JobType, "validation")
		return echo.NewHTTPError(http.StatusUnprocessableEntity, errBody(fmt.Sprintf("unknown jobType %q", req.JobType)))
	}
}

func (h *Handler) dispatchMessage(c echo.Context, data string) error {
	job := types.NewMessageJob(types.MessagePayload{
		RandomNo: rand.Intn(10) + 1,
		Message:  data,
	})

	q := h.ctrl.RouteMessage()
	if !offer(q, job) {
		h.metrics.RecordRejected(string(types.KindMessage), "saturation")
		return echo.NewHTTPError(http.StatusServiceUnavailable, errBody("message queue full"))
	}
	h.metrics.RecordEnqueue(string(types.KindMessage))

	return h.awaitAndRespond(c, job, string(types.KindMessage), h.deadlines.Message)
}

func (h *Handler) dispatchPDF2Image(c echo.Context, data string) error {
	job := types.NewPDF2ImageJob(types.PDF2ImagePayload{PDFFilePath: data})
	kind := string(types.KindPDF2Image)

	if h.ctrl.IsolatedEnabled() {
		if err := h.ctrl.IsolatedManager().Enqueue(job); err != nil {
			if errors.Is(err, isolated.ErrQueueFull) {
				h.metrics.RecordRejected(kind, "saturation")
				return echo.NewHTTPError(http.StatusServiceUnavailable, errBody("pdf queue full"))
			}
			return echo.NewHTTPError(http.StatusInternalServerError, errBody(err.Error()))
		}
		h.metrics.RecordEnqueue(kind)
		return h.awaitAndRespond(c, job, kind, h.deadlines.PDF2Image)
	}

	q := h.ctrl.RoutePDF()
	if !offer(q, job) {
		h.metrics.RecordRejected(kind, "saturation")
		return echo.NewHTTPError(http.StatusServiceUnavailable, errBody("pdf queue full"))
	}
	h.metrics.RecordEnqueue(kind)

	return h.awaitAndRespond(c, job, kind, h.deadlines.PDF2Image)
}

func offer(q *queue.Queue, job *types.Job) bool {
	if q == nil {
		return false
	}
	return q.Offer(job)
}

// awaitAndRespond suspends until job's handle is fulfilled or deadline
// elapses (§4.5 steps 5-6). It never cancels or de-registers the handle on
// timeout — Handle.Wait already marks it abandoned so the worker tolerates
// it, per the "must not cancel" rule in §4.5.
func (h *Handler) awaitAndRespond(c echo.Context, job *types.Job, kind string, deadline time.Duration) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), deadline)
	defer cancel()

	result, ok := job.Handle.Wait(ctx)
	if !ok {
		h.metrics.RecordTimedOut(kind)
		return echo.NewHTTPError(http.StatusGatewayTimeout, errBody("deadline exceeded waiting for result"))
	}

	if result.Failed() {
		h.metrics.RecordFailed(kind)
		return echo.NewHTTPError(http.StatusInternalServerError, errBody(result.Err))
	}

	h.metrics.RecordCompleted(kind, float64(result.TotalElapsed)/1000)
	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"id": job.ID, "result": result}})
}

// UploadFiles is the collaborator-specified multipart endpoint: it stores
// each uploaded file under a per-request directory and returns the stored
// paths (§6, §11 — following uploadFile.py).
func (h *Handler) UploadFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errBody("malformed multipart form"))
	}

	requestID := types.NewJobID()
	dir := filepath.Join(h.uploadsDir, string(requestID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, errBody("could not create upload directory"))
	}

	files := form.File["files"]
	stored := make([]string, 0, len(files))
	for i, fh := range files {
		path, err := storeUpload(dir, i, fh)
		if err != nil {
			h.log.Errorw("failed to store upload", "requestID", requestID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, errBody("could not store uploaded file"))
		}
		stored = append(stored, path)
	}

	return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"id": requestID, "files": stored}})
}

func storeUpload(dir string, index int, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := fmt.Sprintf("file-%02d%s", index, filepath.Ext(fh.Filename))
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

func errBody(msg string) echo.Map {
	return echo.Map{"err": msg}
}
