// Package gateway wires the dispatch API onto an HTTP server and owns the
// process lifecycle (§4.6): readiness gating, signal handling, drain, and
// the spec's forced-exit shutdown. It follows the otlpxy reference app's
// App/Run shape: build the echo instance, start it in a goroutine, block on
// an OS signal, then drain and shut down in order.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chuliyu/jobgate/internal/config"
	"github.com/chuliyu/jobgate/internal/controller"
	"github.com/chuliyu/jobgate/internal/dispatch"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// exposed for tests, which must not call os.Exit.
var exitFunc = os.Exit

// App owns the echo server, the lifecycle controller, and the readiness
// flag gating traffic during startup and drain.
type App struct {
	cfg       config.Config
	log       *zap.SugaredLogger
	ctrl      *controller.Controller
	handler   *dispatch.Handler
	echo      *echo.Echo
	readiness *atomic.Bool
}

// New builds an App. ctrl must not have been started yet; App.Run starts it.
func New(cfg config.Config, log *zap.SugaredLogger, ctrl *controller.Controller, handler *dispatch.Handler) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &App{
		cfg:       cfg,
		log:       log,
		ctrl:      ctrl,
		handler:   handler,
		echo:      e,
		readiness: atomic.NewBool(false),
	}
}

// Echo exposes the underlying echo instance, primarily for tests that want
// to drive requests through httptest without a live listener.
func (a *App) Echo() *echo.Echo { return a.echo }

func (a *App) wireMiddleware() {
	e := a.echo

	e.Use(middleware.BodyLimit(a.cfg.HTTP.BodyLimit))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.readiness.Load() {
				p := c.Request().URL.Path
				if p != "/healthz" && p != "/readyz" && p != "/metrics" {
					return c.NoContent(http.StatusServiceUnavailable)
				}
			}
			return next(c)
		}
	})

	if a.cfg.Metrics.Enabled {
		e.Use(echoprometheus.NewMiddleware("jobgate"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/readyz", func(c echo.Context) error {
		if !a.readiness.Load() {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	a.handler.RegisterRoutes(e)
}

// Run starts the worker pools, serves HTTP, and blocks until SIGINT/SIGTERM,
// then drains and shuts down in order (§4.6, §9 design notes). It never
// returns under normal operation: the shutdown path ends in a forced
// process exit, mirroring the source's "abort with status 0" behaviour,
// which exists purely to suppress the HTTP framework's own shutdown log
// noise in a server that owns no durable state worth a clean unwind.
func (a *App) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.ctrl.Start(ctx); err != nil {
		return fmt.Errorf("gateway: starting controller: %w", err)
	}

	a.wireMiddleware()

	go func() {
		a.readiness.Store(true)
		a.log.Infow("gateway listening", "addr", a.cfg.HTTP.Addr)
		if err := a.echo.Start(a.cfg.HTTP.Addr); err != nil && err != http.ErrServerClosed {
			a.log.Errorw("echo server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	a.log.Info("shutdown signal received, draining")
	a.readiness.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		a.log.Errorw("echo shutdown error", "error", err)
	}

	a.ctrl.Stop()
	a.log.Info("shutdown complete, exiting")
	exitFunc(0)
	return nil
}
