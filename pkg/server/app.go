package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalPull/internal/usecase"
	xhttp "SignalPull/pkg/http"
	applogger "SignalPull/pkg/logger"
	"SignalPull/pkg/trace"
)

// App encapsulates the entire application lifecycle.
type App struct {
	logger     *applogger.Logger
	runner     *usecase.CycleRunner
	httpServer *xhttp.Server
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App. Closers are released in reverse order on shutdown.
func New(logger *applogger.Logger, runner *usecase.CycleRunner, httpServer *xhttp.Server) *App {
	return &App{
		logger:     logger,
		runner:     runner,
		httpServer: httpServer,
	}
}

// OnShutdown registers a resource to close after the runner and server stop.
// A nil closer is ignored.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, c: c})
}

// Run starts the HTTP server and the cycle runner and blocks until SIGINT,
// SIGTERM or a fatal server error.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with caller-controlled cancellation.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := a.httpServer.Start()

	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- a.runner.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err, ok := <-httpErr:
		if ok && err != nil {
			a.logger.Error("http server error", applogger.Error(err))
			runErr = err
		}
	case err := <-runnerDone:
		if err != nil && ctx.Err() == nil {
			runErr = err
		}
		runnerDone = nil
	}

	cancel()
	a.shutdown(runnerDone)
	return runErr
}

func (a *App) shutdown(runnerDone <-chan error) {
	a.logger.Info("shutting down")

	if runnerDone != nil {
		select {
		case <-runnerDone:
		case <-time.After(10 * time.Second):
			a.logger.Warn("cycle runner did not stop in time")
		}
	}

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(ctx); err != nil {
		a.logger.Warn("trace shutdown error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
}
