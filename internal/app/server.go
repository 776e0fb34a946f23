package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// Start serves HTTP in the background. The returned channel closes on
// SIGINT, SIGTERM or SIGHUP; from then on /health reports draining so the
// load balancer stops sending OTP traffic before Stop closes the listener.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		defer stop()
		<-sigCtx.Done()

		a.draining.Store(true)
		slog.Info("shutdown signal received, draining")
		close(done)
	}()

	return done
}

// ShutdownTimeout bounds Stop; app.server.shutdown_timeout_seconds overrides it.
func (a *App) ShutdownTimeout() time.Duration {
	if d := a.config.GetSecond("app.server.shutdown_timeout_seconds"); d > 0 {
		return d
	}
	return defaultShutdownTimeout
}

// Stop refuses new requests first, then lets confirmation consumers finish
// before the pools they use are closed.
func (a *App) Stop(ctx context.Context) {
	a.draining.Store(true)

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shutdown http server", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background worker returned error", "error", err)
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}
	slog.InfoContext(ctx, "application stopped")
}
