package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/entryotp/internal/pkg/stacktrace"
)

// dispatch runs handler with panic recovery and settles the delivery when
// autoAck is set and the handler did not settle it itself.
func dispatch(ctx context.Context, kind string, d *delivery, handler Handler, autoAck bool) error {
	herr := callHandlerWithRecover(ctx, kind, func() error { return handler(ctx, d) })
	if !autoAck || d.isSettled() {
		return herr
	}
	if herr != nil {
		return d.Nack(ctx)
	}
	return d.Ack(ctx)
}

func callHandlerWithRecover(ctx context.Context, kind string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
		}
	}()

	return fn()
}
