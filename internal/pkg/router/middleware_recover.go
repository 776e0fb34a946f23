package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/shandysiswandi/entryotp/internal/pkg/stacktrace"
)

// middlewareRecoverer turns a handler panic into the usual 500 envelope. The
// log carries only frames from this module when they can be found.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:err113,errorlint // sentinel compared by identity
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			stack := debug.Stack()
			var frames any = string(stack)
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				frames = paths
			}
			slog.ErrorContext(r.Context(), "panic while serving request",
				"method", r.Method,
				"path", matchedRoutePath(r),
				"because", rvr,
				"stack", frames,
			)

			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
