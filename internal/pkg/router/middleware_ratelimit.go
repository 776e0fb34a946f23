package router

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ulule/limiter/v3"
)

// middlewareRateLimit applies a coarse per-IP ceiling to every routed request.
// It sits in front of the business throttles and only protects the process
// from floods; the OTP windows are enforced by the usecases.
func middlewareRateLimit(lim *limiter.Limiter, exempt map[string]map[string]struct{}) Middleware {
	return func(next http.Handler) http.Handler {
		if lim == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s, ok := exempt[r.Method]; ok {
				if _, skip := s[matchedRoutePath(r)]; skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			lctx, err := lim.Get(r.Context(), clientIP(r))
			if err != nil {
				// fail open, the store being down must not take the API with it
				slog.WarnContext(r.Context(), "failed to read rate limit", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

			if lctx.Reached {
				writeJSON(w, errorResponse{Message: "Too many requests. Please slow down."}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
