package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/pkg/config"
)

const defaultMaintenanceMessage = "Service is under maintenance"

// middlewareMaintenance closes selected routes, e.g. registration once a draw
// has started while the admin reports stay up. Entries in
// app.maintenance.endpoints are a route pattern ("/api/v1/otp/send") or a
// method and pattern ("POST /api/v1/otp/send"). The check reads config on every
// request so a reload opens or closes routes without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !underMaintenance(cfg.GetArray("app.maintenance.endpoints"), r.Method, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			msg := cfg.GetString("app.maintenance.message")
			if msg == "" {
				msg = defaultMaintenanceMessage
			}
			w.Header().Set("Retry-After", "3600")
			writeJSON(w, errorResponse{Message: msg}, http.StatusServiceUnavailable)
		})
	}
}

func underMaintenance(endpoints []string, method, route string) bool {
	for _, e := range endpoints {
		m, path, scoped := strings.Cut(e, " ")
		if !scoped {
			path, m = e, ""
		}
		path = strings.TrimSpace(path)
		if path == route && (m == "" || strings.EqualFold(m, method)) {
			return true
		}
	}
	return false
}
