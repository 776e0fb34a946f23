package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shandysiswandi/entryotp/internal/pkg/router"
)

type healthResponse struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Draining bool   `json:"draining,omitempty"`

	ok bool
}

func (h healthResponse) Message() string {
	if h.ok {
		return "healthy"
	}
	return "unhealthy"
}

func (h healthResponse) StatusCode() int {
	if h.ok {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Database: "up", Redis: "up", ok: true}
	if a.draining.Load() {
		resp.Draining, resp.ok = true, false
	}

	if err := a.dbConn.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health: database ping failed", "error", err)
		resp.Database, resp.ok = "down", false
	}
	if err := a.cacheConn.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "health: redis ping failed", "error", err)
		resp.Redis, resp.ok = "down", false
	}

	return resp, nil
}
