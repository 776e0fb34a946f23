package inbound

import (
	"github.com/shandysiswandi/entryotp/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/admin/notification-logs", end.LogList)
	r.DELETE("/api/v1/admin/notification-logs", end.LogClear)
	r.POST("/api/v1/admin/channels/test", end.ChannelCheck)
}
