package inbound

import (
	"github.com/shandysiswandi/entryotp/internal/notification/usecase"
	"github.com/shandysiswandi/entryotp/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// LogList returns delivery logs, newest first.
// @Summary List notification logs
// @Tags Admin
// @Produce json
// @Param channel query string false "sms, whatsapp or email"
// @Param status query string false "sent or failed"
// @Param purpose query string false "otp, registration_success or channel_test"
// @Param size query int false "Pagination size"
// @Param page query int false "Pagination page"
// @Success 200 {object} router.successResponse{data=LogsResponse} "Log list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/notification-logs [get]
func (h *HTTPEndpoint) LogList(r *router.Request) (any, error) {
	page, size, err := r.Pagination()
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.LogList(r.Context(), usecase.LogListInput{
		Channel: r.GetQuery("channel"),
		Status:  r.GetQuery("status"),
		Purpose: r.GetQuery("purpose"),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		return nil, err
	}

	logs := make([]LogResponse, 0, len(resp.Logs))
	for _, l := range resp.Logs {
		logs = append(logs, LogResponse{
			ID:          l.ID,
			EntryID:     l.EntryID,
			EntryNumber: l.EntryNumber,
			Channel:     l.Channel,
			Purpose:     l.Purpose.String(),
			Recipient:   l.Recipient,
			Subject:     l.Subject,
			Message:     l.Message,
			Status:      l.Status.String(),
			Diagnostic:  l.Diagnostic,
			CreatedAt:   l.CreatedAt,
		})
	}

	return LogsResponse{
		total: resp.Total,
		size:  resp.Size,
		page:  resp.Page,
		Logs:  logs,
	}, nil
}

// @Summary Clear notification logs
// @Tags Admin
// @Produce json
// @Param older_than_days query int false "Only delete logs older than this many days"
// @Success 200 {object} router.successResponse{data=LogClearResponse} "Logs cleared"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/notification-logs [delete]
func (h *HTTPEndpoint) LogClear(r *router.Request) (any, error) {
	days, err := r.GetQueryInt32("older_than_days")
	if err != nil {
		return nil, err
	}

	deleted, err := h.uc.LogClear(r.Context(), usecase.LogClearInput{OlderThanDays: days})
	if err != nil {
		return nil, err
	}

	return LogClearResponse{Deleted: deleted}, nil
}

// ChannelCheck sends a sample confirmation through one channel.
// @Summary Test a delivery channel
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body ChannelCheckRequest true "Channel and recipient"
// @Success 200 {object} router.successResponse{data=ChannelCheckResponse} "Delivery result"
// @Failure 400 {object} router.errorResponse "Validation error or channel not configured"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/channels/test [post]
func (h *HTTPEndpoint) ChannelCheck(r *router.Request) (any, error) {
	var req ChannelCheckRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ChannelCheck(r.Context(), usecase.ChannelCheckInput{
		Channel:   req.Channel,
		Recipient: req.Recipient,
	})
	if err != nil {
		return nil, err
	}

	return ChannelCheckResponse{
		Channel:    string(resp.Result.Kind),
		Provider:   resp.Result.Provider,
		Success:    resp.Result.Success,
		Diagnostic: resp.Result.Diagnostic,
		QRCodeURL:  resp.QRCodeURL,
	}, nil
}
