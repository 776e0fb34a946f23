package inbound

import (
	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/entry/usecase"
	"github.com/shandysiswandi/entryotp/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// OTPSend registers an entry (or refreshes its contact details) and sends a code.
// @Summary Send OTP
// @Description Creates or updates the entry matching the contact details and delivers a fresh code on every configured channel.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body OTPSendRequest true "Contact details"
// @Success 200 {object} router.successResponse{data=OTPIssueResponse} "OTP issued"
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 409 {object} router.errorResponse "Entry already verified"
// @Failure 429 {object} router.errorResponse "Too many OTP requests"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/send [post]
func (h *HTTPEndpoint) OTPSend(r *router.Request) (any, error) {
	var req OTPSendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPSend(r.Context(), usecase.OTPSendInput{
		Name:     req.Name,
		Phone:    req.Phone,
		WhatsApp: req.WhatsApp,
		Email:    req.Email,
		SourceIP: r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return issueResponse(resp), nil
}

// OTPResend issues a new code for an existing entry.
// @Summary Resend OTP
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body OTPResendRequest true "Entry"
// @Success 200 {object} router.successResponse{data=OTPIssueResponse} "OTP issued"
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 404 {object} router.errorResponse "Entry not found"
// @Failure 409 {object} router.errorResponse "Entry already verified"
// @Failure 429 {object} router.errorResponse "Too many OTP requests"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/resend [post]
func (h *HTTPEndpoint) OTPResend(r *router.Request) (any, error) {
	var req OTPResendRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPResend(r.Context(), usecase.OTPResendInput{
		EntryID:  req.EntryID,
		SourceIP: r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return issueResponse(resp), nil
}

// OTPVerify checks a code against the entry's active OTP.
// @Summary Verify OTP
// @Description Marks the entry verified when the code matches. Wrong codes report the remaining attempts.
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body OTPVerifyRequest true "Entry and code"
// @Success 200 {object} router.successResponse{data=OTPVerifyResponse} "Entry verified"
// @Failure 400 {object} router.errorResponse "Invalid, expired or exhausted code"
// @Failure 404 {object} router.errorResponse "Entry not found"
// @Failure 429 {object} router.errorResponse "Too many failed attempts"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/otp/verify [post]
func (h *HTTPEndpoint) OTPVerify(r *router.Request) (any, error) {
	var req OTPVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPVerify(r.Context(), usecase.OTPVerifyInput{
		EntryID:  req.EntryID,
		Code:     req.Code,
		SourceIP: r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return OTPVerifyResponse{
		EntryID:         resp.EntryID,
		EntryNumber:     resp.EntryNumber,
		Name:            resp.Name,
		Email:           resp.Email,
		Phone:           resp.Phone,
		VerifiedAt:      resp.VerifiedAt,
		AlreadyVerified: resp.AlreadyVerified,
	}, nil
}

// @Summary Dashboard stats
// @Tags Admin
// @Produce json
// @Success 200 {object} router.successResponse{data=StatsResponse} "Stats"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/stats [get]
func (h *HTTPEndpoint) EntryStats(r *router.Request) (any, error) {
	stats, err := h.uc.EntryStats(r.Context())
	if err != nil {
		return nil, err
	}

	return StatsResponse{
		TotalEntries:       stats.TotalEntries,
		VerifiedEntries:    stats.VerifiedEntries,
		PendingEntries:     stats.PendingEntries,
		TodayEntries:       stats.TodayEntries,
		TodayOTPsIssued:    stats.TodayOTPsIssued,
		TodayFailedVerify:  stats.TodayFailedVerify,
		NotificationSent:   stats.NotificationSent,
		NotificationFailed: stats.NotificationFailed,
	}, nil
}

// SettingsShow returns the effective configuration with secrets masked.
// @Summary Effective settings
// @Tags Admin
// @Produce json
// @Success 200 {object} router.successResponse{data=SettingsResponse} "Settings"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/settings [get]
func (h *HTTPEndpoint) SettingsShow(r *router.Request) (any, error) {
	st, err := h.uc.SettingsShow(r.Context())
	if err != nil {
		return nil, err
	}

	chans := make([]ChannelSettingResponse, 0, len(st.Channels))
	for _, c := range st.Channels {
		chans = append(chans, ChannelSettingResponse{Kind: c.Kind, Provider: c.Provider, Enabled: c.Enabled})
	}

	maint := st.MaintenanceEndpoints
	if maint == nil {
		maint = []string{}
	}

	return SettingsResponse{
		AppName:  st.AppName,
		Channels: chans,
		OTP: OTPSettingsResponse{
			TTLSeconds:  int64(st.OTPTTL.Seconds()),
			MaxAttempts: st.MaxAttempts,
		},
		Limits: LimitSettingsResponse{
			IPIssuePerHour:        st.IPIssuePerHour,
			EntryIssuePerHour:     st.EntryIssuePerHour,
			IPVerifyFailures:      st.IPVerifyFailures,
			IPVerifyWindowMinutes: int64(st.IPVerifyWindow.Minutes()),
		},
		ExportURLTTLMinutes:  int64(st.ExportURLTTL.Minutes()),
		MaintenanceEndpoints: maint,
		Secrets:              st.SecretsConfigured,
	}, nil
}

// EntryList returns a page of entries.
// @Summary List entries
// @Tags Admin
// @Produce json
// @Param search query string false "Search by entry number, name, phone or email"
// @Param status query string false "verified or pending"
// @Param size query int false "Pagination size"
// @Param page query int false "Pagination page"
// @Success 200 {object} router.successResponse{data=EntriesResponse} "Entry list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/entries [get]
func (h *HTTPEndpoint) EntryList(r *router.Request) (any, error) {
	page, size, err := r.Pagination()
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.EntryList(r.Context(), usecase.EntryListInput{
		Search: r.GetQuery("search"),
		Status: r.GetQuery("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]EntryResponse, 0, len(resp.Entries))
	for i := range resp.Entries {
		entries = append(entries, entryResponse(&resp.Entries[i]))
	}

	return EntriesResponse{
		total:   resp.Total,
		size:    resp.Size,
		page:    resp.Page,
		Entries: entries,
	}, nil
}

// @Summary Get entry detail
// @Tags Admin
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} router.successResponse{data=EntryResponse} "Entry detail"
// @Failure 400 {object} router.errorResponse "Invalid path parameter"
// @Failure 404 {object} router.errorResponse "Entry not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/entries/{id} [get]
func (h *HTTPEndpoint) EntryDetail(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	entry, err := h.uc.EntryDetail(r.Context(), usecase.EntryDetailInput{ID: id})
	if err != nil {
		return nil, err
	}

	return entryResponse(entry), nil
}

// @Summary Delete entry
// @Tags Admin
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} router.successResponse{data=EntryDeleteResponse} "Entry deleted"
// @Failure 400 {object} router.errorResponse "Invalid path parameter"
// @Failure 404 {object} router.errorResponse "Entry not found"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/entries/{id} [delete]
func (h *HTTPEndpoint) EntryDelete(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	if err := h.uc.EntryDelete(r.Context(), usecase.EntryDeleteInput{ID: id}); err != nil {
		return nil, err
	}

	return EntryDeleteResponse{}, nil
}

// @Summary Delete entries in bulk
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body EntryBulkDeleteRequest true "Entry IDs"
// @Success 200 {object} router.successResponse{data=EntryBulkDeleteResponse} "Entries deleted"
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/entries/bulk-delete [post]
func (h *HTTPEndpoint) EntryBulkDelete(r *router.Request) (any, error) {
	var req EntryBulkDeleteRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	deleted, err := h.uc.EntryBulkDelete(r.Context(), usecase.EntryBulkDeleteInput{IDs: req.IDs})
	if err != nil {
		return nil, err
	}

	return EntryBulkDeleteResponse{Deleted: deleted}, nil
}

// EntryExport writes the matching entries to object storage and returns a
// presigned download link.
// @Summary Export entries
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body EntryExportRequest true "Filters"
// @Success 200 {object} router.successResponse{data=EntryExportResponse} "Export created"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/entries/export [post]
func (h *HTTPEndpoint) EntryExport(r *router.Request) (any, error) {
	var req EntryExportRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.EntryExport(r.Context(), usecase.EntryExportInput{
		Search: req.Search,
		Status: req.Status,
	})
	if err != nil {
		return nil, err
	}

	return EntryExportResponse{
		Key:       resp.Key,
		URL:       resp.URL,
		Count:     resp.Count,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}

// @Summary List previous exports
// @Tags Admin
// @Produce json
// @Success 200 {object} router.successResponse{data=EntryExportsResponse} "Exports"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/exports [get]
func (h *HTTPEndpoint) EntryExportList(r *router.Request) (any, error) {
	objects, err := h.uc.EntryExportList(r.Context())
	if err != nil {
		return nil, err
	}

	return EntryExportsResponse{Exports: objects}, nil
}

// AttemptList pages through the attempt ledger.
// @Summary List OTP attempts
// @Tags Admin
// @Produce json
// @Param ip query string false "Filter by source IP"
// @Param kind query string false "issue or verify"
// @Param size query int false "Pagination size"
// @Param page query int false "Pagination page"
// @Success 200 {object} router.successResponse{data=AttemptsResponse} "Attempt list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/admin/attempts [get]
func (h *HTTPEndpoint) AttemptList(r *router.Request) (any, error) {
	page, size, err := r.Pagination()
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.AttemptList(r.Context(), usecase.AttemptListInput{
		SourceIP: r.GetQuery("ip"),
		Kind:     r.GetQuery("kind"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		return nil, err
	}

	attempts := make([]AttemptResponse, 0, len(resp.Attempts))
	for _, a := range resp.Attempts {
		attempts = append(attempts, AttemptResponse{
			ID:         a.ID,
			EntryID:    a.EntryID,
			SourceIP:   a.SourceIP,
			Kind:       string(a.Kind),
			Successful: a.Successful,
			Outcome:    string(a.Outcome),
			Detail:     a.Detail,
			CreatedAt:  a.CreatedAt,
		})
	}

	return AttemptsResponse{
		total:    resp.Total,
		size:     resp.Size,
		page:     resp.Page,
		Attempts: attempts,
	}, nil
}

func issueResponse(out *usecase.OTPSendOutput) OTPIssueResponse {
	delivered := make(map[string]bool, len(out.Delivered))
	for kind, ok := range out.Delivered {
		delivered[string(kind)] = ok
	}

	return OTPIssueResponse{
		EntryID:     out.EntryID,
		EntryNumber: out.EntryNumber,
		Delivered:   delivered,
		ExpiresIn:   int64(out.ExpiresIn.Seconds()),
	}
}

func entryResponse(e *entity.Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		EntryNumber: e.EntryNumber,
		Name:        e.Name,
		Phone:       e.Phone,
		WhatsApp:    e.WhatsApp,
		Email:       e.Email,
		IsVerified:  e.IsVerified,
		VerifiedAt:  e.VerifiedAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
