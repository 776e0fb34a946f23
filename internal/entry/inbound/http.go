package inbound

import (
	"context"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/entry/usecase"
	"github.com/shandysiswandi/entryotp/internal/pkg/router"
	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
)

type uc interface {
	OTPSend(ctx context.Context, in usecase.OTPSendInput) (*usecase.OTPSendOutput, error)
	OTPResend(ctx context.Context, in usecase.OTPResendInput) (*usecase.OTPSendOutput, error)
	OTPVerify(ctx context.Context, in usecase.OTPVerifyInput) (*usecase.OTPVerifyOutput, error)

	EntryStats(ctx context.Context) (*entity.Stats, error)
	EntryList(ctx context.Context, in usecase.EntryListInput) (*usecase.EntryListOutput, error)
	EntryDetail(ctx context.Context, in usecase.EntryDetailInput) (*entity.Entry, error)
	EntryDelete(ctx context.Context, in usecase.EntryDeleteInput) error
	EntryBulkDelete(ctx context.Context, in usecase.EntryBulkDeleteInput) (int64, error)
	EntryExport(ctx context.Context, in usecase.EntryExportInput) (*usecase.EntryExportOutput, error)
	EntryExportList(ctx context.Context) ([]storage.ObjectInfo, error)

	AttemptList(ctx context.Context, in usecase.AttemptListInput) (*usecase.AttemptListOutput, error)

	SettingsShow(ctx context.Context) (*entity.Settings, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Public OTP flow
	r.POST("/api/v1/otp/send", end.OTPSend)
	r.POST("/api/v1/otp/resend", end.OTPResend)
	r.POST("/api/v1/otp/verify", end.OTPVerify)

	// Admin (authentication sits in front of the service)
	r.GET("/api/v1/admin/stats", end.EntryStats)
	r.GET("/api/v1/admin/entries", end.EntryList)
	r.GET("/api/v1/admin/entries/:id", end.EntryDetail)
	r.DELETE("/api/v1/admin/entries/:id", end.EntryDelete)
	r.POST("/api/v1/admin/entries/bulk-delete", end.EntryBulkDelete)
	r.POST("/api/v1/admin/entries/export", end.EntryExport)
	r.GET("/api/v1/admin/exports", end.EntryExportList)
	r.GET("/api/v1/admin/attempts", end.AttemptList)
	r.GET("/api/v1/admin/settings", end.SettingsShow)
}
