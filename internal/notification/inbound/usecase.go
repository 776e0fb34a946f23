package inbound

import (
	"context"

	"github.com/shandysiswandi/entryotp/internal/notification/usecase"
)

type ucConsumer interface {
	ConsumeEntryVerified(ctx context.Context, in usecase.ConsumeEntryVerifiedInput) error
}

type uc interface {
	ucConsumer

	LogList(ctx context.Context, in usecase.LogListInput) (*usecase.LogListOutput, error)
	LogClear(ctx context.Context, in usecase.LogClearInput) (int64, error)
	ChannelCheck(ctx context.Context, in usecase.ChannelCheckInput) (*usecase.ChannelCheckOutput, error)
}
