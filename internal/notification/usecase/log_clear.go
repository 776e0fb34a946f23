package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type LogClearInput struct {
	// OlderThanDays keeps the most recent days. Zero clears everything.
	OlderThanDays int32 `validate:"gte=0,lte=3650"`
}

func (s *Usecase) LogClear(ctx context.Context, in LogClearInput) (int64, error) {
	ctx, span := s.startSpan(ctx, "LogClear")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return 0, goerror.NewInvalidInput(err)
	}

	var before *time.Time
	if in.OlderThanDays > 0 {
		t := s.clock.Now().AddDate(0, 0, -int(in.OlderThanDays))
		before = &t
	}

	deleted, err := s.repoDB.DeleteLogs(context.WithoutCancel(ctx), before)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete notification logs", "older_than_days", in.OlderThanDays, "error", err)
		return 0, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "notification logs cleared", "deleted", deleted, "older_than_days", in.OlderThanDays)
	return deleted, nil
}
