package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

// EntryStats summarizes entries, OTP traffic and deliveries. "Today" starts
// at midnight UTC.
func (s *Usecase) EntryStats(ctx context.Context) (*entity.Stats, error) {
	ctx, span := s.startSpan(ctx, "EntryStats")
	defer span.End()

	dayStart := s.clock.Now().UTC().Truncate(24 * time.Hour)

	stats, err := s.repoDB.GetStats(ctx, dayStart)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get stats", "error", err)
		return nil, goerror.NewServer(err)
	}

	return stats, nil
}
