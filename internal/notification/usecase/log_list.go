package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type LogListInput struct {
	Channel string
	Status  string
	Purpose string
	Page    int32
	Size    int32
}

type LogListOutput struct {
	Page  int32
	Size  int32
	Total int64
	Logs  []entity.Log
}

func (s *Usecase) LogList(ctx context.Context, in LogListInput) (*LogListOutput, error) {
	ctx, span := s.startSpan(ctx, "LogList")
	defer span.End()

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 20
	}
	page := max(in.Page, 1)

	logs, total, err := s.repoDB.ListLogs(ctx, entity.LogListFilter{
		Channel: strings.ToLower(strings.TrimSpace(in.Channel)),
		Status:  entity.DeliveryStatusFromString(in.Status),
		Purpose: entity.Purpose(strings.TrimSpace(in.Purpose)),
		Limit:   in.Size,
		Offset:  pageOffset(page, in.Size),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list notification logs", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &LogListOutput{Page: page, Size: in.Size, Total: total, Logs: logs}, nil
}

func pageOffset(page, size int32) int64 {
	return int64(page-1) * int64(size)
}
