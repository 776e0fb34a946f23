package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type AttemptListInput struct {
	SourceIP string
	Kind     string
	Page     int32
	Size     int32
}

type AttemptListOutput struct {
	Page     int32
	Size     int32
	Total    int64
	Attempts []entity.Attempt
}

func (s *Usecase) AttemptList(ctx context.Context, in AttemptListInput) (*AttemptListOutput, error) {
	ctx, span := s.startSpan(ctx, "AttemptList")
	defer span.End()

	kind := entity.AttemptKind(strings.ToLower(strings.TrimSpace(in.Kind)))
	switch kind {
	case "", entity.AttemptKindIssue, entity.AttemptKindVerify:
	default:
		return nil, goerror.NewInvalidInput(nil, "kind", "kind must be issue or verify")
	}

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 50
	}
	page := max(in.Page, 1)

	attempts, total, err := s.repoDB.GetAttemptList(ctx, entity.AttemptListFilter{
		SourceIP: strings.TrimSpace(in.SourceIP),
		Kind:     kind,
		Limit:    in.Size,
		Offset:   pageOffset(page, in.Size),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list attempts", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &AttemptListOutput{Page: page, Size: in.Size, Total: total, Attempts: attempts}, nil
}
