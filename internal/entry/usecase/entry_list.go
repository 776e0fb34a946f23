package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type EntryListInput struct {
	Search string
	Status string // verified | pending | empty for all
	Page   int32
	Size   int32
}

type EntryListOutput struct {
	Page    int32
	Size    int32
	Total   int64
	Entries []entity.Entry
}

func (s *Usecase) EntryList(ctx context.Context, in EntryListInput) (*EntryListOutput, error) {
	ctx, span := s.startSpan(ctx, "EntryList")
	defer span.End()

	if in.Size <= 0 || in.Size > 100 {
		in.Size = 20
	}
	page := max(in.Page, 1)

	entries, total, err := s.repoDB.GetEntryList(ctx, entity.EntryListFilter{
		Search: strings.TrimSpace(in.Search),
		Status: entity.ParseEntryStatus(in.Status),
		Limit:  in.Size,
		Offset: pageOffset(page, in.Size),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list entries", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &EntryListOutput{
		Page:    page,
		Size:    in.Size,
		Total:   total,
		Entries: entries,
	}, nil
}
