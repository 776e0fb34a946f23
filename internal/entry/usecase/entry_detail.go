package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type EntryDetailInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) EntryDetail(ctx context.Context, in EntryDetailInput) (*entity.Entry, error) {
	ctx, span := s.startSpan(ctx, "EntryDetail")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	entry, err := s.repoDB.GetEntryByID(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Entry not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get entry by id", "entry_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return entry, nil
}
