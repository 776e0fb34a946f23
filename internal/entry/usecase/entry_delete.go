package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type EntryDeleteInput struct {
	ID int64 `validate:"required,gt=0"`
}

// EntryDelete removes an entry with its codes. Attempt records keep their
// rows with the entry reference cleared.
func (s *Usecase) EntryDelete(ctx context.Context, in EntryDeleteInput) error {
	ctx, span := s.startSpan(ctx, "EntryDelete")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoDB.DeleteEntry(context.WithoutCancel(ctx), in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Entry not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete entry", "entry_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

type EntryBulkDeleteInput struct {
	IDs []int64 `validate:"required,min=1,max=500,dive,gt=0"`
}

func (s *Usecase) EntryBulkDelete(ctx context.Context, in EntryBulkDeleteInput) (int64, error) {
	ctx, span := s.startSpan(ctx, "EntryBulkDelete")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return 0, goerror.NewInvalidInput(err)
	}

	deleted, err := s.repoDB.DeleteEntries(context.WithoutCancel(ctx), lo.Uniq(in.IDs))
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo bulk delete entries", "count", len(in.IDs), "error", err)
		return 0, goerror.NewServer(err)
	}

	return deleted, nil
}
