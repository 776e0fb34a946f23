package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
)

type OTPResendInput struct {
	EntryID  int64 `validate:"required,gt=0"`
	SourceIP string
}

// OTPResend issues a fresh code to an existing, unverified entry.
func (s *Usecase) OTPResend(ctx context.Context, in OTPResendInput) (*OTPSendOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPResend")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctx = context.WithoutCancel(ctx)

	if err := s.checkIPIssueLimit(ctx, in.SourceIP); err != nil {
		return nil, err
	}

	entry, err := s.repoDB.GetEntryByID(ctx, in.EntryID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "entry not found for resend", "entry_id", in.EntryID)
		s.recordAttempt(ctx, nil, in.SourceIP, entity.AttemptKindIssue, entity.OutcomeNotFound, valueobject.JSONMap{"entry_id": in.EntryID})
		return nil, goerror.NewBusiness("Entry not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get entry by id", "entry_id", in.EntryID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if entry.IsVerified {
		return nil, goerror.NewBusiness("Entry is already verified", goerror.CodeConflict, "entry_number", entry.EntryNumber)
	}

	var out *OTPSendOutput
	err = s.idemp.Exec(ctx, "otp:issue:"+entryKey(entry), defaultIssueLockTimeout, func(ctx context.Context) error {
		var ierr error
		out, ierr = s.issue(ctx, entry, in.SourceIP)
		return ierr
	})
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		return nil, goerror.NewBusiness("An OTP request for this contact is already in progress", goerror.CodeTooManyRequest)
	}
	if err != nil {
		var gerr *goerror.Error
		if !errors.As(err, &gerr) {
			slog.ErrorContext(ctx, "failed to acquire issuance lock", "error", err)
			return nil, goerror.NewServer(err)
		}
		return nil, err
	}

	return out, nil
}
