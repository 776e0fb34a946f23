package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"golang.org/x/sync/errgroup"
)

type ConsumeEntryVerifiedInput struct {
	EntryID     int64     `validate:"required,gt=0"`
	EntryNumber string    `validate:"required"`
	Name        string    `validate:"required"`
	Email       string    `validate:"omitempty,email"`
	Phone       string    `validate:"required"`
	WhatsApp    string    `validate:"omitempty"`
	VerifiedAt  time.Time `validate:"required"`
}

// ConsumeEntryVerified sends the registration confirmation. Delivery
// failures are logged, not returned, so a redelivery never repeats the
// channels that already succeeded.
func (s *Usecase) ConsumeEntryVerified(ctx context.Context, in ConsumeEntryVerifiedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeEntryVerified")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "entry_id", in.EntryID, "error", err)
		return nil
	}

	reg := entity.Registration{
		EntryID:     in.EntryID,
		EntryNumber: in.EntryNumber,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		WhatsApp:    in.WhatsApp,
		VerifiedAt:  in.VerifiedAt,
	}

	msg, err := s.confirmationMessage(reg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build confirmation message", "entry_id", in.EntryID, "error", err)
		return nil
	}

	var g errgroup.Group
	for _, kind := range s.confirmationChannels() {
		recipient := recipientFor(reg, kind)
		if recipient == "" || !s.gateway.Enabled(kind) {
			slog.InfoContext(ctx, "confirmation channel skipped", "entry_id", in.EntryID, "channel", kind)
			continue
		}

		g.Go(func() error {
			res := s.gateway.Send(ctx, kind, recipient, msg)
			s.logDelivery(ctx, &reg.EntryID, entity.PurposeRegistrationSuccess, recipient, msg, res)
			if !res.Success {
				slog.WarnContext(ctx, "failed to deliver confirmation", "entry_id", in.EntryID, "channel", kind, "diagnostic", res.Diagnostic)
			}
			return nil
		})
	}
	_ = g.Wait()

	return nil
}

