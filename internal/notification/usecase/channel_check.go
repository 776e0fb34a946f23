package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
)

type ChannelCheckInput struct {
	Channel   string `validate:"required,oneof=sms whatsapp email"`
	Recipient string `validate:"required,max=255"`
}

type ChannelCheckOutput struct {
	Result    channel.Result
	QRCodeURL string
}

// ChannelCheck sends a sample registration confirmation so an operator can
// confirm provider credentials end to end.
func (s *Usecase) ChannelCheck(ctx context.Context, in ChannelCheckInput) (*ChannelCheckOutput, error) {
	ctx, span := s.startSpan(ctx, "ChannelCheck")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	kind := channel.Kind(in.Channel)
	if !s.gateway.Enabled(kind) {
		return nil, goerror.NewBusiness("Channel is not configured", goerror.CodeBadRequest, "channel", in.Channel)
	}

	now := s.clock.Now()
	reg := entity.Registration{
		EntryNumber: s.appName() + "-TEST-" + now.Format("150405"),
		Name:        "Test User",
		Email:       "test@example.com",
		Phone:       in.Recipient,
		WhatsApp:    in.Recipient,
		VerifiedAt:  now,
	}
	if kind == channel.KindEmail {
		reg.Email = in.Recipient
	}

	msg, err := s.confirmationMessage(reg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build test message", "channel", in.Channel, "error", err)
		return nil, goerror.NewServer(err)
	}

	ctx = context.WithoutCancel(ctx)
	res := s.gateway.Send(ctx, kind, in.Recipient, msg)
	s.logDelivery(ctx, nil, entity.PurposeChannelTest, in.Recipient, msg, res)

	return &ChannelCheckOutput{Result: res, QRCodeURL: msg.MediaURL}, nil
}
