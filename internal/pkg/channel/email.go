package channel

import (
	"context"
	"net/mail"

	mailer "github.com/shandysiswandi/entryotp/internal/pkg/mail"
)

// Email delivers through a mail.Mail sender.
type Email struct {
	sender mailer.Mail
}

// NewEmail returns an email channel.
func NewEmail(sender mailer.Mail) *Email {
	return &Email{sender: sender}
}

func (e *Email) Kind() Kind { return KindEmail }

func (e *Email) Provider() string { return ProviderSMTP }

func (e *Email) Send(ctx context.Context, recipient string, msg Message) (string, error) {
	if _, err := mail.ParseAddress(recipient); err != nil {
		return "", ErrInvalidRecipient
	}

	err := e.sender.Send(ctx, mailer.Message{
		To:      recipient,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", err
	}

	return "accepted by smtp server", nil
}
