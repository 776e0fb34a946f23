package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/idempotency"
)

type OTPSendInput struct {
	Name     string `validate:"required,min=2,max=100"`
	Phone    string `validate:"required,phone,max=20"`
	WhatsApp string `validate:"omitempty,phone,max=20"`
	Email    string `validate:"omitempty,email,max=255"`
	SourceIP string
}

type OTPSendOutput struct {
	EntryID     int64
	EntryNumber string
	Delivered   map[channel.Kind]bool
	ExpiresIn   time.Duration
}

// OTPSend registers or refreshes an entry by its contact details and sends
// it a new code.
func (s *Usecase) OTPSend(ctx context.Context, in OTPSendInput) (*OTPSendOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPSend")
	defer span.End()

	contact := normalizeContact(in.Name, in.Phone, in.WhatsApp, in.Email)
	in.Name, in.Phone, in.WhatsApp, in.Email = contact.Name, contact.Phone, contact.WhatsApp, contact.Email
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctx = context.WithoutCancel(ctx)

	var out *OTPSendOutput
	err := s.idemp.Exec(ctx, "otp:issue:"+channel.Digits(contact.Phone), defaultIssueLockTimeout, func(ctx context.Context) error {
		var serr error
		out, serr = s.send(ctx, contact, in.SourceIP)
		return serr
	})
	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.WarnContext(ctx, "otp issuance already in progress", "phone", contact.Phone)
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

func (s *Usecase) send(ctx context.Context, contact entity.Contact, ip string) (*OTPSendOutput, error) {
	if err := s.checkIPIssueLimit(ctx, ip); err != nil {
		return nil, err
	}

	entry, err := s.repoDB.GetEntryByContact(ctx, contact)
	switch {
	case errors.Is(err, goerror.ErrNotFound):
		entry, err = s.createEntry(ctx, contact)
		if err != nil {
			return nil, err
		}

	case err != nil:
		slog.ErrorContext(ctx, "failed to repo get entry by contact", "phone", contact.Phone, "error", err)
		return nil, goerror.NewServer(err)

	case entry.IsVerified:
		slog.WarnContext(ctx, "otp requested for verified entry", "entry_id", entry.ID)
		return nil, goerror.NewBusiness("Entry is already verified", goerror.CodeConflict, "entry_number", entry.EntryNumber)

	default:
		if err := s.repoDB.UpdateEntryContact(ctx, entry.ID, contact); err != nil {
			slog.ErrorContext(ctx, "failed to repo update entry contact", "entry_id", entry.ID, "error", err)
			return nil, goerror.NewServer(err)
		}
		entry.Name, entry.Phone, entry.WhatsApp, entry.Email = contact.Name, contact.Phone, contact.WhatsApp, contact.Email
	}

	return s.issue(ctx, entry, ip)
}

// createEntry stores a new entry, drawing a fresh entry number whenever the
// previous one collides.
func (s *Usecase) createEntry(ctx context.Context, contact entity.Contact) (*entity.Entry, error) {
	in := entity.NewEntry{ID: s.uid.Generate(), Contact: contact}

	backoff := retry.WithMaxRetries(4, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		number, err := generateEntryNumber(s.random)
		if err != nil {
			return err
		}
		in.EntryNumber = number

		err = s.repoDB.CreateEntry(ctx, in)
		if errors.Is(err, goerror.ErrConflict) {
			slog.WarnContext(ctx, "entry number collision", "entry_number", number)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create entry", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	return &entity.Entry{
		ID:          in.ID,
		EntryNumber: in.EntryNumber,
		Name:        contact.Name,
		Phone:       contact.Phone,
		WhatsApp:    contact.WhatsApp,
		Email:       contact.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func normalizeContact(name, phone, whatsapp, email string) entity.Contact {
	c := entity.Contact{
		Name:     strings.Join(strings.Fields(name), " "),
		Phone:    normalizePhone(phone),
		WhatsApp: normalizePhone(whatsapp),
		Email:    strings.ToLower(strings.TrimSpace(email)),
	}
	if c.WhatsApp == "" {
		c.WhatsApp = c.Phone
	}
	return c
}

// normalizePhone keeps digits and a leading plus sign.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	plus := strings.HasPrefix(s, "+")
	digits := channel.Digits(s)
	if plus && digits != "" {
		return "+" + digits
	}
	return digits
}
