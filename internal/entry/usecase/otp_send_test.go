package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendInput(ip string) OTPSendInput {
	return OTPSendInput{
		Name:     "  Ana   Lima ",
		Phone:    "+62 812-3456-7890",
		Email:    "Ana@Example.TEST",
		SourceIP: ip,
	}
}

func TestOTPSend_NewEntry(t *testing.T) {
	// Arrange
	h := newHarness(t, "")

	// Act
	out, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))

	// Assert
	require.NoError(t, err)
	assert.Regexp(t, `^LOTD[A-Z0-9]{6}$`, out.EntryNumber)
	assert.Equal(t, 10*time.Minute, out.ExpiresIn)
	assert.Equal(t, map[channel.Kind]bool{
		channel.KindSMS:      true,
		channel.KindWhatsApp: false,
		channel.KindEmail:    true,
	}, out.Delivered)

	e := h.repo.entry(out.EntryID)
	assert.Equal(t, "Ana Lima", e.Name)
	assert.Equal(t, "+6281234567890", e.Phone)
	assert.Equal(t, "+6281234567890", e.WhatsApp)
	assert.Equal(t, "ana@example.test", e.Email)
	assert.False(t, e.IsVerified)

	assert.Equal(t, []string{"+6281234567890"}, h.sms.to)
	assert.Equal(t, []string{"ana@example.test"}, h.email.to)
	assert.Equal(t, "Your LOTD Verification Code", h.email.sent[0].Subject)

	require.Len(t, h.repo.logs, 2)
	code := h.sms.lastCode(t)
	for _, l := range h.repo.logs {
		assert.Equal(t, "sent", l.Status)
		assert.NotContains(t, l.Message, code)
		assert.Contains(t, l.Message, "******")
	}

	assert.Equal(t, []entity.Outcome{entity.OutcomeIssued}, h.repo.outcomes(entity.AttemptKindIssue))
	assert.Len(t, h.repo.unusedOTPs(out.EntryID), 1)
}

func TestOTPSend_SingleActiveOTP(t *testing.T) {
	// Arrange
	h := newHarness(t, "")

	// Act
	var entryID int64
	for range 4 {
		out, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))
		require.NoError(t, err)
		if entryID != 0 {
			assert.Equal(t, entryID, out.EntryID, "same contact must reuse the entry")
		}
		entryID = out.EntryID
	}

	// Assert
	active := h.repo.unusedOTPs(entryID)
	require.Len(t, active, 1)
	assert.True(t, h.uc.hmac.Verify(active[0].CodeHash, h.sms.lastCode(t)))
}

func TestOTPSend_UpdatesContactOfExistingEntry(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	first, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))
	require.NoError(t, err)

	in := sendInput("10.0.0.1")
	in.Name = "Ana Maria Lima"
	in.WhatsApp = "+6289999999999"

	// Act
	out, err := h.uc.OTPSend(context.Background(), in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, first.EntryID, out.EntryID)
	e := h.repo.entry(out.EntryID)
	assert.Equal(t, "Ana Maria Lima", e.Name)
	assert.Equal(t, "+6289999999999", e.WhatsApp)
}

func TestOTPSend_VerifiedEntryConflict(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	at := h.clock.Now()
	h.repo.seed(entity.Entry{
		ID:          7,
		EntryNumber: "LOTDDONE01",
		Name:        "Ana Lima",
		Phone:       "+6281234567890",
		IsVerified:  true,
		VerifiedAt:  &at,
	})

	// Act
	_, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))

	// Assert
	gerr := requireCode(t, err, goerror.CodeConflict)
	assert.Equal(t, "LOTDDONE01", gerr.Fields()["entry_number"])
	assert.Empty(t, h.sms.sent)
	assert.Empty(t, h.repo.unusedOTPs(7))
}

func TestOTPSend_ValidationRejectedBeforeMutation(t *testing.T) {
	tests := []struct {
		name string
		in   OTPSendInput
	}{
		{name: "short phone", in: OTPSendInput{Name: "Ana", Phone: "12345"}},
		{name: "missing name", in: OTPSendInput{Phone: "+6281234567890"}},
		{name: "bad email", in: OTPSendInput{Name: "Ana", Phone: "+6281234567890", Email: "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")

			_, err := h.uc.OTPSend(context.Background(), tt.in)

			requireCode(t, err, goerror.CodeInvalidInput)
			assert.Empty(t, h.repo.entries)
			assert.Empty(t, h.repo.attempts)
		})
	}
}

func TestOTPSend_InProgress(t *testing.T) {
	h := newHarness(t, "", withLock(busyLock{}))

	_, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))

	requireCode(t, err, goerror.CodeTooManyRequest)
	assert.Empty(t, h.repo.entries)
}

func TestOTPSend_IPLimitBoundary(t *testing.T) {
	// Arrange
	h := newHarness(t, `
modules:
  entry:
    limit:
      ip_issue_per_hour: 3
      entry_issue_per_hour: 100
`)
	ctx := context.Background()

	// Act & Assert
	for i := range 3 {
		_, err := h.uc.OTPSend(ctx, sendInput("10.0.0.9"))
		require.NoError(t, err, "issuance %d", i+1)
	}

	_, err := h.uc.OTPSend(ctx, sendInput("10.0.0.9"))
	gerr := requireCode(t, err, goerror.CodeTooManyRequest)
	assert.Equal(t, "Too many OTP requests. Please try again later.", gerr.Msg())

	_, err = h.uc.OTPSend(ctx, sendInput("10.0.0.10"))
	require.NoError(t, err, "other addresses are not affected")

	h.clock.Advance(time.Hour)
	_, err = h.uc.OTPSend(ctx, sendInput("10.0.0.9"))
	require.NoError(t, err, "window has passed")

	assert.Contains(t, h.repo.outcomes(entity.AttemptKindIssue), entity.OutcomeRateLimitedIP)
}

func TestOTPSend_EntryLimitBoundary(t *testing.T) {
	// Arrange
	h := newHarness(t, `
modules:
  entry:
    limit:
      entry_issue_per_hour: 2
`)
	ctx := context.Background()

	// Act
	_, err1 := h.uc.OTPSend(ctx, sendInput("10.0.0.1"))
	_, err2 := h.uc.OTPSend(ctx, sendInput("10.0.0.2"))
	_, err3 := h.uc.OTPSend(ctx, sendInput("10.0.0.3"))

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	gerr := requireCode(t, err3, goerror.CodeTooManyRequest)
	assert.Equal(t, "Too many OTP requests for this entry. Please try again in an hour.", gerr.Msg())
	assert.Equal(t, []entity.Outcome{
		entity.OutcomeIssued,
		entity.OutcomeIssued,
		entity.OutcomeRateLimitedEntry,
	}, h.repo.outcomes(entity.AttemptKindIssue))
	assert.Equal(t, valueobject.JSONMap{"count": int64(2), "limit": int64(2)}, h.repo.lastAttempt().Detail)
}

func TestOTPSend_DeliveryFailureIsReported(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	h.sms.fail = true

	// Act
	out, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))

	// Assert
	require.NoError(t, err)
	assert.False(t, out.Delivered[channel.KindSMS])
	assert.True(t, out.Delivered[channel.KindEmail])

	var failed []entity.NotificationLog
	for _, l := range h.repo.logs {
		if l.Status == "failed" {
			failed = append(failed, l)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "sms", failed[0].Channel)
	assert.Contains(t, failed[0].Diagnostic, "provider unavailable")
}

func TestOTPSend_OnlyConfiguredChannels(t *testing.T) {
	h := newHarness(t, `
modules:
  entry:
    otp:
      channels: "email"
`)

	out, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))

	require.NoError(t, err)
	assert.Equal(t, map[channel.Kind]bool{channel.KindEmail: true}, out.Delivered)
	assert.Empty(t, h.sms.sent)
}

func TestOTPSend_StorageFailure(t *testing.T) {
	h := newHarness(t, "")
	h.repo.errReplace = errors.New("connection reset")

	_, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))

	requireCode(t, err, goerror.CodeInternal)
	assert.Empty(t, h.sms.sent)
	assert.NotContains(t, h.repo.outcomes(entity.AttemptKindIssue), entity.OutcomeIssued)
}

func TestOTPResend(t *testing.T) {
	t.Run("issues a new code", func(t *testing.T) {
		h := newHarness(t, "")
		e := h.seedWithCode(t, 42, "111111")
		before := h.repo.unusedOTPs(e.ID)

		out, err := h.uc.OTPResend(context.Background(), OTPResendInput{EntryID: e.ID, SourceIP: "10.0.0.1"})

		require.NoError(t, err)
		assert.Equal(t, e.EntryNumber, out.EntryNumber)
		after := h.repo.unusedOTPs(e.ID)
		require.Len(t, after, 1)
		assert.NotEqual(t, before[0].ID, after[0].ID)
	})

	t.Run("unknown entry", func(t *testing.T) {
		h := newHarness(t, "")

		_, err := h.uc.OTPResend(context.Background(), OTPResendInput{EntryID: 99, SourceIP: "10.0.0.1"})

		requireCode(t, err, goerror.CodeNotFound)
		assert.Equal(t, []entity.Outcome{entity.OutcomeNotFound}, h.repo.outcomes(entity.AttemptKindIssue))
	})

	t.Run("verified entry", func(t *testing.T) {
		h := newHarness(t, "")
		at := h.clock.Now()
		h.repo.seed(entity.Entry{ID: 5, EntryNumber: "LOTDDONE05", Phone: "+6281234567890", IsVerified: true, VerifiedAt: &at})

		_, err := h.uc.OTPResend(context.Background(), OTPResendInput{EntryID: 5, SourceIP: "10.0.0.1"})

		requireCode(t, err, goerror.CodeConflict)
	})

	t.Run("invalid id", func(t *testing.T) {
		h := newHarness(t, "")

		_, err := h.uc.OTPResend(context.Background(), OTPResendInput{EntryID: 0})

		requireCode(t, err, goerror.CodeInvalidInput)
	})
}
