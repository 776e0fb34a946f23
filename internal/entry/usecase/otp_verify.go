package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type OTPVerifyInput struct {
	Code     string `validate:"required,otpcode"`
	EntryID  int64  `validate:"required,gt=0"`
	SourceIP string
}

type OTPVerifyOutput struct {
	EntryID         int64
	EntryNumber     string
	Name            string
	Email           string
	Phone           string
	VerifiedAt      time.Time
	AlreadyVerified bool
}

// OTPVerify checks a submitted code and marks the entry verified on match.
// Every denial after the format check lands in the attempt ledger.
func (s *Usecase) OTPVerify(ctx context.Context, in OTPVerifyInput) (*OTPVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "OTPVerify")
	defer span.End()

	// pasted codes often carry surrounding whitespace
	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ctx = context.WithoutCancel(ctx)

	failed, err := s.repoDB.CountAttempts(ctx, entity.AttemptCountFilter{
		SourceIP: in.SourceIP,
		Kind:     entity.AttemptKindVerify,
		Outcomes: entity.FailedVerifyOutcomes,
		Since:    s.clock.Now().Add(-s.ipVerifyWindow()),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count failed verify attempts", "ip", in.SourceIP, "error", err)
		return nil, goerror.NewServer(err)
	}
	if failed >= s.ipVerifyLimit() {
		slog.WarnContext(ctx, "otp verify rate limited by ip", "ip", in.SourceIP, "failed", failed)
		s.recordAttempt(ctx, nil, in.SourceIP, entity.AttemptKindVerify, entity.OutcomeRateLimitedIP,
			valueobject.JSONMap{"failed": failed, "limit": s.ipVerifyLimit()})
		s.countVerify(ctx, entity.OutcomeRateLimitedIP)
		msg := "Too many failed attempts. Please wait " + strconv.Itoa(int(s.ipVerifyWindow().Minutes())) + " minutes."
		return nil, goerror.NewBusiness(msg, goerror.CodeTooManyRequest)
	}

	entry, err := s.repoDB.GetEntryByID(ctx, in.EntryID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "entry not found for verify", "entry_id", in.EntryID)
		s.recordAttempt(ctx, nil, in.SourceIP, entity.AttemptKindVerify, entity.OutcomeNotFound, valueobject.JSONMap{"entry_id": in.EntryID})
		s.countVerify(ctx, entity.OutcomeNotFound)
		return nil, goerror.NewBusiness("Entry not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get entry by id", "entry_id", in.EntryID, "error", err)
		return nil, goerror.NewServer(err)
	}

	instrument.TagEntry(ctx, entry.ID)

	if entry.IsVerified {
		instrument.TagOutcome(ctx, "already_verified")
		return verifyOutput(entry, true), nil
	}

	now := s.clock.Now()
	maxAttempts := s.maxAttempts()
	res, err := s.repoDB.ApplyVerification(ctx, entity.Attempt{
		ID:        s.uid.Generate(),
		EntryID:   &entry.ID,
		SourceIP:  in.SourceIP,
		Kind:      entity.AttemptKindVerify,
		CreatedAt: now,
	}, func(otp *entity.OTP) entity.VerifyDecision {
		return entity.DecideVerify(otp, now, maxAttempts, func(codeHash string) bool {
			return s.hmac.Verify(codeHash, in.Code)
		})
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo apply verification", "entry_id", entry.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.countVerify(ctx, res.Decision.Outcome)

	switch res.Decision.Outcome {
	case entity.OutcomeExpired:
		return nil, goerror.NewBusiness("OTP expired. Please request a new one.", goerror.CodeBadRequest)

	case entity.OutcomeExhausted:
		return nil, goerror.NewBusiness("Too many attempts. Please request a new OTP.", goerror.CodeBadRequest)

	case entity.OutcomeMismatch:
		remaining := max(maxAttempts-res.AttemptCount, 0)
		msg := "Invalid OTP. Please request a new OTP."
		if remaining > 0 {
			msg = "Invalid OTP. " + strconv.Itoa(remaining) + " attempts remaining."
		}
		return nil, goerror.NewBusiness(msg, goerror.CodeBadRequest, "remaining_attempts", strconv.Itoa(remaining))
	}

	out := verifyOutput(&res.Entry, res.AlreadyVerified)
	if !res.AlreadyVerified {
		s.publishVerified(ctx, &res.Entry)
	}

	return out, nil
}

func (s *Usecase) publishVerified(ctx context.Context, e *entity.Entry) {
	if e.VerifiedAt == nil {
		return
	}

	err := s.repoMessaging.PublishEntryVerified(ctx, EntryVerifiedEvent{
		EntryID:     e.ID,
		EntryNumber: e.EntryNumber,
		Name:        e.Name,
		Email:       e.Email,
		Phone:       e.Phone,
		WhatsApp:    e.WhatsApp,
		VerifiedAt:  *e.VerifiedAt,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish entry verified", "entry_id", e.ID, "error", err)
	}
}

func (s *Usecase) countVerify(ctx context.Context, outcome entity.Outcome) {
	instrument.TagOutcome(ctx, string(outcome))
	if s.verifyCounter == nil {
		return
	}
	s.verifyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func verifyOutput(e *entity.Entry, already bool) *OTPVerifyOutput {
	out := &OTPVerifyOutput{
		EntryID:         e.ID,
		EntryNumber:     e.EntryNumber,
		Name:            e.Name,
		Email:           e.Email,
		Phone:           e.Phone,
		AlreadyVerified: already,
	}
	if e.VerifiedAt != nil {
		out.VerifiedAt = *e.VerifiedAt
	}
	return out
}
