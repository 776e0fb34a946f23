package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
	"golang.org/x/sync/errgroup"
)

const (
	notificationPurposeOTP = "otp"
	notificationSent       = "sent"
	notificationFailed     = "failed"
)

func entryKey(e *entity.Entry) string {
	return channel.Digits(e.Phone)
}

func (s *Usecase) checkIPIssueLimit(ctx context.Context, ip string) error {
	count, err := s.repoDB.CountAttempts(ctx, entity.AttemptCountFilter{
		SourceIP: ip,
		Kind:     entity.AttemptKindIssue,
		Outcomes: []entity.Outcome{entity.OutcomeIssued},
		Since:    s.clock.Now().Add(-defaultIssueWindow),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count ip issue attempts", "ip", ip, "error", err)
		return goerror.NewServer(err)
	}

	if count >= s.ipIssueLimit() {
		slog.WarnContext(ctx, "otp issue rate limited by ip", "ip", ip, "count", count)
		s.recordAttempt(ctx, nil, ip, entity.AttemptKindIssue, entity.OutcomeRateLimitedIP,
			valueobject.JSONMap{"count": count, "limit": s.ipIssueLimit()})
		return goerror.NewBusiness("Too many OTP requests. Please try again later.", goerror.CodeTooManyRequest)
	}

	return nil
}

// issue enforces the per-entry ceiling, replaces the active code and
// delivers it. Delivery failures are reported, never returned.
func (s *Usecase) issue(ctx context.Context, entry *entity.Entry, ip string) (*OTPSendOutput, error) {
	count, err := s.repoDB.CountAttempts(ctx, entity.AttemptCountFilter{
		EntryID:  entry.ID,
		Kind:     entity.AttemptKindIssue,
		Outcomes: []entity.Outcome{entity.OutcomeIssued},
		Since:    s.clock.Now().Add(-defaultIssueWindow),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count entry issue attempts", "entry_id", entry.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if count >= s.entryIssueLimit() {
		slog.WarnContext(ctx, "otp issue rate limited by entry", "entry_id", entry.ID, "count", count)
		s.recordAttempt(ctx, &entry.ID, ip, entity.AttemptKindIssue, entity.OutcomeRateLimitedEntry,
			valueobject.JSONMap{"count": count, "limit": s.entryIssueLimit()})
		return nil, goerror.NewBusiness("Too many OTP requests for this entry. Please try again in an hour.", goerror.CodeTooManyRequest)
	}

	code, err := generateCode(s.random)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	ttl := s.otpTTL()
	if err := s.repoDB.ReplaceOTP(ctx, entity.OTP{
		ID:        s.uid.Generate(),
		EntryID:   entry.ID,
		CodeHash:  string(codeHash),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo replace otp", "entry_id", entry.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	delivered := s.deliver(ctx, entry, code, ttl.Minutes())

	s.recordAttempt(ctx, &entry.ID, ip, entity.AttemptKindIssue, entity.OutcomeIssued, valueobject.JSONMap{"delivered": delivered})
	if s.issuedCounter != nil {
		s.issuedCounter.Add(ctx, 1)
	}

	return &OTPSendOutput{
		EntryID:     entry.ID,
		EntryNumber: entry.EntryNumber,
		Delivered:   delivered,
		ExpiresIn:   ttl,
	}, nil
}

// deliver sends the code on every configured kind concurrently and logs one
// notification per attempted kind.
func (s *Usecase) deliver(ctx context.Context, entry *entity.Entry, code string, ttlMinutes float64) map[channel.Kind]bool {
	app := s.appName()
	msg := channel.Message{
		Subject: fmt.Sprintf("Your %s Verification Code", app),
		Text:    fmt.Sprintf("Your %s verification code is %s. It is valid for %.0f minutes. Do not share it with anyone.", app, code, ttlMinutes),
	}

	kinds := s.otpChannels()
	results := make([]channel.Result, len(kinds))
	recipients := make([]string, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		recipients[i] = recipientFor(entry, kind)
		if recipients[i] == "" || !s.gateway.Enabled(kind) {
			results[i] = channel.Result{Kind: kind, Diagnostic: "skipped"}
			continue
		}

		g.Go(func() error {
			results[i] = s.gateway.Send(ctx, kind, recipients[i], msg)
			return nil
		})
	}
	_ = g.Wait()

	delivered := make(map[channel.Kind]bool, len(kinds))
	for i, res := range results {
		delivered[res.Kind] = res.Success
		if recipients[i] == "" || !s.gateway.Enabled(res.Kind) {
			continue
		}

		status := notificationFailed
		if res.Success {
			status = notificationSent
		}
		if err := s.repoDB.CreateNotificationLog(ctx, entity.NotificationLog{
			ID:         s.uid.Generate(),
			EntryID:    entry.ID,
			Channel:    string(res.Kind),
			Purpose:    notificationPurposeOTP,
			Recipient:  recipients[i],
			Subject:    msg.Subject,
			Message:    redactCode(msg.Text, code),
			Status:     status,
			Diagnostic: res.Diagnostic,
			CreatedAt:  s.clock.Now(),
		}); err != nil {
			slog.ErrorContext(ctx, "failed to repo create notification log", "entry_id", entry.ID, "channel", res.Kind, "error", err)
		}
	}

	return delivered
}

func recipientFor(e *entity.Entry, kind channel.Kind) string {
	switch kind {
	case channel.KindSMS:
		return e.Phone
	case channel.KindWhatsApp:
		if e.WhatsApp != "" {
			return e.WhatsApp
		}
		return e.Phone
	case channel.KindEmail:
		return e.Email
	default:
		return ""
	}
}

// redactCode keeps the code out of the notification log.
func redactCode(text, code string) string {
	return strings.ReplaceAll(text, code, "******")
}
