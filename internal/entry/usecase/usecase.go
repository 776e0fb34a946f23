package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"time"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/clock"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/hash"
	"github.com/shandysiswandi/entryotp/internal/pkg/idempotency"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/storage"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
	"github.com/shandysiswandi/entryotp/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type EntryVerifiedEvent struct {
	EntryID     int64
	EntryNumber string
	Name        string
	Email       string
	Phone       string
	WhatsApp    string
	VerifiedAt  time.Time
}

type repoMessaging interface {
	PublishEntryVerified(ctx context.Context, msg EntryVerifiedEvent) error
}

type repoDB interface {
	GetEntryByID(ctx context.Context, id int64) (*entity.Entry, error)
	GetEntryByContact(ctx context.Context, c entity.Contact) (*entity.Entry, error)
	GetEntryList(ctx context.Context, filter entity.EntryListFilter) ([]entity.Entry, int64, error)
	GetStats(ctx context.Context, dayStart time.Time) (*entity.Stats, error)

	CreateEntry(ctx context.Context, in entity.NewEntry) error
	UpdateEntryContact(ctx context.Context, id int64, c entity.Contact) error
	DeleteEntry(ctx context.Context, id int64) error
	DeleteEntries(ctx context.Context, ids []int64) (int64, error)

	// ReplaceOTP marks every unused OTP of the entry as used and stores otp,
	// atomically under the entry row lock.
	ReplaceOTP(ctx context.Context, otp entity.OTP) error
	// ApplyVerification locks the entry, hands its newest active OTP to
	// decide and commits the decision together with the attempt record.
	ApplyVerification(ctx context.Context, attempt entity.Attempt, decide func(otp *entity.OTP) entity.VerifyDecision) (*entity.VerifyResult, error)

	CountAttempts(ctx context.Context, filter entity.AttemptCountFilter) (int64, error)
	CreateAttempt(ctx context.Context, in entity.Attempt) error
	GetAttemptList(ctx context.Context, filter entity.AttemptListFilter) ([]entity.Attempt, int64, error)

	CreateNotificationLog(ctx context.Context, in entity.NotificationLog) error
}

type gateway interface {
	Enabled(kind channel.Kind) bool
	Send(ctx context.Context, kind channel.Kind, recipient string, msg channel.Message) channel.Result
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	gateway       gateway
	idemp         idempotency.Idempotency
	storage       storage.Storage
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	uid           uid.NumberID
	uuid          uid.StringID
	clock         clock.Clocker
	random        io.Reader
	ins           instrument.Instrumentation

	issuedCounter metric.Int64Counter
	verifyCounter metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Gateway       gateway
	Idempotency   idempotency.Idempotency
	Storage       storage.Storage
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	UID           uid.NumberID
	UUID          uid.StringID
	Clock         clock.Clocker
	// Random feeds code and entry number generation; crypto/rand when nil.
	Random     io.Reader
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	random := dep.Random
	if random == nil {
		random = rand.Reader
	}

	s := &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		gateway:       dep.Gateway,
		idemp:         dep.Idempotency,
		storage:       dep.Storage,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		random:        random,
		ins:           dep.Instrument,
	}

	meter := dep.Instrument.Meter("entry.usecase")
	var err error
	if s.issuedCounter, err = meter.Int64Counter("otp.issued", metric.WithDescription("Number of OTPs issued")); err != nil {
		slog.Error("failed to create otp.issued counter", "error", err)
	}
	if s.verifyCounter, err = meter.Int64Counter("otp.verify.outcome", metric.WithDescription("Number of OTP verifications by outcome")); err != nil {
		slog.Error("failed to create otp.verify.outcome counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("entry.usecase").Start(ctx, name)
}

// recordAttempt appends to the attempt ledger. A failure is logged and
// swallowed because the caller's outcome is already decided.
func (s *Usecase) recordAttempt(ctx context.Context, entryID *int64, ip string, kind entity.AttemptKind, outcome entity.Outcome, detail valueobject.JSONMap) {
	instrument.TagOutcome(ctx, string(outcome))
	if entryID != nil {
		instrument.TagEntry(ctx, *entryID)
	}

	err := s.repoDB.CreateAttempt(ctx, entity.Attempt{
		ID:         s.uid.Generate(),
		EntryID:    entryID,
		SourceIP:   ip,
		Kind:       kind,
		Successful: outcome == entity.OutcomeIssued || outcome == entity.OutcomeVerified,
		Outcome:    outcome,
		Detail:     detail,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create attempt", "kind", kind, "outcome", outcome, "error", err)
	}
}
