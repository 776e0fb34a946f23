package usecase

import (
	"bytes"
	"context"
	"log/slog"
	"text/template"
	"time"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/clock"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateLog(ctx context.Context, in entity.Log) error
	ListLogs(ctx context.Context, filter entity.LogListFilter) ([]entity.Log, int64, error)
	DeleteLogs(ctx context.Context, before *time.Time) (int64, error)
}

type gateway interface {
	Enabled(kind channel.Kind) bool
	Send(ctx context.Context, kind channel.Kind, recipient string, msg channel.Message) channel.Result
}

type Usecase struct {
	repoDB    repoDB
	gateway   gateway
	cfg       config.Config
	uid       uid.NumberID
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	Gateway    gateway
	Config     config.Config
	UID        uid.NumberID
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		gateway:   dep.Gateway,
		cfg:       dep.Config,
		uid:       dep.UID,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func (s *Usecase) renderTemplate(name, tpl string, data any) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Usecase) appName() string {
	if v := s.cfg.GetString("app.name"); v != "" {
		return v
	}
	return "LOTD"
}

// logDelivery records one delivery. Failures to log never change the
// outcome of the delivery itself.
func (s *Usecase) logDelivery(ctx context.Context, entryID *int64, purpose entity.Purpose, recipient string, msg channel.Message, res channel.Result) {
	err := s.repoDB.CreateLog(ctx, entity.Log{
		ID:         s.uid.Generate(),
		EntryID:    entryID,
		Channel:    string(res.Kind),
		Purpose:    purpose,
		Recipient:  recipient,
		Subject:    msg.Subject,
		Message:    msg.Text,
		Status:     entity.DeliveryStatusFromSuccess(res.Success),
		Diagnostic: res.Diagnostic,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create notification log", "channel", res.Kind, "purpose", purpose, "error", err)
	}
}
