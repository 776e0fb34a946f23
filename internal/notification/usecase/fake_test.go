package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/entryotp/internal/notification/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/channel"
	"github.com/shandysiswandi/entryotp/internal/pkg/clock"
	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/validator"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type fakeRepo struct {
	mu   sync.Mutex
	logs []entity.Log

	errCreate error
	errList   error
	before    *time.Time
}

func (f *fakeRepo) CreateLog(_ context.Context, in entity.Log) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errCreate != nil {
		return f.errCreate
	}
	f.logs = append(f.logs, in)
	return nil
}

func (f *fakeRepo) ListLogs(_ context.Context, filter entity.LogListFilter) ([]entity.Log, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errList != nil {
		return nil, 0, f.errList
	}

	var out []entity.Log
	for _, l := range f.logs {
		if filter.Channel != "" && l.Channel != filter.Channel {
			continue
		}
		if filter.Status != entity.DeliveryStatusUnknown && l.Status != filter.Status {
			continue
		}
		if filter.Purpose != "" && l.Purpose != filter.Purpose {
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b entity.Log) int { return b.CreatedAt.Compare(a.CreatedAt) })

	total := int64(len(out))
	lo := min(int(filter.Offset), len(out))
	hi := min(lo+int(filter.Limit), len(out))
	return out[lo:hi], total, nil
}

func (f *fakeRepo) DeleteLogs(_ context.Context, before *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before = before

	kept := f.logs[:0]
	for _, l := range f.logs {
		if before != nil && !l.CreatedAt.Before(*before) {
			kept = append(kept, l)
		}
	}
	deleted := int64(len(f.logs) - len(kept))
	f.logs = kept
	return deleted, nil
}

func (f *fakeRepo) snapshot() []entity.Log {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.logs)
}

type recordingChannel struct {
	kind channel.Kind
	fail bool

	mu   sync.Mutex
	sent []channel.Message
	to   []string
}

func (c *recordingChannel) Kind() channel.Kind { return c.kind }
func (c *recordingChannel) Provider() string   { return "recording" }

func (c *recordingChannel) Send(_ context.Context, recipient string, msg channel.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	c.to = append(c.to, recipient)
	if c.fail {
		return "", errors.New("provider unavailable")
	}
	return "queued", nil
}

func (c *recordingChannel) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.to)
}

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return s.n.Inc() }

type harness struct {
	uc       *Usecase
	repo     *fakeRepo
	whatsapp *recordingChannel
	email    *recordingChannel
	clock    *clock.Fixed
}

const testConfig = `
app:
  name: LOTD
`

func newHarness(t *testing.T, yaml string) *harness {
	t.Helper()

	if yaml == "" {
		yaml = testConfig
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	h := &harness{
		repo:     &fakeRepo{},
		whatsapp: &recordingChannel{kind: channel.KindWhatsApp},
		email:    &recordingChannel{kind: channel.KindEmail},
		clock:    &clock.Fixed{At: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
	}

	h.uc = NewNotification(Dependency{
		RepoDB:     h.repo,
		Gateway:    channel.NewGateway(instrument.NewNoop(), time.Second, h.whatsapp, h.email),
		Config:     cfg,
		UID:        &seqID{},
		Clock:      h.clock,
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})

	return h
}
