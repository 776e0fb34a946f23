package instrument

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrEntryID = attribute.Key("entry.id")
	AttrOutcome = attribute.Key("otp.outcome")
)

// Tags carries facts found deep in a call chain, such as the entry touched and
// the OTP outcome, back up to the layer that owns the request span and the
// access log.
type Tags struct {
	mu      sync.Mutex
	entryID int64
	outcome string
}

type tagsKey struct{}

// WithTags attaches an empty Tags to ctx.
func WithTags(ctx context.Context) (context.Context, *Tags) {
	t := &Tags{}
	return context.WithValue(ctx, tagsKey{}, t), t
}

func tagsFrom(ctx context.Context) *Tags {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(tagsKey{}).(*Tags)
	return t
}

// TagEntry records entryID on the current span and the request tags.
func TagEntry(ctx context.Context, entryID int64) {
	if entryID <= 0 {
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(AttrEntryID.Int64(entryID))
	if t := tagsFrom(ctx); t != nil {
		t.mu.Lock()
		t.entryID = entryID
		t.mu.Unlock()
	}
}

// TagOutcome records an OTP outcome; the last one recorded wins.
func TagOutcome(ctx context.Context, outcome string) {
	if outcome == "" {
		return
	}
	trace.SpanFromContext(ctx).SetAttributes(AttrOutcome.String(outcome))
	if t := tagsFrom(ctx); t != nil {
		t.mu.Lock()
		t.outcome = outcome
		t.mu.Unlock()
	}
}

func (t *Tags) EntryID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entryID
}

func (t *Tags) Outcome() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Attributes returns the recorded tags as span attributes.
func (t *Tags) Attributes() []attribute.KeyValue {
	t.mu.Lock()
	defer t.mu.Unlock()

	var attrs []attribute.KeyValue
	if t.entryID > 0 {
		attrs = append(attrs, AttrEntryID.Int64(t.entryID))
	}
	if t.outcome != "" {
		attrs = append(attrs, AttrOutcome.String(t.outcome))
	}
	return attrs
}
