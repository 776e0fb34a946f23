package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// DefaultTimeout bounds a single send when the gateway is built without one.
const DefaultTimeout = 15 * time.Second

var (
	// ErrChannelNotConfigured is returned when no provider serves a kind.
	ErrChannelNotConfigured = errors.New("channel: not configured")
	// ErrUnknownKind is returned when parsing an unsupported kind.
	ErrUnknownKind = errors.New("channel: unknown kind")
	// ErrUnknownProvider is returned when a provider name is not supported.
	ErrUnknownProvider = errors.New("channel: unknown provider")
	// ErrInvalidRecipient is returned when a provider cannot address the recipient.
	ErrInvalidRecipient = errors.New("channel: invalid recipient")
)

// Kind names a delivery mechanism.
type Kind string

const (
	KindSMS      Kind = "sms"
	KindWhatsApp Kind = "whatsapp"
	KindEmail    Kind = "email"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindSMS, KindWhatsApp, KindEmail}

// ParseKind converts s to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !lo.Contains(Kinds, k) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// ParseKinds converts a configured list, dropping duplicates.
func ParseKinds(items []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(items))
	for _, item := range items {
		k, err := ParseKind(item)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return lo.Uniq(kinds), nil
}

// Message is the provider-agnostic payload.
type Message struct {
	// Subject is used by email only.
	Subject string
	// Text is the plain body every provider can send.
	Text string
	// HTML is an optional rich body for email.
	HTML string
	// MediaURL is an optional image link; providers that support media send it
	// as a follow-up message.
	MediaURL     string
	MediaCaption string
}

// Result is the outcome of one delivery.
type Result struct {
	Kind     Kind   `json:"kind"`
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	// Diagnostic is the provider response or the failure reason.
	Diagnostic string `json:"diagnostic"`
}

// Channel is one provider able to deliver on one kind.
type Channel interface {
	Kind() Kind
	Provider() string
	// Send delivers msg to recipient. The returned diagnostic is kept even on
	// failure so it can be logged.
	Send(ctx context.Context, recipient string, msg Message) (diagnostic string, err error)
}

// Gateway dispatches messages to the configured channel of each kind.
type Gateway struct {
	channels map[Kind]Channel
	timeout  time.Duration
	ins      instrument.Instrumentation
	counter  metric.Int64Counter
}

// NewGateway builds a Gateway. A later channel of the same kind replaces an
// earlier one.
func NewGateway(ins instrument.Instrumentation, timeout time.Duration, chans ...Channel) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ins == nil {
		ins = instrument.NewNoop()
	}

	counter, err := ins.Meter("channel.gateway").Int64Counter(
		"notification.delivery",
		metric.WithDescription("Number of notification deliveries by kind and status"),
	)
	if err != nil {
		slog.Error("failed to create notification delivery counter", "error", err)
	}

	g := &Gateway{
		channels: make(map[Kind]Channel, len(chans)),
		timeout:  timeout,
		ins:      ins,
		counter:  counter,
	}
	for _, c := range chans {
		if c != nil {
			g.channels[c.Kind()] = c
		}
	}

	return g
}

// Enabled reports whether a provider is configured for kind.
func (g *Gateway) Enabled(kind Kind) bool {
	_, ok := g.channels[kind]
	return ok
}

// Send delivers msg on kind. It never returns an error: failures are carried
// in the Result. The call is detached from the caller's cancellation and
// bounded only by the gateway timeout.
func (g *Gateway) Send(ctx context.Context, kind Kind, recipient string, msg Message) Result {
	c, ok := g.channels[kind]
	if !ok {
		return Result{Kind: kind, Diagnostic: ErrChannelNotConfigured.Error()}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	ctx, span := g.ins.Tracer("channel.gateway").Start(ctx, "Gateway.Send")
	defer span.End()
	span.SetAttributes(attribute.String("channel.kind", string(kind)), attribute.String("channel.provider", c.Provider()))

	res := Result{Kind: kind, Provider: c.Provider()}
	diag, err := c.Send(ctx, recipient, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		slog.WarnContext(ctx, "failed to deliver notification", "kind", kind, "provider", c.Provider(), "error", err)

		res.Diagnostic = err.Error()
		if diag != "" {
			res.Diagnostic = err.Error() + ": " + diag
		}
	} else {
		res.Success = true
		res.Diagnostic = diag
	}

	if g.counter != nil {
		g.counter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("provider", c.Provider()),
			attribute.Bool("success", res.Success),
		))
	}

	return res
}
