package messaging

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/atomic"
)

var (
	// ErrUnsupported is returned when a broker cannot honour a request, such as a delayed publish.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned when topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume gets a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
)

// Messaging is a broker client that can publish and consume.
type Messaging interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
	// Consume blocks until ctx is done or the subscription fails.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. A non-nil error nacks the message when
// auto ack is enabled.
type Handler func(ctx context.Context, msg Message) error

type OutgoingMessage struct {
	Body    []byte
	Key     []byte
	Headers []Header
	Delay   time.Duration
}

type Header struct {
	Key   string
	Value []byte
}

// HeaderValue returns the first header value with the given key.
func HeaderValue(headers []Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Message is a received message.
type Message interface {
	ID() string
	Topic() string
	Body() []byte
	Key() []byte
	Headers() []Header
	Timestamp() time.Time

	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// delivery is the broker neutral Message. ack and nack run at most once
// between them.
type delivery struct {
	id        string
	topic     string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time

	ack  func() error
	nack func() error

	settled *atomic.Bool
}

func (d *delivery) ID() string           { return d.id }
func (d *delivery) Topic() string        { return d.topic }
func (d *delivery) Body() []byte         { return d.body }
func (d *delivery) Key() []byte          { return d.key }
func (d *delivery) Headers() []Header    { return d.headers }
func (d *delivery) Timestamp() time.Time { return d.timestamp }

func (d *delivery) Ack(ctx context.Context) error {
	return d.settle(ctx, d.ack)
}

func (d *delivery) Nack(ctx context.Context) error {
	return d.settle(ctx, d.nack)
}

func (d *delivery) settle(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.settled.Swap(true) || fn == nil {
		return nil
	}
	return fn()
}

func (d *delivery) isSettled() bool {
	return d.settled.Load()
}
