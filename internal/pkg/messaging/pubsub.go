package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub/v2"
	"go.uber.org/atomic"
	"google.golang.org/api/option"
)

var ErrPubSubProjectRequired = errors.New("messaging: pubsub project id is required")

type PubSubConfig struct {
	ProjectID     string
	Client        *pubsub.Client
	ClientOptions []option.ClientOption
}

// PubSub publishes to topics and consumes from subscriptions. Headers
// travel as message attributes.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	client := cfg.Client
	if client == nil {
		if cfg.ProjectID == "" {
			return nil, ErrPubSubProjectRequired
		}
		c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
		if err != nil {
			return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
		}
		client = c
	}

	return &PubSub{client: client, publishers: map[string]*pubsub.Publisher{}}, nil
}

func (p *PubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, pub := range p.publishers {
		pub.Stop()
	}
	return p.client.Close()
}

func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if destination == "" {
		return ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return ErrUnsupported
	}

	pub, err := p.publisher(destination)
	if err != nil {
		return err
	}

	attrs := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		attrs[h.Key] = string(h.Value)
	}

	res := pub.Publish(ctx, &pubsub.Message{Data: msg.Body, Attributes: attrs, OrderingKey: string(msg.Key)})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("messaging: pubsub publish: %w", err)
	}
	return nil
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errClosed
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub, nil
}

// Consume receives from the subscription set by WithSubscription, or from
// source itself when no subscription option is given.
func (p *PubSub) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	subscription := source
	if co.subscription != "" {
		subscription = co.subscription
	}

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = co.concurrency
	if co.maxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		_ = dispatch(ctx, "pubsub", newPubSubDelivery(source, m), handler, co.autoAck)
	})
}

func newPubSubDelivery(topic string, m *pubsub.Message) *delivery {
	headers := make([]Header, 0, len(m.Attributes))
	for k, v := range m.Attributes {
		headers = append(headers, Header{Key: k, Value: []byte(v)})
	}

	return &delivery{
		id:        m.ID,
		topic:     topic,
		body:      m.Data,
		key:       []byte(m.OrderingKey),
		headers:   headers,
		timestamp: m.PublishTime,
		ack:       func() error { m.Ack(); return nil },
		nack:      func() error { m.Nack(); return nil },
		settled:   atomic.NewBool(false),
	}
}
