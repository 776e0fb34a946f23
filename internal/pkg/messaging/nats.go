package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
)

var errClosed = errors.New("messaging: client is closed")

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS uses core NATS subjects. Ack and Nack are no-ops because core NATS
// has no redelivery.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	subs   []*nats.Subscription
	closed bool
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := n.subs
	n.mu.Unlock()

	var err error
	for _, sub := range subs {
		err = errors.Join(err, sub.Drain())
	}
	err = errors.Join(err, n.conn.Drain())
	n.conn.Close()
	return err
}

func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return ErrUnsupported
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for _, h := range msg.Headers {
		if h.Key != "" {
			nmsg.Header.Add(h.Key, string(h.Value))
		}
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}
	return nil
}

func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	msgCh := make(chan *nats.Msg, co.concurrency)

	sub, err := n.conn.QueueSubscribe(source, co.queueGroup, func(m *nats.Msg) {
		select {
		case msgCh <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		_ = sub.Unsubscribe()
		return errClosed
	}
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				_ = dispatch(ctx, "nats", newNATSDelivery(m), handler, co.autoAck)
			}
		})
	}

	<-ctx.Done()
	derr := sub.Drain()
	close(msgCh)
	wg.Wait()

	return errors.Join(ctx.Err(), derr)
}

func newNATSDelivery(m *nats.Msg) *delivery {
	var headers []Header
	for k, values := range m.Header {
		for _, v := range values {
			headers = append(headers, Header{Key: k, Value: []byte(v)})
		}
	}

	return &delivery{
		id:        m.Header.Get(nats.MsgIdHdr),
		topic:     m.Subject,
		body:      m.Data,
		headers:   headers,
		timestamp: time.Now(),
		settled:   atomic.NewBool(false),
	}
}
