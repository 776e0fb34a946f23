package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nsqio/go-nsq"
	"go.uber.org/atomic"
)

var (
	ErrNSQProducerAddrRequired  = errors.New("messaging: nsq producer address is required")
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq consumer addresses are required")
	ErrNSQChannelRequired       = errors.New("messaging: nsq channel is required")
)

type NSQConfig struct {
	ProducerAddr         string
	ConsumerNSQDAddrs    []string
	ConsumerLookupdAddrs []string
}

type NSQ struct {
	producer *nsq.Producer
	cfg      NSQConfig

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	n := &NSQ{cfg: cfg}
	if cfg.ProducerAddr == "" {
		return n, nil
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)
	n.producer = p

	return n, nil
}

func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.mu.Unlock()

	for _, c := range consumers {
		c.Stop()
		<-c.StopChan
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if n.producer == nil {
		return ErrNSQProducerAddrRequired
	}

	if msg.Delay > 0 {
		if err := n.producer.DeferredPublish(destination, msg.Delay, msg.Body); err != nil {
			return fmt.Errorf("messaging: nsq deferred publish: %w", err)
		}
		return nil
	}

	if err := n.producer.Publish(destination, msg.Body); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}
	return nil
}

func (n *NSQ) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	if len(n.cfg.ConsumerNSQDAddrs) == 0 && len(n.cfg.ConsumerLookupdAddrs) == 0 {
		return ErrNSQConsumerAddrsRequired
	}

	co := newConsumeOptions(opts...)
	if co.channel == "" {
		return ErrNSQChannelRequired
	}

	ccfg := nsq.NewConfig()
	ccfg.MaxInFlight = max(co.maxInFlight, co.concurrency)

	consumer, err := nsq.NewConsumer(source, co.channel, ccfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return dispatch(ctx, "nsq", newNSQDelivery(source, m), handler, co.autoAck)
	}), co.concurrency)

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		consumer.Stop()
		return errClosed
	}
	n.consumers = append(n.consumers, consumer)
	n.mu.Unlock()

	if len(n.cfg.ConsumerLookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.cfg.ConsumerLookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.cfg.ConsumerNSQDAddrs)
	}
	if err != nil {
		consumer.Stop()
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		consumer.Stop()
		<-consumer.StopChan
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func newNSQDelivery(topic string, m *nsq.Message) *delivery {
	return &delivery{
		id:        string(m.ID[:]),
		topic:     topic,
		body:      m.Body,
		timestamp: time.Unix(0, m.Timestamp),
		ack:       func() error { m.Finish(); return nil },
		nack:      func() error { m.Requeue(-1); return nil },
		settled:   atomic.NewBool(false),
	}
}
