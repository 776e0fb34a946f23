package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

var (
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	ErrKafkaGroupRequired   = errors.New("messaging: kafka consumer group is required")
)

type KafkaConfig struct {
	Brokers []string
	// Dialer is optional and used by readers, e.g. for TLS or SASL.
	Dialer *kafka.Dialer
}

// Kafka keeps one writer per topic and one reader per Consume call.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
	closed  bool
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: cfg.Brokers,
		dialer:  cfg.Dialer,
		writers: map[string]*kafka.Writer{},
	}, nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var err error
	for _, w := range k.writers {
		err = errors.Join(err, w.Close())
	}
	for _, r := range k.readers {
		err = errors.Join(err, r.Close())
	}
	return err
}

func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if destination == "" {
		return ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return ErrUnsupported
	}

	w, err := k.writer(destination)
	if err != nil {
		return err
	}

	headers := make([]kafka.Header, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		headers = append(headers, kafka.Header{Key: h.Key, Value: h.Value})
	}

	if err := w.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Body, Headers: headers}); err != nil {
		return fmt.Errorf("messaging: kafka write: %w", err)
	}
	return nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, errClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	k.writers[topic] = w
	return w, nil
}

func (k *Kafka) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrKafkaGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  co.group,
		Topic:    source,
		Dialer:   k.dialer,
		MaxBytes: 10e6,
	})

	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		_ = reader.Close()
		return errClosed
	}
	k.readers = append(k.readers, reader)
	k.mu.Unlock()

	msgCh := make(chan kafka.Message, co.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(msgCh)
		for {
			m, err := reader.FetchMessage(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("messaging: kafka fetch: %w", err)
			}
			select {
			case msgCh <- m:
			case <-gctx.Done():
				return nil
			}
		}
	})

	for range co.concurrency {
		g.Go(func() error {
			for m := range msgCh {
				_ = dispatch(ctx, "kafka", newKafkaDelivery(ctx, reader, m), handler, co.autoAck)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// newKafkaDelivery commits on ack. A nack leaves the offset uncommitted so
// the message is redelivered after a rebalance or restart.
func newKafkaDelivery(ctx context.Context, reader *kafka.Reader, m kafka.Message) *delivery {
	headers := make([]Header, 0, len(m.Headers))
	for _, h := range m.Headers {
		headers = append(headers, Header{Key: h.Key, Value: h.Value})
	}

	return &delivery{
		id:        strconv.Itoa(m.Partition) + ":" + strconv.FormatInt(m.Offset, 10),
		topic:     m.Topic,
		body:      m.Value,
		key:       m.Key,
		headers:   headers,
		timestamp: kafkaTime(m.Time),
		ack: func() error {
			return reader.CommitMessages(context.WithoutCancel(ctx), m)
		},
		settled: atomic.NewBool(false),
	}
}

func kafkaTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
