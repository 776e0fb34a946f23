package messaging

type consumeOptions struct {
	concurrency  int
	autoAck      bool
	group        string // kafka consumer group
	channel      string // nsq channel
	queueGroup   string // nats queue group
	subscription string // pubsub subscription
	maxInFlight  int
}

// ConsumeOption configures Consume. Options that do not apply to the
// selected broker are ignored.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	return co
}

func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}

func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

func WithChannel(channel string) ConsumeOption {
	return func(o *consumeOptions) { o.channel = channel }
}

func WithQueueGroup(queueGroup string) ConsumeOption {
	return func(o *consumeOptions) { o.queueGroup = queueGroup }
}

func WithSubscription(subscription string) ConsumeOption {
	return func(o *consumeOptions) { o.subscription = subscription }
}

func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}
