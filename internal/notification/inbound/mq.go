package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/entryotp/internal/pkg/config"
	"github.com/shandysiswandi/entryotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/messaging"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/shandysiswandi/entryotp/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		group   string // nsq channel, nats queue group, kafka group, pubsub subscription
		handler messaging.Handler
	}{
		{
			name:    event.EntryVerifiedConsumerNotification,
			topic:   event.EntryVerifiedDestination,
			group:   event.EntryVerifiedConsumerNotification,
			handler: mqHandler.EntryVerifiedNotification,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithChannel(consumer.group),
				messaging.WithQueueGroup(consumer.group),
				messaging.WithGroup(consumer.group),
				messaging.WithSubscription(consumer.group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
	}
}
