package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/shandysiswandi/entryotp/internal/entry/usecase"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/messaging"
	"github.com/shandysiswandi/entryotp/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

// PublishEntryVerified is keyed by entry id so partitioned brokers keep one
// entry's events in order.
func (m *Messaging) PublishEntryVerified(ctx context.Context, msg usecase.EntryVerifiedEvent) error {
	ctx, span := m.ins.Tracer("entry.outbound.mq").Start(ctx, "PublishEntryVerified")
	defer span.End()

	body, err := json.Marshal(event.EntryVerifiedMessage{
		EntryID:     msg.EntryID,
		EntryNumber: msg.EntryNumber,
		Name:        msg.Name,
		Email:       msg.Email,
		Phone:       msg.Phone,
		WhatsApp:    msg.WhatsApp,
		VerifiedAt:  msg.VerifiedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if err := m.client.Publish(ctx, event.EntryVerifiedDestination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(msg.EntryID, 10)),
		Headers: []messaging.Header{{Key: event.CorrelationIDHeader, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
