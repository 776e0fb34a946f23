package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/entryotp/internal/notification/usecase"
	"github.com/shandysiswandi/entryotp/internal/pkg/instrument"
	"github.com/shandysiswandi/entryotp/internal/pkg/messaging"
	"github.com/shandysiswandi/entryotp/internal/pkg/uid"
	"github.com/shandysiswandi/entryotp/internal/shared/event"
)

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if cID := messaging.HeaderValue(headers, event.CorrelationIDHeader); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) EntryVerifiedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "EntryVerifiedNotification")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: entry verified notification", "msg_id", msg.ID())

	var payload event.EntryVerifiedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of entry verified notification", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeEntryVerified(ctx, usecase.ConsumeEntryVerifiedInput{
		EntryID:     payload.EntryID,
		EntryNumber: payload.EntryNumber,
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		WhatsApp:    payload.WhatsApp,
		VerifiedAt:  payload.VerifiedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume entry verified", "entry_id", payload.EntryID, "error", err)
		return err
	}

	return nil
}
