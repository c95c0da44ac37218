package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/notification/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cid := msg.Header(event.HeaderCorrelationID); cid != "" {
		return instrument.SetCorrelationID(ctx, cid)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// OTPDispatch delivers a queued passcode email. Malformed or invalid
// payloads are acked and dropped; storage failures ask for redelivery.
func (h *MQHandler) OTPDispatch(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPDispatch")
	defer span.End()

	var payload event.OTPDispatch
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp dispatch", "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: otp dispatch", "dispatch_id", payload.ID)

	err := h.uc.DeliverOTP(ctx, usecase.DeliverOTPInput{
		DispatchID: payload.ID,
		Recipient:  payload.Recipient,
		Subject:    payload.Subject,
		Body:       payload.Body,
	})
	if ge, ok := goerror.As(err); ok && ge.Type() == goerror.TypeValidation {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume otp dispatch", "dispatch_id", payload.ID, "error", err)
		return err
	}

	return nil
}
