package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

// Messaging queues passcode notifications for the notification module.
type Messaging struct {
	client messaging.Publisher
	ulid   uid.StringID
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ulid uid.StringID, clk clock.Clocker, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ulid: ulid, clock: clk, ins: ins}
}

func (m *Messaging) Send(ctx context.Context, n passcode.Notification) (passcode.Delivery, error) {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "Send")
	defer span.End()

	id := m.ulid.Generate()
	body, err := json.Marshal(event.OTPDispatch{
		ID:        id,
		Recipient: n.Recipient,
		Name:      n.Name,
		Subject:   n.Subject,
		Body:      n.Body,
		CreatedAt: m.clock.Now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if err := m.client.Publish(ctx, event.OTPDispatchTopic, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(n.Recipient),
		Headers: map[string]string{event.HeaderCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return passcode.DeliveryQueued, nil
}
