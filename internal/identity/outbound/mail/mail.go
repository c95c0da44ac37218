package mail

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	pkgmail "github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/codes"
)

type reporter interface {
	CreateDeliveryReport(ctx context.Context, r entity.DeliveryReport) error
}

// Mail delivers passcode notifications synchronously over SMTP and records a
// delivery report for every attempt.
type Mail struct {
	client  pkgmail.Mail
	reports reporter
	ulid    uid.StringID
	clock   clock.Clocker
	ins     instrument.Instrumentation
}

func NewMail(client pkgmail.Mail, reports reporter, ulid uid.StringID, clk clock.Clocker, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, reports: reports, ulid: ulid, clock: clk, ins: ins}
}

func (m *Mail) Send(ctx context.Context, n passcode.Notification) (passcode.Delivery, error) {
	ctx, span := m.ins.Tracer("identity.outbound.mail").Start(ctx, "Send")
	defer span.End()

	err := m.client.Send(ctx, pkgmail.Message{
		To:       []string{n.Recipient},
		Subject:  n.Subject,
		HTMLBody: n.Body,
	})
	m.report(ctx, n, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return passcode.DeliverySent, nil
}

// report never fails the delivery; a lost report is only logged.
func (m *Mail) report(ctx context.Context, n passcode.Notification, sendErr error) {
	r := entity.DeliveryReport{
		ID:        m.ulid.Generate(),
		Sender:    m.client.Sender(),
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Succeeded: sendErr == nil,
		Metadata: valueobject.JSONMap{
			"channel":        "smtp",
			"correlation_id": instrument.GetCorrelationID(ctx),
		},
		CreatedAt: m.clock.Now(),
	}
	if sendErr != nil {
		r.Error = sendErr.Error()
	}

	if err := m.reports.CreateDeliveryReport(ctx, r); err != nil {
		slog.ErrorContext(ctx, "failed to store delivery report", "recipient", n.Recipient, "error", err)
	}
}
