package usecase

import (
	"context"
	"log/slog"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/passgate/internal/notification/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type DeliverOTPInput struct {
	DispatchID string `validate:"required"`
	Recipient  string `validate:"required,email"`
	Subject    string `validate:"required"`
	Body       string `validate:"required"`
}

// DeliverOTP sends a rendered passcode email with bounded retries and stores
// a delivery report. A failed send is final once reported; only a report
// that cannot be stored is returned as an error.
func (s *Usecase) DeliverOTP(ctx context.Context, in DeliverOTPInput) error {
	ctx, span := s.startSpan(ctx, "DeliverOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "dropping invalid otp dispatch", "dispatch_id", in.DispatchID, "error", err)
		return goerror.NewInvalidInput(err)
	}

	attempts := 0
	b := retry.NewExponential(s.retry.BaseDelay)
	b = retry.WithCappedDuration(s.retry.MaxDelay, b)
	b = retry.WithMaxRetries(s.retry.MaxRetries, b)

	sendErr := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if err := s.repoMail.Send(ctx, mail.Message{
			To:       []string{in.Recipient},
			Subject:  in.Subject,
			HTMLBody: in.Body,
		}); err != nil {
			slog.WarnContext(ctx, "failed to send otp email, retrying", "dispatch_id", in.DispatchID, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})

	report := entity.DeliveryReport{
		ID:        s.ulid.Generate(),
		Sender:    s.repoMail.Sender(),
		Recipient: in.Recipient,
		Subject:   in.Subject,
		Status:    entity.DeliveryStatusSuccess,
		Metadata: valueobject.JSONMap{
			"dispatch_id":    in.DispatchID,
			"attempts":       attempts,
			"correlation_id": instrument.GetCorrelationID(ctx),
		},
		CreatedAt: s.clock.Now(),
	}
	if sendErr != nil {
		report.Status = entity.DeliveryStatusFailed
		report.Error = sendErr.Error()
		slog.ErrorContext(ctx, "failed to deliver otp email", "dispatch_id", in.DispatchID, "attempts", attempts, "error", sendErr)
	}

	if s.delivered != nil {
		s.delivered.Add(ctx, 1, metric.WithAttributes(attribute.String("status", report.Status.String())))
	}

	if err := s.repoDB.CreateDeliveryReport(ctx, report); err != nil {
		slog.ErrorContext(ctx, "failed to repo create delivery report", "dispatch_id", in.DispatchID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
