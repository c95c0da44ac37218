package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passgate/internal/notification/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateDeliveryReport(ctx context.Context, r entity.DeliveryReport) error
}

type repoMail interface {
	Sender() string
	Send(ctx context.Context, msg mail.Message) error
}

// RetryConfig bounds SMTP retries. Zero values fall back to the defaults.
type RetryConfig struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type Usecase struct {
	repoDB    repoDB
	repoMail  repoMail
	retry     RetryConfig
	ulid      uid.StringID
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation

	delivered metric.Int64Counter
}

type Dependency struct {
	RepoDB     repoDB
	RepoMail   repoMail
	Retry      RetryConfig
	ULID       uid.StringID
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	rc := dep.Retry
	if rc.BaseDelay <= 0 {
		rc.BaseDelay = 500 * time.Millisecond
	}
	if rc.MaxDelay <= 0 {
		rc.MaxDelay = 10 * time.Second
	}
	if rc.MaxRetries == 0 {
		rc.MaxRetries = 3
	}

	delivered, err := dep.Instrument.Meter("notification.usecase").Int64Counter("notification.delivery",
		metric.WithDescription("Outbound notification deliveries by status"))
	if err != nil {
		slog.Warn("failed to create counter", "name", "notification.delivery", "error", err)
	}

	return &Usecase{
		repoDB:    dep.RepoDB,
		repoMail:  dep.RepoMail,
		retry:     rc,
		ulid:      dep.ULID,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		delivered: delivered,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
