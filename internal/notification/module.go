package notification

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/notification/inbound"
	"github.com/shandysiswandi/passgate/internal/notification/outbound/db"
	"github.com/shandysiswandi/passgate/internal/notification/outbound/email"
	"github.com/shandysiswandi/passgate/internal/notification/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	DBConn     db.Conn                    `validate:"required"`
	Messaging  messaging.Consumer         `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	ULID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:   db.NewDB(dep.DBConn, dep.Instrument, dep.Config.GetDuration("database.query_timeout")),
		RepoMail: email.New(dep.Mail, dep.Instrument),
		Retry: usecase.RetryConfig{
			MaxRetries: uint64(max(dep.Config.GetInt("modules.notification.retry.max_retries"), 0)),
			BaseDelay:  dep.Config.GetDuration("modules.notification.retry.base_delay"),
			MaxDelay:   dep.Config.GetDuration("modules.notification.retry.max_delay"),
		},
		ULID:       dep.ULID,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	return inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
}
