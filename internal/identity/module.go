package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/passgate/internal/identity/inbound"
	"github.com/shandysiswandi/passgate/internal/identity/outbound/cache"
	"github.com/shandysiswandi/passgate/internal/identity/outbound/db"
	"github.com/shandysiswandi/passgate/internal/identity/outbound/mail"
	"github.com/shandysiswandi/passgate/internal/identity/outbound/mq"
	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/identity/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/hash"
	"github.com/shandysiswandi/passgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/jwt"
	pkgmail "github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/otp"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
	"github.com/shandysiswandi/passgate/internal/pkg/tmpl"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
)

const (
	// DeliverySMTP sends codes inline through the mail client.
	DeliverySMTP = "smtp"
	// DeliveryQueue publishes codes for the notification module to send.
	DeliveryQueue = "queue"
)

var (
	errMailRequired      = errors.New("identity: mail client is required for smtp delivery")
	errMessagingRequired = errors.New("identity: messaging client is required for queue delivery")
	errUnknownDelivery   = errors.New("identity: unknown otp delivery")
)

type Dependency struct {
	DBConn     db.Conn                    `validate:"required"`
	CacheConn  redis.UniversalClient      `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Inflight   *idempotency.Locker        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	ULID       uid.StringID               `validate:"required"`
	Bcrypt     *hash.Bcrypt               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        *jwt.Issuer                `validate:"required"`

	// Mail is required when modules.identity.otp.delivery is smtp.
	Mail pkgmail.Mail
	// Messaging is required when modules.identity.otp.delivery is queue.
	Messaging messaging.Publisher
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repo := db.NewDB(dep.DBConn, dep.Instrument, dep.Config.GetDuration("database.query_timeout"))

	transport, err := newTransport(dep, repo)
	if err != nil {
		return err
	}

	codes, err := otp.NewGenerator(max(dep.Config.GetInt("modules.identity.otp.length"), otp.DefaultLength))
	if err != nil {
		return err
	}

	renderer, err := tmpl.New()
	if err != nil {
		return err
	}

	pcfg := passcode.Config{
		Store:  cache.NewCache(dep.CacheConn, dep.Instrument, dep.Config.GetDuration("modules.identity.otp.store_timeout")),
		Policy: policyFromConfig(dep.Config),
		Clock:  dep.Clock,
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:   repo,
		Guard:    passcode.NewGuard(pcfg),
		Issuer:   passcode.NewIssuer(pcfg, passcode.IssuerDependency{Codes: codes, Renderer: renderer, Transport: transport}),
		Verifier: passcode.NewVerifier(pcfg),
		Tokens:   dep.JWT,
		Bcrypt:   dep.Bcrypt,
		Inflight: dep.Inflight,
		// zero falls back to idempotency.DefaultLockDuration
		InflightTTL: dep.Config.GetSecond("modules.identity.inflight_ttl_seconds"),
		Validator:   dep.Validator,
		UID:         dep.UID,
		Instrument:  dep.Instrument,
	})

	var limiter *router.IPRateLimiter
	if n := dep.Config.GetInt("modules.identity.rate_limit.requests"); n > 0 {
		limiter = router.NewIPRateLimiter(n, dep.Config.GetMinute("modules.identity.rate_limit.window_minutes"))
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.HTTPConfig{
		Limiter:       limiter,
		SecureCookies: dep.Config.GetBool("http.secure_cookies"),
	})

	return nil
}

func newTransport(dep Dependency, repo *db.DB) (passcode.Transport, error) {
	switch d := strings.ToLower(strings.TrimSpace(dep.Config.GetString("modules.identity.otp.delivery"))); d {
	case "", DeliverySMTP:
		if dep.Mail == nil {
			return nil, errMailRequired
		}
		return mail.NewMail(dep.Mail, repo, dep.ULID, dep.Clock, dep.Instrument), nil
	case DeliveryQueue:
		if dep.Messaging == nil {
			return nil, errMessagingRequired
		}
		return mq.NewMessaging(dep.Messaging, dep.ULID, dep.Clock, dep.Instrument), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownDelivery, d)
	}
}

// policyFromConfig reads modules.identity.otp.*; missing keys keep the defaults.
func policyFromConfig(cfg config.Config) passcode.Policy {
	return passcode.Policy{
		CodeTTL:        cfg.GetSecond("modules.identity.otp.code_ttl_seconds"),
		CooldownTTL:    cfg.GetSecond("modules.identity.otp.cooldown_seconds"),
		SpamLockTTL:    cfg.GetSecond("modules.identity.otp.spam_lock_seconds"),
		SpamWindow:     cfg.GetSecond("modules.identity.otp.spam_window_seconds"),
		SpamThreshold:  cfg.GetInt64("modules.identity.otp.spam_threshold"),
		FailureLockTTL: cfg.GetSecond("modules.identity.otp.failure_lock_seconds"),
		FailureWindow:  cfg.GetSecond("modules.identity.otp.failure_window_seconds"),
		MaxFailures:    cfg.GetInt64("modules.identity.otp.max_failures"),
		SendTimeout:    cfg.GetSecond("modules.identity.otp.send_timeout_seconds"),
	}
}
