package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/jwt"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	FindUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, in entity.NewUser) (*entity.User, error)
}

type guard interface {
	Check(ctx context.Context, identity string) (passcode.Decision, error)
}

type issuer interface {
	Issue(ctx context.Context, in passcode.IssueInput) (passcode.IssuedOTP, error)
}

type verifier interface {
	Verify(ctx context.Context, identity, code string) (passcode.Result, error)
}

type tokenIssuer interface {
	IssuePair(identity string) (jwt.TokenPair, error)
	RotateAccess(refreshToken string) (string, time.Time, jwt.Claims, error)
}

type hasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

type inflight interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (idempotency.Releaser, error)
}

type Usecase struct {
	repoDB      repoDB
	guard       guard
	issuer      issuer
	verifier    verifier
	tokens      tokenIssuer
	bcrypt      hasher
	inflight    inflight
	inflightTTL time.Duration
	validator   validator.Validator
	uid         uid.NumberID
	ins         instrument.Instrumentation

	otpIssued   metric.Int64Counter
	otpDenied   metric.Int64Counter
	otpVerified metric.Int64Counter
	loginFailed metric.Int64Counter
}

type Dependency struct {
	RepoDB      repoDB
	Guard       guard
	Issuer      issuer
	Verifier    verifier
	Tokens      tokenIssuer
	Bcrypt      hasher
	Inflight    inflight
	InflightTTL time.Duration
	Validator   validator.Validator
	UID         uid.NumberID
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	meter := dep.Instrument.Meter("identity.usecase")

	return &Usecase{
		repoDB:      dep.RepoDB,
		guard:       dep.Guard,
		issuer:      dep.Issuer,
		verifier:    dep.Verifier,
		tokens:      dep.Tokens,
		bcrypt:      dep.Bcrypt,
		inflight:    dep.Inflight,
		inflightTTL: dep.InflightTTL,
		validator:   dep.Validator,
		uid:         dep.UID,
		ins:         dep.Instrument,
		otpIssued:   counter(meter, "identity.otp.issued", "Passcodes issued"),
		otpDenied:   counter(meter, "identity.otp.denied", "Passcode issuance or verification denials"),
		otpVerified: counter(meter, "identity.otp.verified", "Passcodes verified"),
		loginFailed: counter(meter, "identity.login.failed", "Failed login attempts"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Warn("failed to create counter", "name", name, "error", err)
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c != nil {
		c.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// denial turns a passcode denial into the policy error shown to the caller.
func (s *Usecase) denial(ctx context.Context, reason passcode.Reason, retryAfter time.Duration, attemptsRemaining int) error {
	add(ctx, s.otpDenied, attribute.String("reason", reason.String()))

	switch reason {
	case passcode.ReasonAccountLocked:
		return goerror.NewPolicy(goerror.CodeLocked, reason.String(), "Account is temporarily locked", retryAfter, -1)
	case passcode.ReasonLockedOut:
		return goerror.NewPolicy(goerror.CodeLocked, reason.String(), "Too many incorrect codes, account is temporarily locked", retryAfter, -1)
	case passcode.ReasonTooManyRequests:
		return goerror.NewPolicy(goerror.CodeTooManyRequest, reason.String(), "Too many code requests, try again later", retryAfter, -1)
	case passcode.ReasonCooldownActive:
		return goerror.NewPolicy(goerror.CodeTooManyRequest, reason.String(), "Please wait before requesting a new code", retryAfter, -1)
	case passcode.ReasonIncorrectCode:
		return goerror.NewPolicy(goerror.CodeInvalidInput, reason.String(), "Incorrect verification code", 0, attemptsRemaining)
	default:
		return goerror.NewPolicy(goerror.CodeInvalidInput, reason.String(), "Verification code expired or not found", 0, -1)
	}
}

var errUserExists = goerror.NewValidation("User already exists", goerror.CodeConflict)

var errAuthRequired = goerror.NewValidation("Authentication required", goerror.CodeUnauthorized)
