// Package passcode implements the one-time passcode lifecycle for an identity:
// the issuance guard (failure lock, spam lock, cooldown), issuance itself and
// verification with failure counting and lockout.
//
// All state lives in a Store with per-key TTL. Nothing is cached in process,
// so any number of replicas can serve the same identity.
package passcode

import (
	"context"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
)

// Store is the ephemeral key-value store holding codes, locks and counters.
// Get and TTL return goerror.ErrNotFound when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Increment atomically adds one. A new key gets ttl; an existing key keeps
	// its remaining TTL unless refreshTTL is set.
	Increment(ctx context.Context, key string, ttl time.Duration, refreshTTL bool) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
}

// Renderer renders a notification body from a named template.
type Renderer interface {
	Render(ref string, vars map[string]any) (string, error)
}

// CodeGenerator produces a fresh random code.
type CodeGenerator interface {
	Generate() (string, error)
}

// Transport hands a rendered notification to a delivery channel.
type Transport interface {
	Send(ctx context.Context, n Notification) (Delivery, error)
}

// Notification is what the Issuer gives to a Transport.
type Notification struct {
	Recipient string
	Name      string
	Subject   string
	Body      string
}

// Delivery tells how far a notification got.
type Delivery string

const (
	// DeliverySent means the transport delivered synchronously.
	DeliverySent Delivery = "sent"
	// DeliveryQueued means the notification was accepted for async delivery.
	DeliveryQueued Delivery = "queued"
	// DeliveryUndelivered means the transport failed; the code is still live.
	DeliveryUndelivered Delivery = "undelivered"
)

// Reason is why an action was denied.
type Reason string

const (
	ReasonAccountLocked    Reason = "ACCOUNT_LOCKED"
	ReasonTooManyRequests  Reason = "TOO_MANY_REQUESTS"
	ReasonCooldownActive   Reason = "COOLDOWN_ACTIVE"
	ReasonExpiredOrMissing Reason = "OTP_EXPIRED_OR_MISSING"
	ReasonIncorrectCode    Reason = "OTP_INCORRECT"
	ReasonLockedOut        Reason = "LOCKED_OUT"
)

func (r Reason) String() string { return string(r) }

// Policy holds every TTL and threshold of the passcode lifecycle.
type Policy struct {
	CodeTTL        time.Duration
	CooldownTTL    time.Duration
	SpamLockTTL    time.Duration
	SpamWindow     time.Duration
	SpamThreshold  int64
	FailureLockTTL time.Duration
	FailureWindow  time.Duration
	MaxFailures    int64
	SendTimeout    time.Duration
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		CodeTTL:        300 * time.Second,
		CooldownTTL:    60 * time.Second,
		SpamLockTTL:    3600 * time.Second,
		SpamWindow:     3600 * time.Second,
		SpamThreshold:  2,
		FailureLockTTL: 1800 * time.Second,
		FailureWindow:  300 * time.Second,
		MaxFailures:    2,
		SendTimeout:    10 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.CodeTTL <= 0 {
		p.CodeTTL = d.CodeTTL
	}
	if p.CooldownTTL <= 0 {
		p.CooldownTTL = d.CooldownTTL
	}
	if p.SpamLockTTL <= 0 {
		p.SpamLockTTL = d.SpamLockTTL
	}
	if p.SpamWindow <= 0 {
		p.SpamWindow = d.SpamWindow
	}
	if p.SpamThreshold <= 0 {
		p.SpamThreshold = d.SpamThreshold
	}
	if p.FailureLockTTL <= 0 {
		p.FailureLockTTL = d.FailureLockTTL
	}
	if p.FailureWindow <= 0 {
		p.FailureWindow = d.FailureWindow
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = d.MaxFailures
	}
	if p.SendTimeout <= 0 {
		p.SendTimeout = d.SendTimeout
	}
	return p
}

// Config wires the shared dependencies of Guard, Issuer and Verifier.
type Config struct {
	Store  Store
	Policy Policy
	Clock  clock.Clocker
}

const lockValue = "1"

func keyCode(identity string) string         { return "otp:" + identity }
func keyCooldown(identity string) string     { return "otp_cooldown:" + identity }
func keySpamLock(identity string) string     { return "otp_spam_lock:" + identity }
func keyFailureLock(identity string) string  { return "otp_lock:" + identity }
func keyRequestCount(identity string) string { return "otp_request_count:" + identity }
func keyFailures(identity string) string     { return "otp_attempts:" + identity }
