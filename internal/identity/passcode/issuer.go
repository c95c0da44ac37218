package passcode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
)

// IssueInput names the recipient and the template of a new code.
type IssueInput struct {
	Identity    string
	DisplayName string
	TemplateRef string
	Subject     string
}

// IssuedOTP describes an issued code. The code itself is never returned.
type IssuedOTP struct {
	Identity  string
	ExpiresAt time.Time
	Delivery  Delivery
}

// IssuerDependency groups what Issuer needs besides Config.
type IssuerDependency struct {
	Codes     CodeGenerator
	Renderer  Renderer
	Transport Transport
}

// Issuer creates codes and records the request for rate limiting.
// Callers must run Guard.Check first.
type Issuer struct {
	store     Store
	policy    Policy
	clock     clock.Clocker
	codes     CodeGenerator
	renderer  Renderer
	transport Transport
}

// NewIssuer returns an Issuer.
func NewIssuer(cfg Config, dep IssuerDependency) *Issuer {
	return &Issuer{
		store:     cfg.Store,
		policy:    cfg.Policy.withDefaults(),
		clock:     cfg.Clock,
		codes:     dep.Codes,
		renderer:  dep.Renderer,
		transport: dep.Transport,
	}
}

// Issue generates and stores a code, bumps the request counter (setting the
// spam lock at the threshold), sets the cooldown and hands the rendered
// message to the transport. Rendering happens before any write, so a template
// error leaves no state behind. A transport failure is logged and reported
// as DeliveryUndelivered, never as an error.
func (i *Issuer) Issue(ctx context.Context, in IssueInput) (IssuedOTP, error) {
	code, err := i.codes.Generate()
	if err != nil {
		return IssuedOTP{}, fmt.Errorf("passcode: generate code: %w", err)
	}

	expiresAt := i.clock.Now().Add(i.policy.CodeTTL)
	body, err := i.renderer.Render(in.TemplateRef, map[string]any{
		"name":       in.DisplayName,
		"code":       code,
		"expiry":     int(i.policy.CodeTTL.Minutes()),
		"expires_at": expiresAt.Format(time.RFC1123),
		"year":       expiresAt.Year(),
	})
	if err != nil {
		return IssuedOTP{}, fmt.Errorf("passcode: render %q: %w", in.TemplateRef, err)
	}

	if err := i.store.Set(ctx, keyCode(in.Identity), code, i.policy.CodeTTL); err != nil {
		return IssuedOTP{}, fmt.Errorf("passcode: store code: %w", err)
	}

	count, err := i.store.Increment(ctx, keyRequestCount(in.Identity), i.policy.SpamWindow, false)
	if err != nil {
		return IssuedOTP{}, fmt.Errorf("passcode: count request: %w", err)
	}
	if count >= i.policy.SpamThreshold {
		if err := i.store.Set(ctx, keySpamLock(in.Identity), lockValue, i.policy.SpamLockTTL); err != nil {
			return IssuedOTP{}, fmt.Errorf("passcode: set spam lock: %w", err)
		}
		slog.WarnContext(ctx, "otp spam lock set", "identity", in.Identity, "requests", count)
	}

	if err := i.store.Set(ctx, keyCooldown(in.Identity), lockValue, i.policy.CooldownTTL); err != nil {
		return IssuedOTP{}, fmt.Errorf("passcode: set cooldown: %w", err)
	}

	return IssuedOTP{
		Identity:  in.Identity,
		ExpiresAt: expiresAt,
		Delivery:  i.send(ctx, in, body),
	}, nil
}

func (i *Issuer) send(ctx context.Context, in IssueInput, body string) Delivery {
	ctx, cancel := context.WithTimeout(ctx, i.policy.SendTimeout)
	defer cancel()

	d, err := i.transport.Send(ctx, Notification{
		Recipient: in.Identity,
		Name:      in.DisplayName,
		Subject:   in.Subject,
		Body:      body,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp", "identity", in.Identity, "error", err)
		return DeliveryUndelivered
	}

	return d
}
