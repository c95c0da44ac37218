package passcode

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
)

// Result is the outcome of a verification.
type Result struct {
	Verified          bool
	Reason            Reason
	RetryAfter        time.Duration
	AttemptsRemaining int
}

// Verifier checks submitted codes and escalates repeated failures to a lock.
type Verifier struct {
	store  Store
	policy Policy
}

// NewVerifier returns a Verifier.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{store: cfg.Store, policy: cfg.Policy.withDefaults()}
}

// Verify compares code with the live code of identity.
//
// While the failure lock is held every attempt is ReasonAccountLocked. A
// match consumes the code. Each mismatch is counted with one atomic
// increment; the one that exceeds MaxFailures sets the lock and then clears
// the code and the counter. The lock is written before the code disappears.
func (v *Verifier) Verify(ctx context.Context, identity, code string) (Result, error) {
	ttl, locked, err := lockTTL(ctx, v.store, keyFailureLock(identity))
	if err != nil {
		return Result{}, err
	}
	if locked {
		return Result{Reason: ReasonAccountLocked, RetryAfter: ttl}, nil
	}

	stored, err := v.store.Get(ctx, keyCode(identity))
	if errors.Is(err, goerror.ErrNotFound) {
		return Result{Reason: ReasonExpiredOrMissing}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("passcode: read code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		if err := v.store.Delete(ctx, keyCode(identity), keyFailures(identity)); err != nil {
			return Result{}, fmt.Errorf("passcode: consume code: %w", err)
		}
		return Result{Verified: true}, nil
	}

	n, err := v.store.Increment(ctx, keyFailures(identity), v.policy.FailureWindow, true)
	if err != nil {
		return Result{}, fmt.Errorf("passcode: count failure: %w", err)
	}

	if n > v.policy.MaxFailures {
		if err := v.store.Set(ctx, keyFailureLock(identity), lockValue, v.policy.FailureLockTTL); err != nil {
			return Result{}, fmt.Errorf("passcode: set failure lock: %w", err)
		}
		if err := v.store.Delete(ctx, keyCode(identity), keyFailures(identity)); err != nil {
			return Result{}, fmt.Errorf("passcode: clear after lock: %w", err)
		}
		slog.WarnContext(ctx, "otp failure lock set", "identity", identity)

		return Result{Reason: ReasonLockedOut, RetryAfter: v.policy.FailureLockTTL}, nil
	}

	return Result{
		Reason:            ReasonIncorrectCode,
		AttemptsRemaining: int(v.policy.MaxFailures - n),
	}, nil
}
