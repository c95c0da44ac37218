package passcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
)

// Decision is the outcome of a guard check.
type Decision struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration
}

// Guard decides whether a new code may be issued. It never writes.
type Guard struct {
	store Store
}

// NewGuard returns a Guard reading cfg.Store.
func NewGuard(cfg Config) *Guard {
	return &Guard{store: cfg.Store}
}

// Check reads the failure lock, the spam lock and the cooldown in that order;
// the first one present denies. Store failures are returned as errors.
func (g *Guard) Check(ctx context.Context, identity string) (Decision, error) {
	locks := []struct {
		key    string
		reason Reason
	}{
		{keyFailureLock(identity), ReasonAccountLocked},
		{keySpamLock(identity), ReasonTooManyRequests},
		{keyCooldown(identity), ReasonCooldownActive},
	}

	for _, l := range locks {
		ttl, held, err := lockTTL(ctx, g.store, l.key)
		if err != nil {
			return Decision{}, err
		}
		if held {
			return Decision{Reason: l.reason, RetryAfter: ttl}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

// lockTTL reports whether key exists and how long it has left.
func lockTTL(ctx context.Context, store Store, key string) (time.Duration, bool, error) {
	ttl, err := store.TTL(ctx, key)
	if errors.Is(err, goerror.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("passcode: read %s: %w", key, err)
	}

	return ttl, true, nil
}
