// Package idempotency provides a Redis-backed in-flight lock that rejects
// concurrent executions of the same operation key.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAlreadyInProgress is returned when another holder owns the key.
var ErrAlreadyInProgress = errors.New("operation already in progress")

// DefaultLockDuration is used when Acquire receives a non-positive ttl.
const DefaultLockDuration = 30 * time.Second

// release deletes the key only when it still holds the caller's token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Releaser frees a lock obtained from Acquire.
type Releaser func(ctx context.Context) error

// Locker hands out expiring locks stored in Redis.
type Locker struct {
	client redis.UniversalClient
	prefix string
}

// New returns a Locker whose keys are prefixed with "inflight:".
func New(client redis.UniversalClient) *Locker {
	return &Locker{client: client, prefix: "inflight:"}
}

// Acquire takes the lock for key. The lock expires after ttl if never released.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (Releaser, error) {
	if ttl <= 0 {
		ttl = DefaultLockDuration
	}

	fk := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("idempotency: acquire %q: %w", key, err)
	}
	if !ok {
		return nil, ErrAlreadyInProgress
	}

	return func(ctx context.Context) error {
		if err := release.Run(context.WithoutCancel(ctx), l.client, []string{fk}, token).Err(); err != nil {
			return fmt.Errorf("idempotency: release %q: %w", key, err)
		}
		return nil
	}, nil
}
