package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds every call when NewCache receives a non-positive timeout.
const DefaultTimeout = 2 * time.Second

// incrKeepTTL sets the TTL only when the key has none, so a counting window
// starts at the first increment and is never extended.
var incrKeepTTL = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

var incrRefreshTTL = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return n
`)

// Cache is the Redis-backed ephemeral store for passcodes, locks and counters.
type Cache struct {
	client  redis.UniversalClient
	ins     instrument.Instrumentation
	timeout time.Duration
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Cache{client: client, ins: ins, timeout: timeout}
}

func (c *Cache) start(ctx context.Context, name, key string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, span := c.ins.Tracer("identity.outbound.cache").Start(ctx, name, trace.WithAttributes(
		attribute.String("cache.key_prefix", keyPrefix(key)),
	))
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	return ctx, cancel, span
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// keyPrefix drops the identity part so it never lands in traces.
func keyPrefix(key string) string {
	prefix, _, _ := strings.Cut(key, ":")
	return prefix
}

func (c *Cache) Get(ctx context.Context, key string) (val string, err error) {
	ctx, cancel, span := c.start(ctx, "Get", key)
	defer cancel()
	defer func() { endSpan(span, err) }()

	val, err = c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", goerror.ErrNotFound
	}

	return val, err
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) (err error) {
	ctx, cancel, span := c.start(ctx, "Set", key)
	defer cancel()
	defer func() { endSpan(span, err) }()

	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Increment(ctx context.Context, key string, ttl time.Duration, refreshTTL bool) (n int64, err error) {
	ctx, cancel, span := c.start(ctx, "Increment", key)
	defer cancel()
	defer func() { endSpan(span, err) }()

	script := incrKeepTTL
	if refreshTTL {
		script = incrRefreshTTL
	}

	return script.Run(ctx, c.client, []string{key}, ttl.Milliseconds()).Int64()
}

// TTL returns how long key has left; zero means the key never expires.
func (c *Cache) TTL(ctx context.Context, key string) (ttl time.Duration, err error) {
	ctx, cancel, span := c.start(ctx, "TTL", key)
	defer cancel()
	defer func() { endSpan(span, err) }()

	ttl, err = c.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// go-redis keeps the raw -2 (missing) and -1 (no expiry) replies.
	switch {
	case ttl == -2:
		return 0, goerror.ErrNotFound
	case ttl < 0:
		return 0, nil
	}

	return ttl, nil
}

// Delete removes keys one call at a time, in order.
func (c *Cache) Delete(ctx context.Context, keys ...string) (err error) {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel, span := c.start(ctx, "Delete", keys[0])
	defer cancel()
	defer func() { endSpan(span, err) }()

	for _, key := range keys {
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return err
		}
	}

	return nil
}
