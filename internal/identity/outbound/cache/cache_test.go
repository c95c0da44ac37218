package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client, instrument.NewNoop(), time.Second), mr
}

func TestCache_GetSetDelete(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "otp:ana@example.com")
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, c.Set(ctx, "otp:ana@example.com", "K7QJ2P", 5*time.Minute))
	got, err := c.Get(ctx, "otp:ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "K7QJ2P", got)
	assert.Equal(t, 5*time.Minute, mr.TTL("otp:ana@example.com"))

	require.NoError(t, c.Delete(ctx, "otp:ana@example.com", "otp_attempts:ana@example.com"))
	assert.False(t, mr.Exists("otp:ana@example.com"))
	require.NoError(t, c.Delete(ctx))
}

func TestCache_TTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, err := c.TTL(ctx, "otp_lock:ana@example.com")
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, c.Set(ctx, "otp_lock:ana@example.com", "1", 30*time.Minute))
	ttl, err := c.TTL(ctx, "otp_lock:ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)

	require.NoError(t, mr.Set("forever", "1"))
	ttl, err = c.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Zero(t, ttl)
}

func TestCache_IncrementKeepsWindow(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	key := "otp_request_count:ana@example.com"

	n, err := c.Increment(ctx, key, time.Hour, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	mr.FastForward(40 * time.Minute)

	n, err = c.Increment(ctx, key, time.Hour, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 20*time.Minute, mr.TTL(key))

	mr.FastForward(21 * time.Minute)
	assert.False(t, mr.Exists(key))
}

func TestCache_IncrementRefreshesWindow(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	key := "otp_attempts:ana@example.com"

	_, err := c.Increment(ctx, key, 5*time.Minute, true)
	require.NoError(t, err)

	mr.FastForward(4 * time.Minute)

	n, err := c.Increment(ctx, key, 5*time.Minute, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 5*time.Minute, mr.TTL(key))
}

func TestCache_StoreUnavailable(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "otp:x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, goerror.ErrNotFound)

	_, err = c.TTL(context.Background(), "otp_lock:x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, goerror.ErrNotFound)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "otp_lock", keyPrefix("otp_lock:ana@example.com"))
	assert.Equal(t, "plain", keyPrefix("plain"))
}

// TestCache_Redis runs the increment scripts against a real server when INTEGRATION=1.
func TestCache_Redis(t *testing.T) {
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run against redis")
	}
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	c := NewCache(client, instrument.NewNoop(), time.Second)

	n, err := c.Increment(ctx, "otp_request_count:ana@example.com", time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "otp_request_count:ana@example.com", time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := c.TTL(ctx, "otp_request_count:ana@example.com")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	_, err = c.TTL(ctx, "otp_lock:ana@example.com")
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}
