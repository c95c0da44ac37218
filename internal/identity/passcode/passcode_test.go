package passcode_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passgate/internal/identity/outbound/cache"
	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCodes struct{ codes []string }

func (f *fixedCodes) Generate() (string, error) {
	c := f.codes[0]
	if len(f.codes) > 1 {
		f.codes = f.codes[1:]
	}
	return c, nil
}

type renderFunc func(ref string, vars map[string]any) (string, error)

func (f renderFunc) Render(ref string, vars map[string]any) (string, error) { return f(ref, vars) }

type recordingTransport struct {
	sent []passcode.Notification
	err  error
}

func (r *recordingTransport) Send(_ context.Context, n passcode.Notification) (passcode.Delivery, error) {
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, n)
	return passcode.DeliverySent, nil
}

type harness struct {
	mr        *miniredis.Miniredis
	clock     *clock.Fake
	transport *recordingTransport
	guard     *passcode.Guard
	issuer    *passcode.Issuer
	verifier  *passcode.Verifier
}

func newHarness(t *testing.T, codes ...string) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		mr:        mr,
		clock:     clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		transport: &recordingTransport{},
	}
	if len(codes) == 0 {
		codes = []string{"K7QJ2P"}
	}

	cfg := passcode.Config{
		Store:  cache.NewCache(client, instrument.NewNoop(), time.Second),
		Policy: passcode.DefaultPolicy(),
		Clock:  h.clock,
	}
	h.guard = passcode.NewGuard(cfg)
	h.verifier = passcode.NewVerifier(cfg)
	h.issuer = passcode.NewIssuer(cfg, passcode.IssuerDependency{
		Codes: &fixedCodes{codes: codes},
		Renderer: renderFunc(func(ref string, vars map[string]any) (string, error) {
			return ref + ":" + vars["code"].(string), nil
		}),
		Transport: h.transport,
	})

	return h
}

func (h *harness) advance(d time.Duration) {
	h.mr.FastForward(d)
	h.clock.Advance(d)
}

func (h *harness) issue(t *testing.T, identity string) passcode.IssuedOTP {
	t.Helper()

	out, err := h.issuer.Issue(context.Background(), passcode.IssueInput{
		Identity:    identity,
		DisplayName: "Ana",
		TemplateRef: "register_otp",
		Subject:     "Your code",
	})
	require.NoError(t, err)
	return out
}

func TestIssue_WritesStateAndDelivers(t *testing.T) {
	h := newHarness(t)

	out := h.issue(t, "ana@example.com")

	assert.Equal(t, passcode.DeliverySent, out.Delivery)
	assert.Equal(t, h.clock.Now().Add(5*time.Minute), out.ExpiresAt)

	code, err := h.mr.Get("otp:ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "K7QJ2P", code)
	assert.Equal(t, 5*time.Minute, h.mr.TTL("otp:ana@example.com"))
	assert.Equal(t, time.Minute, h.mr.TTL("otp_cooldown:ana@example.com"))
	assert.Equal(t, time.Hour, h.mr.TTL("otp_request_count:ana@example.com"))
	assert.False(t, h.mr.Exists("otp_spam_lock:ana@example.com"))

	require.Len(t, h.transport.sent, 1)
	assert.Equal(t, "register_otp:K7QJ2P", h.transport.sent[0].Body)
	assert.Equal(t, "ana@example.com", h.transport.sent[0].Recipient)
}

func TestIssue_CooldownThenSpamLock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := "a@x.com"

	d, err := h.guard.Check(ctx, id)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	h.issue(t, id)

	h.advance(30 * time.Second)
	d, err = h.guard.Check(ctx, id)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, passcode.ReasonCooldownActive, d.Reason)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	h.advance(35 * time.Second)
	d, err = h.guard.Check(ctx, id)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	h.issue(t, id)

	h.advance(2 * time.Minute)
	d, err = h.guard.Check(ctx, id)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, passcode.ReasonTooManyRequests, d.Reason)
	assert.Equal(t, time.Hour-2*time.Minute, d.RetryAfter)
}

func TestGuard_FailureLockDominates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mr.Set("otp_cooldown:ana@example.com", "1"))
	require.NoError(t, h.mr.Set("otp_spam_lock:ana@example.com", "1"))
	require.NoError(t, h.mr.Set("otp_lock:ana@example.com", "1"))
	h.mr.SetTTL("otp_lock:ana@example.com", 10*time.Minute)

	d, err := h.guard.Check(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonAccountLocked, d.Reason)
	assert.Equal(t, 10*time.Minute, d.RetryAfter)
}

func TestGuard_StoreUnavailable(t *testing.T) {
	h := newHarness(t)
	h.mr.Close()

	_, err := h.guard.Check(context.Background(), "ana@example.com")
	assert.Error(t, err)
}

func TestIssue_RenderFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	mr := h.mr
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer := passcode.NewIssuer(passcode.Config{
		Store: cache.NewCache(client, instrument.NewNoop(), time.Second),
		Clock: h.clock,
	}, passcode.IssuerDependency{
		Codes: &fixedCodes{codes: []string{"K7QJ2P"}},
		Renderer: renderFunc(func(string, map[string]any) (string, error) {
			return "", errors.New("template not found")
		}),
		Transport: h.transport,
	})

	_, err := issuer.Issue(context.Background(), passcode.IssueInput{Identity: "ana@example.com", TemplateRef: "missing"})

	require.Error(t, err)
	assert.Empty(t, mr.Keys())
	assert.Empty(t, h.transport.sent)
}

func TestIssue_TransportFailureIsUndelivered(t *testing.T) {
	h := newHarness(t)
	h.transport.err = errors.New("smtp: 421 service not available")

	out := h.issue(t, "ana@example.com")

	assert.Equal(t, passcode.DeliveryUndelivered, out.Delivery)
	assert.True(t, h.mr.Exists("otp:ana@example.com"))
	assert.True(t, h.mr.Exists("otp_cooldown:ana@example.com"))
}

func TestVerify_CorrectCodeOnlyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.issue(t, "ana@example.com")

	res, err := h.verifier.Verify(ctx, "ana@example.com", "K7QJ2P")
	require.NoError(t, err)
	assert.True(t, res.Verified)

	res, err = h.verifier.Verify(ctx, "ana@example.com", "K7QJ2P")
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, passcode.ReasonExpiredOrMissing, res.Reason)
}

func TestVerify_SuccessClearsFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.issue(t, "ana@example.com")

	_, err := h.verifier.Verify(ctx, "ana@example.com", "000000")
	require.NoError(t, err)
	require.True(t, h.mr.Exists("otp_attempts:ana@example.com"))

	res, err := h.verifier.Verify(ctx, "ana@example.com", "K7QJ2P")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.False(t, h.mr.Exists("otp_attempts:ana@example.com"))
}

func TestVerify_LockoutScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := "b@x.com"
	h.issue(t, id)

	res, err := h.verifier.Verify(ctx, id, "000000")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonIncorrectCode, res.Reason)
	assert.Equal(t, 1, res.AttemptsRemaining)

	res, err = h.verifier.Verify(ctx, id, "111111")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonIncorrectCode, res.Reason)
	assert.Equal(t, 0, res.AttemptsRemaining)

	res, err = h.verifier.Verify(ctx, id, "222222")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonLockedOut, res.Reason)
	assert.Equal(t, 30*time.Minute, res.RetryAfter)
	assert.False(t, h.mr.Exists("otp:"+id))
	assert.False(t, h.mr.Exists("otp_attempts:"+id))

	res, err = h.verifier.Verify(ctx, id, "K7QJ2P")
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, passcode.ReasonAccountLocked, res.Reason)

	d, err := h.guard.Check(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonAccountLocked, d.Reason)

	h.advance(30*time.Minute + time.Second)
	res, err = h.verifier.Verify(ctx, id, "K7QJ2P")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonExpiredOrMissing, res.Reason)
}

func TestVerify_ConcurrentWrongCodesLockOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := "c@x.com"
	h.issue(t, id)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		reasons = map[passcode.Reason]int{}
	)
	for range 20 {
		wg.Go(func() {
			res, err := h.verifier.Verify(ctx, id, "ZZZZ22")
			assert.NoError(t, err)

			mu.Lock()
			reasons[res.Reason]++
			mu.Unlock()
		})
	}
	wg.Wait()

	assert.GreaterOrEqual(t, reasons[passcode.ReasonLockedOut], 1)
	assert.Zero(t, reasons[""])
	assert.True(t, h.mr.Exists("otp_lock:c@x.com"))
	assert.False(t, h.mr.Exists("otp:c@x.com"))

	res, err := h.verifier.Verify(ctx, id, "K7QJ2P")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonAccountLocked, res.Reason)
}

func TestVerify_FailureWindowRefreshes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.issue(t, "ana@example.com")

	_, err := h.verifier.Verify(ctx, "ana@example.com", "000000")
	require.NoError(t, err)
	h.advance(4 * time.Minute)
	_, err = h.verifier.Verify(ctx, "ana@example.com", "111111")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, h.mr.TTL("otp_attempts:ana@example.com"))
}

func TestVerify_CodeExpires(t *testing.T) {
	h := newHarness(t)
	h.issue(t, "ana@example.com")

	h.advance(5*time.Minute + time.Second)

	res, err := h.verifier.Verify(context.Background(), "ana@example.com", "K7QJ2P")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonExpiredOrMissing, res.Reason)
}

func TestIssue_NewCodeReplacesOld(t *testing.T) {
	h := newHarness(t, "AAAAAA", "BBBBBB")
	ctx := context.Background()

	h.issue(t, "ana@example.com")
	h.advance(61 * time.Second)
	h.issue(t, "ana@example.com")

	res, err := h.verifier.Verify(ctx, "ana@example.com", "AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, passcode.ReasonIncorrectCode, res.Reason)

	res, err = h.verifier.Verify(ctx, "ana@example.com", "BBBBBB")
	require.NoError(t, err)
	assert.True(t, res.Verified)
}
