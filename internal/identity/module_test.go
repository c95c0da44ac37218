package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/hash"
	"github.com/shandysiswandi/passgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/jwt"
	pkgmail "github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"github.com/shandysiswandi/passgate/internal/shared/event"
)

type row func(dest ...any) error

func (r row) Scan(dest ...any) error { return r(dest...) }

type memUser struct {
	id                    int64
	email, name, password string
	createdAt             time.Time
}

// memConn answers the identity queries from memory and keeps delivery reports.
type memConn struct {
	mu      sync.Mutex
	users   map[string]memUser
	reports [][]any
}

func (c *memConn) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reports = append(c.reports, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (c *memConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case strings.Contains(sql, "SELECT"):
		u, ok := c.users[args[0].(string)]
		return row(func(dest ...any) error {
			if !ok {
				return pgx.ErrNoRows
			}
			*(dest[0].(*int64)) = u.id
			*(dest[1].(*string)) = u.email
			*(dest[2].(*string)) = u.name
			*(dest[3].(*string)) = u.password
			*(dest[4].(*time.Time)) = u.createdAt
			return nil
		})
	default:
		email := args[1].(string)
		if _, ok := c.users[email]; ok {
			return row(func(...any) error { return &pgconn.PgError{Code: "23505"} })
		}
		u := memUser{id: args[0].(int64), email: email, name: args[2].(string), password: args[3].(string), createdAt: time.Now().UTC()}
		c.users[email] = u
		return row(func(dest ...any) error {
			*(dest[0].(*time.Time)) = u.createdAt
			return nil
		})
	}
}

type inbox struct {
	mu   sync.Mutex
	msgs []pkgmail.Message
}

func (b *inbox) Send(_ context.Context, msg pkgmail.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (*inbox) Sender() string { return "no-reply@passgate.local" }

func (*inbox) Close() error { return nil }

var reCode = regexp.MustCompile(`text-align: center;">([A-Z2-9]{6})<`)

func (b *inbox) lastCode(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.msgs)
	m := reCode.FindStringSubmatch(b.msgs[len(b.msgs)-1].HTMLBody)
	require.Len(t, m, 2)
	return m[1]
}

type env struct {
	srv   http.Handler
	inbox *inbox
	conn  *memConn
}

func newEnv(t *testing.T, yaml string, pub messaging.Publisher) *env {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	snow, err := uid.NewSnowflake()
	require.NoError(t, err)

	clk := clock.New()
	issuer, err := jwt.NewIssuer(jwt.IssuerConfig{
		AccessSecret:  []byte("access-secret-for-tests-0123456789"),
		RefreshSecret: []byte("refresh-secret-for-tests-0123456789"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "passgate",
		Audiences:     []string{"passgate"},
		Clock:         clk,
		UUID:          uid.NewUUID(),
	})
	require.NoError(t, err)

	ins := instrument.NewNoop()
	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), Verifier: issuer, Instrument: ins})

	e := &env{srv: r, inbox: &inbox{}, conn: &memConn{users: map[string]memUser{}}}

	require.NoError(t, New(Dependency{
		DBConn:     e.conn,
		CacheConn:  rdb,
		Router:     r,
		Inflight:   idempotency.New(rdb),
		Config:     cfg,
		Instrument: ins,
		UID:        snow,
		ULID:       uid.NewULID(),
		Bcrypt:     hash.NewBcrypt(),
		Clock:      clk,
		Validator:  v,
		JWT:        issuer,
		Mail:       e.inbox,
		Messaging:  pub,
	}))

	return e
}

func (e *env) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

const account = `"email":"ana@example.com","password":"Secret123!","full_name":"Ana Lee"`

func TestIdentity_RegistrationAndSession(t *testing.T) {
	e := newEnv(t, "modules:\n  identity:\n    otp:\n      delivery: smtp\n", nil)

	rec, body := e.do(t, http.MethodPost, "/api/v1/identity/register", "{"+account+"}")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sent", body["data"].(map[string]any)["delivery_status"])
	require.Len(t, e.conn.reports, 1)
	assert.Equal(t, "ana@example.com", e.conn.reports[0][2])
	assert.Equal(t, "SUCCESS", e.conn.reports[0][4])

	rec, body = e.do(t, http.MethodPost, "/api/v1/identity/register", "{"+account+"}")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "COOLDOWN_ACTIVE", body["reason"])

	code := e.inbox.lastCode(t)
	wrong := "ZZZZZZ"
	if code == wrong {
		wrong = "YYYYYY"
	}

	rec, body = e.do(t, http.MethodPost, "/api/v1/identity/register/verify", `{`+account+`,"otp":"`+wrong+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "OTP_INCORRECT", body["reason"])
	assert.InDelta(t, 1, body["attempts_remaining"], 0)

	rec, body = e.do(t, http.MethodPost, "/api/v1/identity/register/verify", `{`+account+`,"otp":"`+code+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "ana@example.com", body["data"].(map[string]any)["user"].(map[string]any)["email"])
	require.Contains(t, e.conn.users, "ana@example.com")
	assert.NotEqual(t, "Secret123!", e.conn.users["ana@example.com"].password)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/identity/register/verify", `{`+account+`,"otp":"`+code+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = e.do(t, http.MethodPost, "/api/v1/identity/login", `{"email":"ana@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", body["message"])

	rec, _ = e.do(t, http.MethodPost, "/api/v1/identity/login", `{"email":"ana@example.com","password":"Secret123!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var access, refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case "access_token":
			access = c
		case "refresh_token":
			refresh = c
		}
	}
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	rec, body = e.do(t, http.MethodGet, "/api/v1/identity/profile", "", access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Ana Lee", body["data"].(map[string]any)["user"].(map[string]any)["full_name"])

	rec, body = e.do(t, http.MethodPost, "/api/v1/identity/refresh", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["data"].(map[string]any)["access_token"])

	rec, _ = e.do(t, http.MethodPost, "/api/v1/identity/refresh", `{"refresh_token":"`+access.Value+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity_QueueDelivery(t *testing.T) {
	broker := messaging.NewMemory()
	got := make(chan event.OTPDispatch, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = broker.Consume(ctx, event.OTPDispatchTopic, func(_ context.Context, msg messaging.Message) error {
			var d event.OTPDispatch
			if err := json.Unmarshal(msg.Body(), &d); err != nil {
				return err
			}
			select {
			case got <- d:
			default:
			}
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	e := newEnv(t, "modules:\n  identity:\n    otp:\n      delivery: queue\n", broker)

	// the consumer subscribes asynchronously; retry until a dispatch arrives
	var d event.OTPDispatch
	require.Eventually(t, func() bool {
		e.do(t, http.MethodPost, "/api/v1/identity/register",
			`{"email":"queue-`+time.Now().Format("150405.000000000")+`@example.com","password":"Secret123!","full_name":"Ana Lee"}`)
		select {
		case d = <-got:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	assert.True(t, strings.HasPrefix(d.Recipient, "queue-"))
	assert.Equal(t, "Ana Lee", d.Name)
	assert.NotEmpty(t, d.ID)
	assert.Empty(t, e.inbox.msgs)
}

func TestNew_DeliveryValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		yaml  string
		mail  pkgmail.Mail
		pub   messaging.Publisher
		isErr error
	}{
		{name: "smtp without mail", yaml: "modules: {identity: {otp: {delivery: smtp}}}", isErr: errMailRequired},
		{name: "queue without messaging", yaml: "modules: {identity: {otp: {delivery: queue}}}", mail: &inbox{}, isErr: errMessagingRequired},
		{name: "unknown delivery", yaml: "modules: {identity: {otp: {delivery: pigeon}}}", mail: &inbox{}, isErr: errUnknownDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			require.NoError(t, err)

			_, err = newTransport(Dependency{
				CacheConn:  rdb,
				Config:     cfg,
				Instrument: instrument.NewNoop(),
				ULID:       uid.NewULID(),
				Clock:      clock.New(),
				Validator:  v,
				Mail:       tt.mail,
				Messaging:  tt.pub,
			}, nil)
			assert.ErrorIs(t, err, tt.isErr)
		})
	}
}
