package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/identity/passcode"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/hash"
	"github.com/shandysiswandi/passgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/jwt"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users     map[string]*entity.User
	findErr   error
	createErr error
	created   []entity.NewUser
}

func (f *fakeRepo) FindUserByEmail(_ context.Context, email string) (*entity.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeRepo) CreateUser(_ context.Context, in entity.NewUser) (*entity.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	u := &entity.User{ID: in.ID, Email: in.Email, FullName: in.FullName, PasswordHash: in.PasswordHash, CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	if f.users == nil {
		f.users = map[string]*entity.User{}
	}
	f.users[in.Email] = u
	return u, nil
}

type fakeGuard struct {
	decision passcode.Decision
	err      error
	calls    int
}

func (f *fakeGuard) Check(context.Context, string) (passcode.Decision, error) {
	f.calls++
	return f.decision, f.err
}

type fakeIssuer struct {
	got passcode.IssueInput
	out passcode.IssuedOTP
	err error
}

func (f *fakeIssuer) Issue(_ context.Context, in passcode.IssueInput) (passcode.IssuedOTP, error) {
	f.got = in
	return f.out, f.err
}

type fakeVerifier struct {
	res  passcode.Result
	err  error
	code string
}

func (f *fakeVerifier) Verify(_ context.Context, _, code string) (passcode.Result, error) {
	f.code = code
	return f.res, f.err
}

type fakeInflight struct {
	err      error
	key      string
	released bool
}

func (f *fakeInflight) Acquire(_ context.Context, key string, _ time.Duration) (idempotency.Releaser, error) {
	f.key = key
	if f.err != nil {
		return nil, f.err
	}
	return func(context.Context) error {
		f.released = true
		return nil
	}, nil
}

type seqID struct{ n int64 }

func (s *seqID) Generate() int64 {
	s.n++
	return s.n
}

type staticUUID string

func (s staticUUID) Generate() string { return string(s) }

type fixture struct {
	repo     *fakeRepo
	guard    *fakeGuard
	issuer   *fakeIssuer
	verifier *fakeVerifier
	inflight *fakeInflight
	tokens   *jwt.Issuer
	uc       *Usecase
}

var (
	accessSecret  = []byte("access-secret-access-secret-access-secret-access-secret-access!!")
	refreshSecret = []byte("refresh-secret-refresh-secret-refresh-secret-refresh-secret-ref!")
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	tokens, err := jwt.NewIssuer(jwt.IssuerConfig{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "passgate",
		Clock:         clock.New(),
		UUID:          staticUUID("0195f6a2-7d4e-7c3a-9b1f-2a3c4d5e6f70"),
	})
	require.NoError(t, err)

	f := &fixture{
		repo:     &fakeRepo{users: map[string]*entity.User{}},
		guard:    &fakeGuard{decision: passcode.Decision{Allowed: true}},
		issuer:   &fakeIssuer{},
		verifier: &fakeVerifier{res: passcode.Result{Verified: true}},
		inflight: &fakeInflight{},
		tokens:   tokens,
	}
	f.uc = New(Dependency{
		RepoDB:      f.repo,
		Guard:       f.guard,
		Issuer:      f.issuer,
		Verifier:    f.verifier,
		Tokens:      tokens,
		Bcrypt:      hash.NewBcrypt(),
		Inflight:    f.inflight,
		InflightTTL: 30 * time.Second,
		Validator:   v,
		UID:         &seqID{},
		Instrument:  instrument.NewNoop(),
	})

	return f
}

func (f *fixture) addUser(t *testing.T, email, password string) *entity.User {
	t.Helper()

	hashed, err := hash.NewBcrypt().Hash(password)
	require.NoError(t, err)
	u := &entity.User{ID: 99, Email: email, FullName: "Ana Maria", PasswordHash: string(hashed)}
	f.repo.users[email] = u
	return u
}

func requirePolicy(t *testing.T, err error, code goerror.Code, reason string) *goerror.Policy {
	t.Helper()

	ge, ok := goerror.As(err)
	require.True(t, ok, "expected *goerror.Error, got %v", err)
	require.Equal(t, goerror.TypePolicy, ge.Type())
	require.Equal(t, code, ge.Code())
	require.NotNil(t, ge.Policy())
	require.Equal(t, reason, ge.Policy().Reason)
	return ge.Policy()
}

func requireType(t *testing.T, err error, typ goerror.Type, code goerror.Code) {
	t.Helper()

	ge, ok := goerror.As(err)
	require.True(t, ok, "expected *goerror.Error, got %v", err)
	assert.Equal(t, typ, ge.Type())
	assert.Equal(t, code, ge.Code())
}

func intPtr(n int) *int { return &n }
