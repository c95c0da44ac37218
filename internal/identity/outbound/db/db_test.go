package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

type fakeConn struct {
	row  pgx.Row
	sql  string
	args []any
}

func (f *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func (f *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// hangingConn holds every row until the query context ends, like a stalled server.
type hangingConn struct{}

func (hangingConn) QueryRow(ctx context.Context, _ string, _ ...any) pgx.Row {
	return rowFunc(func(...any) error {
		<-ctx.Done()
		return ctx.Err()
	})
}

func (hangingConn) Exec(ctx context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	<-ctx.Done()
	return pgconn.CommandTag{}, ctx.Err()
}

func TestDB_MapError(t *testing.T) {
	s := NewDB(&fakeConn{}, instrument.NewNoop(), time.Second)

	assert.NoError(t, s.mapError(nil))
	assert.ErrorIs(t, s.mapError(pgx.ErrNoRows), goerror.ErrNotFound)
	assert.ErrorIs(t, s.mapError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})), goerror.ErrConflict)

	other := &pgconn.PgError{Code: "23502"}
	assert.Equal(t, other, s.mapError(other))
}

func TestDB_FindUserByEmail_NotFound(t *testing.T) {
	conn := &fakeConn{row: rowFunc(func(...any) error { return pgx.ErrNoRows })}
	s := NewDB(conn, instrument.NewNoop(), time.Second)

	_, err := s.FindUserByEmail(context.Background(), "ana@example.com")

	assert.ErrorIs(t, err, goerror.ErrNotFound)
	assert.Equal(t, []any{"ana@example.com"}, conn.args)
}

func TestDB_CreateUser_Conflict(t *testing.T) {
	conn := &fakeConn{row: rowFunc(func(...any) error { return &pgconn.PgError{Code: "23505"} })}
	s := NewDB(conn, instrument.NewNoop(), time.Second)

	_, err := s.CreateUser(context.Background(), entity.NewUser{ID: 1, Email: "ana@example.com"})

	assert.ErrorIs(t, err, goerror.ErrConflict)
}

func TestDB_CreateUser_ScansCreatedAt(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	conn := &fakeConn{row: rowFunc(func(dest ...any) error {
		*(dest[0].(*time.Time)) = at
		return nil
	})}
	s := NewDB(conn, instrument.NewNoop(), time.Second)

	u, err := s.CreateUser(context.Background(), entity.NewUser{ID: 7, Email: "ana@example.com", FullName: "Ana", PasswordHash: "$2a$10$x"})

	require.NoError(t, err)
	assert.Equal(t, &entity.User{ID: 7, Email: "ana@example.com", FullName: "Ana", PasswordHash: "$2a$10$x", CreatedAt: at}, u)
}

func TestDB_StatementsAreBounded(t *testing.T) {
	s := NewDB(hangingConn{}, instrument.NewNoop(), 50*time.Millisecond)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "find", call: func() error { _, err := s.FindUserByEmail(ctx, "ana@example.com"); return err }},
		{name: "create", call: func() error { _, err := s.CreateUser(ctx, entity.NewUser{ID: 1}); return err }},
		{name: "report", call: func() error { return s.CreateDeliveryReport(ctx, entity.DeliveryReport{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := tt.call()

			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestNewDB_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewDB(&fakeConn{}, instrument.NewNoop(), 0).timeout)
}

func TestDB_CreateDeliveryReport(t *testing.T) {
	conn := &fakeConn{}
	s := NewDB(conn, instrument.NewNoop(), time.Second)

	err := s.CreateDeliveryReport(context.Background(), entity.DeliveryReport{
		ID:        "01JREPORT",
		Sender:    "no-reply@passgate.local",
		Recipient: "ana@example.com",
		Error:     "smtp: 451",
	})

	require.NoError(t, err)
	assert.Contains(t, conn.sql, "notification_delivery_reports")
	require.Len(t, conn.args, 8)
	assert.Equal(t, "FAILED", conn.args[4])
}

// TestDB_Postgres runs against a real database when INTEGRATION=1.
func TestDB_Postgres(t *testing.T) {
	if os.Getenv("INTEGRATION") != "1" {
		t.Skip("set INTEGRATION=1 to run against postgres")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("passgate"),
		postgres.WithUsername("passgate"),
		postgres.WithPassword("passgate"),
		postgres.WithInitScripts("../../../../migrations/000001_init.up.sql"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewDB(pool, instrument.NewNoop(), 5*time.Second)

	_, err = s.FindUserByEmail(ctx, "Ana@Example.com")
	require.ErrorIs(t, err, goerror.ErrNotFound)

	created, err := s.CreateUser(ctx, entity.NewUser{ID: 1, Email: "Ana@Example.com", FullName: "Ana Maria", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.CreateUser(ctx, entity.NewUser{ID: 2, Email: "Ana@Example.com", FullName: "Other", PasswordHash: "hash"})
	assert.True(t, errors.Is(err, goerror.ErrConflict))

	found, err := s.FindUserByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.ID)

	_, err = s.FindUserByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}
