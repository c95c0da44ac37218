package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds every statement when NewDB receives a non-positive timeout.
const DefaultTimeout = 5 * time.Second

// Conn is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type DB struct {
	conn    Conn
	ins     instrument.Instrumentation
	timeout time.Duration
}

func NewDB(conn Conn, ins instrument.Instrumentation, timeout time.Duration) *DB {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &DB{conn: conn, ins: ins, timeout: timeout}
}

// mapError turns driver errors into the sentinels the usecase layer knows:
// no rows is goerror.ErrNotFound, a unique violation (23505) is goerror.ErrConflict.
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

// startSpan also bounds ctx; cancel only after the row has been scanned.
func (s *DB) startSpan(ctx context.Context, name string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	ctx, span := s.ins.Tracer("identity.outbound.db").Start(ctx, name)

	return ctx, cancel, span
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
