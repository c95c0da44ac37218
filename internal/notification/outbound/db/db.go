package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Conn is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DefaultTimeout bounds every statement when NewDB receives a non-positive timeout.
const DefaultTimeout = 5 * time.Second

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

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	ctx, span := s.ins.Tracer("notification.outbound.db").Start(ctx, name)

	return ctx, cancel, span
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
