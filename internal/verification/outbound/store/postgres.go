package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/verification/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Postgres is a Store backed by a single verification_sessions table:
//
//	CREATE TABLE verification_sessions (
//	    phone_key  TEXT PRIMARY KEY,
//	    code       TEXT NOT NULL,
//	    attempts   INT NOT NULL DEFAULT 0,
//	    issued_at  TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
//
// Expiry is enforced on read against the application clock; expired rows are
// deleted lazily, so no background sweep is required.
type Postgres struct {
	pool  *pgxpool.Pool
	clock clock.Clocker
	ins   instrument.Instrumentation
}

// NewPostgres constructs a postgres-backed store.
func NewPostgres(pool *pgxpool.Pool, clk clock.Clocker, ins instrument.Instrumentation) *Postgres {
	if clk == nil {
		clk = clock.New()
	}

	return &Postgres{pool: pool, clock: clk, ins: ins}
}

func (p *Postgres) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.ins.Tracer("verification.outbound.store.postgres").Start(ctx, name)
}

func (p *Postgres) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (p *Postgres) Put(ctx context.Context, session entity.Session) (err error) {
	ctx, span := p.startSpan(ctx, "Put")
	defer func() { p.endSpan(span, err) }()

	const query = `
		INSERT INTO verification_sessions (phone_key, code, attempts, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone_key) DO UPDATE
		SET code = EXCLUDED.code,
		    attempts = EXCLUDED.attempts,
		    issued_at = EXCLUDED.issued_at,
		    expires_at = EXCLUDED.expires_at`

	_, err = p.pool.Exec(ctx, query,
		session.PhoneKey, session.Code, session.Attempts, session.IssuedAt, session.ExpiresAt)
	return err
}

func (p *Postgres) Get(ctx context.Context, phoneKey string) (_ *entity.Session, err error) {
	ctx, span := p.startSpan(ctx, "Get")
	defer func() { p.endSpan(span, err) }()

	const query = `
		SELECT code, attempts, issued_at, expires_at
		FROM verification_sessions
		WHERE phone_key = $1`

	session := entity.Session{PhoneKey: phoneKey}
	err = p.pool.QueryRow(ctx, query, phoneKey).
		Scan(&session.Code, &session.Attempts, &session.IssuedAt, &session.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(p.clock.Now()) {
		if err := p.Clear(ctx, phoneKey); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &session, nil
}

func (p *Postgres) IncrementAttempts(ctx context.Context, phoneKey string) (_ int, err error) {
	ctx, span := p.startSpan(ctx, "IncrementAttempts")
	defer func() { p.endSpan(span, err) }()

	const query = `
		UPDATE verification_sessions
		SET attempts = attempts + 1
		WHERE phone_key = $1 AND expires_at > $2
		RETURNING attempts`

	var attempts int
	err = p.pool.QueryRow(ctx, query, phoneKey, p.clock.Now()).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, goerror.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	return attempts, nil
}

func (p *Postgres) Clear(ctx context.Context, phoneKey string) (err error) {
	ctx, span := p.startSpan(ctx, "Clear")
	defer func() { p.endSpan(span, err) }()

	_, err = p.pool.Exec(ctx, `DELETE FROM verification_sessions WHERE phone_key = $1`, phoneKey)
	return err
}
