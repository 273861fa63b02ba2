package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/verification/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const redisKeyPrefix = "verification:session:"

// incrAttemptsScript bumps the attempt counter only when the session hash
// still exists; a plain HINCRBY would resurrect a cleared or expired key.
var incrAttemptsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// Redis is a Store backed by a redis hash per phone key. The hash carries a
// server-side expiry via PEXPIREAT and is additionally checked lazily against
// the local clock so a skewed redis server can never hand back a stale code.
type Redis struct {
	client *redis.Client
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

// NewRedis constructs a redis-backed store.
func NewRedis(client *redis.Client, clk clock.Clocker, ins instrument.Instrumentation) *Redis {
	if clk == nil {
		clk = clock.New()
	}

	return &Redis{client: client, clock: clk, ins: ins}
}

func (r *Redis) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return r.ins.Tracer("verification.outbound.store.redis").Start(ctx, name)
}

func (r *Redis) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *Redis) Put(ctx context.Context, session entity.Session) (err error) {
	ctx, span := r.startSpan(ctx, "Put")
	defer func() { r.endSpan(span, err) }()

	key := redisKeyPrefix + session.PhoneKey

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"code", session.Code,
		"attempts", session.Attempts,
		"issued_at", session.IssuedAt.UnixMilli(),
		"expires_at", session.ExpiresAt.UnixMilli(),
	)
	pipe.PExpireAt(ctx, key, session.ExpiresAt)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) Get(ctx context.Context, phoneKey string) (_ *entity.Session, err error) {
	ctx, span := r.startSpan(ctx, "Get")
	defer func() { r.endSpan(span, err) }()

	key := redisKeyPrefix + phoneKey

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	session, err := parseSessionHash(phoneKey, fields)
	if err != nil {
		return nil, err
	}

	if session.Expired(r.clock.Now()) {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return session, nil
}

func (r *Redis) IncrementAttempts(ctx context.Context, phoneKey string) (_ int, err error) {
	ctx, span := r.startSpan(ctx, "IncrementAttempts")
	defer func() { r.endSpan(span, err) }()

	n, err := incrAttemptsScript.Run(ctx, r.client, []string{redisKeyPrefix + phoneKey}).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, goerror.ErrNotFound
	}

	return n, nil
}

func (r *Redis) Clear(ctx context.Context, phoneKey string) (err error) {
	ctx, span := r.startSpan(ctx, "Clear")
	defer func() { r.endSpan(span, err) }()

	return r.client.Del(ctx, redisKeyPrefix+phoneKey).Err()
}

func parseSessionHash(phoneKey string, fields map[string]string) (*entity.Session, error) {
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, err
	}
	issuedAt, err := strconv.ParseInt(fields["issued_at"], 10, 64)
	if err != nil {
		return nil, err
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, err
	}

	return &entity.Session{
		PhoneKey:  phoneKey,
		Code:      fields["code"],
		Attempts:  attempts,
		IssuedAt:  time.UnixMilli(issuedAt),
		ExpiresAt: time.UnixMilli(expiresAt),
	}, nil
}
