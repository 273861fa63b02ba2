// Package store provides the session storage adapters for phone verification.
//
// Every adapter keeps at most one live session per normalized phone key and
// satisfies the same contract: expired sessions are never observable through
// Get, and IncrementAttempts is atomic per key so two racing verification
// calls cannot both slip under the attempt ceiling.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/verification/entity"
)

// Store is the session persistence contract.
type Store interface {
	// Put upserts the session, overwriting any prior session for its key.
	Put(ctx context.Context, session entity.Session) error
	// Get returns the live session for the key, or nil when absent or
	// expired. Expired records are removed as a side effect.
	Get(ctx context.Context, phoneKey string) (*entity.Session, error)
	// IncrementAttempts atomically bumps the attempt counter and returns
	// the new value. Returns goerror.ErrNotFound when no live session
	// exists for the key.
	IncrementAttempts(ctx context.Context, phoneKey string) (int, error)
	// Clear removes the session; clearing an absent key is not an error.
	Clear(ctx context.Context, phoneKey string) error
}

// Config selects and wires a Store implementation.
type Config struct {
	// Driver is one of "memory", "redis", or "postgres".
	Driver string
	// Redis is required when Driver is "redis".
	Redis *redis.Client
	// Pool is required when Driver is "postgres".
	Pool *pgxpool.Pool

	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

// New constructs the Store selected by cfg.Driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.Clock), nil
	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("store driver %q requires a redis client", cfg.Driver)
		}
		return NewRedis(cfg.Redis, cfg.Clock, cfg.Instrument), nil
	case "postgres":
		if cfg.Pool == nil {
			return nil, fmt.Errorf("store driver %q requires a database pool", cfg.Driver)
		}
		return NewPostgres(cfg.Pool, cfg.Clock, cfg.Instrument), nil
	default:
		return nil, fmt.Errorf("unknown session store driver %q", cfg.Driver)
	}
}
