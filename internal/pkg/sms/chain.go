package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/widyatama/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// ErrNoGateways is returned when a Chain is constructed without gateways.
var ErrNoGateways = errors.New("at least one sms gateway is required")

// ErrAllGatewaysFailed is returned when every gateway in the chain failed.
var ErrAllGatewaysFailed = errors.New("all sms gateways failed")

const defaultGatewayTimeout = 15 * time.Second

// Chain is a Gateway that tries an ordered list of gateways until one
// succeeds. Iteration starts at the gateway that succeeded most recently, so
// a degraded provider is not retried first on every dispatch; the order then
// wraps around so every configured gateway still gets one attempt before the
// chain reports total failure.
type Chain struct {
	gateways []Gateway
	lastOK   atomic.Int32
	timeout  time.Duration
}

// ChainOption customizes a Chain.
type ChainOption func(*Chain)

// WithGatewayTimeout bounds each gateway attempt; zero or negative values
// keep the default.
func WithGatewayTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChain constructs a fallback chain over the given gateways.
func NewChain(gateways []Gateway, opts ...ChainOption) (*Chain, error) {
	if len(gateways) == 0 {
		return nil, ErrNoGateways
	}

	c := &Chain{
		gateways: gateways,
		timeout:  defaultGatewayTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements Gateway.
func (c *Chain) Name() string {
	names := make([]string, len(c.gateways))
	for i, gw := range c.gateways {
		names[i] = gw.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Send tries each gateway in sticky order until one succeeds. On success the
// winning gateway becomes the starting point for the next call. When every
// gateway fails, the per-gateway errors are joined under ErrAllGatewaysFailed.
func (c *Chain) Send(ctx context.Context, to, body string) error {
	start := int(c.lastOK.Load())
	errs := []error{ErrAllGatewaysFailed}

	for i := range c.gateways {
		if err := ctx.Err(); err != nil {
			return err
		}

		idx := (start + i) % len(c.gateways)
		gw := c.gateways[idx]

		err := c.sendOne(ctx, gw, to, body)
		if err == nil {
			c.lastOK.Store(int32(idx))
			return nil
		}

		slog.WarnContext(ctx, "sms gateway failed", "gateway", gw.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", gw.Name(), err))
	}

	return errors.Join(errs...)
}

func (c *Chain) sendOne(ctx context.Context, gw Gateway, to, body string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			paths := stacktrace.InternalPaths(stack)
			if len(paths) == 0 {
				slog.ErrorContext(ctx, "panic in sms gateway", "gateway", gw.Name(), "panic", rvr, "stack", string(stack))
			} else {
				slog.ErrorContext(ctx, "panic in sms gateway", "gateway", gw.Name(), "panic", rvr, "stack", paths)
			}
			err = fmt.Errorf("pkgsms: panic in %s gateway: %v", gw.Name(), rvr)
		}
	}()

	return gw.Send(ctx, to, body)
}
