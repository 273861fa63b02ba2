package sms

import (
	"context"
	"log/slog"
)

// Console is a Gateway implementation that writes messages to the structured
// log instead of an external provider. Intended for local development; the
// message body is subject to the usual log field masking.
type Console struct{}

// NewConsole constructs a console SMS gateway.
func NewConsole() *Console {
	return &Console{}
}

// Name implements Gateway.
func (c *Console) Name() string {
	return "console"
}

// Send logs the message and always succeeds.
func (c *Console) Send(ctx context.Context, to, body string) error {
	slog.InfoContext(ctx, "sms delivered to console", "to", to, "body", body)
	return nil
}
