package sms

import "context"

// Gateway abstracts an SMS provider (Twilio, Vonage, console, etc).
type Gateway interface {
	// Name identifies the provider for logging and configuration.
	Name() string
	// Send dispatches the given body to the recipient phone number.
	Send(ctx context.Context, to, body string) error
}
