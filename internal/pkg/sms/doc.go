// Package sms defines the contracts for sending short text messages.
//
// The main purpose is to keep the rest of the application independent from a
// specific SMS provider. Use cases work with the Gateway interface; the
// concrete delivery mechanism (Twilio, Vonage, console, etc) is implemented
// elsewhere in this package. Chain composes multiple gateways into a single
// Gateway with ordered fallback.
package sms
