package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrTwilioCredentialsRequired is returned when AccountSID/AuthToken are missing.
var ErrTwilioCredentialsRequired = errors.New("twilio account sid and auth token are required")

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// Twilio is a Gateway implementation backed by the Twilio Messages API.
type Twilio struct {
	client     *http.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// TwilioConfig configures the Twilio implementation.
type TwilioConfig struct {
	// AccountSID is the Twilio account identifier.
	AccountSID string
	// AuthToken is the Twilio API secret.
	AuthToken string
	// From is the sender phone number or alphanumeric sender ID.
	From string
	// BaseURL overrides the Twilio API host, used in tests.
	BaseURL string
	// Client overrides the HTTP client; defaults to a 10s timeout client.
	Client *http.Client
}

// NewTwilio constructs a Twilio SMS gateway.
func NewTwilio(cfg TwilioConfig) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, ErrTwilioCredentialsRequired
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = twilioBaseURL
	}

	return &Twilio{
		client:     client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
	}, nil
}

// Name implements Gateway.
func (t *Twilio) Name() string {
	return "twilio"
}

// Send delivers a message through the Twilio Messages endpoint. Server-side
// failures (HTTP 5xx and 429) are retried with a capped fibonacci backoff;
// client errors fail immediately.
func (t *Twilio) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", body)
	payload := form.Encode()

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	b := retry.NewFibonacci(200 * time.Millisecond)
	b = retry.WithCappedDuration(2*time.Second, b)
	b = retry.WithMaxRetries(2, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(t.accountSID, t.authToken)

		resp, err := t.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		err = fmt.Errorf("twilio responded with status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(err)
		}
		return err
	})
}
