package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrVonageCredentialsRequired is returned when APIKey/APISecret are missing.
var ErrVonageCredentialsRequired = errors.New("vonage api key and secret are required")

const vonageBaseURL = "https://rest.nexmo.com"

// Vonage is a Gateway implementation backed by the Vonage (Nexmo) SMS API.
type Vonage struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	apiSecret string
	from      string
}

// VonageConfig configures the Vonage implementation.
type VonageConfig struct {
	// APIKey is the Vonage API key.
	APIKey string
	// APISecret is the Vonage API secret.
	APISecret string
	// From is the sender phone number or alphanumeric sender ID.
	From string
	// BaseURL overrides the Vonage API host, used in tests.
	BaseURL string
	// Client overrides the HTTP client; defaults to a 10s timeout client.
	Client *http.Client
}

// NewVonage constructs a Vonage SMS gateway.
func NewVonage(cfg VonageConfig) (*Vonage, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrVonageCredentialsRequired
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = vonageBaseURL
	}

	return &Vonage{
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		from:      cfg.From,
	}, nil
}

// Name implements Gateway.
func (v *Vonage) Name() string {
	return "vonage"
}

type vonageRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	From      string `json:"from"`
	To        string `json:"to"`
	Text      string `json:"text"`
}

type vonageResponse struct {
	Messages []struct {
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

// Send delivers a message through the Vonage SMS endpoint.
func (v *Vonage) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(vonageRequest{
		APIKey:    v.apiKey,
		APISecret: v.apiSecret,
		From:      v.from,
		To:        to,
		Text:      body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/sms/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vonage responded with status %d", resp.StatusCode)
	}

	var result vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("vonage response decode: %w", err)
	}

	// Vonage reports per-message status in the body; "0" means accepted.
	for _, msg := range result.Messages {
		if msg.Status != "0" {
			return fmt.Errorf("vonage rejected message with status %s: %s", msg.Status, msg.ErrorText)
		}
	}

	return nil
}
