package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNewTwilio_MissingCredentials(t *testing.T) {
	// Act
	_, err := NewTwilio(TwilioConfig{AccountSID: "AC123"})

	// Assert
	if err != ErrTwilioCredentialsRequired {
		t.Fatalf("expected ErrTwilioCredentialsRequired, got %v", err)
	}
}

func TestTwilio_Send(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Messages.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("To"); got != "+628123456789" {
			t.Errorf("unexpected To %q", got)
		}
		if got := r.PostForm.Get("Body"); got != "Your code is 123456" {
			t.Errorf("unexpected Body %q", got)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gw, err := NewTwilio(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+15550001111",
		BaseURL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("new twilio: %v", err)
	}

	// Act
	err = gw.Send(context.Background(), "+628123456789", "Your code is 123456")

	// Assert
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func TestTwilio_Send_RetriesServerError(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gw, err := NewTwilio(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		BaseURL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("new twilio: %v", err)
	}

	// Act
	err = gw.Send(context.Background(), "+628123456789", "Your code is 123456")

	// Assert
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestTwilio_Send_ClientErrorNotRetried(t *testing.T) {
	// Arrange
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	gw, err := NewTwilio(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		BaseURL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("new twilio: %v", err)
	}

	// Act
	err = gw.Send(context.Background(), "+628123456789", "Your code is 123456")

	// Assert
	if err == nil {
		t.Fatal("expected error for client failure")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}
