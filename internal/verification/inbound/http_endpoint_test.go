package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/widyatama/otpgate/internal/pkg/config"
	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/router"
	"github.com/widyatama/otpgate/internal/pkg/uid"
	"github.com/widyatama/otpgate/internal/verification/usecase"
)

type fakeUsecase struct {
	issueOut  *usecase.IssueOutput
	issueErr  error
	verifyErr error
	statusOut *usecase.StatusOutput
	statusIn  usecase.StatusInput
}

func (f *fakeUsecase) Issue(_ context.Context, _ usecase.IssueInput) (*usecase.IssueOutput, error) {
	return f.issueOut, f.issueErr
}

func (f *fakeUsecase) Verify(_ context.Context, _ usecase.VerifyInput) error {
	return f.verifyErr
}

func (f *fakeUsecase) Status(_ context.Context, in usecase.StatusInput) (*usecase.StatusOutput, error) {
	f.statusIn = in
	return f.statusOut, nil
}

func newTestRouter(t *testing.T, uc uc) *router.Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  maintenance:\n    endpoints: []\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	r := router.NewRouter(router.Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		Instrument: instrument.NewNoop(),
	})
	RegisterHTTPEndpoint(r, uc)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, payload
}

func TestHTTP_Issue(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{issueOut: &usecase.IssueOutput{ExpiresIn: 60}}
	r := newTestRouter(t, uc)

	// Act
	status, payload := doRequest(t, r, http.MethodPost, "/api/v1/verification/issue", `{"phone":"+91 98765 43210"}`)

	// Assert
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data, _ := payload["data"].(map[string]any)
	if data["expires_in_seconds"] != float64(60) {
		t.Fatalf("unexpected data %v", data)
	}
	if _, leaked := data["code"]; leaked {
		t.Fatal("code must be omitted when empty")
	}
}

func TestHTTP_Issue_Throttled(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{issueErr: goerror.NewBusinessFields(
		"a verification code is already active for this phone number",
		goerror.CodeTooManyRequest,
		map[string]string{"retry_after_seconds": "40"},
	)}
	r := newTestRouter(t, uc)

	// Act
	status, payload := doRequest(t, r, http.MethodPost, "/api/v1/verification/issue", `{"phone":"+91 98765 43210"}`)

	// Assert
	if status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", status)
	}
	errMap, _ := payload["error"].(map[string]any)
	if errMap["retry_after_seconds"] != "40" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestHTTP_Issue_MalformedBody(t *testing.T) {
	// Arrange
	r := newTestRouter(t, &fakeUsecase{})

	// Act
	status, _ := doRequest(t, r, http.MethodPost, "/api/v1/verification/issue", `{"phone":`)

	// Assert
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestHTTP_Verify(t *testing.T) {
	// Arrange
	r := newTestRouter(t, &fakeUsecase{})

	// Act
	status, payload := doRequest(t, r, http.MethodPost, "/api/v1/verification/verify", `{"phone":"+91 98765 43210","code":"042817"}`)

	// Assert
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	data, _ := payload["data"].(map[string]any)
	if data["verified"] != true {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestHTTP_Verify_InvalidCode(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{verifyErr: goerror.NewBusinessFields(
		"invalid verification code",
		goerror.CodeUnauthorized,
		map[string]string{"attempts_remaining": "2"},
	)}
	r := newTestRouter(t, uc)

	// Act
	status, payload := doRequest(t, r, http.MethodPost, "/api/v1/verification/verify", `{"phone":"+91 98765 43210","code":"000000"}`)

	// Assert
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	errMap, _ := payload["error"].(map[string]any)
	if errMap["attempts_remaining"] != "2" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestHTTP_Status(t *testing.T) {
	// Arrange
	uc := &fakeUsecase{statusOut: &usecase.StatusOutput{Active: true, ExpiresIn: 42}}
	r := newTestRouter(t, uc)

	// Act
	status, payload := doRequest(t, r, http.MethodGet, "/api/v1/verification/status?phone=%2B919876543210", "")

	// Assert
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if uc.statusIn.Phone != "+919876543210" {
		t.Fatalf("phone query = %q", uc.statusIn.Phone)
	}
	data, _ := payload["data"].(map[string]any)
	if data["active"] != true || data["expires_in_seconds"] != float64(42) {
		t.Fatalf("unexpected data %v", data)
	}
}
