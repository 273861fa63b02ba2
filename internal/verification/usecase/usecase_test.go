package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/widyatama/otpgate/internal/pkg/config"
	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/pkg/instrument"
	"github.com/widyatama/otpgate/internal/pkg/validator"
	"github.com/widyatama/otpgate/internal/verification/outbound/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type fakeGenerator struct {
	code string
	err  error
}

func (f *fakeGenerator) Generate() (string, error) {
	return f.code, f.err
}

type fakeSMS struct {
	mu    sync.Mutex
	err   error
	sends []struct{ to, body string }
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, struct{ to, body string }{to, body})
	return f.err
}

type fixture struct {
	uc    *Usecase
	store *store.Memory
	clock *fakeClock
	sms   *fakeSMS
}

const testConfig = `
modules:
  verification:
    ttl_seconds: 60
    max_attempts: 3
    expose_code: false
`

func newFixture(t *testing.T, overrides string) *fixture {
	t.Helper()

	raw := testConfig
	if overrides != "" {
		raw = overrides
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(raw))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	vld, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	clk := &fakeClock{now: time.Now()}
	mem := store.NewMemory(clk)
	smsGw := &fakeSMS{}

	uc := NewVerification(Dependency{
		RepoStore:  mem,
		RepoSMS:    smsGw,
		Generator:  &fakeGenerator{code: "042817"},
		Config:     cfg,
		Clock:      clk,
		Validator:  vld,
		Instrument: instrument.NewNoop(),
	})

	return &fixture{uc: uc, store: mem, clock: clk, sms: smsGw}
}

func errCode(t *testing.T, err error) goerror.Code {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	return gerr.Code()
}

func errField(t *testing.T, err error, key string) string {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	return gerr.Fields()[key]
}

func TestIssue_InvalidPhone(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.uc.Issue(context.Background(), IssueInput{Phone: "12345"})

	if code := errCode(t, err); code != goerror.CodeInvalidInput {
		t.Fatalf("code = %v, want CodeInvalidInput", code)
	}
	if len(f.sms.sends) != 0 {
		t.Fatal("no dispatch expected for invalid phone")
	}
}

func TestIssue_DispatchesCode(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	out, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"})

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if out.ExpiresIn != 60 {
		t.Fatalf("expiresIn = %d, want 60", out.ExpiresIn)
	}
	if out.Code != "" {
		t.Fatal("code must not leak when exposure is disabled")
	}
	if len(f.sms.sends) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(f.sms.sends))
	}
	if f.sms.sends[0].to != "919876543210" {
		t.Fatalf("dispatched to %q, want normalized key", f.sms.sends[0].to)
	}
	if f.sms.sends[0].body != "Your verification code is 042817" {
		t.Fatalf("unexpected body %q", f.sms.sends[0].body)
	}

	session, err := f.store.Get(ctx, "919876543210")
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if session == nil || session.Code != "042817" || session.Attempts != 0 {
		t.Fatalf("unexpected stored session %+v", session)
	}
}

func TestIssue_ExposeCode(t *testing.T) {
	f := newFixture(t, `
modules:
  verification:
    ttl_seconds: 60
    max_attempts: 3
    expose_code: true
`)

	out, err := f.uc.Issue(context.Background(), IssueInput{Phone: "+6281234567890"})

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if out.Code != "042817" {
		t.Fatalf("code = %q, want exposed code", out.Code)
	}
}

func TestIssue_ThrottleWhileActive(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	f.clock.Advance(20 * time.Second)
	_, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"})

	if code := errCode(t, err); code != goerror.CodeTooManyRequest {
		t.Fatalf("code = %v, want CodeTooManyRequest", code)
	}
	got := errField(t, err, "retry_after_seconds")
	if got != "40" && got != "39" {
		t.Fatalf("retry_after_seconds = %q, want ~40", got)
	}
	if len(f.sms.sends) != 1 {
		t.Fatalf("throttled issue must not dispatch, got %d sends", len(f.sms.sends))
	}
}

func TestIssue_ReissueAfterExpiry(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	f.clock.Advance(61 * time.Second)
	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("reissue after expiry failed: %v", err)
	}
	if len(f.sms.sends) != 2 {
		t.Fatalf("expected two dispatches, got %d", len(f.sms.sends))
	}
}

func TestIssue_RollbackOnDispatchFailure(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.sms.err = errors.New("all gateways down")

	_, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"})

	if code := errCode(t, err); code != goerror.CodeUnavailable {
		t.Fatalf("code = %v, want CodeUnavailable", code)
	}
	session, gerr := f.store.Get(ctx, "919876543210")
	if gerr != nil {
		t.Fatalf("store get: %v", gerr)
	}
	if session != nil {
		t.Fatalf("session must be rolled back after total dispatch failure, got %+v", session)
	}

	// A clean retry succeeds once delivery recovers.
	f.sms.err = nil
	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("retry after rollback failed: %v", err)
	}
}

func TestVerify_NoActiveSession(t *testing.T) {
	f := newFixture(t, "")

	err := f.uc.Verify(context.Background(), VerifyInput{Phone: "+91 98765 43210", Code: "042817"})

	if code := errCode(t, err); code != goerror.CodeNotFound {
		t.Fatalf("code = %v, want CodeNotFound", code)
	}
}

func TestVerify_SingleUse(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if err := f.uc.Verify(ctx, VerifyInput{Phone: "9198765432 10", Code: "042817"}); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	err := f.uc.Verify(ctx, VerifyInput{Phone: "9198765432 10", Code: "042817"})
	if code := errCode(t, err); code != goerror.CodeNotFound {
		t.Fatalf("second verify code = %v, want CodeNotFound", code)
	}
}

func TestVerify_AttemptCeiling(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	wrong := VerifyInput{Phone: "919876543210", Code: "000000"}

	err := f.uc.Verify(ctx, wrong)
	if code := errCode(t, err); code != goerror.CodeUnauthorized {
		t.Fatalf("first wrong attempt code = %v, want CodeUnauthorized", code)
	}
	if got := errField(t, err, "attempts_remaining"); got != "2" {
		t.Fatalf("attempts_remaining = %q, want 2", got)
	}

	err = f.uc.Verify(ctx, wrong)
	if got := errField(t, err, "attempts_remaining"); got != "1" {
		t.Fatalf("attempts_remaining = %q, want 1", got)
	}

	err = f.uc.Verify(ctx, wrong)
	if code := errCode(t, err); code != goerror.CodeTooManyRequest {
		t.Fatalf("third wrong attempt code = %v, want CodeTooManyRequest", code)
	}

	err = f.uc.Verify(ctx, wrong)
	if code := errCode(t, err); code != goerror.CodeNotFound {
		t.Fatalf("fourth attempt code = %v, want CodeNotFound", code)
	}
}

func TestVerify_CorrectCodeAfterExhaustionIsRejected(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	wrong := VerifyInput{Phone: "919876543210", Code: "000000"}
	for range 3 {
		_ = f.uc.Verify(ctx, wrong)
	}

	err := f.uc.Verify(ctx, VerifyInput{Phone: "919876543210", Code: "042817"})
	if code := errCode(t, err); code != goerror.CodeNotFound {
		t.Fatalf("code = %v, want CodeNotFound after exhaustion", code)
	}
}

func TestVerify_ExpiredSession(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	f.clock.Advance(61 * time.Second)
	err := f.uc.Verify(ctx, VerifyInput{Phone: "919876543210", Code: "042817"})

	if code := errCode(t, err); code != goerror.CodeNotFound {
		t.Fatalf("code = %v, want CodeNotFound for expired session", code)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	out, err := f.uc.Status(ctx, StatusInput{Phone: "+91 98765 43210"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if out.Active {
		t.Fatal("expected inactive before issue")
	}

	if _, err := f.uc.Issue(ctx, IssueInput{Phone: "+91 98765 43210"}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	f.clock.Advance(15 * time.Second)
	out, err = f.uc.Status(ctx, StatusInput{Phone: "919876543210"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !out.Active {
		t.Fatal("expected active session")
	}
	if out.ExpiresIn < 44 || out.ExpiresIn > 46 {
		t.Fatalf("expiresIn = %d, want ~45", out.ExpiresIn)
	}

	f.clock.Advance(50 * time.Second)
	out, err = f.uc.Status(ctx, StatusInput{Phone: "919876543210"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if out.Active || out.ExpiresIn != 0 {
		t.Fatalf("expected inactive after expiry, got %+v", out)
	}
}
