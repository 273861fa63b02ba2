package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/verification/entity"
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

func newTestSession(clk *fakeClock, ttl time.Duration) entity.Session {
	now := clk.Now()
	return entity.Session{
		PhoneKey:  "919876543210",
		Code:      "042817",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemory_PutGet(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now()}
	s := NewMemory(clk)
	ctx := context.Background()
	session := newTestSession(clk, time.Minute)

	// Act
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := s.Get(ctx, session.PhoneKey)

	// Assert
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a live session")
	}
	if got.Code != "042817" || got.Attempts != 0 {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestMemory_Get_LazyExpiry(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now()}
	s := NewMemory(clk)
	ctx := context.Background()
	session := newTestSession(clk, time.Minute)
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Act
	clk.Advance(61 * time.Second)
	got, err := s.Get(ctx, session.PhoneKey)

	// Assert
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired session to be absent, got %+v", got)
	}
	if _, err := s.IncrementAttempts(ctx, session.PhoneKey); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry cleanup, got %v", err)
	}
}

func TestMemory_Put_Overwrites(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now()}
	s := NewMemory(clk)
	ctx := context.Background()
	first := newTestSession(clk, time.Minute)
	first.Attempts = 2
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Act
	second := newTestSession(clk, time.Minute)
	second.Code = "998877"
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Assert
	got, err := s.Get(ctx, second.PhoneKey)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Code != "998877" || got.Attempts != 0 {
		t.Fatalf("expected overwritten session, got %+v", got)
	}
}

func TestMemory_IncrementAttempts(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now()}
	s := NewMemory(clk)
	ctx := context.Background()
	session := newTestSession(clk, time.Minute)
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Act & Assert
	for want := 1; want <= 3; want++ {
		got, err := s.IncrementAttempts(ctx, session.PhoneKey)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if got != want {
			t.Fatalf("attempts = %d, want %d", got, want)
		}
	}

	if _, err := s.IncrementAttempts(ctx, "15550001111"); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown key, got %v", err)
	}
}

func TestMemory_IncrementAttempts_Concurrent(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now()}
	s := NewMemory(clk)
	ctx := context.Background()
	session := newTestSession(clk, time.Minute)
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Act
	const workers = 16
	results := make(chan int, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.IncrementAttempts(ctx, session.PhoneKey)
			if err != nil {
				t.Errorf("increment failed: %v", err)
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	// Assert: every goroutine observed a distinct counter value.
	seen := make(map[int]bool, workers)
	for n := range results {
		if seen[n] {
			t.Fatalf("duplicate attempt count %d", n)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d distinct counts, got %d", workers, len(seen))
	}
}

func TestMemory_Clear_Idempotent(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Now()}
	s := NewMemory(clk)
	ctx := context.Background()
	session := newTestSession(clk, time.Minute)
	if err := s.Put(ctx, session); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Act & Assert
	if err := s.Clear(ctx, session.PhoneKey); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if err := s.Clear(ctx, session.PhoneKey); err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
	got, err := s.Get(ctx, session.PhoneKey)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected cleared session to be absent, got %+v", got)
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	// Act
	_, err := New(Config{Driver: "cassandra"})

	// Assert
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
