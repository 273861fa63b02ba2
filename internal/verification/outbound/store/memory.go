package store

import (
	"context"
	"sync"

	"github.com/widyatama/otpgate/internal/pkg/clock"
	"github.com/widyatama/otpgate/internal/pkg/goerror"
	"github.com/widyatama/otpgate/internal/verification/entity"
)

// Memory is an in-process Store backed by a mutex-guarded map. Suitable for
// single-instance deployments and tests; sessions do not survive a restart.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]entity.Session
	clock    clock.Clocker
}

// NewMemory constructs an empty in-memory store.
func NewMemory(clk clock.Clocker) *Memory {
	if clk == nil {
		clk = clock.New()
	}

	return &Memory{
		sessions: make(map[string]entity.Session),
		clock:    clk,
	}
}

func (m *Memory) Put(_ context.Context, session entity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.PhoneKey] = session
	return nil
}

func (m *Memory) Get(_ context.Context, phoneKey string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[phoneKey]
	if !ok {
		return nil, nil
	}
	if session.Expired(m.clock.Now()) {
		delete(m.sessions, phoneKey)
		return nil, nil
	}

	return &session, nil
}

func (m *Memory) IncrementAttempts(_ context.Context, phoneKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[phoneKey]
	if !ok {
		return 0, goerror.ErrNotFound
	}
	if session.Expired(m.clock.Now()) {
		delete(m.sessions, phoneKey)
		return 0, goerror.ErrNotFound
	}

	session.Attempts++
	m.sessions[phoneKey] = session
	return session.Attempts, nil
}

func (m *Memory) Clear(_ context.Context, phoneKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, phoneKey)
	return nil
}
