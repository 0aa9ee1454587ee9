package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown, expired or revoked sessions
var ErrSessionNotFound = errors.New("session not found")

// Session is a logged-in user. Its id is carried as the token id of the
// user's JWT.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore persists sessions with a time-to-live
type SessionStore interface {
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process memory. Expired sessions are
// dropped on read and by a periodic sweep.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates a store that sweeps expired sessions every
// interval. A non-positive interval disables the sweep.
func NewMemorySessionStore(interval time.Duration) *MemorySessionStore {
	m := &MemorySessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if interval > 0 {
		go m.sweepLoop(interval)
	}
	return m
}

func (m *MemorySessionStore) Put(_ context.Context, s *Session, ttl time.Duration) error {
	cp := *s
	cp.ExpiresAt = m.now().Add(ttl)
	m.mu.Lock()
	m.sessions[s.ID] = &cp
	m.mu.Unlock()
	s.ExpiresAt = cp.ExpiresAt
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep removes expired sessions and returns how many were removed
func (m *MemorySessionStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweep goroutine
func (m *MemorySessionStore) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *MemorySessionStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
