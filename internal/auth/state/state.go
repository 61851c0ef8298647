// Package state issues and redeems the single-use OAuth state parameter.
package state

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// DefaultTTL bounds how long a user may sit on the Google consent screen.
const DefaultTTL = 10 * time.Minute

var (
	// ErrUnknownState is returned for states that were never issued, already
	// consumed, or expired.
	ErrUnknownState = errors.New("unknown or expired oauth state")
	// ErrSessionMismatch is returned when a state comes back on a different
	// browser session than the one it was issued to. The state is spent.
	ErrSessionMismatch = errors.New("oauth state issued to another session")
)

// Store binds each state to the session that started the flow.
type Store interface {
	Issue(ctx context.Context, sessionID string) (string, error)
	Consume(ctx context.Context, state, sessionID string) error
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MemoryStore keeps states in process. It is enough for a single instance.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

type entry struct {
	sessionID string
	expires   time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (m *MemoryStore) Issue(ctx context.Context, sessionID string) (string, error) {
	s, err := newState()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[s] = entry{sessionID: sessionID, expires: now.Add(m.ttl)}
	return s, nil
}

func (m *MemoryStore) Consume(ctx context.Context, state, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[state]
	if !ok {
		return ErrUnknownState
	}
	delete(m.entries, state)
	if !m.now().Before(e.expires) {
		return ErrUnknownState
	}
	return checkSession(e.sessionID, sessionID)
}

func checkSession(issued, presented string) error {
	if subtle.ConstantTimeCompare([]byte(issued), []byte(presented)) != 1 {
		return ErrSessionMismatch
	}
	return nil
}
