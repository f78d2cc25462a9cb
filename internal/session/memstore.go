package session

import (
	"context"
	"sync"
	"time"
)

// MemStore is the in-process Store used by tests and the console client.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{sessions: make(map[string]*Session), ttl: ttl}
}

func (ms *MemStore) Load(_ context.Context, userID string) (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s, ok := ms.sessions[userID]
	if !ok || expired(s, ms.ttl) {
		return New(userID), nil
	}
	return s.Clone(), nil
}

func (ms *MemStore) Save(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s.UpdatedAt = time.Now()
	ms.sessions[s.UserID] = s.Clone()
	return nil
}

func (ms *MemStore) Reset(_ context.Context, userID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, userID)
	return nil
}
