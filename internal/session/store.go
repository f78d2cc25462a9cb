package session

import (
	"context"
	"time"
)

// DefaultTTL is how long an idle session survives before Load hands back
// a fresh one. Matches the voice platform's habit of users walking away
// mid-conversation.
const DefaultTTL = 30 * time.Minute

// Store persists sessions across stateless turns.
//
// Load never fails on a missing or expired record; it synthesizes a fresh
// MENU-level session instead, mirroring how a retried or stale voice
// request should be treated as a first contact. Save overwrites atomically,
// last-write-wins: a single user produces at most one turn at a time, so
// the only guarantee needed is that a crash mid-save leaves either the old
// or the new record fully intact.
type Store interface {
	Load(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Reset(ctx context.Context, userID string) error
}

func expired(s *Session, ttl time.Duration) bool {
	return ttl > 0 && time.Since(s.UpdatedAt) > ttl
}
