package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore fronts a durable store with an expirable LRU so back-to-back
// turns from the same user skip the disk read. Save writes through; the
// durable record stays authoritative.
type CachedStore struct {
	inner Store
	cache *expirable.LRU[string, *Session]
}

func NewCachedStore(inner Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

func (cs *CachedStore) Load(ctx context.Context, userID string) (*Session, error) {
	if s, ok := cs.cache.Get(userID); ok {
		return s.Clone(), nil
	}
	s, err := cs.inner.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cs.cache.Add(userID, s.Clone())
	return s, nil
}

func (cs *CachedStore) Save(ctx context.Context, s *Session) error {
	if err := cs.inner.Save(ctx, s); err != nil {
		// Drop the cached copy so the next Load sees the durable truth.
		cs.cache.Remove(s.UserID)
		return err
	}
	cs.cache.Add(s.UserID, s.Clone())
	return nil
}

func (cs *CachedStore) Reset(ctx context.Context, userID string) error {
	cs.cache.Remove(userID)
	return cs.inner.Reset(ctx, userID)
}
