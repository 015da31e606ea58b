package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/nammaspot/parkgo/internal/repository"
)

// SessionStore keeps short-lived workflow state as JSON. Every Save
// refreshes the TTL.
type SessionStore[T any] struct {
	cache *Cache
	key   func(id string) string
	ttl   time.Duration
}

func NewSessionStore[T any](cache *Cache, key func(id string) string, ttl time.Duration) *SessionStore[T] {
	return &SessionStore[T]{
		cache: cache,
		key:   key,
		ttl:   ttl,
	}
}

func (s *SessionStore[T]) Load(ctx context.Context, id string) (T, error) {
	const op = "redisrepo.SessionStore.Load"

	var v T
	ok, err := s.cache.Load(ctx, s.key(id), &v)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return v, nil
}

func (s *SessionStore[T]) Save(ctx context.Context, id string, v T) error {
	const op = "redisrepo.SessionStore.Save"

	if err := s.cache.Store(ctx, s.key(id), v, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *SessionStore[T]) Delete(ctx context.Context, id string) error {
	const op = "redisrepo.SessionStore.Delete"

	if err := s.cache.Drop(ctx, s.key(id)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
