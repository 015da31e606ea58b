package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

var ErrInProgress = errors.New("request already in progress")

// IdempotencyStore remembers the outcome of a request so that repeats
// return the first result instead of running again.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Begin claims key. It returns the stored result when the request already
// completed, and ErrInProgress when another caller holds the claim.
func (s *IdempotencyStore) Begin(ctx context.Context, key string, lockTTL time.Duration) ([]byte, error) {
	ok, err := s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		// claim expired between SETNX and GET; try once more
		ok, err = s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(v, idemResult) {
		return []byte(strings.TrimPrefix(v, idemResult)), nil
	}

	return nil, ErrInProgress
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, payload []byte) error {
	return s.rdb.Set(ctx, key, idemResult+string(payload), s.ttl).Err()
}

// Abort drops the claim so the request can be retried from scratch.
func (s *IdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
