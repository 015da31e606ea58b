package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores JSON documents: workflow sessions and rendered ticket views.
type Cache struct {
	rdb   *redis.Client
	group singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// Load decodes the document at key into dst. It reports false when the key
// is missing or expired.
func (c *Cache) Load(ctx context.Context, key string, dst any) (bool, error) {
	const op = "redisrepo.Cache.Load"

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%s: decode %s: %w", op, key, err)
	}

	return true, nil
}

// Store writes v at key and resets its expiry.
func (c *Cache) Store(ctx context.Context, key string, v any, ttl time.Duration) error {
	const op = "redisrepo.Cache.Store"

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", op, key, err)
	}

	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Cache) Drop(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// Remember returns the cached document at key, calling load on a miss.
// Concurrent misses for the same key share one load. A failed write-back is
// ignored; the next reader loads again.
func Remember[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var v T
	if ok, err := c.Load(ctx, key, &v); err != nil || ok {
		return v, err
	}

	shared, err, _ := c.group.Do(key, func() (any, error) {
		var fresh T
		if ok, err := c.Load(ctx, key, &fresh); err != nil || ok {
			return fresh, err
		}

		fresh, err := load(ctx)
		if err != nil {
			return nil, err
		}

		_ = c.Store(ctx, key, fresh, ttl)
		return fresh, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return shared.(T), nil
}
