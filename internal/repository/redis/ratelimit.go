package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter allows limit hits per window for each key suffix.
type FixedWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
}

func NewFixedWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
	}
}

// Allow records a hit for suffix. When the limit is exceeded it reports how
// long until the window resets. A non-positive limit disables limiting.
func (l *FixedWindowLimiter) Allow(ctx context.Context, suffix string) (bool, time.Duration, error) {
	if l.limit <= 0 {
		return true, 0, nil
	}

	key := KeyRateLimit(l.scope, suffix)

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	if n == 1 {
		if err := l.rdb.PExpire(ctx, key, l.window).Err(); err != nil {
			return false, 0, err
		}
	}

	if n > int64(l.limit) {
		retry, err := l.rdb.PTTL(ctx, key).Result()
		if err != nil || retry < 0 {
			retry = l.window
		}
		return false, retry, nil
	}

	return true, 0, nil
}
