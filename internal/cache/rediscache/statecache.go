package rediscache

import (
	"context"
	"time"

	"github.com/BearBump/trackrecon/internal/metrics"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// StateCache держит сериализованное текущее состояние по AWB. Ключи без TTL
// не пишутся: устаревшее состояние не должно жить вечно.
type StateCache struct {
	c *redis.Client
}

func NewStateCache(addr string) *StateCache {
	return &StateCache{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Get reports a miss as ok=false with a nil error.
func (s *StateCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.StateCacheTotal.WithLabelValues(metrics.CacheMiss).Inc()
		return nil, false, nil
	case err != nil:
		metrics.StateCacheTotal.WithLabelValues(metrics.CacheError).Inc()
		return nil, false, errors.Wrapf(err, "state cache get %s", key)
	}
	metrics.StateCacheTotal.WithLabelValues(metrics.CacheHit).Inc()
	return b, true, nil
}

func (s *StateCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return errors.Wrapf(s.c.Set(ctx, key, value, ttl).Err(), "state cache set %s", key)
}

// Del uses UNLINK so invalidation after a write never blocks on large values.
func (s *StateCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(s.c.Unlink(ctx, keys...).Err(), "state cache unlink")
}

func (s *StateCache) Ping(ctx context.Context) error {
	return errors.Wrap(s.c.Ping(ctx).Err(), "state cache ping")
}

func (s *StateCache) Close() error {
	return s.c.Close()
}
