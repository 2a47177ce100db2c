package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Снимаем лок, только если он всё ещё наш.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Lock struct {
	c *redis.Client
}

func NewLock(addr string) *Lock {
	return &Lock{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// TryLock is SET NX with a TTL so a crashed holder cannot block syncs forever.
func (l *Lock) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.c.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.c, []string{key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "redis release lock")
	}
	return nil
}

func (l *Lock) Close() error {
	return l.c.Close()
}
