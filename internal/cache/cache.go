package cache

import (
	"context"
	"time"
)

// BytesCache хранит сериализованное текущее состояние трекинга.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RateLimiter is a fixed-window counter shared by all worker processes.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Locker guards a section across processes. Release must only drop a lock the caller still owns.
type Locker interface {
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

func ShipmentKey(shipmentID string) string {
	return "trk:shipment:" + shipmentID
}

// CarrierWindowKey buckets requests to one carrier by minute.
func CarrierWindowKey(carrier string, now time.Time) string {
	return "rl:carrier:" + carrier + ":" + now.UTC().Format("200601021504")
}
