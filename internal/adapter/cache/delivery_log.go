package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	deliveryKeyPrefix  = "webhook:delivery:"
	defaultDeliveryTTL = 24 * time.Hour
)

// DeliveryLog records webhook deliveries in Redis so redelivered bodies are skipped
// for the lifetime of the key.
type DeliveryLog struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeliveryLog(rdb *redis.Client, ttl time.Duration) *DeliveryLog {
	if ttl <= 0 {
		ttl = defaultDeliveryTTL
	}
	return &DeliveryLog{rdb: rdb, ttl: ttl}
}

// MarkSeen stores key and reports whether it was not present before.
func (l *DeliveryLog) MarkSeen(ctx context.Context, key string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, deliveryKeyPrefix+key, time.Now().UTC().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark delivery: %w", err)
	}
	return ok, nil
}

// Forget drops key so the next delivery with the same body is processed.
func (l *DeliveryLog) Forget(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, deliveryKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("forget delivery: %w", err)
	}
	return nil
}
