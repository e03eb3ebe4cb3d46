package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sweeperLeaderKey     = "sweeper:leader"
	webhookEventKeyspace = "webhook:event:"
)

// RedisLeaderLock elects one sweeper per interval with SET NX. The key simply
// expires; nobody releases it.
type RedisLeaderLock struct {
	client   redis.UniversalClient
	instance string
}

func NewRedisLeaderLock(client redis.UniversalClient, instance string) *RedisLeaderLock {
	return &RedisLeaderLock{
		client:   client,
		instance: instance,
	}
}

func (l *RedisLeaderLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, sweeperLeaderKey, l.instance, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweeper lead: %w", err)
	}

	return ok, nil
}

// RedisEventDeduper remembers provider event ids so a redelivered webhook is
// acknowledged without touching the store again.
type RedisEventDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisEventDeduper(client redis.UniversalClient, ttl time.Duration) *RedisEventDeduper {
	return &RedisEventDeduper{
		client: client,
		ttl:    ttl,
	}
}

// FirstDelivery reports whether eventID is seen for the first time.
func (d *RedisEventDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, webhookEventKeyspace+eventID, 1, d.ttl).Result()
}

// Forget drops an event id so a failed delivery can be processed again.
func (d *RedisEventDeduper) Forget(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, webhookEventKeyspace+eventID).Err()
}
