package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	platformredis "freshkeep/internal/platform/redis"
)

const lockKey = "freshkeep:sweep:lock"

// RedisLock implements Lock with SET NX plus a TTL. The token guards against
// releasing a lock another replica acquired after ours expired.
type RedisLock struct {
	client *platformredis.Client
	token  string
}

func NewRedisLock(client *platformredis.Client) *RedisLock {
	return &RedisLock{client: client, token: uuid.New().String()}
}

func (l *RedisLock) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKey, l.token, ttl).Result()
}

func (l *RedisLock) Release(ctx context.Context) error {
	current, err := l.client.Get(ctx, lockKey).Result()
	if err != nil || current != l.token {
		// Expired or taken over; nothing of ours to release.
		return nil
	}
	return l.client.Del(ctx, lockKey).Err()
}
