package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "doccenter:idem:"

// RedisGuard claims keys with SET NX PX so every process sharing the Redis
// instance sees the same claims.
type RedisGuard struct {
	client redis.UniversalClient
}

func NewRedisGuard(client redis.UniversalClient) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) Claim(ctx context.Context, scope string, window time.Duration) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+scope, "1", window).Result()
}

func (g *RedisGuard) Forget(ctx context.Context, scope string) error {
	return g.client.Del(ctx, keyPrefix+scope).Err()
}
