package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when the caller still holds it, so an
// expired-and-reacquired lease is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease coordinates workers across processes with SET NX PX.
type RedisLease struct {
	client *redis.Client
	prefix string
}

func NewRedisLease(url string) (*RedisLease, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &RedisLease{
		client: redis.NewClient(opts),
		prefix: "cadence:lease:",
	}, nil
}

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}

	if !acquired {
		return "", false, nil
	}

	return token, true, nil
}

func (l *RedisLease) Release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}

	return nil
}

func (l *RedisLease) Close() error {
	return l.client.Close()
}
