package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// rotateScript — CAS: SET key next PX ttl, только если GET key == expected.
var rotateScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
end
return 0
`)

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:rot:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (RotationCache, error) {
	const op = "cache.NewRedisCache"

	if prefix == "" {
		prefix = "auth:rot:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(id uuid.UUID) string { return c.prefix + id.String() }

func (c *redisCache) Remember(ctx context.Context, accountID uuid.UUID, jti string, ttl time.Duration) error {
	const op = "cache.redis.Remember"

	if jti == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	if err := c.rdb.Set(ctx, c.key(accountID), jti, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *redisCache) Rotate(ctx context.Context, accountID uuid.UUID, expected, next string, ttl time.Duration) (bool, error) {
	const op = "cache.redis.Rotate"

	if expected == "" || next == "" {
		return false, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	n, err := rotateScript.Run(ctx, c.rdb, []string{c.key(accountID)}, expected, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n == 1, nil
}

func (c *redisCache) Close() error { return c.rdb.Close() }
