package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "go-marketplace/pkg/errors"
)

// RedisSearchCache implements ports.SearchCache on Redis
type RedisSearchCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSearchCache creates a cache whose keys are namespaced by prefix
func NewRedisSearchCache(client *redis.Client, prefix string) *RedisSearchCache {
	return &RedisSearchCache{client: client, prefix: prefix}
}

// Get returns the cached value. A missing key is a miss, not an error.
func (c *RedisSearchCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewInternal("failed to read search cache", err)
	}
	return value, true, nil
}

// Set stores value for ttl
func (c *RedisSearchCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return apperrors.NewInternal("failed to write search cache", err)
	}
	return nil
}
