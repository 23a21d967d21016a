package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisCache satisfies the Service contract.
var _ Service = (*RedisCache)(nil)

// scanBatchSize is the COUNT hint for SCAN during prefix invalidation.
const scanBatchSize = 100

// RedisCache implements Service using the go-redis library.
// Results are stored as "1"/"0" strings with a per-entry TTL, so expiry is
// handled server-side by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an initialized Redis client with result-cache semantics.
// ttl is applied to every entry written through SetResult.
func NewRedisCache(client *redis.Client, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// GetResult fetches a cached boolean. A redis.Nil reply is a plain miss.
func (c *RedisCache) GetResult(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get key %q from cache: %w", key, err)
	}

	return val == "1", true, nil
}

// SetResult writes a boolean with the configured TTL.
func (c *RedisCache) SetResult(ctx context.Context, key string, value bool) error {
	payload := "0"
	if value {
		payload = "1"
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %q in cache: %w", key, err)
	}

	return nil
}

// DeletePrefix sweeps every key under the prefix using SCAN, which avoids
// blocking Redis the way KEYS would on a large keyspace.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", scanBatchSize).Iterator()

	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())

		if len(batch) >= scanBatchSize {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys with prefix %q: %w", prefix, err)
	}

	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the connection to the Redis server.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
