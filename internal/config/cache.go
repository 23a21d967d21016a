package config

import (
	"fmt"
	"time"
)

// Cache backend identifiers.
const (
	// CacheBackendRedis stores evaluation results in Redis (shared across replicas).
	CacheBackendRedis = "redis"
	// CacheBackendMemory stores evaluation results in-process (single node only).
	CacheBackendMemory = "memory"
)

// CacheConfig configures the evaluation result cache.
type CacheConfig struct {
	// Backend selects where cached evaluation results live.
	Backend string `envconfig:"BACKEND" default:"redis" validate:"oneof=redis memory"`

	// TTL bounds the staleness window of a cached evaluation result.
	TTL time.Duration `envconfig:"TTL" default:"5m"`

	// MemoryCapacity is the hard item cap for the in-memory backend.
	MemoryCapacity int `envconfig:"MEMORY_CAPACITY" default:"100000" validate:"min=1"`
}

// Validate checks if the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.TTL)
	}

	return nil
}
