package cache

import (
	"context"
	"strings"
	"time"

	"github.com/maypok86/otter"
)

// Compile-time check that MemoryCache satisfies the Service contract.
var _ Service = (*MemoryCache)(nil)

// MemoryCache implements Service in-process using a high-performance,
// contention-free algorithm (S3-FIFO) provided by the 'otter' library.
// It is suitable for development and single-node deployments; cached results
// are not shared across replicas.
type MemoryCache struct {
	store otter.Cache[string, bool]
}

// NewMemoryCache initializes the in-memory cache with strict limits.
// capacity: max number of entries (hard cap to prevent OOM).
// ttl: time-to-live applied to every entry.
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	store, err := otter.MustBuilder[string, bool](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache{store: store}, nil
}

// GetResult retrieves a cached boolean. Expired entries read as misses.
func (c *MemoryCache) GetResult(_ context.Context, key string) (bool, bool, error) {
	value, found := c.store.Get(key)
	return value, found, nil
}

// SetResult adds or updates an entry. The TTL configured at construction
// is applied automatically.
func (c *MemoryCache) SetResult(_ context.Context, key string, value bool) error {
	c.store.Set(key, value)
	return nil
}

// DeletePrefix walks the cache and removes every key under the prefix.
// Collect-then-delete keeps the iteration callback free of mutation.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	var stale []string
	c.store.Range(func(key string, _ bool) bool {
		if strings.HasPrefix(key, prefix) {
			stale = append(stale, key)
		}
		return true
	})

	for _, key := range stale {
		c.store.Delete(key)
	}

	return nil
}

// HealthCheck always succeeds; the process owning the cache is the cache.
func (c *MemoryCache) HealthCheck(_ context.Context) error {
	return nil
}

// Close gracefully shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() error {
	c.store.Close()
	return nil
}
