// Package cache provides the evaluation result cache for Flagbearer.
// It abstracts the interaction with the backing store (Redis or in-process
// memory), handling key namespacing, TTL, and prefix-scoped invalidation.
package cache

import "context"

// Service defines the interface for result cache operations.
// Implementations apply a fixed TTL (configured at construction) to every
// entry, bounding the staleness window of cached results.
type Service interface {
	// GetResult looks up a cached evaluation result.
	// found is false on a miss or after the entry's TTL has elapsed.
	GetResult(ctx context.Context, key string) (value bool, found bool, err error)

	// SetResult stores an evaluation result under the fingerprint key.
	// Concurrent writers for the same key race harmlessly: values are
	// idempotent for a given override state, so last write wins.
	SetResult(ctx context.Context, key string, value bool) error

	// DeletePrefix removes every entry whose key starts with prefix.
	// Invalidation is flag-scoped, not identifier-scoped: a change to one
	// scope's override can alter the correct answer for entries keyed by
	// other context combinations that fell through to the changed tier.
	DeletePrefix(ctx context.Context, prefix string) error

	// HealthCheck verifies connectivity to the backing store.
	HealthCheck(ctx context.Context) error

	// Close releases the backing store's resources.
	Close() error
}
