package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache is the TTL cache used for seller bazaar snapshots. The abstraction
// allows swapping between memory cache (single instance) and Redis
// (multi-instance deployments) without changing the finder.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// GetOrSet retrieves a value or computes and stores it if missing.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error
}

// CacheError is a sentinel error type for cache operations.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

// SnapshotKey returns the cache key for a seller's bazaar snapshot.
func SnapshotKey(playerID int64) string {
	return "bazaar:snapshot:" + strconv.FormatInt(playerID, 10)
}
