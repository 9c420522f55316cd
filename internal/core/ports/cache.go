package ports

import (
	"context"
	"time"
)

// Cache is the port interface for the correlation and anti-replay stores.
// Any backing store satisfying these four atomic operations is acceptable:
// an in-process bounded TTL map for single-node deployments, or a networked
// key-value store for clustered deployments.
//
// All mutating operations must be atomic with respect to other callers on
// the same key: a race on GetAndRemove must never let two callers redeem
// the same entry, and a race on PutIfAbsent must never let two callers both
// observe absence.
type Cache interface {
	// Get returns the value for key, with found=false if absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put stores value under key with the given time to live.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetAndRemove atomically returns and removes the value for key.
	GetAndRemove(ctx context.Context, key string) (value []byte, found bool, err error)

	// PutIfAbsent stores value under key only if the key is absent.
	// Returns true if the value was stored, false if the key was present.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (stored bool, err error)
}
