// Package cache provides the correlation and anti-replay stores: an
// in-process bounded TTL map for single-node deployments and a Redis
// adapter for clustered deployments.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/ports"
)

// DefaultMaxEntries bounds the memory cache when no explicit limit is set.
const DefaultMaxEntries = 10000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with per-entry TTL and a hard size
// bound. When the bound is reached, expired entries are purged first; if
// the cache is still full, the entry closest to expiry is evicted.
//
// All operations are atomic under a single mutex, which is enough for the
// correlation contract: two concurrent GetAndRemove calls on the same key
// cannot both redeem it.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	clock      ports.Clock
}

// NewMemoryCache creates a bounded in-process cache. A non-positive
// maxEntries selects DefaultMaxEntries. A nil clock selects the real
// clock.
func NewMemoryCache(maxEntries int, clock ports.Clock) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if clock == nil {
		clock = ports.RealClock{}
	}
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		clock:      clock,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.live(key)
	if !ok {
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.makeRoom(key)
	c.entries[key] = memoryEntry{value: value, expiresAt: c.clock.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) GetAndRemove(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.live(key)
	if !ok {
		return nil, false, nil
	}
	delete(c.entries, key)
	return entry.value, true, nil
}

func (c *MemoryCache) PutIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.makeRoom(key)
	c.entries[key] = memoryEntry{value: value, expiresAt: c.clock.Now().Add(ttl)}
	return true, nil
}

// Len returns the number of stored entries, including expired ones not
// yet purged.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// live returns the entry for key if present and unexpired; an expired
// entry is removed on the way.
func (c *MemoryCache) live(key string) (memoryEntry, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// makeRoom ensures capacity for one more entry under key. Caller holds
// the mutex.
func (c *MemoryCache) makeRoom(key string) {
	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	now := c.clock.Now()
	for k, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	var victim string
	var victimExpiry time.Time
	for k, entry := range c.entries {
		if victim == "" || entry.expiresAt.Before(victimExpiry) {
			victim = k
			victimExpiry = entry.expiresAt
		}
	}
	delete(c.entries, victim)
}

var _ ports.Cache = (*MemoryCache)(nil)
