package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okvist/quarry/pkg/observability"
)

// DefaultMemoryEntries bounds the in-memory cache when no size is given.
const DefaultMemoryEntries = 4096

// MemoryCache is a bounded in-memory LRU cache. It suits descriptor reads
// inside one process; entries evict least-recently-used once the bound is
// reached.
type MemoryCache struct {
	lru *lru.Cache[string, memoryEntry]
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache creates an LRU cache holding at most maxEntries values.
// A non-positive maxEntries uses [DefaultMemoryEntries].
func NewMemoryCache(maxEntries int) (Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	l, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l}, nil
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.lru.Get(key)
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "memory")
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		observability.Cache().OnCacheMiss(ctx, "memory")
		return nil, false, nil
	}
	observability.Cache().OnCacheHit(ctx, "memory")
	return entry.data, true, nil
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	observability.Cache().OnCacheSet(ctx, "memory", len(data))
	c.lru.Add(key, entry)
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Close drops all entries.
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

// Ensure MemoryCache implements Cache.
var _ Cache = (*MemoryCache)(nil)
