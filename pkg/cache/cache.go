// Package cache provides the byte-level cache the registry clients sit on,
// with backends for local files, bounded memory, Redis, and MongoDB.
//
// Caches store opaque bytes under string keys with per-entry TTLs. They are
// used for HTTP responses and parsed descriptors — never for collected
// graphs, which are recomputed per request.
//
// All implementations are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque bytes under string keys.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss; expired
	// entries count as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl stores the entry without
	// expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Scoped wraps a cache with a key prefix, isolating namespaces that share
// one backend (e.g. "maven:" HTTP responses vs. parsed descriptors).
type Scoped struct {
	inner  Cache
	prefix string
}

// NewScoped creates a prefix-scoped view of the inner cache.
func NewScoped(inner Cache, prefix string) *Scoped {
	return &Scoped{inner: inner, prefix: prefix}
}

// Get retrieves a value under the scoped key.
func (c *Scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set stores a value under the scoped key.
func (c *Scoped) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes a value under the scoped key.
func (c *Scoped) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close is a no-op: the inner cache may be shared, so closing is the
// owner's responsibility.
func (c *Scoped) Close() error { return nil }

// Ensure Scoped implements Cache.
var _ Cache = (*Scoped)(nil)
