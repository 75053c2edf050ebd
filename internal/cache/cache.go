// Package cache provides a typed wrapper around patrickmn/go-cache.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a string-keyed, TTL-bounded cache of T values. It is safe for
// concurrent use; expired entries are purged by go-cache's janitor.
type Cache[T any] struct {
	c *gocache.Cache
}

// New creates a cache whose entries expire after ttl and are swept every
// cleanupInterval. A zero ttl means entries never expire.
func New[T any](ttl, cleanupInterval time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Cache[T]{
		c: gocache.New(ttl, cleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.c.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

// Set stores a value in the cache
func (c *Cache[T]) Set(key string, data T) {
	if c == nil {
		return
	}
	c.c.Set(key, data, gocache.DefaultExpiration)
}

// Flush drops every entry.
func (c *Cache[T]) Flush() {
	if c == nil {
		return
	}
	c.c.Flush()
}

// Size returns the number of items currently held, including expired ones
// not yet swept.
func (c *Cache[T]) Size() int {
	if c == nil {
		return 0
	}
	return c.c.ItemCount()
}
