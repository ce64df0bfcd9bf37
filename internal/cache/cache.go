package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is the caching capability the metrics client depends on. Query
// results are cached per query text so repeated validation runs within the
// TTL do not hit the external store again.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Flush()
}

// TTLCache implements Cache with per-entry time-to-live support.
type TTLCache struct {
	data *gocache.Cache
}

// New creates a TTL cache. Expired entries are swept at twice the default
// TTL.
func New(defaultTTL time.Duration) *TTLCache {
	return &TTLCache{
		data: gocache.New(defaultTTL, defaultTTL*2),
	}
}

// Get retrieves a value from the cache.
func (c *TTLCache) Get(key string) (any, bool) {
	return c.data.Get(key)
}

// Set stores a value with the specified TTL.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.data.Set(key, value, ttl)
}

// Flush removes all values.
func (c *TTLCache) Flush() {
	c.data.Flush()
}
