package cache

import (
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/utils"
	gocache "github.com/patrickmn/go-cache"
	metrics "github.com/rcrowley/go-metrics"
)

// Cache is an in-process TTL map. Entries expire individually; an expired
// entry is invisible to readers even before the janitor removes it.
// Construct one per process and pass it to every consumer.
type Cache struct {
	store *gocache.Cache
	hits  metrics.Counter
	miss  metrics.Counter
}

// New creates a Cache. defaultExpiration applies when Set is called with
// ttl <= 0.
func New(defaultExpiration time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultExpiration, time.Minute),
		hits:  utils.NewCounter("cache.hits"),
		miss:  utils.NewCounter("cache.miss"),
	}
}

// Set stores value under key for ttl, replacing any existing entry.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, value, ttl)
}

// Get returns the value for key while it is fresh. The second return is
// false once the entry expired or was never stored.
func (c *Cache) Get(key string) (interface{}, bool) {
	value, found := c.store.Get(key)
	if found {
		c.hits.Inc(1)
		return value, true
	}
	c.miss.Inc(1)
	return nil, false
}

// Clear removes the named entries, or every entry when called with no
// arguments.
func (c *Cache) Clear(keys ...string) {
	if len(keys) == 0 {
		c.store.Flush()
		return
	}
	for _, key := range keys {
		c.store.Delete(key)
	}
}

// ItemCount reports how many entries are physically stored, expired ones
// included until the janitor runs.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
