package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer fetches the value for a key when the cache has no fresh entry.
type Producer func(ctx context.Context) (interface{}, error)

// Memoizer collapses repeated calls for the same key into cached reads.
// Concurrent misses on one key share a single producer invocation, so an
// upstream is hit at most once per key per TTL window.
type Memoizer struct {
	cache  *Cache
	flight singleflight.Group
}

func NewMemoizer(c *Cache) *Memoizer {
	return &Memoizer{cache: c}
}

// Do returns the cached value for key when fresh, otherwise runs producer
// and stores a successful result for ttl. A failed producer stores
// nothing; the error reaches every caller that waited on the call.
func (m *Memoizer) Do(ctx context.Context, key string, ttl time.Duration, producer Producer) (interface{}, error) {
	if value, found := m.cache.Get(key); found {
		return value, nil
	}

	value, err, _ := m.flight.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while this
		// one waited on the flight group.
		if value, found := m.cache.Get(key); found {
			return value, nil
		}
		value, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		m.cache.Set(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}
