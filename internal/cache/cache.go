// Package cache provides a small TTL response cache used to shield the
// time series backend from repeated render requests.
package cache

// This in-memory cache is used for simplicity purpose. It can be replaced with Redis.
// golang-lru automatically evicts the least recently accessed items, ensuring efficient memory usage.

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// TTLCache memoizes byte payloads per key for a fixed TTL.
type TTLCache struct {
	ttl   time.Duration
	lru   *lru.Cache
	now   func() time.Time
	group singleflight.Group
}

// New creates a cache holding up to size entries, each valid for ttl.
// now may be nil, in which case the wall clock is used; tests inject a
// deterministic clock here.
func New(size int, ttl time.Duration, now func() time.Time) (*TTLCache, error) {
	backing, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &TTLCache{ttl: ttl, lru: backing, now: now}, nil
}

// Get returns the cached payload for key, if present and unexpired.
func (c *TTLCache) Get(key string) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.payload, true
}

// Put stores payload under key for the cache's TTL.
func (c *TTLCache) Put(key string, payload []byte) {
	c.lru.Add(key, entry{payload: payload, expiresAt: c.now().Add(c.ttl)})
}

// GetOrFill returns the cached payload for key, computing and storing
// it via fill on a miss. Concurrent callers for the same key share a
// single fill, so an expired entry is repopulated exactly once and no
// caller ever observes a partial payload. Fill errors are returned to
// every waiting caller and nothing is cached.
func (c *TTLCache) GetOrFill(key string, fill func() ([]byte, error)) ([]byte, error) {
	if payload, ok := c.Get(key); ok {
		return payload, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a concurrent caller may have filled it while we waited
		if payload, ok := c.Get(key); ok {
			return payload, nil
		}
		payload, err := fill()
		if err != nil {
			return nil, err
		}
		c.Put(key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
