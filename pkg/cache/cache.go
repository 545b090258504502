// Package cache memoizes final answers keyed by the user message.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1000

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Len       int   `json:"len"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// ResponseCache is a bounded least-recently-used map from message to answer.
// It is safe for concurrent use.
type ResponseCache struct {
	entries  *lru.Cache[string, string]
	capacity int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache holding at most capacity entries.
func New(capacity int) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, string](capacity)
	return &ResponseCache{entries: entries, capacity: capacity}
}

// Get returns the cached answer and marks it most recently used. A miss
// changes nothing.
func (c *ResponseCache) Get(key string) (string, bool) {
	v, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores value under key as the most recently used entry. When the cache
// is full and key is new, the least recently used entry is dropped.
func (c *ResponseCache) Put(key, value string) {
	if c.entries.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Clear drops every entry. Counters are kept.
func (c *ResponseCache) Clear() {
	c.entries.Purge()
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	return c.entries.Len()
}

// Capacity returns the maximum number of entries.
func (c *ResponseCache) Capacity() int {
	return c.capacity
}

func (c *ResponseCache) Stats() Stats {
	return Stats{
		Len:       c.entries.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
