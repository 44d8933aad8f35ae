// TTLCache is a small in-memory K->V map with absolute per-entry expiry,
// used by the response-caching middleware in contrib/cache. Put
// and Remove are exclusive (guarded by a mutex) so the cache can be shared
// safely across connections even though each connection otherwise touches
// no shared mutable state.

package hannahttp

import (
	"sync"
	"time"
)

type ttlEntry[V any] struct {
	value V
	timer scheduled
}

// TTLCache maps keys to values that expire and remove themselves after a
// fixed duration.
type TTLCache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*ttlEntry[V]
	scheduler *Scheduler
}

// NewTTLCache returns an empty cache driven by scheduler for its
// expirations.
func NewTTLCache[K comparable, V any](scheduler *Scheduler) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		entries:   make(map[K]*ttlEntry[V]),
		scheduler: scheduler,
	}
}

// Put stores value under key with the given time-to-live, replacing and
// canceling any prior entry's timer for that key.
func (c *TTLCache[K, V]) Put(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		old.timer.Cancel()
	}
	entry := &ttlEntry[V]{value: value}
	entry.timer = c.scheduler.After(ttl, func() {
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	})
	c.entries[key] = entry
}

// Get returns the value stored under key, if present and not yet expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Remove evicts key immediately, canceling its expiry timer.
func (c *TTLCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok {
		entry.timer.Cancel()
		delete(c.entries, key)
	}
}

// Len returns the number of live entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
