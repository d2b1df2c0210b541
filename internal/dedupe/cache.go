// ABOUTME: Thread-safe TTL cache mapping idempotency keys to the session uid they created.
// ABOUTME: Used by the HTTP API so retried creates do not insert duplicate session rows.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// cacheEntry stores the uid, timestamp and list element for a cached key.
type cacheEntry struct {
	uid       string
	timestamp time.Time
	element   *list.Element
}

// Cache is a TTL-based, size-limited map from idempotency key to session uid.
// Uses a doubly-linked list to maintain insertion order for O(1) eviction.
type Cache struct {
	mu      sync.Mutex
	seen    map[string]*cacheEntry
	order   *list.List // keys in insertion order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given TTL and maximum number of keys.
// A background goroutine periodically removes expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Claim atomically records uid for key unless key already maps to a live uid.
// It returns the uid that owns the key and whether that uid came from an
// earlier claim. Concurrent claims for one key all get the first uid.
func (c *Cache) Claim(key, uid string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[key]; ok && time.Since(entry.timestamp) < c.ttl {
		return entry.uid, true
	}

	c.putLocked(key, uid)
	return uid, false
}

// Forget drops key, so a create that failed can be retried with the same key.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[key]; ok {
		c.order.Remove(entry.element)
		delete(c.seen, key)
	}
}

// putLocked records key. Must be called with mu held.
func (c *Cache) putLocked(key, uid string) {
	now := time.Now()

	if entry, exists := c.seen[key]; exists {
		entry.uid = uid
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &cacheEntry{
		uid:       uid,
		timestamp: now,
		element:   elem,
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired entries.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.seen {
		if now.Sub(entry.timestamp) >= c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
