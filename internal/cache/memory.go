package cache

import (
	"fmt"
	"sync"
	"time"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expiration)
}

// MemoryCache implements a simple in-memory cache
type MemoryCache struct {
	items map[string]*CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*CacheEntry),
		mutex: sync.RWMutex{},
		ttl:   ttl,
	}

	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired() {
		return nil, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheEntry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute * 5)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, entry := range c.items {
			if entry.IsExpired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// PageCache caches rendered chart pages keyed by chart ref and the
// transposition applied to it. Editing a chart file invalidates every
// rendering of that ref via InvalidateRef.
type PageCache struct {
	*MemoryCache
}

// NewPageCache creates a cache for rendered pages. Rendering is cheap but
// charts are read on every page turn during a show, so a short TTL keeps
// navigation snappy without holding stale edits for long.
func NewPageCache() *PageCache {
	return &PageCache{
		MemoryCache: NewMemoryCache(15 * time.Minute),
	}
}

func pageKey(ref string, steps int) string {
	return fmt.Sprintf("%s@%d", ref, steps)
}

// SetPage caches the display text rendered for a chart at a transposition.
func (pc *PageCache) SetPage(ref string, steps int, text string) {
	pc.Set(pageKey(ref, steps), text)
}

// GetPage retrieves a cached rendering.
func (pc *PageCache) GetPage(ref string, steps int) (string, bool) {
	value, exists := pc.Get(pageKey(ref, steps))
	if !exists {
		return "", false
	}

	text, ok := value.(string)
	return text, ok
}

// InvalidateRef drops every cached rendering of one chart ref.
func (pc *PageCache) InvalidateRef(ref string) {
	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	prefix := ref + "@"
	for key := range pc.items {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(pc.items, key)
		}
	}
}
