package api

import (
	"container/list"
	"sync"
)

// detailCache is a thread-safe LRU cache of post detail responses, keyed by
// server post id. The detail screen re-opens the same handful of posts
// repeatedly; a small bounded cache avoids refetching them.
type detailCache struct {
	capacity int
	cache    map[int64]*list.Element
	lru      *list.List
	mu       sync.RWMutex
}

// detailEntry represents a key-value pair in the cache
type detailEntry struct {
	key   int64
	value *PostDetail
}

// newDetailCache creates a new LRU cache with the specified capacity
func newDetailCache(capacity int) *detailCache {
	return &detailCache{
		capacity: capacity,
		cache:    make(map[int64]*list.Element),
		lru:      list.New(),
	}
}

// Get retrieves a cached detail, returning false when absent
func (c *detailCache) Get(key int64) (*PostDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.cache[key]; exists {
		// Move to front (most recently used)
		c.lru.MoveToFront(elem)
		return elem.Value.(*detailEntry).value, true
	}
	return nil, false
}

// Put adds or updates a cached detail
func (c *detailCache) Put(key int64, value *PostDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// If key exists, update and move to front
	if elem, exists := c.cache[key]; exists {
		c.lru.MoveToFront(elem)
		elem.Value.(*detailEntry).value = value
		return
	}

	// Evict oldest if at capacity
	if c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*detailEntry).key)
		}
	}

	entry := &detailEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem
}

// Remove drops a cached detail, if present
func (c *detailCache) Remove(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.cache[key]; exists {
		c.lru.Remove(elem)
		delete(c.cache, key)
	}
}

// Len returns the current number of items in the cache
func (c *detailCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}
