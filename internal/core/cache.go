package core

import "sync"

// Cache is the read-through lookup cache injected into the service. The
// service invalidates entries itself after every write, so implementations
// need no TTL logic to stay correct.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Invalidate(key string)
}

// MapCache is a process-local Cache safe for concurrent use.
type MapCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewMapCache constructs an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]any)}
}

// Get implements Cache.
func (c *MapCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

// Set implements Cache.
func (c *MapCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Invalidate implements Cache.
func (c *MapCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of cached entries.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type noopCache struct{}

func (noopCache) Get(string) (any, bool) { return nil, false }
func (noopCache) Set(string, any)        {}
func (noopCache) Invalidate(string)      {}
