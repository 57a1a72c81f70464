package cache

import (
	"context"
	"strings"
	"sync"
)

// MemoryCache is an in-process Cache backed by a map. Child caches share the
// parent's map under a namespaced key prefix.
type MemoryCache struct {
	mu      *sync.RWMutex
	entries map[string][]byte
	prefix  string
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		mu:      &sync.RWMutex{},
		entries: make(map[string][]byte),
	}
}

func (c *MemoryCache) key(key string) string {
	return c.prefix + key
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[c.key(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	c.mu.Lock()
	c.entries[c.key(key)] = stored
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[c.key(key)]
	return ok, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, c.key(key))
	c.mu.Unlock()
	return nil
}

// CreateChild returns a cache sharing this cache's entries under an
// additional namespace segment.
func (c *MemoryCache) CreateChild(name string) Cache {
	return &MemoryCache{
		mu:      c.mu,
		entries: c.entries,
		prefix:  c.prefix + name + "/",
	}
}

// Clear removes only the entries in this cache's namespace.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, c.prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}
