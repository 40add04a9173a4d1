package cache

import (
	"sync"
	"time"
)

const sweepInterval = 30 * time.Second

type entry struct {
	data      any
	expiresAt time.Time
}

// Cache is the short-TTL read cache in front of the store. It holds copies,
// never the system of record; writers must Delete every key they touched.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	statsMu sync.Mutex
	hits    int64
	misses  int64
}

type Stats struct {
	Hits   int64
	Misses int64
	Keys   int
}

func New() *Cache {
	c := &Cache{entries: map[string]entry{}}
	go c.sweepLoop()
	return c
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		if ok {
			c.Delete(key)
		}
		c.statsMu.Lock()
		c.misses++
		c.statsMu.Unlock()
		return nil, false
	}
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
	return e.data, true
}

func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = map[string]entry{}
	c.mu.Unlock()
}

func (c *Cache) Stats() Stats {
	c.statsMu.Lock()
	hits, misses := c.hits, c.misses
	c.statsMu.Unlock()
	c.mu.RLock()
	keys := len(c.entries)
	c.mu.RUnlock()
	return Stats{Hits: hits, Misses: misses, Keys: keys}
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		c.mu.Lock()
		for key, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
