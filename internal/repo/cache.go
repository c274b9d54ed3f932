package repo

import (
	"sync"

	"github.com/aweris/treepush/internal/push"
)

const defaultCacheSize = 256

// payloadCache keeps recently read payloads in memory so an object
// fetched during discovery is not read again for its upload.
// TODO: Use a proper LRU implementation like hashicorp/golang-lru
type payloadCache struct {
	maxSize int
	items   map[push.ObjectID][]byte
	mu      sync.RWMutex
}

func newPayloadCache(maxSize int) *payloadCache {
	return &payloadCache{
		maxSize: maxSize,
		items:   make(map[push.ObjectID][]byte),
	}
}

func (c *payloadCache) Get(id push.ObjectID) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.items[id]
	return data, ok
}

func (c *payloadCache) Add(id push.ObjectID, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple eviction: if full, remove one arbitrary item.
	if len(c.items) >= c.maxSize {
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}

	c.items[id] = data
}
