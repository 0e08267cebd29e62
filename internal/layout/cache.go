package layout

import (
	"sync"

	"callconv/internal/types"
)

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

type cache struct {
	mu     sync.RWMutex
	byType map[types.TypeID]*cacheEntry
}

func newCache() *cache {
	return &cache{byType: make(map[types.TypeID]*cacheEntry, 256)}
}

func (c *cache) get(id types.TypeID) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.byType[id]
	return entry, ok
}

func (c *cache) put(id types.TypeID, entry *cacheEntry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry == nil {
		delete(c.byType, id)
		return
	}
	c.byType[id] = entry
}
