package pool

import (
	"sync"
)

// DefaultKeyCacheSize bounds a KeyCache created with NewKeyCache(0).
const DefaultKeyCacheSize = 10000

// KeyCache memoizes counterparty keys across runs. It is safe for
// concurrent use. When full it is emptied and refilled.
type KeyCache struct {
	mu      sync.RWMutex
	store   map[string]string
	maxSize int
}

// NewKeyCache creates a cache holding at most maxSize names.
func NewKeyCache(maxSize int) *KeyCache {
	if maxSize <= 0 {
		maxSize = DefaultKeyCacheSize
	}
	return &KeyCache{
		store:   make(map[string]string),
		maxSize: maxSize,
	}
}

// Key returns the normalized key for name. Malformed names are not cached.
func (c *KeyCache) Key(name string) (string, error) {
	c.mu.RLock()
	key, found := c.store[name]
	c.mu.RUnlock()
	if found {
		return key, nil
	}

	key, err := NormalizeCounterparty(name)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.store) >= c.maxSize {
		c.store = make(map[string]string)
	}
	c.store[name] = key
	return key, nil
}

// Clear removes all entries from cache
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]string)
}

// Size returns the number of cached entries
func (c *KeyCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}
