package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache stores successful payloads by [CacheKey]. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (Payload, bool)
	// Add stores p unless key is present already and returns the payload that ends up cached.
	Add(key string, p Payload) Payload
}

// CacheKey hashes the exact prompt texts. The separator keeps ("ab", "c") and ("a", "bc") apart.
func CacheKey(req Request) string {
	sum := sha256.Sum256([]byte(req.System + "|||" + req.User))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is an unbounded in-process Cache. Entries live as long as the cache.
type MemoryCache struct {
	m sync.Map
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(key string) (Payload, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(Payload), true //nolint:forcetypeassert // only Add stores values.
}

// Add keeps the first payload stored for key.
func (c *MemoryCache) Add(key string, p Payload) Payload {
	v, _ := c.m.LoadOrStore(key, p)
	return v.(Payload) //nolint:forcetypeassert // only Add stores values.
}

// Len counts the entries. It walks the whole map.
func (c *MemoryCache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
