package district

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// GridCache is a concurrent-safe LRU cache of decoded grid tiles with TTL
// expiration. Empty tiles are cached as nil grids.
type GridCache struct {
	lru        *expirable.LRU[string, *UTFGrid]
	maxEntries int
	hits       atomic.Int64
	misses     atomic.Int64
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewGridCache creates a cache holding at most maxEntries tiles for ttl
// each. A ttl of zero keeps tiles until evicted.
func NewGridCache(maxEntries int, ttl time.Duration) *GridCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &GridCache{
		lru:        expirable.NewLRU[string, *UTFGrid](maxEntries, nil, ttl),
		maxEntries: maxEntries,
	}
}

func gridCacheKey(layer string, tile TileCoord) string {
	return layer + "/" + tile.String()
}

// Get returns a cached grid. ok is false on miss or expiration.
func (c *GridCache) Get(layer string, tile TileCoord) (*UTFGrid, bool) {
	grid, ok := c.lru.Get(gridCacheKey(layer, tile))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return grid, true
}

// Put stores a grid, evicting the least recently used tile at capacity.
func (c *GridCache) Put(layer string, tile TileCoord, grid *UTFGrid) {
	c.lru.Add(gridCacheKey(layer, tile), grid)
}

// Stats returns cache performance statistics.
func (c *GridCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    c.lru.Len(),
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}
