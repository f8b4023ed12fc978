package services

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// AddressCache caches reverse-geocoded addresses keyed by quantized
// coordinates to reduce API calls. Nearby fixes share an entry.
type AddressCache struct {
	cache      map[string]*addressEntry
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
	stats      cacheStats
}

type addressEntry struct {
	Address      string
	CreatedAt    time.Time
	LastAccessed time.Time
	HitCount     int
}

type cacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	mutex     sync.RWMutex
}

// NewAddressCache creates a new address cache
func NewAddressCache() *AddressCache {
	cache := &AddressCache{
		cache:      make(map[string]*addressEntry),
		maxEntries: 5000,
		ttl:        24 * time.Hour,
	}

	go cache.cleanupExpired()

	return cache
}

// Signature quantizes coordinates to ~10m so fixes from the same spot
// map to the same cache key.
func (c *AddressCache) Signature(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// Get retrieves a cached address if present and not expired
func (c *AddressCache) Get(signature string) (string, bool) {
	c.mutex.RLock()
	entry, found := c.cache[signature]
	c.mutex.RUnlock()

	if !found {
		c.recordMiss()
		return "", false
	}

	if time.Since(entry.CreatedAt) > c.ttl {
		c.mutex.Lock()
		delete(c.cache, signature)
		c.mutex.Unlock()
		c.recordMiss()
		c.recordEviction()
		return "", false
	}

	c.mutex.Lock()
	entry.LastAccessed = time.Now()
	entry.HitCount++
	c.mutex.Unlock()

	c.recordHit()
	return entry.Address, true
}

// Set stores a resolved address in the cache
func (c *AddressCache) Set(signature, address string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	c.cache[signature] = &addressEntry{
		Address:      address,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		HitCount:     0,
	}
}

// evictOldest removes the least recently used entry
func (c *AddressCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.cache {
		if oldestKey == "" || entry.LastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
		c.recordEviction()
		log.Printf("🗑️  Evicted oldest address cache entry: %s", oldestKey)
	}
}

// cleanupExpired periodically removes expired entries
func (c *AddressCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, entry := range c.cache {
			if now.Sub(entry.CreatedAt) > c.ttl {
				delete(c.cache, key)
				c.recordEviction()
			}
		}
		c.mutex.Unlock()
	}
}

func (c *AddressCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Hits++
}

func (c *AddressCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Misses++
}

func (c *AddressCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

// GetStats returns cache statistics
func (c *AddressCache) GetStats() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	c.mutex.RLock()
	cacheSize := len(c.cache)
	c.mutex.RUnlock()

	hitRate := 0.0
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"cache_size":  cacheSize,
		"max_entries": c.maxEntries,
		"hits":        c.stats.Hits,
		"misses":      c.stats.Misses,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
		"evictions":   c.stats.Evictions,
		"ttl_hours":   int(c.ttl.Hours()),
	}
}
