package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"nyaya/internal/domain"
)

// QueryCache memoizes retrieval results per (query, topK, filters).
// Entries are stamped with the vector index generation they were
// computed against, so a snapshot swap invalidates them lazily.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results   []domain.EvidenceItem
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, topK int, filters domain.Filters) string {
	data := []byte(query)
	data = append(data, byte(topK>>8), byte(topK))
	data = append(data, []byte(filters.Court)...)
	if !filters.DateFrom.IsZero() {
		data = append(data, []byte(filters.DateFrom.Format("20060102"))...)
	}
	if !filters.DateUntil.IsZero() {
		data = append(data, []byte(filters.DateUntil.Format("20060102"))...)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns cached results when present, fresh, and computed against
// the given index generation.
func (c *QueryCache) Get(query string, topK int, filters domain.Filters, indexGen uint64) ([]domain.EvidenceItem, bool) {
	key := cacheKey(query, topK, filters)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != indexGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	// The entry may have been evicted between the read and write locks;
	// re-appending it then would leave a phantom order slot.
	if _, still := c.entries[key]; still {
		c.moveToEnd(key)
	}
	c.mu.Unlock()

	return entry.results, true
}

func (c *QueryCache) Put(query string, topK int, filters domain.Filters, indexGen uint64, results []domain.EvidenceItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, topK, filters)

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	} else {
		c.moveToEnd(key)
	}

	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		indexGen:  indexGen,
	}
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
