package operations

import (
	"sync"
	"time"

	"silverpulse/pkg/contracts/domain"
)

// CacheEntry is a successful fetch result and when it was stored
type CacheEntry struct {
	Result   *domain.FetchResult `json:"result"`
	CachedAt time.Time           `json:"cached_at"`
	HitCount int                 `json:"hit_count"`
}

// IsFresh reports whether the entry is younger than ttl at now
func (e CacheEntry) IsFresh(ttl time.Duration, now time.Time) bool {
	return e.Result != nil && now.Sub(e.CachedAt) < ttl
}

// CacheStats summarizes cache usage
type CacheStats struct {
	Entries    int     `json:"entries"`
	HitCount   int64   `json:"hit_count"`
	MissCount  int64   `json:"miss_count"`
	HitRatio   float64 `json:"hit_ratio"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// ResultCache holds the last successful result per adapter id. Failures are
// never stored, so a failed source is fetched again on the next refresh.
type ResultCache struct {
	entries   map[string]CacheEntry
	mutex     sync.RWMutex
	ttl       time.Duration
	hitCount  int64
	missCount int64
	now       func() time.Time
}

// NewResultCache creates a cache whose entries stay fresh for ttl
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries: make(map[string]CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached result for id when it is still fresh
func (c *ResultCache) Get(id string) (*domain.FetchResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[id]
	if !exists || !entry.IsFresh(c.ttl, c.now()) {
		c.missCount++
		return nil, false
	}

	entry.HitCount++
	c.entries[id] = entry
	c.hitCount++

	return entry.Result, true
}

// Set stores a successful result. Nil results are ignored.
func (c *ResultCache) Set(id string, result *domain.FetchResult) {
	if result == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[id] = CacheEntry{
		Result:   result,
		CachedAt: c.now(),
	}
}

// Entry returns the stored entry for id regardless of freshness
func (c *ResultCache) Entry(id string) (CacheEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Invalidate removes the entry for id
func (c *ResultCache) Invalidate(id string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, id)
}

// Stats returns cache statistics
func (c *ResultCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hitCount + c.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}

	return CacheStats{
		Entries:    len(c.entries),
		HitCount:   c.hitCount,
		MissCount:  c.missCount,
		HitRatio:   ratio,
		TTLSeconds: c.ttl.Seconds(),
	}
}
