package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/observability"
)

// Fingerprint returns the cache key for a document: the hex SHA-256 of its
// content. Identical content always maps to the same key regardless of which
// editor buffer it came from.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CacheStats is a point-in-time snapshot of cache accounting.
type CacheStats struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Entries   int     `json:"entries"`
	HitRatio  float64 `json:"hit_ratio"`
}

// ResultCache maps content fingerprints to validation results with LRU
// eviction and a TTL. All methods are safe for concurrent use; hit, miss,
// and eviction counts survive Clear so ratios stay meaningful across a
// session.
type ResultCache struct {
	lru     *expirable.LRU[string, *linter.Result]
	metrics *observability.Metrics
	logger  *observability.Logger

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewResultCache builds a cache holding up to size results for at most ttl.
func NewResultCache(size int, ttl time.Duration, metrics *observability.Metrics, logger *observability.Logger) *ResultCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	c := &ResultCache{metrics: metrics, logger: logger}
	c.lru = expirable.NewLRU[string, *linter.Result](size, c.onEvict, ttl)
	return c
}

func (c *ResultCache) onEvict(key string, _ *linter.Result) {
	c.evictions.Add(1)
	if c.metrics != nil {
		c.metrics.CacheEvictionsTotal.Inc()
	}
	c.logger.WithField("fingerprint", key).Debug("cache entry evicted")
}

// Get returns the cached result for content, if present.
func (c *ResultCache) Get(content string) (*linter.Result, bool) {
	return c.GetByKey(Fingerprint(content))
}

// GetByKey returns the cached result for a precomputed fingerprint.
func (c *ResultCache) GetByKey(key string) (*linter.Result, bool) {
	result, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return result, true
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return nil, false
}

// Put stores a result under the content's fingerprint.
func (c *ResultCache) Put(content string, result *linter.Result) {
	c.lru.Add(Fingerprint(content), result)
	if c.metrics != nil {
		c.metrics.CacheEntries.Set(float64(c.lru.Len()))
	}
}

// Clear drops every entry. Counters are kept.
func (c *ResultCache) Clear() {
	c.lru.Purge()
	if c.metrics != nil {
		c.metrics.CacheEntries.Set(0)
	}
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Stats returns a snapshot of the counters and current size.
func (c *ResultCache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	stats := CacheStats{
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		Entries:   c.lru.Len(),
	}
	if total := hits + misses; total > 0 {
		stats.HitRatio = float64(hits) / float64(total)
	}
	return stats
}
