package validation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/schema"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("[node.a]\ntype = inflow\n")
	b := Fingerprint("[node.a]\ntype = inflow\n")
	c := Fingerprint("[node.a]\ntype = gauge\n")

	assert.Equal(t, a, b, "identical content shares a key")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestResultCache(t *testing.T) {
	cache := NewResultCache(10, time.Minute, nil, nil)

	result := linter.NewResult()
	result.AddIssue(3, "bad", schema.SeverityError, "some_rule")

	t.Run("MissThenHit", func(t *testing.T) {
		_, ok := cache.Get("content")
		assert.False(t, ok)

		cache.Put("content", result)
		got, ok := cache.Get("content")
		require.True(t, ok)
		assert.Equal(t, result, got)

		stats := cache.Stats()
		assert.Equal(t, uint64(1), stats.Hits)
		assert.Equal(t, uint64(1), stats.Misses)
		assert.Equal(t, 0.5, stats.HitRatio)
		assert.Equal(t, 1, stats.Entries)
	})

	t.Run("ClearKeepsCounters", func(t *testing.T) {
		cache.Clear()
		assert.Equal(t, 0, cache.Len())

		stats := cache.Stats()
		assert.Equal(t, uint64(1), stats.Hits, "hit accounting survives Clear")

		_, ok := cache.Get("content")
		assert.False(t, ok)
	})
}

func TestResultCacheEviction(t *testing.T) {
	cache := NewResultCache(2, time.Minute, nil, nil)

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("doc-%d", i), linter.NewResult())
	}

	assert.Equal(t, 2, cache.Len())
	assert.GreaterOrEqual(t, cache.Stats().Evictions, uint64(1))

	// The oldest entry is gone, newest survive.
	_, ok := cache.Get("doc-0")
	assert.False(t, ok)
	_, ok = cache.Get("doc-2")
	assert.True(t, ok)
}

func TestResultCacheTTL(t *testing.T) {
	cache := NewResultCache(10, 30*time.Millisecond, nil, nil)
	cache.Put("doc", linter.NewResult())

	_, ok := cache.Get("doc")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get("doc")
	assert.False(t, ok, "expired entries are not returned")
}
