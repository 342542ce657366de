package operations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCache_Freshness(t *testing.T) {
	now := time.Date(2026, 1, 23, 10, 0, 0, 0, time.UTC)
	cache := NewResultCache(time.Hour)
	cache.now = func() time.Time { return now }

	_, ok := cache.Get("spot_price")
	assert.False(t, ok)

	res := metricResult("spot_price", 31)
	cache.Set("spot_price", res)

	now = now.Add(59 * time.Minute)
	got, ok := cache.Get("spot_price")
	require.True(t, ok)
	assert.Same(t, res, got)

	now = now.Add(time.Minute)
	_, ok = cache.Get("spot_price")
	assert.False(t, ok, "entry expires at the ttl")

	entry, ok := cache.Entry("spot_price")
	require.True(t, ok)
	assert.Equal(t, 1, entry.HitCount)
	assert.False(t, entry.IsFresh(time.Hour, now))

	stats := cache.Stats()
	assert.EqualValues(t, 1, stats.HitCount)
	assert.EqualValues(t, 2, stats.MissCount)
	assert.InDelta(t, 1.0/3.0, stats.HitRatio, 1e-9)
	assert.Equal(t, 3600.0, stats.TTLSeconds)
}

func TestResultCache_IgnoresNilAndInvalidates(t *testing.T) {
	cache := NewResultCache(time.Hour)
	cache.Set("warehouse", nil)
	assert.Equal(t, 0, cache.Stats().Entries)

	cache.Set("warehouse", metricResult("warehouse", 1))
	cache.Invalidate("warehouse")
	_, ok := cache.Entry("warehouse")
	assert.False(t, ok)
}
