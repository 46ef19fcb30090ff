package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kyupark/get-cookie/internal/model"
)

func TestDedupeLongestValueKeepsLongestAndOrder(t *testing.T) {
	results := [][]model.ExportedCookie{
		{
			{Name: "sid", Domain: "example.com", Value: "short"},
			{Name: "csrf", Domain: "example.com", Value: "tok"},
		},
		{
			{Name: "sid", Domain: "example.com", Value: "much-longer-value"},
		},
	}

	out := dedupeLongestValue(results)
	require.Len(t, out, 2)
	require.Equal(t, "sid", out[0].Name)
	require.Equal(t, "much-longer-value", out[0].Value)
	require.Equal(t, "csrf", out[1].Name)
}

func TestDedupeLongestValueEmpty(t *testing.T) {
	out := dedupeLongestValue(nil)
	require.Empty(t, out)
}

func TestBatchCacheKeyStableAndDistinct(t *testing.T) {
	specs := []model.CookieSpec{{Name: "sid", Domain: "example.com"}}
	k1 := batchCacheKey(specs, Options{})
	k2 := batchCacheKey(specs, Options{})
	require.Equal(t, k1, k2)

	k3 := batchCacheKey(specs, Options{IncludeExpired: true})
	require.NotEqual(t, k1, k3)

	k4 := batchCacheKey([]model.CookieSpec{{Name: "other", Domain: "example.com"}}, Options{})
	require.NotEqual(t, k1, k4)
}

func TestServiceCacheRoundTrip(t *testing.T) {
	s := New("/tmp/home", nil, nil, nil)
	key := "sid:example.com,"

	_, ok := s.lookupCache(key)
	require.False(t, ok)

	want := []model.ExportedCookie{{Name: "sid", Domain: "example.com", Value: "v"}}
	s.storeCache(key, want)

	got, ok := s.lookupCache(key)
	require.True(t, ok)
	require.Equal(t, want, got)

	s.ClearCache()
	_, ok = s.lookupCache(key)
	require.False(t, ok)
}

func TestEvictStaleLockedDropsOldEntries(t *testing.T) {
	s := New("/tmp/home", nil, nil, nil)
	s.mu.Lock()
	s.cache["stale"] = cacheEntry{data: nil, timestamp: time.Now().Add(-2 * cacheMaxAge)}
	s.cache["fresh"] = cacheEntry{data: nil, timestamp: time.Now()}
	s.lastEvict = time.Now().Add(-2 * evictInterval)
	s.mu.Unlock()

	s.mu.Lock()
	s.evictStaleLocked()
	_, staleExists := s.cache["stale"]
	_, freshExists := s.cache["fresh"]
	s.mu.Unlock()

	require.False(t, staleExists)
	require.True(t, freshExists)
}

func TestDiscoverJobsEmptyHomeYieldsNoJobs(t *testing.T) {
	s := New(t.TempDir(), nil, nil, nil)
	require.Empty(t, s.discoverJobs())
}
