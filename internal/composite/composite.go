// Package composite implements spec §4.8's composite strategy: fan out to
// every per-browser strategy concurrently, merge, dedupe, and cache
// short-term — the request state machine described in spec §4.10.
package composite

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kyupark/get-cookie/internal/model"
	"github.com/kyupark/get-cookie/internal/strategy"
)

const (
	cacheTTL      = 10 * time.Second
	cacheCapacity = 10
)

// cacheEntry is spec §3's CacheEntry, scoped to the composite's own cache.
type cacheEntry struct {
	data      []model.ExportedCookie
	timestamp time.Time
}

// Strategy fans out to every registered per-browser Strategy and merges the
// results. Strategy order is preserved in the merge (Chrome, Firefox,
// Safari, …, spec §5 "Ordering guarantees"), and any single strategy's
// failure is logged and treated as empty — never aborts the composite
// (spec §4.8 step 2).
type Strategy struct {
	strategies []strategy.Strategy

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New creates a composite over strategies, in the order they should be
// preferred during merge (spec §5).
func New(strategies ...strategy.Strategy) *Strategy {
	return &Strategy{
		strategies: strategies,
		cache:      make(map[string]cacheEntry),
	}
}

func (c *Strategy) BrowserName() string { return "Composite" }

func cacheKey(name, domain string) string { return name + ":" + domain }

// QueryCookies implements the state machine in spec §4.10:
// IDLE → LOOKUP_CACHE → (hit: RETURN | miss: FANOUT → MERGE → FILTER → CACHE → RETURN).
// A composite call always returns a (possibly empty) list; it never
// propagates a per-strategy error.
func (c *Strategy) QueryCookies(ctx context.Context, name, domain string) ([]model.ExportedCookie, error) {
	key := cacheKey(name, domain)

	c.mu.Lock()
	if e, ok := c.cache[key]; ok && time.Since(e.timestamp) < cacheTTL {
		c.mu.Unlock()
		return e.data, nil
	}
	c.mu.Unlock()

	merged := c.fanOut(ctx, name, domain)
	deduped := dedupe(merged)

	c.mu.Lock()
	c.cache[key] = cacheEntry{data: deduped, timestamp: time.Now()}
	c.evictOverCapacityLocked()
	c.mu.Unlock()

	return deduped, nil
}

func (c *Strategy) fanOut(ctx context.Context, name, domain string) []model.ExportedCookie {
	results := make([][]model.ExportedCookie, len(c.strategies))

	var wg sync.WaitGroup
	wg.Add(len(c.strategies))
	for i, s := range c.strategies {
		go func(i int, s strategy.Strategy) {
			defer wg.Done()
			rows, err := s.QueryCookies(ctx, name, domain)
			if err != nil {
				log.Warn().Err(err).Str("browser", s.BrowserName()).Msg("composite: strategy failed, treating as empty")
				return
			}
			for i2 := range rows {
				rows[i2].Meta.Browser = s.BrowserName()
			}
			results[i] = rows
		}(i, s)
	}
	wg.Wait()

	var merged []model.ExportedCookie
	for _, rows := range results { // strategy-order-preserving merge, spec §5
		merged = append(merged, rows...)
	}
	return merged
}

// dedupe removes records with an identical full-record fingerprint (spec
// §4.8 step 3 / §8 invariant 3), preserving the first occurrence's order.
func dedupe(rows []model.ExportedCookie) []model.ExportedCookie {
	seen := make(map[string]struct{}, len(rows))
	out := make([]model.ExportedCookie, 0, len(rows))
	for _, r := range rows {
		fp := r.Fingerprint()
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, r)
	}
	return out
}

// evictOverCapacityLocked drops the oldest entries once the cache exceeds
// cacheCapacity (spec §4.8 "capacity 10 entries"). Caller holds c.mu.
func (c *Strategy) evictOverCapacityLocked() {
	if len(c.cache) <= cacheCapacity {
		return
	}
	keys := make([]string, 0, len(c.cache))
	for k := range c.cache {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.cache[keys[i]].timestamp.Before(c.cache[keys[j]].timestamp)
	})
	for _, k := range keys[:len(c.cache)-cacheCapacity] {
		delete(c.cache, k)
	}
}

// ClearCache empties the composite's result cache (spec §9 "tests must be
// able to reset them").
func (c *Strategy) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}
