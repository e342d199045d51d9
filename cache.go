package omclient

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Tier identifies one of the fixed cache pools. Each resource type maps to
// exactly one tier; volatile types map to TierUncached and always hit the
// network.
type Tier int

const (
	TierUncached Tier = iota
	TierShort
	TierMedium
	TierLong
)

// String returns the tier name used in stats and metric labels.
func (t Tier) String() string {
	switch t {
	case TierShort:
		return "short"
	case TierMedium:
		return "medium"
	case TierLong:
		return "long"
	default:
		return "uncached"
	}
}

// Tier capacities and TTLs. Short holds frequently-changing entities for a
// minute, Medium semi-static ones for five, Long near-static ones for an
// hour.
const (
	shortCacheSize  = 100
	mediumCacheSize = 200
	longCacheSize   = 500

	shortCacheTTL  = time.Minute
	mediumCacheTTL = 5 * time.Minute
	longCacheTTL   = time.Hour
)

// CacheStats is a point-in-time snapshot of one tier.
type CacheStats struct {
	Size     int
	Capacity int
	TTL      time.Duration
	Hits     uint64
	Misses   uint64
}

// tierCache is one pool: an LRU bounded at capacity whose entries expire
// after the tier's TTL. Expired entries are never served; at capacity the
// least recently used key is evicted.
type tierCache struct {
	lru      *expirable.LRU[string, map[string]any]
	capacity int
	ttl      time.Duration
	hits     atomic.Uint64
	misses   atomic.Uint64
}

func newTierCache(capacity int, ttl time.Duration) *tierCache {
	return &tierCache{
		lru:      expirable.NewLRU[string, map[string]any](capacity, nil, ttl),
		capacity: capacity,
		ttl:      ttl,
	}
}

func (t *tierCache) stats() CacheStats {
	return CacheStats{
		Size:     t.lru.Len(),
		Capacity: t.capacity,
		TTL:      t.ttl,
		Hits:     t.hits.Load(),
		Misses:   t.misses.Load(),
	}
}

// cacheRouter wraps the executor's read path with the tiered cache. Misses
// for the same key are coalesced so a burst of identical reads costs one
// upstream call.
type cacheRouter struct {
	tiers   map[Tier]*tierCache
	policy  map[string]Tier
	group   singleflight.Group
	metrics *MetricsCollector
	logger  Logger
}

func newCacheRouter(metrics *MetricsCollector, logger Logger) *cacheRouter {
	return &cacheRouter{
		tiers: map[Tier]*tierCache{
			TierShort:  newTierCache(shortCacheSize, shortCacheTTL),
			TierMedium: newTierCache(mediumCacheSize, mediumCacheTTL),
			TierLong:   newTierCache(longCacheSize, longCacheTTL),
		},
		policy:  defaultCachePolicy,
		metrics: metrics,
		logger:  logger,
	}
}

// TierFor returns the tier the endpoint's resource type maps to. Unmapped
// types are uncached.
func (r *cacheRouter) TierFor(endpoint string) Tier {
	return r.policy[resourceOf(endpoint)]
}

// Get serves a read from the appropriate tier, falling back to fetch on a
// miss and storing the result under the tier's TTL.
func (r *cacheRouter) Get(ctx context.Context, endpoint string, params Params, fetch func() (map[string]any, error)) (map[string]any, error) {
	tier := r.TierFor(endpoint)
	if tier == TierUncached {
		return fetch()
	}

	tc := r.tiers[tier]
	key := cacheKey(endpoint, params)

	if value, ok := tc.lru.Get(key); ok {
		tc.hits.Add(1)
		r.metrics.RecordCacheHit(tier.String(), endpoint)
		if r.logger != nil {
			r.logger.Debug("cache hit", "tier", tier.String(), "key", key)
		}
		return value, nil
	}

	tc.misses.Add(1)
	r.metrics.RecordCacheMiss(tier.String(), endpoint)

	ch := r.group.DoChan(key, func() (interface{}, error) {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		tc.lru.Add(key, value)
		r.metrics.RecordCacheSize(tier.String(), tc.lru.Len())
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]any), nil
	case <-ctx.Done():
		return nil, &ClientError{
			Type:     ErrorTypeTransient,
			Message:  "request canceled",
			Endpoint: endpoint,
			Cause:    ctx.Err(),
		}
	}
}

// ClearAll drops every entry in every tier. Hit/miss counters are
// cumulative and survive clears.
func (r *cacheRouter) ClearAll() {
	for _, tc := range r.tiers {
		tc.lru.Purge()
	}
}

// ClearResource drops only the entries belonging to the given resource
// type. Other types sharing the same tier keep their entries.
func (r *cacheRouter) ClearResource(resourceType string) {
	tier := r.policy[resourceType]
	if tier == TierUncached {
		return
	}
	tc := r.tiers[tier]
	for _, key := range tc.lru.Keys() {
		if resourceOf(key) == resourceType {
			tc.lru.Remove(key)
		}
	}
}

// Stats snapshots every tier, keyed by tier name.
func (r *cacheRouter) Stats() map[string]CacheStats {
	out := make(map[string]CacheStats, len(r.tiers))
	for tier, tc := range r.tiers {
		out[tier.String()] = tc.stats()
	}
	return out
}

// resourceOf extracts the resource type: the first path segment of an
// endpoint (or cache key), e.g. "tables" from "tables/name/db.schema.t".
func resourceOf(endpoint string) string {
	s := strings.TrimLeft(endpoint, "/")
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return s
}
