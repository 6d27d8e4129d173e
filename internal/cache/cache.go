// Package cache wraps ttlcache with hit/miss/eviction accounting for the
// read-through layers in front of the template and vendor stores. Each
// instance is bounded by entry count; the least recently touched entry is
// evicted first once the bound is reached.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"templatehub/internal/platform/metrics"
)

// Config sizes a single cache instance. Name labels its metrics.
type Config struct {
	Name       string
	TTL        time.Duration
	MaxEntries uint64
}

// Stats is a point-in-time snapshot exposed on the ops endpoint.
type Stats struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Cache is a TTL-and-capacity bounded map. All operations are safe for
// concurrent use; there is no lock shared across instances.
type Cache[K comparable, V any] struct {
	name      string
	inner     *ttlcache.Cache[K, V]
	metrics   *metrics.Metrics
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func New[K comparable, V any](cfg Config, m *metrics.Metrics) *Cache[K, V] {
	inner := ttlcache.New(
		ttlcache.WithTTL[K, V](cfg.TTL),
		ttlcache.WithCapacity[K, V](cfg.MaxEntries),
	)
	c := &Cache[K, V]{name: cfg.Name, inner: inner, metrics: m}
	inner.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, _ *ttlcache.Item[K, V]) {
		if reason == ttlcache.EvictionReasonCapacityReached || reason == ttlcache.EvictionReasonExpired {
			c.evictions.Add(1)
			m.ObserveCacheEviction(c.name)
		}
	})
	go inner.Start()
	return c
}

// OnEvicted registers fn to run with the key of every entry the cache ages
// out by TTL or pushes out by capacity. Explicit Deletes do not fire it.
func (c *Cache[K, V]) OnEvicted(fn func(K)) {
	c.inner.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[K, V]) {
		if reason == ttlcache.EvictionReasonCapacityReached || reason == ttlcache.EvictionReasonExpired {
			fn(item.Key())
		}
	})
}

// Get returns the cached value for key. A hit refreshes the entry's recency.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	item := c.inner.Get(key)
	if item == nil {
		var zero V
		c.misses.Add(1)
		c.metrics.ObserveCacheMiss(c.name)
		return zero, false
	}
	c.hits.Add(1)
	c.metrics.ObserveCacheHit(c.name)
	return item.Value(), true
}

// Set stores value under key with the configured TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.inner.Set(key, value, ttlcache.DefaultTTL)
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.inner.Delete(key)
}

// Stats reports current size and lifetime counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Name:      c.name,
		Size:      c.inner.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Stop halts the background expiration loop.
func (c *Cache[K, V]) Stop() {
	c.inner.Stop()
}
