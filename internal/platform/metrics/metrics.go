// Package metrics holds all Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the registered collectors. One instance per process,
// injected where needed.
type Metrics struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec

	TemplatesCreated       prometheus.Counter
	TemplateVersionsForked prometheus.Counter
	VendorMappingsCreated  prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "templatehub_cache_hits_total",
			Help: "Cache hits per cache instance.",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "templatehub_cache_misses_total",
			Help: "Cache misses per cache instance.",
		}, []string{"cache"}),
		CacheEvictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "templatehub_cache_evictions_total",
			Help: "Cache evictions per cache instance (capacity or TTL).",
		}, []string{"cache"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "templatehub_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		TemplatesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "templatehub_templates_created_total",
			Help: "Total master templates created.",
		}),
		TemplateVersionsForked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "templatehub_template_versions_forked_total",
			Help: "Total new template versions forked from existing ones.",
		}),
		VendorMappingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "templatehub_vendor_mappings_created_total",
			Help: "Total vendor mappings created.",
		}),
	}
}

// ObserveCacheHit records a hit for the named cache. Nil-safe so daos can be
// constructed without metrics in tests.
func (m *Metrics) ObserveCacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cache).Inc()
}

// ObserveCacheMiss records a miss for the named cache.
func (m *Metrics) ObserveCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// ObserveCacheEviction records an eviction for the named cache.
func (m *Metrics) ObserveCacheEviction(cache string) {
	if m == nil {
		return
	}
	m.CacheEvictions.WithLabelValues(cache).Inc()
}

// ObserveTemplateCreated counts a new logical template.
func (m *Metrics) ObserveTemplateCreated() {
	if m == nil {
		return
	}
	m.TemplatesCreated.Inc()
}

// ObserveTemplateVersionForked counts a new version forked from an existing one.
func (m *Metrics) ObserveTemplateVersionForked() {
	if m == nil {
		return
	}
	m.TemplateVersionsForked.Inc()
}

// ObserveVendorMappingCreated counts a new vendor mapping.
func (m *Metrics) ObserveVendorMappingCreated() {
	if m == nil {
		return
	}
	m.VendorMappingsCreated.Inc()
}
