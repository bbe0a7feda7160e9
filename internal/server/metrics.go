package server

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics implements the observability collection and cache hooks over
// Prometheus collectors. Registration happens once per process; repeated
// server construction reuses the same collectors.
type metrics struct {
	collections       *prometheus.CounterVec
	collectionSeconds prometheus.Histogram
	nodesCollected    prometheus.Histogram
	descriptorReads   *prometheus.CounterVec
	cycles            prometheus.Counter
	cacheOps          *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *metrics
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		m := &metrics{
			collections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "quarry_collections_total",
				Help: "Collection runs by outcome.",
			}, []string{"outcome"}),
			collectionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "quarry_collection_duration_seconds",
				Help:    "Wall time of collection runs.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			}),
			nodesCollected: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "quarry_collection_nodes",
				Help:    "Graph sizes produced by collection runs.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			}),
			descriptorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "quarry_descriptor_reads_total",
				Help: "Descriptor reads by source and outcome.",
			}, []string{"source", "outcome"}),
			cycles: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "quarry_cycles_total",
				Help: "Cycles truncated during collection.",
			}),
			cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "quarry_cache_operations_total",
				Help: "Cache operations by backend and kind.",
			}, []string{"backend", "kind"}),
		}
		prometheus.MustRegister(
			m.collections, m.collectionSeconds, m.nodesCollected,
			m.descriptorReads, m.cycles, m.cacheOps,
		)
		sharedMetrics = m
	})
	return sharedMetrics
}

// ---- observability.CollectionHooks ----

func (m *metrics) OnCollectStart(context.Context, string) {}

func (m *metrics) OnCollectComplete(_ context.Context, _ string, nodes, exceptions int, d time.Duration) {
	outcome := "clean"
	if exceptions > 0 {
		outcome = "partial"
	}
	m.collections.WithLabelValues(outcome).Inc()
	m.collectionSeconds.Observe(d.Seconds())
	m.nodesCollected.Observe(float64(nodes))
}

func (m *metrics) OnDescriptorRead(_ context.Context, _ string, cached bool, _ time.Duration, err error) {
	source := "live"
	if cached {
		source = "cached"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.descriptorReads.WithLabelValues(source, outcome).Inc()
}

func (m *metrics) OnCycle(context.Context, string) {
	m.cycles.Inc()
}

// ---- observability.CacheHooks ----

func (m *metrics) OnCacheHit(_ context.Context, backend string) {
	m.cacheOps.WithLabelValues(backend, "hit").Inc()
}

func (m *metrics) OnCacheMiss(_ context.Context, backend string) {
	m.cacheOps.WithLabelValues(backend, "miss").Inc()
}

func (m *metrics) OnCacheSet(_ context.Context, backend string, _ int) {
	m.cacheOps.WithLabelValues(backend, "set").Inc()
}
