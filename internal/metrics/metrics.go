// Package metrics exposes the path-DB's operational counters as Prometheus
// collectors. It is deliberately tiny: a handful of gauges/counters wired
// into pathdb.Database, not a general metrics framework.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PathDBMetrics holds the Prometheus collectors for one pathdb.Database
// instance. Callers register it once with a prometheus.Registerer of their
// choosing (or leave it unregistered in tests).
type PathDBMetrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheSize   prometheus.Gauge
	LiveKeys    prometheus.Gauge
}

// NewPathDBMetrics builds a fresh, unregistered set of collectors named
// "triedb_pathdb_...", with name carried in a constant "db" label.
func NewPathDBMetrics(name string) *PathDBMetrics {
	labels := prometheus.Labels{"db": name}
	return &PathDBMetrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "triedb_pathdb_cache_hits_total",
			Help:        "Number of path-DB reads served from the LRU cache.",
			ConstLabels: labels,
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "triedb_pathdb_cache_misses_total",
			Help:        "Number of path-DB reads that missed the LRU cache.",
			ConstLabels: labels,
		}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "triedb_pathdb_cache_entries",
			Help:        "Current number of entries held in the path-DB LRU cache.",
			ConstLabels: labels,
		}),
		LiveKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "triedb_pathdb_live_keys_estimate",
			Help:        "Estimated number of live keys in the backing store.",
			ConstLabels: labels,
		}),
	}
}

// MustRegister registers all collectors with reg, panicking on failure (used
// only at process startup, never from library code on the hot path).
func (m *PathDBMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.CacheHits, m.CacheMisses, m.CacheSize, m.LiveKeys)
}
