package vectorstore

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const maxLatencySamples = 1000
const compactedLatencySamples = 500

// Metrics holds rolling latency samples for search/insert operations
// and exposes them as Prometheus gauges/histograms, per spec.md §4.C7's
// "rolling samples ... bounded history of 1000 with compaction to 500".
// Registered under internal/telemetry's registry by callers that wire
// an HTTP /metrics endpoint; construction here never registers globally
// so tests can create throwaway instances freely.
type Metrics struct {
	mu            sync.Mutex
	searchSamples []time.Duration
	insertSamples []time.Duration

	SearchLatency prometheus.Histogram
	InsertLatency prometheus.Histogram
	VectorCount   prometheus.Gauge
	SearchTotal   prometheus.Counter
	InsertTotal   prometheus.Counter
}

// NewMetrics builds an unregistered Metrics instance. Call Registry to
// obtain a prometheus.Registerer wired with these collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "astindex_vectorstore_search_duration_seconds",
			Help:    "Latency of vector similarity searches.",
			Buckets: prometheus.DefBuckets,
		}),
		InsertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "astindex_vectorstore_insert_duration_seconds",
			Help:    "Latency of vector insert batches.",
			Buckets: prometheus.DefBuckets,
		}),
		VectorCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "astindex_vectorstore_vector_count",
			Help: "Number of vectors currently in the store.",
		}),
		SearchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "astindex_vectorstore_searches_total",
			Help: "Total number of similarity searches performed.",
		}),
		InsertTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "astindex_vectorstore_inserts_total",
			Help: "Total number of vectors inserted.",
		}),
	}
}

// Collectors returns this Metrics' Prometheus collectors, implementing
// internal/telemetry.Registerer so a caller can mount them behind a
// shared /metrics endpoint alongside other components' collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.SearchLatency, m.InsertLatency, m.VectorCount, m.SearchTotal, m.InsertTotal}
}

// Registry returns a prometheus.Registerer with this Metrics' collectors
// registered, for standalone use (tests, or mounting behind promhttp.Handler
// directly) without going through internal/telemetry.
func (m *Metrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.Collectors()...)
	return reg
}

func (m *Metrics) observeSearch(d time.Duration) {
	m.mu.Lock()
	m.searchSamples = appendSample(m.searchSamples, d)
	m.mu.Unlock()

	m.SearchLatency.Observe(d.Seconds())
	m.SearchTotal.Inc()
}

func (m *Metrics) observeInsert(d time.Duration, count int) {
	m.mu.Lock()
	m.insertSamples = appendSample(m.insertSamples, d)
	m.mu.Unlock()

	m.InsertLatency.Observe(d.Seconds())
	m.InsertTotal.Add(float64(count))
	m.VectorCount.Add(float64(count))
}

// appendSample bounds history to maxLatencySamples, compacting to the
// most recent compactedLatencySamples once the bound is hit.
func appendSample(samples []time.Duration, d time.Duration) []time.Duration {
	samples = append(samples, d)
	if len(samples) > maxLatencySamples {
		samples = append([]time.Duration(nil), samples[len(samples)-compactedLatencySamples:]...)
	}
	return samples
}

func (m *Metrics) averageSearchTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.searchSamples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range m.searchSamples {
		total += s
	}
	return total / time.Duration(len(m.searchSamples))
}
