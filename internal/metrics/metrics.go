// Package metrics counts ledger operations on a private Prometheus
// registry. There is no HTTP endpoint; the registry is written to a
// node-exporter textfile when the process shuts down.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	staged     prometheus.Gauge
	queryRows  prometheus.Histogram
	cacheHits  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Record store operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Record store operation latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		staged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_staged_entries",
			Help: "Entries waiting in the staging buffer.",
		}),
		queryRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_query_rows",
			Help:    "Rows returned per query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_query_cache_lookups_total",
				Help: "Query cache lookups by result.",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.operations, m.duration, m.staged, m.queryRows, m.cacheHits)
	return m
}

// Observe records one operation. A nil *Metrics is a no-op so callers do
// not need to guard every call.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetStaged(n int) {
	if m == nil {
		return
	}
	m.staged.Set(float64(n))
}

func (m *Metrics) ObserveRows(n int) {
	if m == nil {
		return
	}
	m.queryRows.Observe(float64(n))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
