package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// groundwater load pipeline.
type Metrics struct {
	CyclesTotal     prometheus.Counter
	CycleDuration   prometheus.Histogram
	CycleRunning    prometheus.Gauge
	DistrictsFailed prometheus.Counter
	RecordsWritten  prometheus.Counter
	RecordsDropped  prometheus.Counter
	FetchRetries    prometheus.Counter
	StoreErrors     prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.CycleRunning,
		m.DistrictsFailed,
		m.RecordsWritten,
		m.RecordsDropped,
		m.FetchRetries,
		m.StoreErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so parallel
// tests do not hit "already registered" panics on the default registry.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwatch",
			Name:      "cycles_total",
			Help:      "Total load cycles executed, regardless of outcome.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groundwatch",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-map-write cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		CycleRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "groundwatch",
			Name:      "cycle_running",
			Help:      "1 while a load cycle is in progress, 0 otherwise.",
		}),
		DistrictsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwatch",
			Name:      "districts_failed_total",
			Help:      "Districts whose fetch failed after exhausting retries.",
		}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwatch",
			Name:      "records_written_total",
			Help:      "Rows successfully inserted into the store.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwatch",
			Name:      "records_dropped_total",
			Help:      "Raw readings discarded for missing or implausible fields.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwatch",
			Name:      "fetch_retries_total",
			Help:      "Transient fetch failures that triggered a retry.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groundwatch",
			Name:      "store_errors_total",
			Help:      "Failed store operations (clear or insert batch).",
		}),
	}
}
