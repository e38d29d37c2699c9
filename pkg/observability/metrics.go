package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the validation pipeline
type Metrics struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration prometheus.Histogram
	ValidationErrors   prometheus.Counter
	DiagnosticsTotal   *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CacheEvictionsTotal prometheus.Counter
	CacheEntries        prometheus.Gauge

	// Executor metrics
	ExecutorQueueSize     prometheus.Gauge
	ExecutorActiveWorkers prometheus.Gauge
	SupersededRunsTotal   prometheus.Counter

	// Memory metrics
	HeapUsedBytes  prometheus.Gauge
	HeapPeakBytes  prometheus.Gauge
	MemoryPressure prometheus.Gauge
	GCForcedTotal  prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalixlint_validations_total",
				Help: "Total number of validation runs by outcome",
			},
			[]string{"outcome"}, // completed, cancelled, failed, cached
		),
		ValidationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kalixlint_validation_duration_seconds",
				Help:    "Validation run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ValidationErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kalixlint_validation_errors_total",
				Help: "Total number of validation runs that failed with an error",
			},
		),
		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kalixlint_diagnostics_total",
				Help: "Total number of diagnostics produced by severity",
			},
			[]string{"severity"},
		),

		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kalixlint_cache_hits_total",
				Help: "Total number of validation result cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kalixlint_cache_misses_total",
				Help: "Total number of validation result cache misses",
			},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kalixlint_cache_evictions_total",
				Help: "Total number of validation result cache evictions",
			},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kalixlint_cache_entries",
				Help: "Current number of entries in the validation result cache",
			},
		),

		ExecutorQueueSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kalixlint_executor_queue_size",
				Help: "Number of validation requests waiting in the executor",
			},
		),
		ExecutorActiveWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kalixlint_executor_active_workers",
				Help: "Number of validation workers currently running",
			},
		),
		SupersededRunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kalixlint_superseded_runs_total",
				Help: "Total number of validation runs cancelled by a newer request",
			},
		),

		HeapUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kalixlint_heap_used_bytes",
				Help: "Current heap bytes in use",
			},
		),
		HeapPeakBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kalixlint_heap_peak_bytes",
				Help: "Peak heap bytes observed since start or last reset",
			},
		),
		MemoryPressure: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kalixlint_memory_pressure",
				Help: "Heap used over heap reserved, clamped to [0,1]",
			},
		),
		GCForcedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kalixlint_gc_forced_total",
				Help: "Total number of forced garbage collections",
			},
		),
	}

	registry.MustRegister(
		m.ValidationsTotal,
		m.ValidationDuration,
		m.ValidationErrors,
		m.DiagnosticsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.CacheEntries,
		m.ExecutorQueueSize,
		m.ExecutorActiveWorkers,
		m.SupersededRunsTotal,
		m.HeapUsedBytes,
		m.HeapPeakBytes,
		m.MemoryPressure,
		m.GCForcedTotal,
	)

	return m
}

// Handler returns an HTTP handler that serves the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
