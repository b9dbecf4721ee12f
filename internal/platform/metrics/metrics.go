package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the import pipeline.
type Metrics struct {
	Registry       *prometheus.Registry
	ImportsTotal   *prometheus.CounterVec
	ImportDuration prometheus.Histogram
	GoodsCreated   prometheus.Counter
	GoodsSkipped   prometheus.Counter
	RetriesTotal   prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	imports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_imports_total",
			Help: "Total catalog import attempts by terminal outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_import_duration_seconds",
			Help:    "Wall-clock duration of import attempts.",
			Buckets: prometheus.DefBuckets,
		},
	)
	created := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_goods_created_total",
			Help: "Total ProductInfo rows created by successful imports.",
		},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_goods_skipped_total",
			Help: "Total goods skipped for referencing unknown categories.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_import_retries_total",
			Help: "Total fetch retries scheduled with backoff.",
		},
	)

	registry.MustRegister(imports, duration, created, skipped, retries)

	return &Metrics{
		Registry:       registry,
		ImportsTotal:   imports,
		ImportDuration: duration,
		GoodsCreated:   created,
		GoodsSkipped:   skipped,
		RetriesTotal:   retries,
	}
}

// ObserveImport records one terminal import outcome.
func (m *Metrics) ObserveImport(outcome string, created, skipped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ImportsTotal.WithLabelValues(outcome).Inc()
	m.ImportDuration.Observe(elapsed.Seconds())
	if created > 0 {
		m.GoodsCreated.Add(float64(created))
	}
	if skipped > 0 {
		m.GoodsSkipped.Add(float64(skipped))
	}
}

// IncRetry records one scheduled fetch retry.
func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
