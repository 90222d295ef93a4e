package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mart_locator"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// geocoding pipeline and the on-demand resolver.
type Metrics struct {
	PipelineRunning  prometheus.Gauge
	PipelineProgress prometheus.Gauge
	PipelineRuns     *prometheus.CounterVec // labels: result={done,fetch_failed,persist_failed,unavailable,canceled}

	// Batch processing metrics.
	BatchesProcessed        prometheus.Counter
	BatchProcessingDuration prometheus.Histogram
	EntryOutcomes           *prometheus.CounterVec // labels: outcome={resolved,fallback,unresolved,skipped}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={found,not_found,unavailable,error}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge

	// Live catalog metrics.
	Resolutions       *prometheus.CounterVec // labels: outcome={cached,resolved,unresolvable,exhausted}
	CatalogEntries    prometheus.Gauge
	CatalogUnresolved prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.PipelineRunning,
		m.PipelineProgress,
		m.PipelineRuns,
		m.BatchesProcessed,
		m.BatchProcessingDuration,
		m.EntryOutcomes,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.Resolutions,
		m.CatalogEntries,
		m.CatalogUnresolved,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a batch geocoding run is in progress."),
		}),
		PipelineProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_progress_percent",
			Help:      help("Progress of the current or last batch run, 0-100."),
		}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      help("Completed batch runs by result."),
		}, []string{"result"}),
		BatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      help("Total geocoding batches processed."),
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of one concurrent geocoding batch, excluding the inter-batch delay."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		EntryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_entries_total",
			Help:      help("Catalog entries processed by the batch pipeline, by outcome."),
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding API requests by method and outcome."),
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by method and result."),
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Geocoding provider request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when a geocoding provider is configured, 0 otherwise."),
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "on_demand_resolutions_total",
			Help:      help("On-demand entry resolutions by outcome."),
		}, []string{"outcome"}),
		CatalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      help("Entries in the live catalog."),
		}),
		CatalogUnresolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_unresolved_entries",
			Help:      help("Live catalog entries without coordinates."),
		}),
	}
}
