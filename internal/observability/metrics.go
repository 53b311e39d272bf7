package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_pipeline"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,http_error,network_error,decode_error,circuit_open}
	UpstreamDuration prometheus.Histogram

	// Pipeline run metrics.
	PipelineRuns        prometheus.Counter
	RecordsProduced     prometheus.Counter
	CitiesDropped       prometheus.Counter
	RunDuration         prometheus.Histogram
	SinkPublishFailures prometheus.Counter

	// Prediction metrics.
	Predictions     *prometheus.CounterVec // labels: outcome={success,unavailable,invalid,error}
	ModelAvailable  prometheus.Gauge
	DroppedFeatures prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.PipelineRuns,
		m.RecordsProduced,
		m.CitiesDropped,
		m.RunDuration,
		m.SinkPublishFailures,
		m.Predictions,
		m.ModelAvailable,
		m.DroppedFeatures,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "OpenWeatherMap requests by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "OpenWeatherMap request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs.",
		}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_produced_total",
			Help:      "Weather records produced by pipeline runs.",
		}),
		CitiesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cities_dropped_total",
			Help:      "Cities omitted from a run because the fetch or normalization failed.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SinkPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publish_failures_total",
			Help:      "Record batches that could not be published to the sink.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		ModelAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_available",
			Help:      "1 when a model artifact is loaded, 0 otherwise.",
		}),
		DroppedFeatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_features_total",
			Help:      "Request features not recognized by the loaded model.",
		}),
	}
}
