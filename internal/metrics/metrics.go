package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcomes.
const (
	OutcomeImpact      = "impact"
	OutcomeNoImpact    = "no_impact"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

const (
	ArtifactClassifier = "classifier"
	ArtifactScaler     = "scaler"
)

// Metrics exports prediction metrics from a private registry.
type Metrics struct {
	registry *prometheus.Registry

	predictions       *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	artifactLoaded    *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "impact_predictions_total",
				Help: "Prediction requests by outcome",
			},
			[]string{"outcome"},
		),

		inferenceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "impact_inference_duration_seconds",
				Help:    "Time spent scaling features and running the classifier",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),

		artifactLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "impact_artifact_loaded",
				Help: "Whether an artifact was loaded at startup (1) or not (0)",
			},
			[]string{"artifact"},
		),
	}

	m.registry.MustRegister(m.predictions, m.inferenceDuration, m.artifactLoaded)

	return m
}

func (m *Metrics) RecordPrediction(outcome string) {
	m.predictions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInference(d time.Duration) {
	m.inferenceDuration.Observe(d.Seconds())
}

func (m *Metrics) SetArtifactLoaded(artifact string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	m.artifactLoaded.WithLabelValues(artifact).Set(v)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
