// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Alias1177/Fusion/models"
)

// Metrics groups the collectors touched by the evaluation pipeline.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	DegradedTimeframes *prometheus.CounterVec
	SignalDirections   *prometheus.CounterVec
	EvaluationLatency  prometheus.Histogram
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_evaluations_total",
			Help: "Evaluation ticks by symbol and outcome.",
		}, []string{"symbol", "outcome"}),
		DegradedTimeframes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_degraded_timeframes_total",
			Help: "Timeframes excluded from fusion, by timeframe and reason.",
		}, []string{"timeframe", "reason"}),
		SignalDirections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_signal_directions_total",
			Help: "Emitted overall signal directions.",
		}, []string{"symbol", "direction"}),
		EvaluationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fusion_evaluation_duration_seconds",
			Help:    "Wall time of one full evaluation tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveSignal counts the direction of one emitted signal.
func (m *Metrics) ObserveSignal(sig *models.MarketSignal) {
	if m == nil || sig == nil {
		return
	}
	m.SignalDirections.WithLabelValues(sig.Symbol, string(sig.Overall.Direction)).Inc()
}

// Handler returns the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
