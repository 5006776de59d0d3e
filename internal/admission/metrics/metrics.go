// Package metrics provides observability for the admission module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for admission control.
type Metrics struct {
	// Verdicts by outcome and reason
	Verdicts *prometheus.CounterVec

	// Detector call latencies by signal source
	DetectorLatency *prometheus.HistogramVec

	// Detector degradations by source and cause (error, timeout, circuit_open)
	DetectorFailures *prometheus.CounterVec

	// Overall evaluation latency including signal gathering
	EvaluateLatency prometheus.Histogram

	// Identities currently tracked by the window store
	TrackedIdentities prometheus.Gauge
}

// New creates and registers all admission metrics.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_admission_verdicts_total",
			Help: "Total admission verdicts by outcome and denial reason",
		}, []string{"outcome", "reason"}),

		DetectorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatekeeper_admission_detector_duration_seconds",
			Help:    "Duration of detection signal calls by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}), // source: "bot", "shield"

		DetectorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_admission_detector_failures_total",
			Help: "Detector calls degraded to unflagged, by source and cause",
		}, []string{"source", "cause"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_admission_evaluate_duration_seconds",
			Help:    "Duration of full admission evaluation including signal gathering",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		TrackedIdentities: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_admission_tracked_identities",
			Help: "Identities currently tracked by the window store",
		}),
	}
}

// IncrementVerdict records one verdict.
func (m *Metrics) IncrementVerdict(outcome, reason string) {
	if m != nil {
		m.Verdicts.WithLabelValues(outcome, reason).Inc()
	}
}

// ObserveDetectorLatency records the duration of one detector call.
func (m *Metrics) ObserveDetectorLatency(source string, d time.Duration) {
	if m != nil {
		m.DetectorLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementDetectorFailure records a detector call degraded to unflagged.
func (m *Metrics) IncrementDetectorFailure(source, cause string) {
	if m != nil {
		m.DetectorFailures.WithLabelValues(source, cause).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// SetTrackedIdentities records the current window store population.
func (m *Metrics) SetTrackedIdentities(count int) {
	if m != nil {
		m.TrackedIdentities.Set(float64(count))
	}
}
