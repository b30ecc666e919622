package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals  *prometheus.CounterVec
	skips    *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New registers the collectors on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartscan_signals_total",
			Help: "Signals persisted, by pattern",
		}, []string{"pattern"}),
		skips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartscan_skipped_tickers_total",
			Help: "Tickers skipped by the scanner, by reason",
		}, []string{"reason"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartscan_outcomes_total",
			Help: "Signals closed by the lifecycle evaluator, by classification",
		}, []string{"outcome"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chartscan_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chartscan_operation_duration_seconds",
			Help:    "Duration of scan, lifecycle and backtest runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordSignal(pattern string) { r.signals.WithLabelValues(pattern).Inc() }

func (r *Recorder) RecordSkip(reason string) { r.skips.WithLabelValues(reason).Inc() }

func (r *Recorder) RecordOutcome(classification string) {
	r.outcomes.WithLabelValues(classification).Inc()
}

func (r *Recorder) RecordError(kind string) { r.errors.WithLabelValues(kind).Inc() }

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
