package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	fetchErrors   *prometheus.CounterVec
	openInterest  *prometheus.GaugeVec
	signals       *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on reg. Pass prometheus.DefaultRegisterer
// to expose the series on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_cycles_total",
				Help: "Completed pipeline cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signalpull_cycle_duration_seconds",
				Help:    "Wall time of one pipeline cycle",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_fetch_errors_total",
				Help: "Per-instrument snapshot fetch failures",
			},
			[]string{"symbol"},
		),
		openInterest: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalpull_open_interest",
				Help: "Last observed open interest per instrument",
			},
			[]string{"symbol"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_signals_total",
				Help: "Confirmed signals by instrument and side",
			},
			[]string{"symbol", "side"},
		),
		confirmations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_confirmations_total",
				Help: "Confirmation step outcomes",
			},
			[]string{"degraded", "reason"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_alerts_total",
				Help: "Alert dispatch outcomes by attempts used",
			},
			[]string{"sent", "attempts"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle(seconds float64, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(seconds)
}

func (r *Recorder) RecordFetchError(symbol string) {
	r.fetchErrors.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordOpenInterest(symbol string, oi float64) {
	r.openInterest.WithLabelValues(symbol).Set(oi)
}

func (r *Recorder) RecordSignal(symbol, side string) {
	r.signals.WithLabelValues(symbol, side).Inc()
}

func (r *Recorder) RecordConfirmation(degraded bool, reason string) {
	r.confirmations.WithLabelValues(strconv.FormatBool(degraded), reason).Inc()
}

func (r *Recorder) RecordAlert(sent bool, attempts int) {
	r.alerts.WithLabelValues(strconv.FormatBool(sent), strconv.Itoa(attempts)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordCycle(float64, bool) {}
func (Noop) RecordFetchError(string) {}
func (Noop) RecordOpenInterest(string, float64) {}
func (Noop) RecordSignal(string, string) {}
func (Noop) RecordConfirmation(bool, string) {}
func (Noop) RecordAlert(bool, int) {}
func (Noop) RecordError(string) {}
func (Noop) RecordLatency(string, float64) {}
