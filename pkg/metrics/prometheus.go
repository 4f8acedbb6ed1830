package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	lastForecast *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_forecast_runs_total",
				Help: "Forecast runs by backend and result",
			},
			[]string{"backend", "result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_lag_fallbacks_total",
				Help: "Lag lookups that fell back to the last observed value",
			},
			[]string{"backend"},
		),
		lastForecast: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_last_forecast_value",
				Help: "Final value of the latest forecast for a symbol",
			},
			[]string{"symbol", "backend"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// RecordRun counts a finished symbol run.
func (r *Recorder) RecordRun(backend, result string) {
	r.runsTotal.WithLabelValues(backend, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordFallbacks adds n degraded lag lookups.
func (r *Recorder) RecordFallbacks(backend string, n int) {
	if n <= 0 {
		return
	}
	r.fallbacks.WithLabelValues(backend).Add(float64(n))
}

// RecordLastForecast records the horizon-end value of a forecast.
func (r *Recorder) RecordLastForecast(symbol, backend string, value float64) {
	r.lastForecast.WithLabelValues(symbol, backend).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordRun(string, string)                   {}
func (Nop) RecordError(string)                         {}
func (Nop) RecordFallbacks(string, int)                {}
func (Nop) RecordLastForecast(string, string, float64) {}
func (Nop) RecordLatency(string, float64)              {}
