package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	ticks     *prometheus.CounterVec
	published *prometheus.CounterVec
	errors    *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	forecast  *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_ticks_total",
				Help: "Polling ticks by outcome (ok, no_data)",
			},
			[]string{"symbol", "outcome"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_events_published_total",
				Help: "Price events handed to the message bus",
			},
			[]string{"topic", "symbol"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		forecast: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_forecast_price",
				Help: "Latest next-tick forecast for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick counts one tick with its outcome.
func (r *Recorder) RecordTick(symbol, outcome string) {
	r.ticks.WithLabelValues(symbol, outcome).Inc()
}

// RecordPublished counts one event handed to the bus.
func (r *Recorder) RecordPublished(topic, symbol string) {
	r.published.WithLabelValues(topic, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordForecast(symbol string, forecast float64) {
	r.forecast.WithLabelValues(symbol).Set(forecast)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTick(string, string) {}
func (Nop) RecordPublished(string, string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordForecast(string, float64) {}
func (Nop) RecordLatency(string, float64) {}
