package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the settlement module.
type Metrics struct {
	// Settlements computed, by payment type
	Computed *prometheus.CounterVec

	// Single-show computation latency
	ComputeLatency prometheus.Histogram

	// Shows per batch computation
	BatchSize prometheus.Histogram
}

// New creates a new Metrics instance with all settlement module metrics registered.
func New() *Metrics {
	return &Metrics{
		Computed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roadbook_settlement_computed_total",
			Help: "Total settlements computed by payment type",
		}, []string{"payment_type"}), // payment_type: "guarantee", "door_deal", "split_point"

		ComputeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadbook_settlement_compute_duration_seconds",
			Help:    "Duration of single-show settlement computation",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
		}),

		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadbook_settlement_batch_size_shows",
			Help:    "Number of shows per settlement batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncrementComputed records a completed settlement by payment type.
func (m *Metrics) IncrementComputed(paymentType string) {
	if m != nil {
		m.Computed.WithLabelValues(paymentType).Inc()
	}
}

// ObserveComputeDuration records the duration of one settlement computation.
func (m *Metrics) ObserveComputeDuration(d time.Duration) {
	if m != nil {
		m.ComputeLatency.Observe(d.Seconds())
	}
}

// ObserveBatchSize records the number of shows in a batch computation.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}
