package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the logistics module.
type Metrics struct {
	// Cost reports produced
	Reports prometheus.Counter

	// Expense items per report
	ItemsPerReport prometheus.Histogram
}

// New creates a new Metrics instance with all logistics module metrics registered.
func New() *Metrics {
	return &Metrics{
		Reports: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roadbook_logistics_reports_total",
			Help: "Total logistics cost reports produced",
		}),

		ItemsPerReport: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadbook_logistics_items_per_report",
			Help:    "Number of expense items per cost report",
			Buckets: []float64{1, 10, 50, 100, 500, 1000},
		}),
	}
}

// IncrementReports records a produced cost report.
func (m *Metrics) IncrementReports() {
	if m != nil {
		m.Reports.Inc()
	}
}

// ObserveItemsPerReport records the number of items in a cost report.
func (m *Metrics) ObserveItemsPerReport(n int) {
	if m != nil {
		m.ItemsPerReport.Observe(float64(n))
	}
}
