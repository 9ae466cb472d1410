package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tour aggregation module.
type Metrics struct {
	// Tour summaries produced
	Summaries prometheus.Counter

	// Shows per tour summary
	ShowsPerSummary prometheus.Histogram

	// Dashboard KPI reports produced
	KPIReports prometheus.Counter
}

// New creates a new Metrics instance with all tour module metrics registered.
func New() *Metrics {
	return &Metrics{
		Summaries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roadbook_tour_summaries_total",
			Help: "Total tour summaries produced",
		}),

		ShowsPerSummary: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadbook_tour_shows_per_summary",
			Help:    "Number of shows rolled up per tour summary",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),

		KPIReports: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roadbook_tour_kpi_reports_total",
			Help: "Total dashboard KPI reports produced",
		}),
	}
}

// IncrementSummaries records a completed tour summary.
func (m *Metrics) IncrementSummaries() {
	if m != nil {
		m.Summaries.Inc()
	}
}

// ObserveShowsPerSummary records the number of shows in a tour summary.
func (m *Metrics) ObserveShowsPerSummary(n int) {
	if m != nil {
		m.ShowsPerSummary.Observe(float64(n))
	}
}

// IncrementKPIReports records a produced dashboard KPI report.
func (m *Metrics) IncrementKPIReports() {
	if m != nil {
		m.KPIReports.Inc()
	}
}
