package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payroll module.
type Metrics struct {
	// Payments created, by kind
	Created *prometheus.CounterVec

	// Lifecycle transitions applied, by resulting status
	Transitions *prometheus.CounterVec

	// Approvals refused at the gate, by reason
	ApprovalsRefused *prometheus.CounterVec

	// Per-diem batch outcomes, by outcome status
	PerDiemOutcomes *prometheus.CounterVec

	// Candidates per per-diem batch
	PerDiemBatchSize prometheus.Histogram

	// Payments per approval batch
	ApprovalBatchSize prometheus.Histogram
}

// New creates a new Metrics instance with all payroll module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roadbook_payroll_payments_created_total",
			Help: "Total payments created by kind",
		}, []string{"kind"}), // kind: "fee", "per_diem", "reimbursement"

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roadbook_payroll_transitions_total",
			Help: "Total lifecycle transitions by resulting status",
		}, []string{"status"}),

		ApprovalsRefused: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roadbook_payroll_approvals_refused_total",
			Help: "Total approvals refused at the bank details gate",
		}, []string{"reason"}), // reason: "missing_iban", "invalid_iban", "invalid_bic", "payee_mismatch"

		PerDiemOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roadbook_payroll_perdiem_outcomes_total",
			Help: "Total per-diem batch outcomes by status",
		}, []string{"status"}), // status: "created", "skipped_day_type", "skipped_existing", "failed"

		PerDiemBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadbook_payroll_perdiem_batch_size_candidates",
			Help:    "Number of (person, day) candidates per per-diem batch",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2500},
		}),

		ApprovalBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadbook_payroll_approval_batch_size_payments",
			Help:    "Number of payments per approval batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncrementCreated records a created payment by kind.
func (m *Metrics) IncrementCreated(kind string) {
	if m != nil {
		m.Created.WithLabelValues(kind).Inc()
	}
}

// IncrementTransition records an applied lifecycle transition.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

// IncrementApprovalRefused records an approval blocked at the gate.
func (m *Metrics) IncrementApprovalRefused(reason string) {
	if m != nil {
		m.ApprovalsRefused.WithLabelValues(reason).Inc()
	}
}

// IncrementPerDiemOutcome records one per-diem candidate outcome.
func (m *Metrics) IncrementPerDiemOutcome(status string) {
	if m != nil {
		m.PerDiemOutcomes.WithLabelValues(status).Inc()
	}
}

// ObservePerDiemBatchSize records the candidate count of a batch run.
func (m *Metrics) ObservePerDiemBatchSize(n int) {
	if m != nil {
		m.PerDiemBatchSize.Observe(float64(n))
	}
}

// ObserveApprovalBatchSize records the payment count of an approval batch.
func (m *Metrics) ObserveApprovalBatchSize(n int) {
	if m != nil {
		m.ApprovalBatchSize.Observe(float64(n))
	}
}
