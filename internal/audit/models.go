// Package audit records payment lifecycle events. It is engine-internal:
// a Publisher appends events through a pluggable Store, and a Worker
// drains a channel for callers that emit asynchronously. No broker.
package audit

import (
	"time"

	id "roadbook/pkg/domain"
)

// AuditEvent names a recorded payroll action.
type AuditEvent string

const (
	EventPaymentCreated         AuditEvent = "payment_created"
	EventPaymentSubmitted       AuditEvent = "payment_submitted"
	EventPaymentApproved        AuditEvent = "payment_approved"
	EventPaymentApprovalRefused AuditEvent = "payment_approval_refused"
	EventPaymentRejected        AuditEvent = "payment_rejected"
	EventPaymentReturnedToDraft AuditEvent = "payment_returned_to_draft"
	EventPaymentScheduled       AuditEvent = "payment_scheduled"
	EventPaymentPaid            AuditEvent = "payment_paid"
	EventPerDiemBatchGenerated  AuditEvent = "per_diem_batch_generated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    string
	PaymentID id.PaymentID
	Reference string
	ActorID   string
	RequestID string
	Detail    string
}
