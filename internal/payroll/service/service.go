// Package service implements payroll operations: payment creation with
// atomic reference allocation, the lifecycle state machine, the
// bank-details approval gate, batch approval, and idempotent per-diem
// generation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"roadbook/internal/audit"
	payrollmetrics "roadbook/internal/payroll/metrics"
	"roadbook/internal/payroll/models"
	"roadbook/internal/payroll/payrollcfg"
	"roadbook/pkg/attrs"
	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/platform/sentinel"
	"roadbook/pkg/requestcontext"
)

// PaymentStore persists payments.
//
// Error contract: methods return sentinel facts (sentinel.ErrNotFound,
// sentinel.ErrDuplicate for an existing per-diem natural key,
// sentinel.ErrConflict for a reference collision); the service translates
// them into coded errors. Execute holds the store's lock (mutex or FOR
// UPDATE) across validate and mutate; on a failed validation it returns
// the current record alongside the error.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error)
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	HasPerDiem(ctx context.Context, payeeID id.PersonID, tourID id.TourID, date time.Time) (bool, error)
	Execute(ctx context.Context, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error)
}

// SequenceAllocator hands out reference sequence numbers per calendar
// year. Next must be atomic: two concurrent calls never observe the same
// number for the same year.
type SequenceAllocator interface {
	Next(ctx context.Context, year int) (int64, error)
}

// AuditPublisher records payment lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates the payroll context.
type Service struct {
	payments       PaymentStore
	sequences      SequenceAllocator
	rates          *payrollcfg.RateTable
	logger         *slog.Logger
	metrics        *payrollmetrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *payrollmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithRateTable overrides the built-in per-diem rate table.
func WithRateTable(rates *payrollcfg.RateTable) Option {
	return func(s *Service) {
		s.rates = rates
	}
}

func New(payments PaymentStore, sequences SequenceAllocator, opts ...Option) *Service {
	s := &Service{
		payments:  payments,
		sequences: sequences,
		rates:     payrollcfg.Default(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requirePaymentID(paymentID id.PaymentID) error {
	if paymentID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "payment id is required")
	}
	return nil
}

// wrapPaymentErr translates store sentinels into coded errors and passes
// already-coded errors (illegal transitions from Execute validations,
// model invariants) through unchanged.
func wrapPaymentErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "payment not found")
	case dErrors.IsCoded(err):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "payment store failure")
	}
}

// nextReference allocates the next reference for a year. Allocation is
// the engine's one serialization point; a failed creation after a
// successful allocation burns the number. References must be unique, not
// dense, so gaps are fine.
func (s *Service) nextReference(ctx context.Context, year int) (string, error) {
	seq, err := s.sequences.Next(ctx, year)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate payment sequence")
	}
	if seq > models.MaxSequencePerYear {
		return "", dErrors.Wrap(sentinel.ErrSequenceExhausted, dErrors.CodeInternal,
			fmt.Sprintf("payment reference space for %d is exhausted", year))
	}
	reference, err := models.FormatReference(year, seq)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to format payment reference")
	}
	return reference, nil
}

// logAudit logs a lifecycle event at Info and emits it to the audit
// trail. Both sinks are best-effort; neither failure blocks the
// operation that succeeded.
func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, payment *models.Payment, detail string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if payment != nil {
		args = append(args,
			"payment_id", payment.ID.String(),
			"reference", payment.Reference,
			"status", string(payment.Status),
		)
	}
	if detail != "" {
		args = append(args, "detail", detail)
	}
	s.logger.InfoContext(ctx, string(event), args...)
	s.emitAudit(ctx, event, payment, detail, attributes)
}

// emitAudit publishes one trail entry. The request ID rides in the log
// attribute slice, so it is pulled back out of attributes rather than
// read from the context a second time.
func (s *Service) emitAudit(ctx context.Context, event audit.AuditEvent, payment *models.Payment, detail string, attributes []any) {
	if s.auditPublisher == nil {
		return
	}
	evt := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(event),
		RequestID: attrs.ExtractString(attributes, "request_id"),
		Detail:    detail,
	}
	if actor := requestcontext.ActorID(ctx); !actor.IsNil() {
		evt.ActorID = actor.String()
	}
	if payment != nil {
		evt.PaymentID = payment.ID
		evt.Reference = payment.Reference
	}
	_ = s.auditPublisher.Emit(ctx, evt)
}
