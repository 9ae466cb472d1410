package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"roadbook/internal/audit"
	"roadbook/internal/identifier"
	"roadbook/internal/payroll/models"
	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
	"roadbook/pkg/platform/sentinel"
	"roadbook/pkg/requestcontext"
)

// CreatePaymentInput carries the caller-supplied fields of a new payment.
// The reference is never an input; the service allocates it.
type CreatePaymentInput struct {
	PayeeID     id.PersonID
	PayeeName   string
	TourID      id.TourID // optional except for per diems
	Kind        models.PaymentKind
	Amount      decimal.Decimal
	Currency    money.Currency
	Description string
	PerDiemDate *time.Time // required for per diems, forbidden otherwise
}

// CreatePayment allocates the next reference for the current year and
// stores a draft payment.
//
// Errors: CodeValidation for rejected input, CodeConflict when a per diem
// already exists for the same payee, tour, and day, CodeInternal for
// store or sequence failures (including an exhausted reference space).
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (*models.Payment, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	reference, err := s.nextReference(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	payment, err := models.NewPayment(id.NewPaymentID(), reference, in.PayeeID, in.PayeeName, in.Kind, in.Amount, in.Currency, now)
	if err != nil {
		return nil, err
	}
	payment.TourID = in.TourID
	payment.Description = strings.TrimSpace(in.Description)
	if in.PerDiemDate != nil {
		date := models.CivilDate(*in.PerDiemDate)
		payment.PerDiemDate = &date
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrDuplicate):
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("per diem for %s on %s already recorded", in.PayeeName, payment.PerDiemDate.Format("2006-01-02")))
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "payment reference already allocated")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create payment")
		}
	}

	s.logAudit(ctx, audit.EventPaymentCreated, payment, "", "kind", string(payment.Kind))
	s.metrics.IncrementCreated(string(payment.Kind))
	return payment, nil
}

func validateCreateInput(in CreatePaymentInput) error {
	if in.PayeeID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "payee id is required")
	}
	if strings.TrimSpace(in.PayeeName) == "" {
		return dErrors.New(dErrors.CodeValidation, "payee name is required")
	}
	if !in.Kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown payment kind "+string(in.Kind))
	}
	if !in.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "payment amount must be positive")
	}
	if _, err := money.ParseCurrency(string(in.Currency)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "payment currency")
	}
	if in.Kind == models.KindPerDiem {
		if in.TourID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "per diem payments need a tour id")
		}
		if in.PerDiemDate == nil {
			return dErrors.New(dErrors.CodeValidation, "per diem payments need a tour day")
		}
	} else if in.PerDiemDate != nil {
		return dErrors.New(dErrors.CodeValidation, "only per diem payments carry a tour day")
	}
	return nil
}

// GetPayment loads a payment by id.
func (s *Service) GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}
	return payment, nil
}

// GetPaymentByReference loads a payment by its PAY-<year>-<seq> reference.
func (s *Service) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	if !models.ValidReference(reference) {
		return nil, dErrors.New(dErrors.CodeValidation, "malformed payment reference "+reference)
	}
	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}
	return payment, nil
}

// SubmitForApproval moves a draft payment to pending_approval.
//
// Uses the Execute callback pattern for atomic validate-then-mutate; the
// store holds its lock (mutex or FOR UPDATE) across both.
func (s *Service) SubmitForApproval(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	payment, err := s.payments.Execute(ctx, paymentID,
		func(p *models.Payment) error { return p.CanSubmit() },
		func(p *models.Payment) { p.ApplySubmit(now) },
	)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}

	s.logAudit(ctx, audit.EventPaymentSubmitted, payment, "")
	s.metrics.IncrementTransition(string(payment.Status))
	return payment, nil
}

// Approve moves a pending payment to approved, gated on the payee's bank
// details. The caller resolves the profile; the gate itself does no
// lookups. On refusal the payment stays pending_approval.
//
// Errors: CodeIllegalTransition when the payment is not pending,
// CodeMissingBankDetails when the IBAN is absent or fails its checksum or
// a present BIC fails its format check, CodeInvalidInput when the profile
// belongs to another payee.
func (s *Service) Approve(ctx context.Context, paymentID id.PaymentID, profile models.PayeeBankProfile) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}
	if err := payment.CanApprove(); err != nil {
		return nil, err
	}
	if err := s.gateApproval(ctx, payment, profile); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	approver := requestcontext.ActorID(ctx)
	updated, err := s.payments.Execute(ctx, paymentID,
		func(p *models.Payment) error { return p.CanApprove() },
		func(p *models.Payment) { p.ApplyApproval(now, approver) },
	)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}

	s.logAudit(ctx, audit.EventPaymentApproved, updated, "", "approved_by", approver.String())
	s.metrics.IncrementTransition(string(updated.Status))
	return updated, nil
}

// gateApproval enforces the bank-details gate and fails closed. Refusal
// messages name the payee so batch callers can report who is blocked.
func (s *Service) gateApproval(ctx context.Context, payment *models.Payment, profile models.PayeeBankProfile) error {
	refuse := func(reason string, err error) error {
		s.metrics.IncrementApprovalRefused(reason)
		attributes := []any{"payee", payment.PayeeName, "reason", reason}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			attributes = append(attributes, "request_id", requestID)
		}
		args := append(attributes,
			"payment_id", payment.ID.String(),
			"reference", payment.Reference,
			"event", string(audit.EventPaymentApprovalRefused),
			"log_type", "audit",
		)
		s.logger.WarnContext(ctx, "payment approval refused", args...)
		s.emitAudit(ctx, audit.EventPaymentApprovalRefused, payment, err.Error(), attributes)
		return err
	}

	if !profile.PayeeID.IsNil() && profile.PayeeID != payment.PayeeID {
		return refuse("payee_mismatch", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("bank profile is for another payee, not %s on payment %s", payment.PayeeName, payment.Reference)))
	}

	iban := strings.TrimSpace(profile.IBAN)
	if iban == "" {
		return refuse("missing_iban", dErrors.New(dErrors.CodeMissingBankDetails,
			fmt.Sprintf("payee %s has no IBAN on file; payment %s stays pending approval", payment.PayeeName, payment.Reference)))
	}
	if verdict := identifier.ValidateIBAN(iban); !verdict.Valid {
		return refuse("invalid_iban", dErrors.Wrap(verdict.Err(), dErrors.CodeMissingBankDetails,
			fmt.Sprintf("payee %s has no valid bank details; payment %s stays pending approval", payment.PayeeName, payment.Reference)))
	}
	if bic := strings.TrimSpace(profile.BIC); bic != "" {
		if verdict := identifier.ValidateBIC(bic); !verdict.Valid {
			return refuse("invalid_bic", dErrors.Wrap(verdict.Err(), dErrors.CodeMissingBankDetails,
				fmt.Sprintf("payee %s has an invalid BIC; payment %s stays pending approval", payment.PayeeName, payment.Reference)))
		}
	}
	return nil
}

// ApproveBatch approves many payments, continuing past individual
// refusals. Every request gets an outcome; the batch itself never fails.
func (s *Service) ApproveBatch(ctx context.Context, requests []models.ApprovalRequest) []models.ApprovalOutcome {
	outcomes := make([]models.ApprovalOutcome, len(requests))
	approved := 0
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			outcomes[i] = models.ApprovalOutcome{PaymentID: req.PaymentID, Err: err}
			continue
		}

		payment, err := s.Approve(ctx, req.PaymentID, req.Profile)
		outcome := models.ApprovalOutcome{PaymentID: req.PaymentID, Payment: payment, Err: err}
		if payment != nil {
			outcome.Reference = payment.Reference
			approved++
		}
		outcomes[i] = outcome

		s.logger.DebugContext(ctx, "approval batch item",
			"payment_id", req.PaymentID.String(),
			"approved", err == nil,
		)
	}

	s.metrics.ObserveApprovalBatchSize(len(requests))
	s.logger.InfoContext(ctx, "approval batch finished",
		"payments", len(requests),
		"approved", approved,
		"refused", len(requests)-approved,
	)
	return outcomes
}

// Reject moves a pending payment to rejected with a reason.
func (s *Service) Reject(ctx context.Context, paymentID id.PaymentID, reason string) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}

	now := requestcontext.Now(ctx)
	payment, err := s.payments.Execute(ctx, paymentID,
		func(p *models.Payment) error { return p.CanReject() },
		func(p *models.Payment) { p.ApplyRejection(now, reason) },
	)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}

	s.logAudit(ctx, audit.EventPaymentRejected, payment, reason)
	s.metrics.IncrementTransition(string(payment.Status))
	return payment, nil
}

// ReturnToDraft moves a rejected payment back to draft for revision.
func (s *Service) ReturnToDraft(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	payment, err := s.payments.Execute(ctx, paymentID,
		func(p *models.Payment) error { return p.CanReturnToDraft() },
		func(p *models.Payment) { p.ApplyReturnToDraft(now) },
	)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}

	s.logAudit(ctx, audit.EventPaymentReturnedToDraft, payment, "")
	s.metrics.IncrementTransition(string(payment.Status))
	return payment, nil
}

// Schedule moves an approved payment to scheduled for execution on payDate.
func (s *Service) Schedule(ctx context.Context, paymentID id.PaymentID, payDate time.Time) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}
	if payDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "pay date is required")
	}

	now := requestcontext.Now(ctx)
	payment, err := s.payments.Execute(ctx, paymentID,
		func(p *models.Payment) error { return p.CanSchedule() },
		func(p *models.Payment) { p.ApplySchedule(now, payDate) },
	)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}

	s.logAudit(ctx, audit.EventPaymentScheduled, payment, "", "pay_date", payDate.Format("2006-01-02"))
	s.metrics.IncrementTransition(string(payment.Status))
	return payment, nil
}

// MarkPaid moves a scheduled payment to its terminal paid state.
func (s *Service) MarkPaid(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	if err := requirePaymentID(paymentID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	payment, err := s.payments.Execute(ctx, paymentID,
		func(p *models.Payment) error { return p.CanMarkPaid() },
		func(p *models.Payment) { p.ApplyMarkPaid(now) },
	)
	if err != nil {
		return nil, wrapPaymentErr(err)
	}

	s.logAudit(ctx, audit.EventPaymentPaid, payment, "")
	s.metrics.IncrementTransition(string(payment.Status))
	return payment, nil
}

// BankProfileReport validates every identifier on a payee profile and
// reports per-field verdicts. Pure: no store access, usable for
// pre-flight UI checks before payments are submitted.
func (s *Service) BankProfileReport(profile models.PayeeBankProfile) *models.BankProfileReport {
	checks := []struct {
		field    string
		value    string
		validate func(string) identifier.Verdict
	}{
		{"iban", profile.IBAN, identifier.ValidateIBAN},
		{"bic", profile.BIC, identifier.ValidateBIC},
		{"siret", profile.SIRET, identifier.ValidateSIRET},
		{"siren", profile.SIREN, identifier.ValidateSIREN},
		{"vat", profile.VAT, identifier.ValidateVAT},
		{"nir", profile.NIR, identifier.ValidateNIR},
	}

	report := &models.BankProfileReport{
		PayeeID: profile.PayeeID,
		Fields:  make([]models.FieldVerdict, 0, len(checks)),
	}
	ready := strings.TrimSpace(profile.IBAN) != ""
	for _, check := range checks {
		present := strings.TrimSpace(check.value) != ""
		verdict := check.validate(check.value)
		report.Fields = append(report.Fields, models.FieldVerdict{
			Field:   check.field,
			Present: present,
			Verdict: verdict,
		})
		// Only the bank identifiers gate approval; tax identifiers are
		// informational here.
		if !verdict.Valid && (check.field == "iban" || check.field == "bic") {
			ready = false
		}
	}
	report.ApprovalReady = ready
	return report
}
