// Package models holds the payroll bounded context's aggregate types: the
// Payment with its status machine, the payee bank profile the approval
// gate validates, and per-diem batch requests.
package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
)

// PaymentStatus is the payment lifecycle state.
type PaymentStatus string

const (
	StatusDraft           PaymentStatus = "draft"
	StatusPendingApproval PaymentStatus = "pending_approval"
	StatusApproved        PaymentStatus = "approved"
	StatusScheduled       PaymentStatus = "scheduled"
	StatusPaid            PaymentStatus = "paid"
	StatusRejected        PaymentStatus = "rejected"
)

// legalTransitions is the complete lifecycle graph. Rejection returns to
// draft rather than terminating; paid is the only terminal state.
var legalTransitions = map[PaymentStatus][]PaymentStatus{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusScheduled},
	StatusScheduled:       {StatusPaid},
	StatusPaid:            nil,
	StatusRejected:        {StatusDraft},
}

// CanTransitionTo reports whether moving to next is a legal lifecycle step.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s PaymentStatus) IsTerminal() bool {
	allowed, known := legalTransitions[s]
	return known && len(allowed) == 0
}

// Valid reports whether the status is one of the lifecycle states.
func (s PaymentStatus) Valid() bool {
	_, known := legalTransitions[s]
	return known
}

// PaymentKind tags what a payment is for.
type PaymentKind string

const (
	KindFee           PaymentKind = "fee"
	KindPerDiem       PaymentKind = "per_diem"
	KindReimbursement PaymentKind = "reimbursement"
)

func (k PaymentKind) Valid() bool {
	switch k {
	case KindFee, KindPerDiem, KindReimbursement:
		return true
	}
	return false
}

// MaxSequencePerYear is the largest reference number the 5-digit suffix
// can carry.
const MaxSequencePerYear = 99999

var referencePattern = regexp.MustCompile(`^PAY-[0-9]{4}-[0-9]{5}$`)

// FormatReference renders a payment reference as PAY-<year>-<5-digit-seq>.
// The sequence space for a year runs 1 through MaxSequencePerYear.
func FormatReference(year int, seq int64) (string, error) {
	if year < 1000 || year > 9999 {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("reference year %d out of range", year))
	}
	if seq < 1 || seq > MaxSequencePerYear {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("reference sequence %d out of range for year %d", seq, year))
	}
	return fmt.Sprintf("PAY-%04d-%05d", year, seq), nil
}

// ValidReference reports whether a string matches the reference format.
func ValidReference(reference string) bool {
	return referencePattern.MatchString(reference)
}

// Payment is the payroll aggregate root.
//
// Invariants:
//   - Reference matches PAY-<year>-<5-digit-seq> and never changes
//   - Amount is strictly positive
//   - Status only moves along the lifecycle graph
//   - Per-diem payments carry their (payee, tour, date) natural key
//   - CreatedAt is immutable after construction
type Payment struct {
	ID        id.PaymentID    `json:"id"`
	Reference string          `json:"reference"`
	PayeeID   id.PersonID     `json:"payee_id"`
	PayeeName string          `json:"payee_name"`
	TourID    id.TourID       `json:"tour_id,omitempty"`
	Kind      PaymentKind     `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  money.Currency  `json:"currency"`
	Status    PaymentStatus   `json:"status"`

	Description string `json:"description,omitempty"`

	// PerDiemDate is the tour day a per-diem payment covers, normalized to
	// UTC midnight. Nil for every other kind.
	PerDiemDate *time.Time `json:"per_diem_date,omitempty"`

	SubmittedAt     *time.Time  `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	ApprovedBy      id.PersonID `json:"approved_by,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	ScheduledAt     *time.Time  `json:"scheduled_at,omitempty"`
	ScheduledFor    *time.Time  `json:"scheduled_for,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPayment constructs a draft payment, validating invariants.
func NewPayment(paymentID id.PaymentID, reference string, payeeID id.PersonID, payeeName string, kind PaymentKind, amount decimal.Decimal, currency money.Currency, now time.Time) (*Payment, error) {
	if paymentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment id cannot be nil")
	}
	if !ValidReference(reference) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment reference must match PAY-<year>-<seq>")
	}
	if payeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payee id cannot be nil")
	}
	if payeeName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payee name cannot be empty")
	}
	if !kind.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown payment kind "+string(kind))
	}
	if !amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment amount must be positive")
	}
	if _, err := money.ParseCurrency(string(currency)); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payment currency "+string(currency)+" is not a currency code")
	}
	return &Payment{
		ID:        paymentID,
		Reference: reference,
		PayeeID:   payeeID,
		PayeeName: payeeName,
		Kind:      kind,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CivilDate normalizes a timestamp to its calendar day at UTC midnight.
// Per-diem natural keys compare dates in this form.
func CivilDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (p *Payment) transitionErr(next PaymentStatus) error {
	return dErrors.New(dErrors.CodeIllegalTransition,
		fmt.Sprintf("payment %s cannot move from %s to %s", p.Reference, p.Status, next))
}

// CanSubmit checks the draft to pending_approval transition.
// Use with ApplySubmit in Execute callbacks.
func (p *Payment) CanSubmit() error {
	if !p.Status.CanTransitionTo(StatusPendingApproval) {
		return p.transitionErr(StatusPendingApproval)
	}
	return nil
}

// ApplySubmit moves the payment to pending_approval. Call CanSubmit first.
func (p *Payment) ApplySubmit(now time.Time) {
	p.Status = StatusPendingApproval
	p.SubmittedAt = &now
	p.UpdatedAt = now
}

// Submit validates and applies in one call. Prefer CanSubmit + ApplySubmit
// inside Execute callbacks.
func (p *Payment) Submit(now time.Time) error {
	if err := p.CanSubmit(); err != nil {
		return err
	}
	p.ApplySubmit(now)
	return nil
}

// CanApprove checks the pending_approval to approved transition. The bank
// details gate is enforced at the service layer on top of this.
func (p *Payment) CanApprove() error {
	if !p.Status.CanTransitionTo(StatusApproved) {
		return p.transitionErr(StatusApproved)
	}
	return nil
}

// ApplyApproval moves the payment to approved. Call CanApprove first.
func (p *Payment) ApplyApproval(now time.Time, approvedBy id.PersonID) {
	p.Status = StatusApproved
	p.ApprovedAt = &now
	p.ApprovedBy = approvedBy
	p.UpdatedAt = now
}

// CanReject checks the pending_approval to rejected transition.
func (p *Payment) CanReject() error {
	if !p.Status.CanTransitionTo(StatusRejected) {
		return p.transitionErr(StatusRejected)
	}
	return nil
}

// ApplyRejection moves the payment to rejected. Call CanReject first.
func (p *Payment) ApplyRejection(now time.Time, reason string) {
	p.Status = StatusRejected
	p.RejectedAt = &now
	p.RejectionReason = reason
	p.UpdatedAt = now
}

// CanReturnToDraft checks the rejected to draft transition. Rejection does
// not terminate; the payment goes back for revision.
func (p *Payment) CanReturnToDraft() error {
	if !p.Status.CanTransitionTo(StatusDraft) {
		return p.transitionErr(StatusDraft)
	}
	return nil
}

// ApplyReturnToDraft moves the payment back to draft. The last rejection's
// metadata stays on the record for the revision trail.
func (p *Payment) ApplyReturnToDraft(now time.Time) {
	p.Status = StatusDraft
	p.UpdatedAt = now
}

// CanSchedule checks the approved to scheduled transition.
func (p *Payment) CanSchedule() error {
	if !p.Status.CanTransitionTo(StatusScheduled) {
		return p.transitionErr(StatusScheduled)
	}
	return nil
}

// ApplySchedule moves the payment to scheduled for execution on payDate.
// Call CanSchedule first.
func (p *Payment) ApplySchedule(now, payDate time.Time) {
	p.Status = StatusScheduled
	p.ScheduledAt = &now
	p.ScheduledFor = &payDate
	p.UpdatedAt = now
}

// CanMarkPaid checks the scheduled to paid transition.
func (p *Payment) CanMarkPaid() error {
	if !p.Status.CanTransitionTo(StatusPaid) {
		return p.transitionErr(StatusPaid)
	}
	return nil
}

// ApplyMarkPaid moves the payment to its terminal paid state. Call
// CanMarkPaid first.
func (p *Payment) ApplyMarkPaid(now time.Time) {
	p.Status = StatusPaid
	p.PaidAt = &now
	p.UpdatedAt = now
}

// Clone returns an independent copy. Stores hand out clones so callers
// never share the stored record.
func (p *Payment) Clone() *Payment {
	clone := *p
	clone.PerDiemDate = cloneTime(p.PerDiemDate)
	clone.SubmittedAt = cloneTime(p.SubmittedAt)
	clone.ApprovedAt = cloneTime(p.ApprovedAt)
	clone.RejectedAt = cloneTime(p.RejectedAt)
	clone.ScheduledAt = cloneTime(p.ScheduledAt)
	clone.ScheduledFor = cloneTime(p.ScheduledFor)
	clone.PaidAt = cloneTime(p.PaidAt)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

// PayeeBankProfile carries a payee's bank and tax identifiers for
// validation. Every field except PayeeID is optional; the engine validates
// and never stores these values.
type PayeeBankProfile struct {
	PayeeID id.PersonID `json:"payee_id"`
	IBAN    string      `json:"iban,omitempty"`
	BIC     string      `json:"bic,omitempty"`
	SIRET   string      `json:"siret,omitempty"`
	SIREN   string      `json:"siren,omitempty"`
	VAT     string      `json:"vat,omitempty"`
	NIR     string      `json:"nir,omitempty"`
}
