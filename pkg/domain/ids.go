// Package domain holds typed identifiers and shared value types used across
// bounded contexts. IDs are distinct types over uuid.UUID so a ShowID can
// never be passed where a PaymentID is expected.
//
// Construct IDs with NewXID for fresh entities and ParseXID at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "roadbook/pkg/domain-errors"
)

type (
	// ShowID identifies a single performance of a tour.
	ShowID uuid.UUID
	// TourID identifies a tour (an ordered run of shows).
	TourID uuid.UUID
	// PaymentID identifies a payroll payment.
	PaymentID uuid.UUID
	// PersonID identifies a payee (artist, crew member, contractor).
	PersonID uuid.UUID
	// BatchID identifies one per-diem generation run.
	BatchID uuid.UUID
)

func NewShowID() ShowID       { return ShowID(uuid.New()) }
func NewTourID() TourID       { return TourID(uuid.New()) }
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }
func NewPersonID() PersonID   { return PersonID(uuid.New()) }
func NewBatchID() BatchID     { return BatchID(uuid.New()) }

func (id ShowID) String() string    { return uuid.UUID(id).String() }
func (id TourID) String() string    { return uuid.UUID(id).String() }
func (id PaymentID) String() string { return uuid.UUID(id).String() }
func (id PersonID) String() string  { return uuid.UUID(id).String() }
func (id BatchID) String() string   { return uuid.UUID(id).String() }

func (id ShowID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TourID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id BatchID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// ParseShowID parses an external string into a ShowID.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID; no other errors are expected.
func ParseShowID(s string) (ShowID, error) {
	u, err := parseUUID(s, "show id")
	return ShowID(u), err
}

// ParseTourID parses an external string into a TourID.
func ParseTourID(s string) (TourID, error) {
	u, err := parseUUID(s, "tour id")
	return TourID(u), err
}

// ParsePaymentID parses an external string into a PaymentID.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment id")
	return PaymentID(u), err
}

// ParsePersonID parses an external string into a PersonID.
func ParsePersonID(s string) (PersonID, error) {
	u, err := parseUUID(s, "person id")
	return PersonID(u), err
}

// ParseBatchID parses an external string into a BatchID.
func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s, "batch id")
	return BatchID(u), err
}

// parseUUID enforces the shared ID invariant: valid, non-empty, non-nil.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
