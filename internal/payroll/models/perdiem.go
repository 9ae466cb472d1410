package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "roadbook/pkg/domain"
	"roadbook/pkg/money"
	"roadbook/pkg/platform/strings"
)

// DayType classifies a tour day for per-diem eligibility.
type DayType string

const (
	DayTypeShow      DayType = "show_day"
	DayTypeTravel    DayType = "travel_day"
	DayTypeOff       DayType = "day_off"
	DayTypePress     DayType = "press_day"
	DayTypeRehearsal DayType = "rehearsal_day"
)

// Role is a payee's function on the tour, used to look up the default
// per-diem rate when a batch does not override the amount.
type Role string

const (
	RoleMusician    Role = "musician"
	RoleCrew        Role = "crew"
	RoleDriver      Role = "driver"
	RoleTourManager Role = "tour_manager"
)

// TourDay is one dated entry of a tour schedule.
type TourDay struct {
	Date time.Time `json:"date"`
	Type DayType   `json:"type"`
}

// PerDiemPerson is one payee eligible for per diems on a tour.
type PerDiemPerson struct {
	ID   id.PersonID `json:"id"`
	Name string      `json:"name"`
	Role Role        `json:"role"`
}

// PerDiemRequest asks for one per-diem payment per eligible person per
// eligible day of the schedule. A nil Amount falls back to the rate
// table's daily rate for each person's role.
//
// Days whose type appears in ExcludedDayTypes are skipped, as is any
// (person, date, tour) combination that already has a per-diem payment
// recorded, so re-running an overlapping batch never duplicates payments.
type PerDiemRequest struct {
	TourID           id.TourID        `json:"tour_id"`
	Schedule         []TourDay        `json:"schedule"`
	People           []PerDiemPerson  `json:"people"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Currency         money.Currency   `json:"currency"`
	ExcludedDayTypes []DayType        `json:"excluded_day_types,omitempty"`
}

// NormalizedExclusions returns ExcludedDayTypes trimmed, lowercased, and
// deduplicated. Exclusion lists arrive from spreadsheet imports and hand
// edits, so " Day_Off" and "day_off" must mean the same thing.
func (r PerDiemRequest) NormalizedExclusions() []DayType {
	raw := make([]string, len(r.ExcludedDayTypes))
	for i, dayType := range r.ExcludedDayTypes {
		raw[i] = string(dayType)
	}
	normalized := strings.DedupeAndTrimLower(raw)
	exclusions := make([]DayType, len(normalized))
	for i, v := range normalized {
		exclusions[i] = DayType(v)
	}
	return exclusions
}

// Excluded reports whether a day type is excluded by the request. The
// comparison is exact; callers normalize the list first.
func (r PerDiemRequest) Excluded(dayType DayType) bool {
	for _, excluded := range r.ExcludedDayTypes {
		if excluded == dayType {
			return true
		}
	}
	return false
}

// PerDiemOutcomeStatus tags what happened to one (person, date) candidate.
type PerDiemOutcomeStatus string

const (
	PerDiemCreated       PerDiemOutcomeStatus = "created"
	PerDiemSkippedDay    PerDiemOutcomeStatus = "skipped_day_type"
	PerDiemSkippedExists PerDiemOutcomeStatus = "skipped_existing"
	PerDiemFailed        PerDiemOutcomeStatus = "failed"
)

// PerDiemOutcome reports one (person, date) candidate of a batch. Batches
// never fail as a whole; each row says whether its payment was created,
// why it was skipped, or how it failed.
type PerDiemOutcome struct {
	PersonID id.PersonID          `json:"person_id"`
	Date     time.Time            `json:"date"`
	Status   PerDiemOutcomeStatus `json:"status"`
	Reason   string               `json:"reason,omitempty"`
	Payment  *Payment             `json:"payment,omitempty"`
	Err      error                `json:"-"`
}

// PerDiemBatch is the result of one generation run.
type PerDiemBatch struct {
	BatchID  id.BatchID       `json:"batch_id"`
	TourID   id.TourID        `json:"tour_id"`
	Outcomes []PerDiemOutcome `json:"outcomes"`

	Created         int `json:"created"`
	SkippedDayType  int `json:"skipped_day_type"`
	SkippedExisting int `json:"skipped_existing"`
	Failed          int `json:"failed"`
}

// ApprovalRequest pairs a payment with its payee's bank profile. The
// caller resolves the profile; the approval gate itself does no lookups.
type ApprovalRequest struct {
	PaymentID id.PaymentID     `json:"payment_id"`
	Profile   PayeeBankProfile `json:"profile"`
}

// ApprovalOutcome reports one payment of an approval batch. Err carries
// the blocker (illegal transition, missing bank details) when approval was
// refused; the batch itself always runs to the end.
type ApprovalOutcome struct {
	PaymentID id.PaymentID `json:"payment_id"`
	Reference string       `json:"reference,omitempty"`
	Payment   *Payment     `json:"payment,omitempty"`
	Err       error        `json:"-"`
}
