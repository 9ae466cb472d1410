package models

import (
	"roadbook/internal/identifier"
	id "roadbook/pkg/domain"
)

// FieldVerdict is the validation outcome for one bank profile field.
type FieldVerdict struct {
	Field   string             `json:"field"`
	Present bool               `json:"present"`
	Verdict identifier.Verdict `json:"verdict"`
}

// BankProfileReport is the pre-flight validation view of a payee profile:
// one verdict per field, plus whether the profile would pass the approval
// gate as it stands.
type BankProfileReport struct {
	PayeeID       id.PersonID    `json:"payee_id"`
	Fields        []FieldVerdict `json:"fields"`
	ApprovalReady bool           `json:"approval_ready"`
}

// Field returns the verdict row for a field name, or nil.
func (r *BankProfileReport) Field(name string) *FieldVerdict {
	for i := range r.Fields {
		if r.Fields[i].Field == name {
			return &r.Fields[i]
		}
	}
	return nil
}
