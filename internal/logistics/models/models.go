// Package models holds the logistics bounded context's expense line-items
// and cost report types. Cost reports are informational for tour managers;
// settlement never reads them, and unpaid totals are never deducted from a
// show's settlement.
package models

import (
	"github.com/shopspring/decimal"

	id "roadbook/pkg/domain"
	"roadbook/pkg/money"
)

// Category is one of the fixed logistics cost buckets.
type Category string

const (
	CategoryTransport     Category = "transport"
	CategoryAccommodation Category = "accommodation"
	CategoryEquipment     Category = "equipment"
	CategoryServices      Category = "services"
	// CategoryOther collects subtypes outside the fixed membership so an
	// unrecognized line-item never errors, it just lands in its own bucket.
	CategoryOther Category = "other"
)

// CategoriesInOrder is the fixed rendering order for cost reports.
var CategoriesInOrder = []Category{
	CategoryTransport,
	CategoryAccommodation,
	CategoryEquipment,
	CategoryServices,
	CategoryOther,
}

// Subtype is the specific kind of expense within a category.
type Subtype string

const (
	SubtypeFlight    Subtype = "flight"
	SubtypeTrain     Subtype = "train"
	SubtypeTourBus   Subtype = "tour_bus"
	SubtypeVanRental Subtype = "van_rental"
	SubtypeFuel      Subtype = "fuel"
	SubtypeTaxi      Subtype = "taxi"
	SubtypeFerry     Subtype = "ferry"
	SubtypeParking   Subtype = "parking"

	SubtypeHotel     Subtype = "hotel"
	SubtypeHostel    Subtype = "hostel"
	SubtypeApartment Subtype = "apartment"
	SubtypeDayRoom   Subtype = "day_room"

	SubtypeBacklineRental   Subtype = "backline_rental"
	SubtypePARental         Subtype = "pa_rental"
	SubtypeLightingRental   Subtype = "lighting_rental"
	SubtypeInstrumentRepair Subtype = "instrument_repair"
	SubtypeConsumables      Subtype = "consumables"

	SubtypeCatering  Subtype = "catering"
	SubtypeSecurity  Subtype = "security"
	SubtypeLocalCrew Subtype = "local_crew"
	SubtypeLaundry   Subtype = "laundry"
	SubtypeVisaFees  Subtype = "visa_fees"
)

// subtypeCategories is the fixed category membership. Subtypes outside the
// map fall back to CategoryOther.
var subtypeCategories = map[Subtype]Category{
	SubtypeFlight:    CategoryTransport,
	SubtypeTrain:     CategoryTransport,
	SubtypeTourBus:   CategoryTransport,
	SubtypeVanRental: CategoryTransport,
	SubtypeFuel:      CategoryTransport,
	SubtypeTaxi:      CategoryTransport,
	SubtypeFerry:     CategoryTransport,
	SubtypeParking:   CategoryTransport,

	SubtypeHotel:     CategoryAccommodation,
	SubtypeHostel:    CategoryAccommodation,
	SubtypeApartment: CategoryAccommodation,
	SubtypeDayRoom:   CategoryAccommodation,

	SubtypeBacklineRental:   CategoryEquipment,
	SubtypePARental:         CategoryEquipment,
	SubtypeLightingRental:   CategoryEquipment,
	SubtypeInstrumentRepair: CategoryEquipment,
	SubtypeConsumables:      CategoryEquipment,

	SubtypeCatering:  CategoryServices,
	SubtypeSecurity:  CategoryServices,
	SubtypeLocalCrew: CategoryServices,
	SubtypeLaundry:   CategoryServices,
	SubtypeVisaFees:  CategoryServices,
}

// CategoryOf returns the fixed category for a subtype, CategoryOther when
// the subtype is outside the membership.
func CategoryOf(subtype Subtype) Category {
	if category, ok := subtypeCategories[subtype]; ok {
		return category
	}
	return CategoryOther
}

// PayerUnattributed labels items whose payer was never recorded.
const PayerUnattributed = "unattributed"

// ExpenseItem is one logistics cost line. Amount may be negative for a
// credit or refund. Paid false means the bill is still open; open bills
// feed the unpaid running total only, never the settlement.
type ExpenseItem struct {
	TourID      id.TourID       `json:"tour_id"`
	Subtype     Subtype         `json:"subtype"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    money.Currency  `json:"currency"`
	Payer       string          `json:"payer"`
	Paid        bool            `json:"paid"`
}

// CategoryTotal is the per-category rollup row.
type CategoryTotal struct {
	Category  Category        `json:"category"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// SubtypeTotal is the per-subtype rollup row.
type SubtypeTotal struct {
	Subtype   Subtype         `json:"subtype"`
	Category  Category        `json:"category"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// PayerTotal is the per-payer rollup row, with that payer's share of the
// unpaid running total broken out.
type PayerTotal struct {
	Payer       string          `json:"payer"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	UnpaidTotal decimal.Decimal `json:"unpaid_total"`
}

// CostReport is the logistics rollup for a set of expense items.
//
// Total always equals PaidTotal plus UnpaidTotal, and the ByCategory rows
// always sum to Total. UnpaidTotal is informational only.
//
// Amounts are raw sums across currencies with the same display-currency
// flagging the settlement rollups use; nothing is converted.
type CostReport struct {
	ItemCount int `json:"item_count"`

	Total       decimal.Decimal `json:"total"`
	PaidTotal   decimal.Decimal `json:"paid_total"`
	UnpaidTotal decimal.Decimal `json:"unpaid_total"`
	UnpaidCount int             `json:"unpaid_count"`

	ByCategory []CategoryTotal `json:"by_category"`
	BySubtype  []SubtypeTotal  `json:"by_subtype"`
	ByPayer    []PayerTotal    `json:"by_payer"`

	DisplayCurrency money.Currency `json:"display_currency"`
	MixedCurrencies bool           `json:"mixed_currencies"`
}
