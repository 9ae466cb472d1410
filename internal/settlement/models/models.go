// Package models holds the settlement bounded context's input and result
// types. All monetary fields are decimal.Decimal; results are value
// snapshots that downstream renderers (PDF, CSV, dashboard) bind to by
// JSON field name, so renaming a tag is a breaking change.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "roadbook/pkg/domain"
	"roadbook/pkg/money"
)

// TicketTier is one price level of a show's ticketing allocation.
type TicketTier struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Sold  int64           `json:"sold"`
}

// TicketSales carries a show's sales either as one flat price or as a list
// of tiers. A non-empty Tiers list wins; the flat pair is then ignored.
type TicketSales struct {
	FlatPrice decimal.Decimal `json:"flat_price"`
	FlatSold  int64           `json:"flat_sold"`
	Tiers     []TicketTier    `json:"tiers,omitempty"`
}

// Tiered reports whether sales are tier-based.
func (ts TicketSales) Tiered() bool {
	return len(ts.Tiers) > 0
}

// TotalSold returns the number of tickets sold across all tiers, or the
// flat sold count.
func (ts TicketSales) TotalSold() int64 {
	if !ts.Tiered() {
		return ts.FlatSold
	}
	var total int64
	for _, tier := range ts.Tiers {
		total += tier.Sold
	}
	return total
}

// ShowFinancialInput is everything the settlement calculation needs for one
// show. The web layer assembles it from box-office and deal records.
//
// Capacity 0 means unknown, not an empty room; fill rate reporting keeps
// the two apart. A nil TicketingFeePercent applies the engine default.
type ShowFinancialInput struct {
	ShowID              id.ShowID                  `json:"show_id"`
	Date                time.Time                  `json:"date"`
	Capacity            int64                      `json:"capacity"`
	Sales               TicketSales                `json:"sales"`
	Guarantee           decimal.Decimal            `json:"guarantee"`
	VenueRentalCost     decimal.Decimal            `json:"venue_rental_cost"`
	DoorDealPercent     decimal.Decimal            `json:"door_deal_percentage"`
	TicketingFeePercent *decimal.Decimal           `json:"ticketing_fee_percentage,omitempty"`
	PromoterExpenses    map[string]decimal.Decimal `json:"promoter_expenses,omitempty"`
	Currency            money.Currency             `json:"currency"`
}

// ExpensesTotal sums the promoter expense breakdown. A zero total selects
// the legacy versus-deal payment mode.
func (in ShowFinancialInput) ExpensesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range in.PromoterExpenses {
		total = total.Add(amount)
	}
	return total
}

// RevenueBreakdown is the ticket revenue calculator's output.
// AveragePrice is weighted by sold counts and keeps full precision so the
// break-even derivation does not lose cents.
type RevenueBreakdown struct {
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	TotalSold    int64           `json:"total_sold"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// PaymentType tags which deal formula produced the artist payment.
type PaymentType string

const (
	// PaymentTypeGuarantee means the fixed guarantee was paid with no door
	// participation on top.
	PaymentTypeGuarantee PaymentType = "guarantee"
	// PaymentTypeDoorDeal means the versus deal's door percentage beat the
	// guarantee (legacy mode).
	PaymentTypeDoorDeal PaymentType = "door_deal"
	// PaymentTypeSplitPoint means a backend percentage over the split point
	// was paid on top of the guarantee.
	PaymentTypeSplitPoint PaymentType = "split_point"
)

// FillRate distinguishes "0% full" from "capacity unknown". Percent is
// meaningful only when Known is true.
type FillRate struct {
	Known   bool            `json:"known"`
	Percent decimal.Decimal `json:"percent"`
}

// NewFillRate reports sold over capacity as a percentage, or an explicitly
// unknown rate when capacity was never recorded. Downstream rendering must
// keep "0% full" and "capacity unknown" apart.
func NewFillRate(sold, capacity int64) FillRate {
	if capacity <= 0 {
		return FillRate{Known: false}
	}
	pct := decimal.NewFromInt(sold).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(capacity)).
		Round(2)
	return FillRate{Known: true, Percent: pct}
}

// SettlementResult is the per-show settlement statement. The nine core
// fields (gross_revenue through break_even_ticket_count) are a published
// contract for downstream renderers.
//
// Invariants:
//   - NetRevenue <= GrossRevenue
//   - BackendBase >= 0 and VenueShare >= 0 (clipped, never negative)
//   - ArtistPayment >= 0
//   - Currency equals the input currency verbatim
//
// All monetary fields are rounded to the currency's minor unit; the result
// is the engine's output boundary.
type SettlementResult struct {
	ShowID   id.ShowID      `json:"show_id"`
	Date     time.Time      `json:"date"`
	Currency money.Currency `json:"currency"`

	GrossRevenue         decimal.Decimal `json:"gross_revenue"`
	TicketingFees        decimal.Decimal `json:"ticketing_fees"`
	NetRevenue           decimal.Decimal `json:"net_revenue"`
	SplitPoint           decimal.Decimal `json:"split_point"`
	BackendBase          decimal.Decimal `json:"backend_base"`
	DoorDealAmount       decimal.Decimal `json:"door_deal_amount"`
	ArtistPayment        decimal.Decimal `json:"artist_payment"`
	VenueShare           decimal.Decimal `json:"venue_share"`
	BreakEvenTicketCount int64           `json:"break_even_ticket_count"`

	PromoterProfit     decimal.Decimal `json:"promoter_profit"`
	PaymentType        PaymentType     `json:"payment_type"`
	FillRate           FillRate        `json:"fill_rate"`
	AverageTicketPrice decimal.Decimal `json:"average_ticket_price"`

	// Carried through for tour-level aggregation.
	Guarantee   decimal.Decimal `json:"guarantee"`
	TicketsSold int64           `json:"tickets_sold"`
	Capacity    int64           `json:"capacity"`
}
