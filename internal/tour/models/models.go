// Package models holds the tour bounded context's aggregation results:
// tour-level and multi-tour rollups of per-show settlements, and the
// dashboard KPI series. All types are value snapshots for renderers.
package models

import (
	"github.com/shopspring/decimal"

	settlement "roadbook/internal/settlement/models"
	id "roadbook/pkg/domain"
	"roadbook/pkg/money"
)

// ShowTotals sums the per-show settlement fields across a set of shows.
//
// Amounts are raw sums across every show regardless of currency; a
// mixed-currency set is labelled with the modal display currency and
// flagged, not converted. Renderers that need exact figures per currency
// read PerCurrency on the enclosing summary instead.
//
// Capacity sums only shows whose capacity is recorded, so TicketsSold may
// exceed what Capacity alone would suggest.
type ShowTotals struct {
	GrossRevenue   decimal.Decimal `json:"gross_revenue"`
	TicketingFees  decimal.Decimal `json:"ticketing_fees"`
	NetRevenue     decimal.Decimal `json:"net_revenue"`
	Guarantees     decimal.Decimal `json:"guarantees"`
	DoorDealTotals decimal.Decimal `json:"door_deal_totals"`
	ArtistPayments decimal.Decimal `json:"artist_payments"`
	VenueShares    decimal.Decimal `json:"venue_shares"`
	PromoterProfit decimal.Decimal `json:"promoter_profit"`
	TicketsSold    int64           `json:"tickets_sold"`
	Capacity       int64           `json:"capacity"`
}

// CurrencyTotals is the exact per-currency rollup backing the flagged
// cross-currency totals. No conversion happens anywhere in the engine.
type CurrencyTotals struct {
	Currency       money.Currency  `json:"currency"`
	ShowCount      int             `json:"show_count"`
	GrossRevenue   decimal.Decimal `json:"gross_revenue"`
	TicketingFees  decimal.Decimal `json:"ticketing_fees"`
	NetRevenue     decimal.Decimal `json:"net_revenue"`
	Guarantees     decimal.Decimal `json:"guarantees"`
	DoorDealTotals decimal.Decimal `json:"door_deal_totals"`
	ArtistPayments decimal.Decimal `json:"artist_payments"`
	VenueShares    decimal.Decimal `json:"venue_shares"`
	PromoterProfit decimal.Decimal `json:"promoter_profit"`
	TicketsSold    int64           `json:"tickets_sold"`
}

// TourSummary is the tour-level settlement rollup.
//
// Shows are ordered by date. FillRate is weighted, total sold over total
// capacity across shows with a recorded capacity, never a mean of per-show
// percentages. DisplayCurrency is the currency used by the most shows;
// when MixedCurrencies is true the headline totals mix currencies without
// conversion, a known simplification the renderer must surface.
type TourSummary struct {
	TourID id.TourID `json:"tour_id"`

	Shows     []*settlement.SettlementResult `json:"shows"`
	ShowCount int                            `json:"show_count"`

	Totals      ShowTotals          `json:"totals"`
	PerCurrency []CurrencyTotals    `json:"per_currency"`
	FillRate    settlement.FillRate `json:"fill_rate"`

	DisplayCurrency money.Currency `json:"display_currency"`
	MixedCurrencies bool           `json:"mixed_currencies"`
}

// MultiTourSummary repeats the tour rollup one level up, across tours.
type MultiTourSummary struct {
	Tours     []*TourSummary `json:"tours"`
	TourCount int            `json:"tour_count"`
	ShowCount int            `json:"show_count"`

	Totals      ShowTotals          `json:"totals"`
	PerCurrency []CurrencyTotals    `json:"per_currency"`
	FillRate    settlement.FillRate `json:"fill_rate"`

	DisplayCurrency money.Currency `json:"display_currency"`
	MixedCurrencies bool           `json:"mixed_currencies"`
}

// KPI series names. Ticket revenue is gross box office; artist payments
// are what the artist is owed. The two are distinct series and must never
// be merged into one figure on a dashboard.
const (
	SeriesTicketRevenue  = "ticket_revenue"
	SeriesArtistPayments = "artist_payments"
)

// KPIPoint is one month bucket of a dashboard series. Month is formatted
// as YYYY-MM.
type KPIPoint struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// KPISeries is a named, month-ordered dashboard series.
type KPISeries struct {
	Name   string     `json:"name"`
	Points []KPIPoint `json:"points"`
}

// KPIReport carries the two dashboard series side by side. Both series
// cover the same month buckets in ascending order, with zero-amount
// points filled in so the dashboard draws aligned axes.
type KPIReport struct {
	TicketRevenue  KPISeries `json:"ticket_revenue"`
	ArtistPayments KPISeries `json:"artist_payments"`

	DisplayCurrency money.Currency `json:"display_currency"`
	MixedCurrencies bool           `json:"mixed_currencies"`
}
