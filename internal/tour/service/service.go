// Package service rolls per-show settlements up to tour level, across
// tours, and into the dashboard KPI series. Aggregation is pure; the
// service wrapper adds input validation, logging, and metrics.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	settlement "roadbook/internal/settlement/models"
	"roadbook/internal/tour/metrics"
	"roadbook/internal/tour/models"
	id "roadbook/pkg/domain"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
)

// Settler computes per-show settlements. Satisfied by the settlement
// service; a batch error identifies the offending show.
type Settler interface {
	ComputeBatch(ctx context.Context, shows []settlement.ShowFinancialInput) ([]*settlement.SettlementResult, error)
}

type Service struct {
	settler Settler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(settler Settler, opts ...Option) *Service {
	svc := &Service{
		settler: settler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Summarize rolls already-computed settlements up into a tour summary.
// Shows come back ordered by date; the caller's slice is not mutated.
//
// Aggregation never converts currencies. A mixed-currency tour gets raw
// sums labelled with the currency used by the most shows and the
// MixedCurrencies flag set; exact figures live in PerCurrency.
func (s *Service) Summarize(ctx context.Context, tourID id.TourID, results []*settlement.SettlementResult) (*models.TourSummary, error) {
	if tourID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tour id is required")
	}
	shows, err := sortedByDate(results)
	if err != nil {
		return nil, err
	}

	agg := aggregate(shows)
	summary := &models.TourSummary{
		TourID:          tourID,
		Shows:           shows,
		ShowCount:       len(shows),
		Totals:          agg.totals,
		PerCurrency:     agg.perCurrency,
		FillRate:        agg.fillRate,
		DisplayCurrency: agg.display,
		MixedCurrencies: agg.mixed,
	}

	s.metrics.IncrementSummaries()
	s.metrics.ObserveShowsPerSummary(len(shows))
	s.logger.DebugContext(ctx, "tour summarized",
		"tour_id", tourID,
		"shows", len(shows),
		"display_currency", agg.display,
		"mixed_currencies", agg.mixed,
	)
	return summary, nil
}

// SummarizeShows settles the given shows first, then rolls them up. The
// first settlement failure cancels the whole summary.
func (s *Service) SummarizeShows(ctx context.Context, tourID id.TourID, shows []settlement.ShowFinancialInput) (*models.TourSummary, error) {
	if s.settler == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tour service has no settlement calculator")
	}
	results, err := s.settler.ComputeBatch(ctx, shows)
	if err != nil {
		return nil, err
	}
	return s.Summarize(ctx, tourID, results)
}

// CombineTours repeats the rollup one level up, across tours. Totals,
// per-currency figures, and the weighted fill rate are recomputed from the
// underlying shows so the two levels can never disagree.
func (s *Service) CombineTours(ctx context.Context, summaries []*models.TourSummary) (*models.MultiTourSummary, error) {
	var all []*settlement.SettlementResult
	for i, summary := range summaries {
		if summary == nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("tour summary at index %d is nil", i))
		}
		all = append(all, summary.Shows...)
	}
	shows, err := sortedByDate(all)
	if err != nil {
		return nil, err
	}

	agg := aggregate(shows)
	combined := &models.MultiTourSummary{
		Tours:           summaries,
		TourCount:       len(summaries),
		ShowCount:       len(shows),
		Totals:          agg.totals,
		PerCurrency:     agg.perCurrency,
		FillRate:        agg.fillRate,
		DisplayCurrency: agg.display,
		MixedCurrencies: agg.mixed,
	}

	s.logger.DebugContext(ctx, "tours combined",
		"tours", len(summaries),
		"shows", len(shows),
	)
	return combined, nil
}

// DashboardKPI buckets settlements by month and emits gross ticket
// revenue and artist payment totals as two distinct series. The two must
// never be merged into one dashboard figure.
func (s *Service) DashboardKPI(ctx context.Context, results []*settlement.SettlementResult) (*models.KPIReport, error) {
	shows, err := sortedByDate(results)
	if err != nil {
		return nil, err
	}

	revenueByMonth := make(map[string]decimal.Decimal)
	artistByMonth := make(map[string]decimal.Decimal)
	months := make([]string, 0)
	for _, show := range shows {
		month := show.Date.Format("2006-01")
		if _, seen := revenueByMonth[month]; !seen {
			months = append(months, month)
		}
		revenueByMonth[month] = revenueByMonth[month].Add(show.GrossRevenue)
		artistByMonth[month] = artistByMonth[month].Add(show.ArtistPayment)
	}
	sort.Strings(months)

	revenue := models.KPISeries{Name: models.SeriesTicketRevenue, Points: make([]models.KPIPoint, 0, len(months))}
	artist := models.KPISeries{Name: models.SeriesArtistPayments, Points: make([]models.KPIPoint, 0, len(months))}
	for _, month := range months {
		revenue.Points = append(revenue.Points, models.KPIPoint{Month: month, Amount: revenueByMonth[month]})
		artist.Points = append(artist.Points, models.KPIPoint{Month: month, Amount: artistByMonth[month]})
	}

	agg := aggregate(shows)
	report := &models.KPIReport{
		TicketRevenue:   revenue,
		ArtistPayments:  artist,
		DisplayCurrency: agg.display,
		MixedCurrencies: agg.mixed,
	}

	s.metrics.IncrementKPIReports()
	s.logger.DebugContext(ctx, "dashboard kpi computed",
		"shows", len(shows),
		"months", len(months),
	)
	return report, nil
}

// sortedByDate returns a date-ordered copy, rejecting nil entries. Equal
// dates keep their input order.
func sortedByDate(results []*settlement.SettlementResult) ([]*settlement.SettlementResult, error) {
	shows := make([]*settlement.SettlementResult, 0, len(results))
	for i, result := range results {
		if result == nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("settlement result at index %d is nil", i))
		}
		shows = append(shows, result)
	}
	sort.SliceStable(shows, func(i, j int) bool {
		return shows[i].Date.Before(shows[j].Date)
	})
	return shows, nil
}

type rollup struct {
	totals      models.ShowTotals
	perCurrency []models.CurrencyTotals
	fillRate    settlement.FillRate
	display     money.Currency
	mixed       bool
}

// aggregate sums the settlement fields across shows. The weighted fill
// rate covers only shows with a recorded capacity; sold counts from
// capacity-unknown shows still land in TicketsSold but never inflate the
// rate.
func aggregate(shows []*settlement.SettlementResult) rollup {
	var agg rollup
	var soldAtKnownCapacity int64
	byCurrency := make(map[money.Currency]*models.CurrencyTotals)

	for _, show := range shows {
		agg.totals.GrossRevenue = agg.totals.GrossRevenue.Add(show.GrossRevenue)
		agg.totals.TicketingFees = agg.totals.TicketingFees.Add(show.TicketingFees)
		agg.totals.NetRevenue = agg.totals.NetRevenue.Add(show.NetRevenue)
		agg.totals.Guarantees = agg.totals.Guarantees.Add(show.Guarantee)
		agg.totals.DoorDealTotals = agg.totals.DoorDealTotals.Add(show.DoorDealAmount)
		agg.totals.ArtistPayments = agg.totals.ArtistPayments.Add(show.ArtistPayment)
		agg.totals.VenueShares = agg.totals.VenueShares.Add(show.VenueShare)
		agg.totals.PromoterProfit = agg.totals.PromoterProfit.Add(show.PromoterProfit)
		agg.totals.TicketsSold += show.TicketsSold
		if show.Capacity > 0 {
			agg.totals.Capacity += show.Capacity
			soldAtKnownCapacity += show.TicketsSold
		}

		ct, ok := byCurrency[show.Currency]
		if !ok {
			ct = &models.CurrencyTotals{Currency: show.Currency}
			byCurrency[show.Currency] = ct
		}
		ct.ShowCount++
		ct.GrossRevenue = ct.GrossRevenue.Add(show.GrossRevenue)
		ct.TicketingFees = ct.TicketingFees.Add(show.TicketingFees)
		ct.NetRevenue = ct.NetRevenue.Add(show.NetRevenue)
		ct.Guarantees = ct.Guarantees.Add(show.Guarantee)
		ct.DoorDealTotals = ct.DoorDealTotals.Add(show.DoorDealAmount)
		ct.ArtistPayments = ct.ArtistPayments.Add(show.ArtistPayment)
		ct.VenueShares = ct.VenueShares.Add(show.VenueShare)
		ct.PromoterProfit = ct.PromoterProfit.Add(show.PromoterProfit)
		ct.TicketsSold += show.TicketsSold
	}

	agg.fillRate = settlement.NewFillRate(soldAtKnownCapacity, agg.totals.Capacity)
	agg.perCurrency = make([]models.CurrencyTotals, 0, len(byCurrency))
	for _, ct := range byCurrency {
		agg.perCurrency = append(agg.perCurrency, *ct)
	}
	sort.Slice(agg.perCurrency, func(i, j int) bool {
		return agg.perCurrency[i].Currency < agg.perCurrency[j].Currency
	})

	agg.display = displayCurrency(agg.perCurrency)
	agg.mixed = len(agg.perCurrency) > 1
	return agg
}

// displayCurrency picks the currency used by the most shows. Ties resolve
// to the lexicographically smaller code so repeated runs agree.
func displayCurrency(perCurrency []models.CurrencyTotals) money.Currency {
	var display money.Currency
	var most int
	for _, ct := range perCurrency {
		if ct.ShowCount > most {
			display = ct.Currency
			most = ct.ShowCount
		}
	}
	return display
}
