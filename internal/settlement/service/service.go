// Package service implements the per-show settlement calculation: gross and
// net box office, split point, door-deal backend, break-even, and the final
// artist/venue split. Calculations are pure; the service wrapper adds input
// validation, logging, and metrics.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"roadbook/internal/settlement/metrics"
	"roadbook/internal/settlement/models"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// defaultTicketingFeePercent applies when an input leaves the fee unset.
var defaultTicketingFeePercent = decimal.NewFromInt(5)

type Service struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	defaultFee decimal.Decimal
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

// WithDefaultFeePercent overrides the engine-wide default ticketing fee
// applied when an input does not set one.
func WithDefaultFeePercent(pct decimal.Decimal) Option {
	return func(s *Service) {
		s.defaultFee = pct
	}
}

func New(opts ...Option) *Service {
	svc := &Service{
		logger:     slog.Default(),
		defaultFee: defaultTicketingFeePercent,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Compute produces the settlement statement for one show.
//
// The algorithm, in order: ticket revenue, ticketing fees, net revenue,
// split point, backend base, the mode branch (split-point when promoter
// expenses are present, legacy versus-deal otherwise), venue share and
// promoter profit, break-even ticket count, fill rate.
//
// Errors: CodeValidation when the input violates its documented contract
// (missing currency, percentage out of range, negative money field); the
// calculation itself has no failure states. Zero-capacity and zero-price
// guards resolve to "unknown" fill rate and zero break-even, not errors.
func (s *Service) Compute(ctx context.Context, in models.ShowFinancialInput) (*models.SettlementResult, error) {
	start := time.Now()

	feePct := s.resolveFeePercent(in)
	if err := validateInput(in, feePct); err != nil {
		return nil, err
	}

	rev := ComputeRevenue(in.Sales)

	fees := in.Currency.Round(money.Percent(rev.GrossRevenue, feePct))
	net := rev.GrossRevenue.Sub(fees)

	expensesTotal := in.ExpensesTotal()
	splitPoint := expensesTotal.Add(in.Guarantee).Add(in.VenueRentalCost)

	backendBase := net.Sub(splitPoint)
	if backendBase.IsNegative() {
		backendBase = decimal.Zero
	}

	// Mode branch. Shows with tracked promoter expenses settle over the
	// split point; shows without them keep the legacy versus deal. The two
	// formulas are intentionally separate (see DESIGN.md).
	var (
		artist      decimal.Decimal
		doorDeal    decimal.Decimal
		paymentType models.PaymentType
	)
	if expensesTotal.IsPositive() {
		doorDeal = in.Currency.Round(money.Percent(backendBase, in.DoorDealPercent))
		artist = in.Guarantee.Add(doorDeal)
		if doorDeal.IsPositive() {
			paymentType = models.PaymentTypeSplitPoint
		} else {
			paymentType = models.PaymentTypeGuarantee
		}
	} else {
		doorDeal = in.Currency.Round(money.Percent(net, in.DoorDealPercent))
		if doorDeal.GreaterThan(in.Guarantee) {
			artist = doorDeal
			paymentType = models.PaymentTypeDoorDeal
		} else {
			artist = in.Guarantee
			paymentType = models.PaymentTypeGuarantee
		}
	}

	venueShare := net.Sub(artist)
	if venueShare.IsNegative() {
		// The artist payment exceeding net revenue is a legitimate business
		// state (a guarantee above a weak door), not a fault.
		venueShare = decimal.Zero
	}
	promoterProfit := venueShare.Sub(expensesTotal)

	result := &models.SettlementResult{
		ShowID:   in.ShowID,
		Date:     in.Date,
		Currency: in.Currency,

		GrossRevenue:         in.Currency.Round(rev.GrossRevenue),
		TicketingFees:        fees,
		NetRevenue:           in.Currency.Round(net),
		SplitPoint:           in.Currency.Round(splitPoint),
		BackendBase:          in.Currency.Round(backendBase),
		DoorDealAmount:       doorDeal,
		ArtistPayment:        in.Currency.Round(artist),
		VenueShare:           in.Currency.Round(venueShare),
		BreakEvenTicketCount: breakEvenTickets(splitPoint, rev.AveragePrice, feePct),

		PromoterProfit:     in.Currency.Round(promoterProfit),
		PaymentType:        paymentType,
		FillRate:           models.NewFillRate(rev.TotalSold, in.Capacity),
		AverageTicketPrice: in.Currency.Round(rev.AveragePrice),

		Guarantee:   in.Currency.Round(in.Guarantee),
		TicketsSold: rev.TotalSold,
		Capacity:    in.Capacity,
	}

	s.metrics.IncrementComputed(string(paymentType))
	s.metrics.ObserveComputeDuration(time.Since(start))
	s.logger.DebugContext(ctx, "settlement computed",
		"show_id", in.ShowID,
		"payment_type", paymentType,
		"gross_revenue", result.GrossRevenue,
		"artist_payment", result.ArtistPayment,
	)

	return result, nil
}

// ComputeBatch settles many shows concurrently, preserving input order in
// the results. Shows are independent, so no ordering is guaranteed between
// computations; the first validation failure cancels the batch and is
// returned wrapped with the offending show.
func (s *Service) ComputeBatch(ctx context.Context, shows []models.ShowFinancialInput) ([]*models.SettlementResult, error) {
	start := time.Now()
	results := make([]*models.SettlementResult, len(shows))

	g, ctx := errgroup.WithContext(ctx)
	for i, show := range shows {
		g.Go(func() error {
			result, err := s.Compute(ctx, show)
			if err != nil {
				return fmt.Errorf("show %s: %w", show.ShowID, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.metrics.ObserveBatchSize(len(shows))
	s.logger.InfoContext(ctx, "settlement batch computed",
		"shows", len(shows),
		"duration", time.Since(start),
	)
	return results, nil
}

func (s *Service) resolveFeePercent(in models.ShowFinancialInput) decimal.Decimal {
	if in.TicketingFeePercent == nil {
		return s.defaultFee
	}
	return *in.TicketingFeePercent
}

func validateInput(in models.ShowFinancialInput, feePct decimal.Decimal) error {
	if in.Currency == "" {
		return dErrors.New(dErrors.CodeValidation, "currency is required")
	}
	if in.DoorDealPercent.IsNegative() || in.DoorDealPercent.GreaterThan(hundred) {
		return dErrors.New(dErrors.CodeValidation, "door_deal_percentage must be between 0 and 100")
	}
	if feePct.IsNegative() || feePct.GreaterThan(hundred) {
		return dErrors.New(dErrors.CodeValidation, "ticketing_fee_percentage must be between 0 and 100")
	}
	if in.Guarantee.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "guarantee cannot be negative")
	}
	if in.VenueRentalCost.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "venue_rental_cost cannot be negative")
	}
	for category, amount := range in.PromoterExpenses {
		if amount.IsNegative() {
			return dErrors.New(dErrors.CodeValidation, "promoter expense "+category+" cannot be negative")
		}
	}
	if in.Sales.FlatPrice.IsNegative() || in.Sales.FlatSold < 0 {
		return dErrors.New(dErrors.CodeValidation, "flat ticket sales cannot be negative")
	}
	for _, tier := range in.Sales.Tiers {
		if tier.Price.IsNegative() || tier.Sold < 0 {
			return dErrors.New(dErrors.CodeValidation, "ticket tier "+tier.Name+" cannot be negative")
		}
	}
	if in.Capacity < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacity cannot be negative")
	}
	return nil
}

// breakEvenTickets returns the smallest ticket count whose net revenue at
// the average price reaches the split point. Zero average price and a 100%
// fee are guards that resolve to zero, not errors.
func breakEvenTickets(splitPoint, avgPrice, feePct decimal.Decimal) int64 {
	if splitPoint.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	if avgPrice.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	netFactor := one.Sub(feePct.Shift(-2))
	if netFactor.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	netPrice := avgPrice.Mul(netFactor)
	return splitPoint.Div(netPrice).Ceil().IntPart()
}
