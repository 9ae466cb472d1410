// Package service aggregates logistics expense line-items into cost
// reports: totals by fixed category, by subtype, by payer, and the unpaid
// running total. Aggregation has no failure states; unrecognized subtypes
// land in the "other" bucket and unrecorded payers are grouped as
// unattributed.
package service

import (
	"context"
	"log/slog"
	"sort"

	"roadbook/internal/logistics/metrics"
	"roadbook/internal/logistics/models"
	"roadbook/pkg/money"
)

type Service struct {
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

func New(opts ...Option) *Service {
	svc := &Service{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Aggregate rolls expense items up into a cost report. Negative amounts
// (credits, refunds) flow through the sums unchanged. The unpaid total is
// informational; the settlement calculation never subtracts it.
func (s *Service) Aggregate(ctx context.Context, items []models.ExpenseItem) *models.CostReport {
	report := &models.CostReport{ItemCount: len(items)}

	byCategory := make(map[models.Category]*models.CategoryTotal)
	bySubtype := make(map[models.Subtype]*models.SubtypeTotal)
	byPayer := make(map[string]*models.PayerTotal)
	currencyCounts := make(map[money.Currency]int)

	for _, item := range items {
		category := models.CategoryOf(item.Subtype)

		report.Total = report.Total.Add(item.Amount)
		if item.Paid {
			report.PaidTotal = report.PaidTotal.Add(item.Amount)
		} else {
			report.UnpaidTotal = report.UnpaidTotal.Add(item.Amount)
			report.UnpaidCount++
		}

		ct, ok := byCategory[category]
		if !ok {
			ct = &models.CategoryTotal{Category: category}
			byCategory[category] = ct
		}
		ct.ItemCount++
		ct.Total = ct.Total.Add(item.Amount)

		st, ok := bySubtype[item.Subtype]
		if !ok {
			st = &models.SubtypeTotal{Subtype: item.Subtype, Category: category}
			bySubtype[item.Subtype] = st
		}
		st.ItemCount++
		st.Total = st.Total.Add(item.Amount)

		payer := item.Payer
		if payer == "" {
			payer = models.PayerUnattributed
		}
		pt, ok := byPayer[payer]
		if !ok {
			pt = &models.PayerTotal{Payer: payer}
			byPayer[payer] = pt
		}
		pt.ItemCount++
		pt.Total = pt.Total.Add(item.Amount)
		if !item.Paid {
			pt.UnpaidTotal = pt.UnpaidTotal.Add(item.Amount)
		}

		currencyCounts[item.Currency]++
	}

	// Category rows keep the fixed rendering order; absent categories get
	// no row.
	for _, category := range models.CategoriesInOrder {
		if ct, ok := byCategory[category]; ok {
			report.ByCategory = append(report.ByCategory, *ct)
		}
	}
	for _, st := range bySubtype {
		report.BySubtype = append(report.BySubtype, *st)
	}
	sort.Slice(report.BySubtype, func(i, j int) bool {
		return report.BySubtype[i].Subtype < report.BySubtype[j].Subtype
	})
	for _, pt := range byPayer {
		report.ByPayer = append(report.ByPayer, *pt)
	}
	sort.Slice(report.ByPayer, func(i, j int) bool {
		return report.ByPayer[i].Payer < report.ByPayer[j].Payer
	})

	report.DisplayCurrency, report.MixedCurrencies = displayCurrency(currencyCounts)

	s.metrics.IncrementReports()
	s.metrics.ObserveItemsPerReport(len(items))
	s.logger.DebugContext(ctx, "logistics costs aggregated",
		"items", len(items),
		"unpaid_count", report.UnpaidCount,
		"unpaid_total", report.UnpaidTotal,
	)
	return report
}

// displayCurrency picks the currency used by the most items, ties going to
// the lexicographically smaller code.
func displayCurrency(counts map[money.Currency]int) (money.Currency, bool) {
	var display money.Currency
	var most int
	for currency, count := range counts {
		if count > most || (count == most && currency < display) {
			display = currency
			most = count
		}
	}
	return display, len(counts) > 1
}
