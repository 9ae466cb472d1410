package service

import (
	"github.com/shopspring/decimal"

	"roadbook/internal/settlement/models"
)

// ComputeRevenue converts ticket sales into gross revenue and a weighted
// average price. It never errors: inputs are treated as already-validated
// non-negative numbers, and a show with zero sales yields a zero average
// rather than a division fault.
func ComputeRevenue(sales models.TicketSales) models.RevenueBreakdown {
	gross := decimal.Zero
	if sales.Tiered() {
		for _, tier := range sales.Tiers {
			gross = gross.Add(tier.Price.Mul(decimal.NewFromInt(tier.Sold)))
		}
	} else {
		gross = sales.FlatPrice.Mul(decimal.NewFromInt(sales.FlatSold))
	}

	totalSold := sales.TotalSold()
	avg := decimal.Zero
	if totalSold > 0 {
		avg = gross.Div(decimal.NewFromInt(totalSold))
	}

	return models.RevenueBreakdown{
		GrossRevenue: gross,
		TotalSold:    totalSold,
		AveragePrice: avg,
	}
}
