// Package money holds the shared monetary primitives: the Currency value
// type and the rounding rules applied at output boundaries.
//
// All monetary amounts in the engine are decimal.Decimal. Intermediate
// arithmetic keeps full precision; rounding to the currency's minor unit
// happens exactly once, when a figure leaves the engine (a settlement
// result field, a payment amount). Binary floating point never appears on
// a money path.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	dErrors "roadbook/pkg/domain-errors"
)

// Currency is an ISO 4217 alphabetic code (e.g. "EUR").
// It is copied verbatim from inputs to outputs, never inferred.
type Currency string

// Common currencies for constructing inputs; any three-letter code parses.
const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	CHF Currency = "CHF"
	JPY Currency = "JPY"
)

// minorUnitOverrides lists currencies whose minor unit differs from the
// common two decimal places.
var minorUnitOverrides = map[Currency]int32{
	JPY: 0,
}

// ParseCurrency constructs a Currency from external input.
//
// Errors: returns CodeInvalidInput when the value is not three ASCII
// letters; no other errors are expected.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if len(c) != 3 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "currency must be a three-letter ISO code")
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "currency must contain only letters")
		}
	}
	return c, nil
}

func (c Currency) String() string { return string(c) }

// MinorUnits returns the number of decimal places of the currency's
// smallest cash unit.
func (c Currency) MinorUnits() int32 {
	if u, ok := minorUnitOverrides[c]; ok {
		return u
	}
	return 2
}

// Round rounds d to the currency's minor unit, half away from zero.
// Call only at output boundaries.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.MinorUnits())
}

// Percent returns pct percent of base. The shift keeps the operation
// exact; no division is involved.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Shift(-2)
}
