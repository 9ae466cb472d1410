// Package payrollcfg loads the per-diem daily rate table.
//
// A RateTable is immutable once constructed: the payroll service receives
// one by value at construction and test suites substitute alternates
// without touching shared state.
package payrollcfg

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"roadbook/internal/payroll/models"
	dErrors "roadbook/pkg/domain-errors"
	"roadbook/pkg/money"
)

// RateTable maps a payee role to its default daily per-diem rate. Batch
// requests that carry an explicit amount bypass the table entirely.
type RateTable struct {
	currency money.Currency
	rates    map[models.Role]decimal.Decimal
}

// New builds a rate table from explicit per-role rates. The map is copied;
// later mutation of the argument does not reach the table.
func New(currency money.Currency, rates map[models.Role]decimal.Decimal) (*RateTable, error) {
	parsed, err := money.ParseCurrency(string(currency))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "rate table currency")
	}
	if len(rates) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "rate table has no rates")
	}
	copied := make(map[models.Role]decimal.Decimal, len(rates))
	for role, rate := range rates {
		if role == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "rate table has an empty role")
		}
		if !rate.IsPositive() {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("daily rate for role %s must be positive, got %s", role, rate))
		}
		copied[role] = rate
	}
	return &RateTable{currency: parsed, rates: copied}, nil
}

// Default returns the built-in EUR table covering the four standard tour
// roles. Deployments override it with Load.
func Default() *RateTable {
	table, err := New(money.EUR, map[models.Role]decimal.Decimal{
		models.RoleMusician:    decimal.RequireFromString("45.00"),
		models.RoleCrew:        decimal.RequireFromString("40.00"),
		models.RoleDriver:      decimal.RequireFromString("42.50"),
		models.RoleTourManager: decimal.RequireFromString("55.00"),
	})
	if err != nil {
		panic("payrollcfg: built-in rate table invalid: " + err.Error())
	}
	return table
}

// DailyRate returns the configured rate for a role. The second return is
// false when the role has no entry.
func (t *RateTable) DailyRate(role models.Role) (decimal.Decimal, bool) {
	rate, ok := t.rates[role]
	return rate, ok
}

// Currency returns the currency every rate in the table is denominated in.
func (t *RateTable) Currency() money.Currency {
	return t.currency
}

// Roles returns the roles with a configured rate, sorted for stable output.
func (t *RateTable) Roles() []models.Role {
	roles := make([]models.Role, 0, len(t.rates))
	for role := range t.rates {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// fileFormat is the YAML shape of a rate table file. Rates are read as
// strings because yaml.v3 does not invoke decimal's text unmarshaler.
type fileFormat struct {
	Currency   string            `yaml:"currency"`
	DailyRates map[string]string `yaml:"daily_rates"`
}

// Load reads a rate table from a YAML file:
//
//	currency: EUR
//	daily_rates:
//	  musician: "45.00"
//	  crew: "40.00"
func Load(path string) (*RateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read rate table "+path)
	}
	var file fileFormat
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse rate table "+path)
	}
	rates := make(map[models.Role]decimal.Decimal, len(file.DailyRates))
	for role, value := range file.DailyRates {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput,
				fmt.Sprintf("daily rate for role %s in %s", role, path))
		}
		rates[models.Role(role)] = rate
	}
	return New(money.Currency(file.Currency), rates)
}
