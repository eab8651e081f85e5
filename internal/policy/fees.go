package policy

import "github.com/shopspring/decimal"

// FeeTable is the global fee schedule: a flat percentage rate with a
// per-currency minimum floor.
type FeeTable struct {
	Rate    decimal.Decimal
	Minimum map[string]decimal.Decimal
	// Fallback floor for currencies without a Minimum entry.
	DefaultMinimum decimal.Decimal
}

// DefaultFeeTable returns the stock fee schedule: 1% with per-currency floors.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		Rate: decimal.NewFromFloat(0.01),
		Minimum: map[string]decimal.Decimal{
			"USD": decimal.NewFromFloat(0.25),
			"KES": decimal.NewFromInt(10),
			"EUR": decimal.NewFromFloat(0.25),
			"GBP": decimal.NewFromFloat(0.20),
			"NGN": decimal.NewFromInt(100),
		},
		DefaultMinimum: decimal.NewFromFloat(0.50),
	}
}

// MinimumFor returns the fee floor for a currency.
func (t FeeTable) MinimumFor(currency string) decimal.Decimal {
	if min, ok := t.Minimum[currency]; ok {
		return min
	}
	return t.DefaultMinimum
}

// ComputeFee returns max(amount*rate, minimum[currency]), rounded to 2
// decimal places. Never below the floor, never negative.
func (t FeeTable) ComputeFee(amount decimal.Decimal, currency string) decimal.Decimal {
	fee := amount.Mul(t.Rate).Round(2)
	if min := t.MinimumFor(currency); fee.LessThan(min) {
		return min
	}
	return fee
}
