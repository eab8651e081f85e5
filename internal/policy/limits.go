// Package policy holds the business rules applied to a parsed transfer:
// per-platform limits, currency allow-lists, and the fee schedule. All rules
// are data injected at startup; no platform adapter carries its own copy.
package policy

import (
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

// PlatformLimits are the per-platform transfer rules.
type PlatformLimits struct {
	MaxPerTransaction   decimal.Decimal
	SupportedCurrencies []string
	DefaultCurrency     string
}

// Supports reports whether the currency is on the platform's allow-list.
func (l PlatformLimits) Supports(currency string) bool {
	for _, c := range l.SupportedCurrencies {
		if c == currency {
			return true
		}
	}
	return false
}

// Limits maps each platform to its transfer rules.
type Limits map[domain.Platform]PlatformLimits

// DefaultLimits returns the stock per-platform limit table.
func DefaultLimits() Limits {
	currencies := []string{"USD", "KES", "EUR", "GBP", "NGN"}
	return Limits{
		domain.PlatformDiscord:   {MaxPerTransaction: decimal.NewFromInt(1000), SupportedCurrencies: currencies, DefaultCurrency: "USD"},
		domain.PlatformWhatsApp:  {MaxPerTransaction: decimal.NewFromInt(1000), SupportedCurrencies: currencies, DefaultCurrency: "USD"},
		domain.PlatformInstagram: {MaxPerTransaction: decimal.NewFromInt(500), SupportedCurrencies: currencies, DefaultCurrency: "USD"},
		domain.PlatformTelegram:  {MaxPerTransaction: decimal.NewFromInt(1000), SupportedCurrencies: currencies, DefaultCurrency: "USD"},
		domain.PlatformTwitter:   {MaxPerTransaction: decimal.NewFromInt(500), SupportedCurrencies: currencies, DefaultCurrency: "USD"},
		domain.PlatformSlack:     {MaxPerTransaction: decimal.NewFromInt(1000), SupportedCurrencies: currencies, DefaultCurrency: "USD"},
	}
}

// ValidationResult is the outcome of validating a transfer request.
type ValidationResult struct {
	Valid  bool
	Reason string
}

func reject(reason string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason}
}

// Validate checks a transfer request against the platform's rules. Checks run
// in order and the first failure short-circuits.
func Validate(req domain.TransferRequest, limits PlatformLimits) ValidationResult {
	if !req.Amount.IsPositive() {
		return reject("Invalid amount")
	}
	if req.RecipientHandle == "" || req.RecipientHandle == req.SenderID {
		return reject("Invalid recipient")
	}
	if req.Amount.GreaterThan(limits.MaxPerTransaction) {
		return reject("Amount exceeds platform limit")
	}
	if !limits.Supports(req.Currency) {
		return reject("Currency not supported on this platform")
	}
	return ValidationResult{Valid: true}
}
