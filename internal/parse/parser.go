// Package parse extracts structured transfer requests from free-form message
// text using an ordered list of pattern matchers.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

// Error is a user-displayable parse failure.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Result holds the fields recovered from a matched transfer phrase. Platform
// and sender are filled in by the caller; the parser knows nothing about
// platforms beyond the default currency it is given.
type Result struct {
	Action          domain.Action
	Amount          decimal.Decimal
	Currency        string
	RecipientHandle string
}

// amount: positive decimal, at most 2 fractional digits, optional $ prefix
const amountPat = `\$?(\d+(?:\.\d{1,2})?)`

type matcher struct {
	action domain.Action
	re     *regexp.Regexp
	// group indexes into the submatch slice
	amountIdx   int
	handleIdx   int
	currencyIdx int // 0 when the pattern carries no currency
}

// Ordered: first match wins.
var matchers = []matcher{
	{domain.ActionSend, regexp.MustCompile(`(?i)^send\s+` + amountPat + `\s+to\s+@?(\S+)$`), 1, 2, 0},
	{domain.ActionPay, regexp.MustCompile(`(?i)^pay\s+@?(\S+)\s+` + amountPat + `$`), 2, 1, 0},
	{domain.ActionTransfer, regexp.MustCompile(`(?i)^transfer\s+` + amountPat + `\s+([A-Za-z]{3})\s+to\s+@?(\S+)$`), 1, 3, 2},
	{domain.ActionGift, regexp.MustCompile(`(?i)^gift\s+` + amountPat + `\s+to\s+@?(\S+)$`), 1, 2, 0},
	{domain.ActionSplit, regexp.MustCompile(`(?i)^split\s+` + amountPat + `\s+with\s+@?(\S+)$`), 1, 2, 0},
}

// Examples lists one valid phrasing per supported action, for "didn't
// understand" replies.
var Examples = []string{
	"send 50 to @alice",
	"pay @alice 50",
	"transfer 50 KES to @alice",
	"gift 20 to @alice",
	"split 30 with @alice",
}

// Matches reports whether text matches any transfer phrasing. Used by the
// intent classifier; a match here does not guarantee Parse succeeds, since
// the amount or handle may still be invalid.
func Matches(text string) bool {
	text = strings.TrimSpace(text)
	for _, m := range matchers {
		if m.re.MatchString(text) {
			return true
		}
	}
	return false
}

// Parse applies the matchers in order and returns the structured request
// fields, or *Error with a user-displayable reason. defaultCurrency is used
// for phrasings that carry no explicit currency code.
func Parse(text, defaultCurrency string) (*Result, error) {
	text = strings.TrimSpace(text)
	for _, m := range matchers {
		groups := m.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}

		amount, err := decimal.NewFromString(groups[m.amountIdx])
		if err != nil {
			return nil, &Error{Reason: fmt.Sprintf("I couldn't read the amount %q.", groups[m.amountIdx])}
		}
		if !amount.IsPositive() {
			return nil, &Error{Reason: "The amount must be greater than zero."}
		}

		handle := strings.TrimPrefix(groups[m.handleIdx], "@")
		if handle == "" {
			return nil, &Error{Reason: "I couldn't find the recipient. Use @handle to name them."}
		}

		currency := defaultCurrency
		if m.currencyIdx > 0 {
			currency = strings.ToUpper(groups[m.currencyIdx])
		}

		return &Result{
			Action:          m.action,
			Amount:          amount,
			Currency:        currency,
			RecipientHandle: handle,
		}, nil
	}

	return nil, &Error{Reason: "I didn't recognize that as a transfer."}
}
