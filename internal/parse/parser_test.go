package parse

import (
	"fmt"
	"testing"

	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantAction domain.Action
		wantAmount string
		wantCcy    string
		wantHandle string
	}{
		{
			name:       "send with handle",
			text:       "send 50 to @john",
			wantAction: domain.ActionSend,
			wantAmount: "50",
			wantCcy:    "USD",
			wantHandle: "john",
		},
		{
			name:       "send with dollar sign",
			text:       "Send $50 to @john",
			wantAction: domain.ActionSend,
			wantAmount: "50",
			wantCcy:    "USD",
			wantHandle: "john",
		},
		{
			name:       "send with decimals",
			text:       "send 12.75 to alice",
			wantAction: domain.ActionSend,
			wantAmount: "12.75",
			wantCcy:    "USD",
			wantHandle: "alice",
		},
		{
			name:       "pay puts handle first",
			text:       "pay @bob 20",
			wantAction: domain.ActionPay,
			wantAmount: "20",
			wantCcy:    "USD",
			wantHandle: "bob",
		},
		{
			name:       "transfer with explicit currency",
			text:       "transfer 500 KES to @mary",
			wantAction: domain.ActionTransfer,
			wantAmount: "500",
			wantCcy:    "KES",
			wantHandle: "mary",
		},
		{
			name:       "transfer lowercases currency input",
			text:       "transfer 10 eur to @mary",
			wantAction: domain.ActionTransfer,
			wantAmount: "10",
			wantCcy:    "EUR",
			wantHandle: "mary",
		},
		{
			name:       "gift",
			text:       "GIFT 5 TO @kid",
			wantAction: domain.ActionGift,
			wantAmount: "5",
			wantCcy:    "USD",
			wantHandle: "kid",
		},
		{
			name:       "split",
			text:       "split 30 with @roommate",
			wantAction: domain.ActionSplit,
			wantAmount: "30",
			wantCcy:    "USD",
			wantHandle: "roommate",
		},
		{
			name:       "surrounding whitespace",
			text:       "  send 1 to @x  ",
			wantAction: domain.ActionSend,
			wantAmount: "1",
			wantCcy:    "USD",
			wantHandle: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text, "USD")
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.text, err)
			}
			if got.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", got.Action, tt.wantAction)
			}
			wantAmount, _ := decimal.NewFromString(tt.wantAmount)
			if !got.Amount.Equal(wantAmount) {
				t.Errorf("amount = %s, want %s", got.Amount, wantAmount)
			}
			if got.Currency != tt.wantCcy {
				t.Errorf("currency = %q, want %q", got.Currency, tt.wantCcy)
			}
			if got.RecipientHandle != tt.wantHandle {
				t.Errorf("handle = %q, want %q", got.RecipientHandle, tt.wantHandle)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	// Every phrasing template rendered with a valid amount and handle must
	// parse back to the same (action, amount, handle).
	templates := map[domain.Action]string{
		domain.ActionSend:     "send %s to @%s",
		domain.ActionPay:      "pay @%s %s",
		domain.ActionGift:     "gift %s to @%s",
		domain.ActionSplit:    "split %s with @%s",
		domain.ActionTransfer: "transfer %s GBP to @%s",
	}
	amounts := []string{"1", "0.01", "99.99", "500", "123.4"}
	handle := "round_trip"

	for action, tmpl := range templates {
		for _, amount := range amounts {
			var text string
			if action == domain.ActionPay {
				text = fmt.Sprintf(tmpl, handle, amount)
			} else {
				text = fmt.Sprintf(tmpl, amount, handle)
			}

			got, err := Parse(text, "USD")
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", text, err)
			}
			if got.Action != action {
				t.Errorf("Parse(%q) action = %q, want %q", text, got.Action, action)
			}
			want, _ := decimal.NewFromString(amount)
			if !got.Amount.Equal(want) {
				t.Errorf("Parse(%q) amount = %s, want %s", text, got.Amount, want)
			}
			if got.RecipientHandle != handle {
				t.Errorf("Parse(%q) handle = %q, want %q", text, got.RecipientHandle, handle)
			}
		}
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"unrelated text", "what's the weather"},
		{"zero amount", "send 0 to @john"},
		{"three decimal places", "send 1.005 to @john"},
		{"negative amount", "send -5 to @john"},
		{"missing recipient", "send 50 to"},
		{"bare at sign", "send 50 to @"},
		{"amount missing", "send to @john"},
		{"trailing words", "send 50 to @john please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.text, "USD"); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.text)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	if !Matches("send 50 to @john") {
		t.Error("Matches should accept a valid transfer phrase")
	}
	if Matches("hello there") {
		t.Error("Matches should reject unrelated text")
	}
}
