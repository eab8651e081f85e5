// Package confirm implements the two-step confirmation protocol: a validated
// transfer is parked as a pending confirmation, and a later YES/NO message
// from the same sender resolves it. Each sender holds at most one pending
// confirmation per platform.
package confirm

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

// Outcome is the result of resolving a reply against the pending store.
type Outcome int

const (
	OutcomeConfirmed Outcome = iota
	OutcomeCancelled
	OutcomeNoPending
	OutcomeExpired
	// OutcomeMismatch: the reply started with YES but its trailing text did
	// not match the stored request. The pending entry is kept.
	OutcomeMismatch
)

// Resolution carries the outcome and, when confirmed, the pending entry that
// was atomically removed from the store.
type Resolution struct {
	Outcome Outcome
	Pending *Pending
}

var yesRe = regexp.MustCompile(`(?i)^yes\b`)
var noRe = regexp.MustCompile(`(?i)^no\b`)

// Coordinator drives the confirmation lifecycle against a Store. Expiry is
// checked lazily on every access; RunSweeper adds a periodic cleanup so
// abandoned entries do not accumulate.
type Coordinator struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewCoordinator(store Store, ttl time.Duration) *Coordinator {
	return &Coordinator{store: store, ttl: ttl, now: time.Now}
}

// Request parks a validated transfer as the sender's pending confirmation,
// replacing any prior one, and returns the prompt text to send back.
func (c *Coordinator) Request(ctx context.Context, req domain.TransferRequest, fee decimal.Decimal) (string, error) {
	now := c.now()
	p := Pending{
		Key:       Key{Platform: req.Platform, SenderID: req.SenderID},
		Request:   req,
		Fee:       fee,
		Total:     req.Amount.Add(fee),
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.store.Put(ctx, p); err != nil {
		return "", fmt.Errorf("store pending confirmation: %w", err)
	}
	return renderPrompt(p), nil
}

// Resolve matches a YES/NO reply against the sender's pending confirmation.
// On YES the entry is removed atomically before OutcomeConfirmed is returned,
// so a duplicate YES observes OutcomeNoPending rather than executing twice.
func (c *Coordinator) Resolve(ctx context.Context, key Key, reply string) (Resolution, error) {
	reply = strings.TrimSpace(reply)

	p, err := c.store.Take(ctx, key)
	if err != nil {
		return Resolution{}, fmt.Errorf("take pending confirmation: %w", err)
	}
	if p == nil {
		return Resolution{Outcome: OutcomeNoPending}, nil
	}
	if !p.ExpiresAt.After(c.now()) {
		return Resolution{Outcome: OutcomeExpired}, nil
	}

	switch {
	case noRe.MatchString(reply):
		return Resolution{Outcome: OutcomeCancelled, Pending: p}, nil
	case yesRe.MatchString(reply):
		if !confirmationMatches(reply, p) {
			// Put the entry back so the sender can retry with the exact
			// phrase. A concurrent correct YES in this window loses the
			// entry briefly; it resolves as NoPending, which is safe.
			if err := c.store.Put(ctx, *p); err != nil {
				return Resolution{}, fmt.Errorf("restore pending confirmation: %w", err)
			}
			return Resolution{Outcome: OutcomeMismatch, Pending: p}, nil
		}
		return Resolution{Outcome: OutcomeConfirmed, Pending: p}, nil
	default:
		// Not a YES/NO reply; the router should not have routed it here.
		if err := c.store.Put(ctx, *p); err != nil {
			return Resolution{}, fmt.Errorf("restore pending confirmation: %w", err)
		}
		return Resolution{Outcome: OutcomeMismatch, Pending: p}, nil
	}
}

// Sweep removes expired entries. Returns the number removed.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	return c.store.DeleteExpired(ctx, c.now())
}

// RunSweeper sweeps expired confirmations at the given interval until ctx is
// cancelled. Lazy expiry already guarantees correctness; this only bounds
// memory held by abandoned confirmations.
func (c *Coordinator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.Sweep(ctx)
			if err != nil {
				log.Printf("confirmation sweep failed: %v", err)
			} else if removed > 0 {
				log.Printf("swept %d expired confirmations", removed)
			}
		}
	}
}

// ConfirmPhrase is the exact reply the prompt asks the sender to type.
func ConfirmPhrase(req domain.TransferRequest) string {
	return fmt.Sprintf("YES %s %s", req.Action, req.Amount.String())
}

func renderPrompt(p Pending) string {
	req := p.Request
	return fmt.Sprintf(
		"You are about to %s %s %s to @%s.\nFee: %s %s\nTotal: %s %s\nReply \"%s\" to confirm or \"NO\" to cancel.",
		req.Action, req.Amount.String(), req.Currency, req.RecipientHandle,
		p.Fee.StringFixed(2), req.Currency,
		p.Total.StringFixed(2), req.Currency,
		ConfirmPhrase(req),
	)
}

// confirmationMatches accepts a bare "YES" or a YES whose trailing text
// repeats the stored action and amount, e.g. "YES send 50".
func confirmationMatches(reply string, p *Pending) bool {
	rest := strings.TrimSpace(yesRe.ReplaceAllString(reply, ""))
	if rest == "" {
		return true
	}
	want := fmt.Sprintf("%s %s", p.Request.Action, p.Request.Amount.String())
	return strings.EqualFold(rest, want)
}
