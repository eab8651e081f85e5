// Package engine is the platform-agnostic core: it classifies inbound
// messages, parses and validates transfer requests, drives the confirm/execute
// protocol, and sends exactly one reply per message through the originating
// platform's gateway.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/okellohq/sociapay/internal/confirm"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/intent"
	"github.com/okellohq/sociapay/internal/ledger"
	"github.com/okellohq/sociapay/internal/parse"
	"github.com/okellohq/sociapay/internal/platform"
	"github.com/okellohq/sociapay/internal/policy"
)

// TransactionLog records terminal transactions and answers idempotency
// lookups keyed by the originating message.
type TransactionLog interface {
	Record(ctx context.Context, tx *domain.Transaction) error
	FindByMessageID(ctx context.Context, p domain.Platform, messageID string) (*domain.Transaction, error)
}

// RecipientResolver checks whether a handle resolves to a known user on a
// platform. Optional: when absent, any non-empty handle is accepted.
type RecipientResolver interface {
	Resolve(ctx context.Context, p domain.Platform, handle string) (bool, error)
}

// Engine routes inbound messages through the transfer pipeline.
type Engine struct {
	gateways    *platform.Registry
	tracker     *platform.ActivityTracker
	coordinator *confirm.Coordinator
	ledger      ledger.Service
	txlog       TransactionLog
	limits      policy.Limits
	fees        policy.FeeTable
	resolver    RecipientResolver
}

func New(
	gateways *platform.Registry,
	tracker *platform.ActivityTracker,
	coordinator *confirm.Coordinator,
	ledgerSvc ledger.Service,
	txlog TransactionLog,
	limits policy.Limits,
	fees policy.FeeTable,
) *Engine {
	return &Engine{
		gateways:    gateways,
		tracker:     tracker,
		coordinator: coordinator,
		ledger:      ledgerSvc,
		txlog:       txlog,
		limits:      limits,
		fees:        fees,
	}
}

// SetRecipientResolver enables validation-time recipient lookups.
func (e *Engine) SetRecipientResolver(r RecipientResolver) {
	e.resolver = r
}

// HandleMessage runs one inbound message through the pipeline. Every path
// produces exactly one reply to the sender; a reply-send failure is logged
// rather than returned, since the sender cannot see an error we fail to
// deliver.
func (e *Engine) HandleMessage(ctx context.Context, msg domain.Message) error {
	if !domain.IsKnownPlatform(msg.Platform) {
		return fmt.Errorf("unknown platform %q", msg.Platform)
	}
	gw, ok := e.gateways.Get(msg.Platform)
	if !ok {
		return fmt.Errorf("no gateway registered for platform %q", msg.Platform)
	}

	e.tracker.Touch(msg.Platform, msg.SenderID)

	reply, intentLabel := e.dispatch(ctx, gw, msg)
	messagesTotal.WithLabelValues(string(msg.Platform), intentLabel).Inc()

	if _, err := gw.SendMessage(ctx, msg.SenderID, reply); err != nil {
		log.Printf("reply delivery failed on %s to %s: %v", msg.Platform, msg.SenderID, err)
	}
	return nil
}

// dispatch returns the reply text and the intent label for metrics.
//
// Confirmation-shaped replies are matched before classification: "yes send
// 50" would otherwise re-match the transfer patterns and park a second
// confirmation instead of resolving the first.
func (e *Engine) dispatch(ctx context.Context, gw platform.Gateway, msg domain.Message) (string, string) {
	if intent.IsConfirmationReply(msg.Text) {
		return e.handleConfirmationReply(ctx, gw, msg), domain.IntentConfirmationReply.String()
	}

	classified := intent.Classify(msg.Text)
	switch classified {
	case domain.IntentTransfer:
		return e.handleTransfer(ctx, msg), classified.String()
	case domain.IntentHelp:
		return helpReply(), classified.String()
	case domain.IntentBalance:
		return e.handleBalance(ctx, msg), classified.String()
	default:
		return unknownReply(), classified.String()
	}
}

func (e *Engine) handleTransfer(ctx context.Context, msg domain.Message) string {
	limits, ok := e.limits[msg.Platform]
	if !ok {
		return transfersUnavailableReply()
	}

	parsed, err := parse.Parse(msg.Text, limits.DefaultCurrency)
	if err != nil {
		var parseErr *parse.Error
		if errors.As(err, &parseErr) {
			return didNotUnderstandReply(parseErr.Reason)
		}
		return didNotUnderstandReply("")
	}

	req := domain.TransferRequest{
		Action:          parsed.Action,
		Amount:          parsed.Amount,
		Currency:        parsed.Currency,
		RecipientHandle: parsed.RecipientHandle,
		Platform:        msg.Platform,
		SenderID:        msg.SenderID,
	}

	if result := policy.Validate(req, limits); !result.Valid {
		return validationReply(result.Reason)
	}

	if e.resolver != nil {
		known, err := e.resolver.Resolve(ctx, msg.Platform, req.RecipientHandle)
		if err != nil {
			log.Printf("recipient lookup failed for @%s on %s: %v", req.RecipientHandle, msg.Platform, err)
			return temporaryFailureReply()
		}
		if !known {
			return unknownRecipientReply(req.RecipientHandle)
		}
	}

	fee := e.fees.ComputeFee(req.Amount, req.Currency)
	prompt, err := e.coordinator.Request(ctx, req, fee)
	if err != nil {
		log.Printf("failed to park confirmation for %s/%s: %v", msg.Platform, msg.SenderID, err)
		return temporaryFailureReply()
	}
	return prompt
}

func (e *Engine) handleConfirmationReply(ctx context.Context, gw platform.Gateway, msg domain.Message) string {
	// A redelivered webhook carries the same messageId; replay the recorded
	// outcome instead of resolving again.
	if prior, err := e.txlog.FindByMessageID(ctx, msg.Platform, msg.MessageID); err != nil {
		log.Printf("idempotency lookup failed for %s/%s: %v", msg.Platform, msg.MessageID, err)
	} else if prior != nil {
		return outcomeReply(prior)
	}

	key := confirm.Key{Platform: msg.Platform, SenderID: msg.SenderID}
	res, err := e.coordinator.Resolve(ctx, key, msg.Text)
	if err != nil {
		log.Printf("confirmation resolve failed for %s/%s: %v", msg.Platform, msg.SenderID, err)
		return temporaryFailureReply()
	}

	switch res.Outcome {
	case confirm.OutcomeConfirmed:
		tx := e.execute(ctx, res.Pending, msg)
		e.notifyRecipient(ctx, gw, tx)
		return outcomeReply(tx)
	case confirm.OutcomeCancelled:
		return cancelledReply()
	case confirm.OutcomeExpired:
		return expiredReply()
	case confirm.OutcomeMismatch:
		return mismatchReply(res.Pending)
	default:
		return nothingToConfirmReply()
	}
}

func (e *Engine) handleBalance(ctx context.Context, msg domain.Message) string {
	currency := "USD"
	if limits, ok := e.limits[msg.Platform]; ok && limits.DefaultCurrency != "" {
		currency = limits.DefaultCurrency
	}

	balance, err := e.ledger.GetBalance(ctx, msg.SenderID, currency)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return noWalletReply()
		}
		log.Printf("balance lookup failed for %s/%s: %v", msg.Platform, msg.SenderID, err)
		return balanceUnavailableReply()
	}
	return balanceReply(balance, currency)
}

// notifyRecipient tells the recipient about a completed transfer. Best
// effort: a delivery failure is logged and never rolls anything back.
func (e *Engine) notifyRecipient(ctx context.Context, gw platform.Gateway, tx *domain.Transaction) {
	if tx.Status != domain.TxCompleted {
		return
	}
	text := recipientNotification(tx)
	if _, err := gw.SendMessage(ctx, tx.RecipientHandle, text); err != nil {
		log.Printf("recipient notification failed on %s to @%s: %v", tx.Platform, tx.RecipientHandle, err)
	}
}
