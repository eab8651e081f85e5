package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/okellohq/sociapay/internal/confirm"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/ledger"
	"github.com/okellohq/sociapay/internal/store"
)

const (
	reasonInsufficientBalance = "insufficient balance"
	reasonLedgerUnavailable   = "ledger unavailable"
	reasonCommitFailed        = "commit failed"
)

// execute turns a confirmed pending transfer into a terminal transaction.
// The total (amount plus fee) is reserved first; on commit failure the
// reservation is released so funds are never left held.
func (e *Engine) execute(ctx context.Context, p *confirm.Pending, msg domain.Message) *domain.Transaction {
	req := p.Request
	tx := &domain.Transaction{
		ID:              newID(),
		SenderID:        req.SenderID,
		RecipientHandle: req.RecipientHandle,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Fee:             p.Fee,
		Platform:        req.Platform,
		Status:          domain.TxProcessing,
		MessageID:       msg.MessageID,
		CreatedAt:       time.Now(),
	}

	reservationID, err := e.ledger.Reserve(ctx, req.SenderID, p.Total, req.Currency)
	if err != nil {
		tx.Status = domain.TxFailed
		if errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrWalletNotFound) {
			tx.FailureReason = reasonInsufficientBalance
		} else {
			// State unknown: the reserve call itself failed. Nothing was
			// affirmatively held, so there is nothing to release.
			tx.FailureReason = reasonLedgerUnavailable
			log.Printf("reserve failed for tx %s: %v", tx.ID, err)
		}
		e.record(ctx, tx)
		return tx
	}
	tx.ReservationID = reservationID

	if err := e.ledger.Commit(ctx, reservationID); err != nil {
		log.Printf("commit failed for tx %s (reservation %s): %v", tx.ID, reservationID, err)
		if relErr := e.ledger.Release(ctx, reservationID); relErr != nil {
			// Funds may still be held; this needs operator follow-up.
			log.Printf("RELEASE FAILED for reservation %s (tx %s): %v", reservationID, tx.ID, relErr)
		}
		tx.Status = domain.TxFailed
		tx.FailureReason = reasonCommitFailed
		e.record(ctx, tx)
		return tx
	}

	now := time.Now()
	tx.Status = domain.TxCompleted
	tx.CompletedAt = &now
	e.record(ctx, tx)
	return tx
}

func (e *Engine) record(ctx context.Context, tx *domain.Transaction) {
	transfersTotal.WithLabelValues(string(tx.Platform), string(tx.Status)).Inc()
	if err := e.txlog.Record(ctx, tx); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			log.Printf("duplicate transaction record for %s/%s dropped", tx.Platform, tx.MessageID)
			return
		}
		log.Printf("transaction record failed for %s: %v", tx.ID, err)
	}
}
