package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrDuplicateMessage is returned when a transaction for the same
// (platform, messageId) has already been recorded. The unique index is the
// idempotency guard against webhook redelivery.
var ErrDuplicateMessage = errors.New("transaction already recorded for message")

// Record inserts a terminal transaction.
func (s *Store) Record(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions
			(id, sender_id, recipient_handle, amount, currency, fee, platform,
			 status, failure_reason, reservation_id, message_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		tx.ID, tx.SenderID, tx.RecipientHandle, tx.Amount.String(), tx.Currency,
		tx.Fee.String(), string(tx.Platform), string(tx.Status), tx.FailureReason,
		tx.ReservationID, tx.MessageID, tx.CreatedAt, tx.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}

// FindByMessageID returns the transaction recorded for the originating
// message, or nil if none exists.
func (s *Store) FindByMessageID(ctx context.Context, platform domain.Platform, messageID string) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, sender_id, recipient_handle, amount::text, currency, fee::text,
		       platform, status, COALESCE(failure_reason, ''), COALESCE(reservation_id, ''),
		       message_id, created_at, completed_at
		FROM transactions WHERE platform = $1 AND message_id = $2`,
		string(platform), messageID,
	)
	tx, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("transaction lookup failed: %w", err)
	}
	return tx, nil
}

// ListBySender returns a sender's transactions, newest first.
func (s *Store) ListBySender(ctx context.Context, senderID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, recipient_handle, amount::text, currency, fee::text,
		       platform, status, COALESCE(failure_reason, ''), COALESCE(reservation_id, ''),
		       message_id, created_at, completed_at
		FROM transactions WHERE sender_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		senderID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("transaction list failed: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount, fee, platform, status string
	err := row.Scan(
		&tx.ID, &tx.SenderID, &tx.RecipientHandle, &amount, &tx.Currency, &fee,
		&platform, &status, &tx.FailureReason, &tx.ReservationID,
		&tx.MessageID, &tx.CreatedAt, &tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad amount value: %w", err)
	}
	if tx.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("bad fee value: %w", err)
	}
	tx.Platform = domain.Platform(platform)
	tx.Status = domain.TransactionStatus(status)
	return &tx, nil
}
