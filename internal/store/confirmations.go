package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/okellohq/sociapay/internal/confirm"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

// ConfirmationStore is a confirm.Store backed by the pending_confirmations
// table, so in-flight confirmations survive a process restart. Take uses
// DELETE ... RETURNING, which gives the same single-winner guarantee the
// in-memory store gets from its mutex: of two concurrent takes, exactly one
// receives the row.
type ConfirmationStore struct {
	store *Store
}

func NewConfirmationStore(s *Store) *ConfirmationStore {
	return &ConfirmationStore{store: s}
}

var _ confirm.Store = (*ConfirmationStore)(nil)

func (c *ConfirmationStore) Put(ctx context.Context, p confirm.Pending) error {
	_, err := c.store.pool.Exec(ctx, `
		INSERT INTO pending_confirmations
			(platform, sender_id, action, amount, currency, recipient_handle,
			 fee, total, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (platform, sender_id) DO UPDATE SET
			action = EXCLUDED.action,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			recipient_handle = EXCLUDED.recipient_handle,
			fee = EXCLUDED.fee,
			total = EXCLUDED.total,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`,
		string(p.Key.Platform), p.Key.SenderID, string(p.Request.Action),
		p.Request.Amount.String(), p.Request.Currency, p.Request.RecipientHandle,
		p.Fee.String(), p.Total.String(), p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("pending confirmation upsert failed: %w", err)
	}
	return nil
}

func (c *ConfirmationStore) Take(ctx context.Context, key confirm.Key) (*confirm.Pending, error) {
	var action, amount, currency, handle, fee, total string
	var createdAt, expiresAt time.Time
	err := c.store.pool.QueryRow(ctx, `
		DELETE FROM pending_confirmations
		WHERE platform = $1 AND sender_id = $2
		RETURNING action, amount::text, currency, recipient_handle,
		          fee::text, total::text, created_at, expires_at`,
		string(key.Platform), key.SenderID,
	).Scan(&action, &amount, &currency, &handle, &fee, &total, &createdAt, &expiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("pending confirmation take failed: %w", err)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount value: %w", err)
	}
	feeDec, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("bad fee value: %w", err)
	}
	totalDec, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("bad total value: %w", err)
	}

	return &confirm.Pending{
		Key: key,
		Request: domain.TransferRequest{
			Action:          domain.Action(action),
			Amount:          amt,
			Currency:        currency,
			RecipientHandle: handle,
			Platform:        key.Platform,
			SenderID:        key.SenderID,
		},
		Fee:       feeDec,
		Total:     totalDec,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (c *ConfirmationStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := c.store.pool.Exec(ctx,
		"DELETE FROM pending_confirmations WHERE expires_at <= $1", now,
	)
	if err != nil {
		return 0, fmt.Errorf("expired confirmation delete failed: %w", err)
	}
	return int(result.RowsAffected()), nil
}
