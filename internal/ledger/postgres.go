package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger implements Service against the wallets and reservations
// tables. Balances are stored as NUMERIC and moved through shopspring
// decimals; the float path is never used.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// Reserve places a hold on the user's wallet. The wallet row is locked for
// the duration of the check-and-update so concurrent reservations cannot
// both spend the same available balance.
func (l *PostgresLedger) Reserve(ctx context.Context, userID string, amount decimal.Decimal, currency string) (string, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance, reserved string
	err = tx.QueryRow(ctx,
		"SELECT balance::text, reserved::text FROM wallets WHERE user_id = $1 AND currency = $2 FOR UPDATE",
		userID, currency,
	).Scan(&balance, &reserved)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrWalletNotFound
		}
		return "", fmt.Errorf("wallet lock failed: %w", err)
	}

	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return "", fmt.Errorf("bad balance value: %w", err)
	}
	res, err := decimal.NewFromString(reserved)
	if err != nil {
		return "", fmt.Errorf("bad reserved value: %w", err)
	}
	if bal.Sub(res).LessThan(amount) {
		return "", ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx,
		"UPDATE wallets SET reserved = reserved + $1 WHERE user_id = $2 AND currency = $3",
		amount.String(), userID, currency,
	)
	if err != nil {
		return "", fmt.Errorf("reserve update failed: %w", err)
	}

	var reservationID string
	err = tx.QueryRow(ctx,
		"INSERT INTO reservations (user_id, currency, amount, status) VALUES ($1, $2, $3, 'held') RETURNING id::text",
		userID, currency, amount.String(),
	).Scan(&reservationID)
	if err != nil {
		return "", fmt.Errorf("reservation insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("tx commit failed: %w", err)
	}
	return reservationID, nil
}

// Commit debits the held amount from the wallet and marks the reservation
// committed.
func (l *PostgresLedger) Commit(ctx context.Context, reservationID string) error {
	return l.settle(ctx, reservationID, true)
}

// Release returns the held amount to the wallet's available balance.
func (l *PostgresLedger) Release(ctx context.Context, reservationID string) error {
	return l.settle(ctx, reservationID, false)
}

func (l *PostgresLedger) settle(ctx context.Context, reservationID string, commit bool) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID, currency, amount string
	err = tx.QueryRow(ctx,
		"SELECT user_id, currency, amount::text FROM reservations WHERE id::text = $1 AND status = 'held' FOR UPDATE",
		reservationID,
	).Scan(&userID, &currency, &amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrReservationNotFound
		}
		return fmt.Errorf("reservation lock failed: %w", err)
	}

	if commit {
		_, err = tx.Exec(ctx,
			"UPDATE wallets SET balance = balance - $1, reserved = reserved - $1 WHERE user_id = $2 AND currency = $3",
			amount, userID, currency,
		)
	} else {
		_, err = tx.Exec(ctx,
			"UPDATE wallets SET reserved = reserved - $1 WHERE user_id = $2 AND currency = $3",
			amount, userID, currency,
		)
	}
	if err != nil {
		return fmt.Errorf("wallet update failed: %w", err)
	}

	status := "committed"
	if !commit {
		status = "released"
	}
	_, err = tx.Exec(ctx,
		"UPDATE reservations SET status = $1, settled_at = CURRENT_TIMESTAMP WHERE id::text = $2",
		status, reservationID,
	)
	if err != nil {
		return fmt.Errorf("reservation update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

// GetBalance returns the user's available balance: balance minus reserved.
func (l *PostgresLedger) GetBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error) {
	var available string
	err := l.pool.QueryRow(ctx,
		"SELECT (balance - reserved)::text FROM wallets WHERE user_id = $1 AND currency = $2",
		userID, currency,
	).Scan(&available)
	if err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, ErrWalletNotFound
		}
		return decimal.Zero, fmt.Errorf("balance query failed: %w", err)
	}
	return decimal.NewFromString(available)
}
