// Package ledger defines the funds-movement collaborator contract and a
// Postgres-backed implementation. The engine reserves the debit up front,
// then commits or releases it, so a failed transfer never leaves funds held.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrReservationNotFound = errors.New("reservation not found")
)

// Service moves money. Reserve places a hold; Commit makes it irrevocable;
// Release undoes an uncommitted hold. Every call is a single attempt against
// a remote system: the caller must treat an error as "state unknown" and
// never assume success without an affirmative return.
type Service interface {
	Reserve(ctx context.Context, userID string, amount decimal.Decimal, currency string) (reservationID string, err error)
	Commit(ctx context.Context, reservationID string) error
	Release(ctx context.Context, reservationID string) error
	GetBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error)
}
