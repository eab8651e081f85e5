package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// RunMigrations creates the schema if it does not exist.
func (s *Store) RunMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			user_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance NUMERIC(20,2) NOT NULL DEFAULT 0,
			reserved NUMERIC(20,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, currency)
		);
		CREATE TABLE IF NOT EXISTS reservations (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount NUMERIC(20,2) NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			settled_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			recipient_handle TEXT NOT NULL,
			amount NUMERIC(20,2) NOT NULL,
			currency TEXT NOT NULL,
			fee NUMERIC(20,2) NOT NULL,
			platform TEXT NOT NULL,
			status TEXT NOT NULL,
			failure_reason TEXT,
			reservation_id TEXT,
			message_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_message
			ON transactions(platform, message_id);
		CREATE INDEX IF NOT EXISTS idx_transactions_sender
			ON transactions(sender_id);
		CREATE TABLE IF NOT EXISTS pending_confirmations (
			platform TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			action TEXT NOT NULL,
			amount NUMERIC(20,2) NOT NULL,
			currency TEXT NOT NULL,
			recipient_handle TEXT NOT NULL,
			fee NUMERIC(20,2) NOT NULL,
			total NUMERIC(20,2) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			PRIMARY KEY (platform, sender_id)
		);
	`)
	return err
}
