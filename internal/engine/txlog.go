package engine

import (
	"context"
	"sync"

	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/store"
)

type messageKey struct {
	platform  domain.Platform
	messageID string
}

// MemoryTransactionLog is an in-process TransactionLog. Records do not
// survive a restart; production runs use the Postgres store.
type MemoryTransactionLog struct {
	mu        sync.Mutex
	byMessage map[messageKey]*domain.Transaction
}

func NewMemoryTransactionLog() *MemoryTransactionLog {
	return &MemoryTransactionLog{byMessage: make(map[messageKey]*domain.Transaction)}
}

func (l *MemoryTransactionLog) Record(ctx context.Context, tx *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := messageKey{platform: tx.Platform, messageID: tx.MessageID}
	if _, exists := l.byMessage[key]; exists {
		return store.ErrDuplicateMessage
	}
	copied := *tx
	l.byMessage[key] = &copied
	return nil
}

func (l *MemoryTransactionLog) FindByMessageID(ctx context.Context, p domain.Platform, messageID string) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.byMessage[messageKey{platform: p, messageID: messageID}]
	if !ok {
		return nil, nil
	}
	copied := *tx
	return &copied, nil
}
