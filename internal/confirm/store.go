package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/okellohq/sociapay/internal/domain"
	"github.com/shopspring/decimal"
)

// Key identifies the single pending confirmation slot a sender has on a
// platform.
type Key struct {
	Platform domain.Platform
	SenderID string
}

// Pending is one stored confirmation awaiting a YES/NO reply.
type Pending struct {
	Key       Key
	Request   domain.TransferRequest
	Fee       decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store holds pending confirmations keyed by (platform, senderId).
//
// Take must remove and return the entry in one atomic step: two concurrent
// Take calls for the same key must not both see the entry. That atomicity is
// what guarantees a duplicate "YES" cannot execute a transfer twice.
type Store interface {
	// Put stores p, overwriting any prior entry for p.Key.
	Put(ctx context.Context, p Pending) error
	// Take removes and returns the entry for key, or nil if none exists.
	Take(ctx context.Context, key Key) (*Pending, error)
	// DeleteExpired removes every entry whose ExpiresAt is at or before now
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore is the default in-process Store: a mutex-guarded map. Entries
// do not survive a restart; back the coordinator with the Postgres store when
// that matters.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]Pending
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Pending)}
}

func (s *MemoryStore) Put(ctx context.Context, p Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.Key] = p
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, key Key) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	delete(s.entries, key)
	return &p, nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, p := range s.entries {
		if !p.ExpiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
