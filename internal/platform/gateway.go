// Package platform defines the outbound messaging contract and the adapters
// that implement it. Adapters carry transport concerns only; all business
// rules live in the engine.
package platform

import (
	"context"
	"sync"
	"time"

	"github.com/okellohq/sociapay/internal/domain"
)

// Gateway is the engine's view of one messaging platform: send a message,
// report health, count active users. Delivery retries are the gateway's
// concern; the engine makes a single attempt per reply.
type Gateway interface {
	Platform() domain.Platform
	SendMessage(ctx context.Context, recipientID, text string) (messageID string, err error)
	IsConnected() bool
	ActiveUserCount() int
}

// Registry holds the gateways the router can dispatch replies through.
type Registry struct {
	mu       sync.RWMutex
	gateways map[domain.Platform]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[domain.Platform]Gateway)}
}

func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Platform()] = g
}

func (r *Registry) Get(p domain.Platform) (Gateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[p]
	return g, ok
}

// Status is one gateway's health snapshot for the ops API.
type Status struct {
	Platform    domain.Platform `json:"platform"`
	Connected   bool            `json:"connected"`
	ActiveUsers int             `json:"active_users"`
}

func (r *Registry) Statuses() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	statuses := make([]Status, 0, len(r.gateways))
	for _, g := range r.gateways {
		statuses = append(statuses, Status{
			Platform:    g.Platform(),
			Connected:   g.IsConnected(),
			ActiveUsers: g.ActiveUserCount(),
		})
	}
	return statuses
}

// ActivityTracker counts recently active senders per platform. It is an
// explicit injected store with process lifetime: created at startup, cleared
// on restart. The activity window bounds how long a sender counts as active.
type ActivityTracker struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[domain.Platform]map[string]time.Time
	now    func() time.Time
}

func NewActivityTracker(window time.Duration) *ActivityTracker {
	return &ActivityTracker{
		window: window,
		seen:   make(map[domain.Platform]map[string]time.Time),
		now:    time.Now,
	}
}

// Touch marks a sender as active now.
func (t *ActivityTracker) Touch(p domain.Platform, senderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.seen[p]
	if !ok {
		users = make(map[string]time.Time)
		t.seen[p] = users
	}
	users[senderID] = t.now()
}

// Count returns how many senders were active on the platform within the
// window, pruning stale entries as it goes.
func (t *ActivityTracker) Count(p domain.Platform) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.window)
	users := t.seen[p]
	for id, last := range users {
		if last.Before(cutoff) {
			delete(users, id)
		}
	}
	return len(users)
}
