package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okellohq/sociapay/internal/confirm"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/ledger"
	"github.com/okellohq/sociapay/internal/platform"
	"github.com/okellohq/sociapay/internal/policy"
	"github.com/shopspring/decimal"
)

// fakeGateway records every outbound message.
type fakeGateway struct {
	mu       sync.Mutex
	platform domain.Platform
	sent     []sentMessage
	sendErr  error
}

type sentMessage struct {
	recipient string
	text      string
}

func (g *fakeGateway) Platform() domain.Platform { return g.platform }

func (g *fakeGateway) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return "", g.sendErr
	}
	g.sent = append(g.sent, sentMessage{recipient: recipientID, text: text})
	return "out-1", nil
}

func (g *fakeGateway) IsConnected() bool    { return true }
func (g *fakeGateway) ActiveUserCount() int { return 0 }

func (g *fakeGateway) lastTo(recipient string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].recipient == recipient {
			return g.sent[i].text
		}
	}
	return ""
}

func (g *fakeGateway) countTo(recipient string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, m := range g.sent {
		if m.recipient == recipient {
			n++
		}
	}
	return n
}

// fakeLedger scripts reserve/commit/release behavior.
type fakeLedger struct {
	mu           sync.Mutex
	balances     map[string]decimal.Decimal
	commitErr    error
	nextResID    int
	reserved     map[string]decimal.Decimal // reservationID -> amount
	released     []string
	committed    []string
	lastReserve  decimal.Decimal
	lastReserver string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]decimal.Decimal),
		reserved: make(map[string]decimal.Decimal),
	}
}

func (l *fakeLedger) Reserve(ctx context.Context, userID string, amount decimal.Decimal, currency string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[userID]
	if !ok {
		return "", ledger.ErrWalletNotFound
	}
	if balance.LessThan(amount) {
		return "", ledger.ErrInsufficientFunds
	}
	l.nextResID++
	id := "res-" + decimal.NewFromInt(int64(l.nextResID)).String()
	l.reserved[id] = amount
	l.lastReserve = amount
	l.lastReserver = userID
	return id, nil
}

func (l *fakeLedger) Commit(ctx context.Context, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.commitErr != nil {
		return l.commitErr
	}
	l.committed = append(l.committed, reservationID)
	return nil
}

func (l *fakeLedger) Release(ctx context.Context, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, reservationID)
	return nil
}

func (l *fakeLedger) GetBalance(ctx context.Context, userID, currency string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[userID]
	if !ok {
		return decimal.Zero, ledger.ErrWalletNotFound
	}
	return balance, nil
}

type fixture struct {
	engine   *Engine
	whatsapp *fakeGateway
	insta    *fakeGateway
	ledger   *fakeLedger
	txlog    *MemoryTransactionLog
}

func newFixture() *fixture {
	whatsapp := &fakeGateway{platform: domain.PlatformWhatsApp}
	insta := &fakeGateway{platform: domain.PlatformInstagram}
	registry := platform.NewRegistry()
	registry.Register(whatsapp)
	registry.Register(insta)

	fakeLed := newFakeLedger()
	txlog := NewMemoryTransactionLog()
	coordinator := confirm.NewCoordinator(confirm.NewMemoryStore(), 5*time.Minute)

	eng := New(
		registry,
		platform.NewActivityTracker(time.Hour),
		coordinator,
		fakeLed,
		txlog,
		policy.DefaultLimits(),
		policy.DefaultFeeTable(),
	)

	return &fixture{engine: eng, whatsapp: whatsapp, insta: insta, ledger: fakeLed, txlog: txlog}
}

func msg(p domain.Platform, sender, text, messageID string) domain.Message {
	return domain.Message{
		Platform:     p,
		SenderID:     sender,
		SenderHandle: sender,
		Text:         text,
		MessageID:    messageID,
		Timestamp:    time.Now(),
	}
}

func TestTransferRequestParksConfirmation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "Send $50 to @john", "m1")); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	reply := f.whatsapp.lastTo("u1")
	for _, want := range []string{"@john", "Fee: 0.50 USD", "Total: 50.50 USD", `"YES send 50"`} {
		if !strings.Contains(reply, want) {
			t.Errorf("prompt missing %q:\n%s", want, reply)
		}
	}
}

func TestConfirmedTransferCompletes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.ledger.balances["u1"] = decimal.NewFromInt(100)

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "Send $50 to @john", "m1")); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES send 50", "m2")); err != nil {
		t.Fatal(err)
	}

	// Amount plus fee was reserved from the sender.
	if f.ledger.lastReserver != "u1" {
		t.Errorf("reserved from %q, want u1", f.ledger.lastReserver)
	}
	if !f.ledger.lastReserve.Equal(decimal.NewFromFloat(50.50)) {
		t.Errorf("reserved %s, want 50.50", f.ledger.lastReserve)
	}
	if len(f.ledger.committed) != 1 {
		t.Errorf("committed %d reservations, want 1", len(f.ledger.committed))
	}

	reply := f.whatsapp.lastTo("u1")
	if !strings.Contains(reply, "Done!") {
		t.Errorf("sender reply = %q, want success message", reply)
	}

	tx, err := f.txlog.FindByMessageID(ctx, domain.PlatformWhatsApp, "m2")
	if err != nil {
		t.Fatal(err)
	}
	if tx == nil || tx.Status != domain.TxCompleted {
		t.Fatalf("recorded transaction = %+v, want completed", tx)
	}
	if tx.CompletedAt == nil {
		t.Error("completed transaction missing CompletedAt")
	}

	// Recipient got a best-effort notification.
	if n := f.whatsapp.countTo("john"); n != 1 {
		t.Errorf("recipient notifications = %d, want 1", n)
	}
}

func TestOverLimitRejectedWithoutConfirmation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformInstagram, "u1", "Send $2000 to @john", "m1")); err != nil {
		t.Fatal(err)
	}

	reply := f.insta.lastTo("u1")
	if !strings.Contains(reply, "Amount exceeds platform limit") {
		t.Errorf("reply = %q, want limit rejection", reply)
	}

	// No pending confirmation was parked: a YES finds nothing.
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformInstagram, "u1", "YES", "m2")); err != nil {
		t.Fatal(err)
	}
	if reply := f.insta.lastTo("u1"); !strings.Contains(reply, "nothing to confirm") {
		t.Errorf("reply = %q, want nothing-to-confirm", reply)
	}
}

func TestNoWithoutPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u2", "NO", "m1")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("u2"); !strings.Contains(reply, "nothing to confirm") {
		t.Errorf("reply = %q, want nothing-to-confirm", reply)
	}
}

func TestDuplicateYesExecutesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.ledger.balances["u1"] = decimal.NewFromInt(100)

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @john", "m1")); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES send 50", "m2")); err != nil {
		t.Fatal(err)
	}
	// Second YES arrives as a new message.
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES send 50", "m3")); err != nil {
		t.Fatal(err)
	}

	if len(f.ledger.committed) != 1 {
		t.Errorf("committed %d reservations, want 1", len(f.ledger.committed))
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "nothing to confirm") {
		t.Errorf("second YES reply = %q, want nothing-to-confirm", reply)
	}
}

func TestRedeliveredWebhookReplaysOutcome(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.ledger.balances["u1"] = decimal.NewFromInt(100)

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @john", "m1")); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES send 50", "m2")); err != nil {
		t.Fatal(err)
	}
	first := f.whatsapp.lastTo("u1")

	// Same messageId redelivered: the prior outcome is replayed, nothing
	// executes again.
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES send 50", "m2")); err != nil {
		t.Fatal(err)
	}
	if len(f.ledger.committed) != 1 {
		t.Errorf("committed %d reservations, want 1", len(f.ledger.committed))
	}
	if replay := f.whatsapp.lastTo("u1"); replay != first {
		t.Errorf("replay = %q, want original outcome %q", replay, first)
	}
}

func TestInsufficientBalanceFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.ledger.balances["u1"] = decimal.NewFromInt(10)

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @john", "m1")); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES", "m2")); err != nil {
		t.Fatal(err)
	}

	reply := f.whatsapp.lastTo("u1")
	if !strings.Contains(reply, "funds were not deducted") {
		t.Errorf("reply = %q, want failure with no deduction", reply)
	}
	if len(f.ledger.committed) != 0 {
		t.Error("commit must not run after a failed reservation")
	}

	tx, err := f.txlog.FindByMessageID(ctx, domain.PlatformWhatsApp, "m2")
	if err != nil {
		t.Fatal(err)
	}
	if tx == nil || tx.Status != domain.TxFailed {
		t.Fatalf("recorded transaction = %+v, want failed", tx)
	}
}

func TestCommitFailureReleasesReservation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.ledger.balances["u1"] = decimal.NewFromInt(100)
	f.ledger.commitErr = errors.New("ledger timeout")

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @john", "m1")); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "YES", "m2")); err != nil {
		t.Fatal(err)
	}

	if len(f.ledger.released) != 1 {
		t.Fatalf("released %d reservations, want 1", len(f.ledger.released))
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "Transfer failed") {
		t.Errorf("reply = %q, want failure message", reply)
	}
}

func TestCancelReply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @john", "m1")); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "NO", "m2")); err != nil {
		t.Fatal(err)
	}

	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "Cancelled") {
		t.Errorf("reply = %q, want cancellation", reply)
	}
	if len(f.ledger.committed) != 0 || len(f.ledger.reserved) != 0 {
		t.Error("cancelled transfer must not touch the ledger")
	}
}

func TestHelpAndUnknownReplies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "help", "m1")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "send 50 to @alice") {
		t.Errorf("help reply = %q, want example phrasings", reply)
	}

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "blargh", "m2")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "didn't understand") {
		t.Errorf("unknown reply = %q, want didn't-understand", reply)
	}
}

func TestBalanceReply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.ledger.balances["u1"] = decimal.NewFromFloat(123.40)

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "balance", "m1")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "123.40 USD") {
		t.Errorf("balance reply = %q, want amount", reply)
	}

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "nobody", "balance", "m2")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("nobody"); !strings.Contains(reply, "don't have a wallet") {
		t.Errorf("no-wallet reply = %q", reply)
	}
}

func TestGatewaySendFailureDoesNotFailHandling(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.whatsapp.sendErr = errors.New("socket closed")

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "help", "m1")); err != nil {
		t.Errorf("HandleMessage returned error on send failure: %v", err)
	}
}

func TestUnknownPlatformRejected(t *testing.T) {
	f := newFixture()
	if err := f.engine.HandleMessage(context.Background(), msg(domain.Platform("myspace"), "u1", "help", "m1")); err == nil {
		t.Error("HandleMessage accepted an unknown platform")
	}
}

type fakeResolver struct {
	known map[string]bool
}

func (r *fakeResolver) Resolve(ctx context.Context, p domain.Platform, handle string) (bool, error) {
	return r.known[handle], nil
}

func TestUnknownRecipientRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.engine.SetRecipientResolver(&fakeResolver{known: map[string]bool{"john": true}})

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @stranger", "m1")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "don't know anyone called @stranger") {
		t.Errorf("reply = %q, want unknown-recipient rejection", reply)
	}

	if err := f.engine.HandleMessage(ctx, msg(domain.PlatformWhatsApp, "u1", "send 50 to @john", "m2")); err != nil {
		t.Fatal(err)
	}
	if reply := f.whatsapp.lastTo("u1"); !strings.Contains(reply, "YES send 50") {
		t.Errorf("reply = %q, want confirmation prompt", reply)
	}
}
