// Package domain defines the core entities shared across the transfer engine.
// These types are independent of any platform SDK or storage backend.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies the messaging platform a message arrived from.
type Platform string

const (
	PlatformDiscord   Platform = "discord"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
	PlatformTelegram  Platform = "telegram"
	PlatformTwitter   Platform = "twitter"
	PlatformSlack     Platform = "slack"
)

// KnownPlatforms lists every platform the engine accepts messages from.
var KnownPlatforms = []Platform{
	PlatformDiscord,
	PlatformWhatsApp,
	PlatformInstagram,
	PlatformTelegram,
	PlatformTwitter,
	PlatformSlack,
}

// IsKnownPlatform reports whether p is one of the supported platforms.
func IsKnownPlatform(p Platform) bool {
	for _, known := range KnownPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// Message is one normalized inbound event. Webhook envelope decoding happens
// upstream; by the time a Message reaches the engine it is platform-neutral.
// A Message is never mutated after creation.
type Message struct {
	Platform     Platform  `json:"platform"`
	SenderID     string    `json:"sender_id"`
	SenderHandle string    `json:"sender_handle"`
	Text         string    `json:"text"`
	MessageID    string    `json:"message_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// Intent is the classified purpose of an inbound message.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentTransfer
	IntentHelp
	IntentBalance
	IntentConfirmationReply
)

func (i Intent) String() string {
	switch i {
	case IntentTransfer:
		return "transfer"
	case IntentHelp:
		return "help"
	case IntentBalance:
		return "balance"
	case IntentConfirmationReply:
		return "confirmation_reply"
	default:
		return "unknown"
	}
}

// Action is the transfer verb the user typed.
type Action string

const (
	ActionSend     Action = "send"
	ActionPay      Action = "pay"
	ActionTransfer Action = "transfer"
	ActionGift     Action = "gift"
	ActionSplit    Action = "split"
)

// TransferRequest is the structured result of parsing a transfer message.
// Immutable once created.
type TransferRequest struct {
	Action          Action          `json:"action"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	RecipientHandle string          `json:"recipient_handle"`
	Platform        Platform        `json:"platform"`
	SenderID        string          `json:"sender_id"`
}

// TransactionStatus is the state of a transaction record.
type TransactionStatus string

const (
	TxPending    TransactionStatus = "pending"
	TxProcessing TransactionStatus = "processing"
	TxCompleted  TransactionStatus = "completed"
	TxFailed     TransactionStatus = "failed"
)

// Transaction is the record of one confirmed transfer attempt. It is created
// only after the sender confirms, and reaches exactly one terminal status.
type Transaction struct {
	ID              string            `json:"id"`
	SenderID        string            `json:"sender_id"`
	RecipientHandle string            `json:"recipient_handle"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	Fee             decimal.Decimal   `json:"fee"`
	Platform        Platform          `json:"platform"`
	Status          TransactionStatus `json:"status"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	ReservationID   string            `json:"reservation_id,omitempty"`
	MessageID       string            `json:"message_id"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

// Total is the amount debited from the sender: amount plus fee.
func (t *Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}
