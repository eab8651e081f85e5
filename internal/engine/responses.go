package engine

import (
	"fmt"
	"strings"

	"github.com/okellohq/sociapay/internal/confirm"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/parse"
	"github.com/shopspring/decimal"
)

func helpReply() string {
	var b strings.Builder
	b.WriteString("I can move money for you. Try one of these:\n")
	for _, example := range parse.Examples {
		b.WriteString("  • ")
		b.WriteString(example)
		b.WriteString("\n")
	}
	b.WriteString("You can also ask for your \"balance\".")
	return b.String()
}

func didNotUnderstandReply(reason string) string {
	var b strings.Builder
	if reason != "" {
		b.WriteString(reason)
		b.WriteString("\n")
	}
	b.WriteString("Here are phrasings I understand:\n")
	for _, example := range parse.Examples {
		b.WriteString("  • ")
		b.WriteString(example)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func unknownReply() string {
	return didNotUnderstandReply("Sorry, I didn't understand that.")
}

func validationReply(reason string) string {
	return fmt.Sprintf("%s. Your transfer was not started.", reason)
}

func unknownRecipientReply(handle string) string {
	return fmt.Sprintf("I don't know anyone called @%s on this platform. Your transfer was not started.", handle)
}

func transfersUnavailableReply() string {
	return "Transfers aren't available on this platform yet."
}

func temporaryFailureReply() string {
	return "Something went wrong on our side. Please try again in a moment."
}

func nothingToConfirmReply() string {
	return "There's nothing to confirm. Please resend your transfer request."
}

func cancelledReply() string {
	return "Cancelled. No funds were moved."
}

func expiredReply() string {
	return "That confirmation has expired. Please resend your transfer request."
}

func mismatchReply(p *confirm.Pending) string {
	return fmt.Sprintf("That didn't match your pending transfer. Reply \"%s\" to confirm or \"NO\" to cancel.",
		confirm.ConfirmPhrase(p.Request))
}

func outcomeReply(tx *domain.Transaction) string {
	switch tx.Status {
	case domain.TxCompleted:
		return fmt.Sprintf("Done! You sent %s %s to @%s (fee %s %s, total %s %s).",
			tx.Amount.String(), tx.Currency, tx.RecipientHandle,
			tx.Fee.StringFixed(2), tx.Currency, tx.Total().StringFixed(2), tx.Currency)
	default:
		if tx.FailureReason == reasonInsufficientBalance {
			return "Transfer failed: your balance doesn't cover the amount plus fee. Your funds were not deducted."
		}
		return "Transfer failed. Your funds were not deducted."
	}
}

func recipientNotification(tx *domain.Transaction) string {
	return fmt.Sprintf("You received %s %s from %s.", tx.Amount.String(), tx.Currency, tx.SenderID)
}

func noWalletReply() string {
	return "You don't have a wallet yet."
}

func balanceUnavailableReply() string {
	return "I couldn't check your balance right now. Please try again in a moment."
}

func balanceReply(balance decimal.Decimal, currency string) string {
	return fmt.Sprintf("Your available balance is %s %s.", balance.StringFixed(2), currency)
}
