// Package intent decides what an inbound message is asking for.
package intent

import (
	"regexp"
	"strings"

	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/parse"
)

var confirmReplyRe = regexp.MustCompile(`(?i)^(yes|no)\b`)

// IsConfirmationReply reports whether text is shaped like a YES/NO reply to a
// pending confirmation. The router checks this before Classify, because a
// reply like "yes send 50" would otherwise re-match the transfer patterns.
func IsConfirmationReply(text string) bool {
	return confirmReplyRe.MatchString(strings.TrimSpace(text))
}

// Classify returns the intent of a message that is not a confirmation reply.
// Pure and deterministic: no I/O, no state, case-insensitive.
func Classify(text string) domain.Intent {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if parse.Matches(trimmed) {
		return domain.IntentTransfer
	}
	if strings.Contains(lower, "help") || strings.Contains(lower, "how") || strings.Contains(lower, "?") {
		return domain.IntentHelp
	}
	if strings.Contains(lower, "balance") || strings.Contains(lower, "wallet") || strings.Contains(lower, "money") {
		return domain.IntentBalance
	}
	return domain.IntentUnknown
}
