package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/okellohq/sociapay/internal/domain"
)

// CallbackGateway delivers outbound replies for platforms whose transport
// lives in an external adapter process (WhatsApp, Instagram, Telegram,
// Twitter, Slack). Each reply is POSTed once to the adapter's callback URL;
// redelivery is the adapter's concern.
type CallbackGateway struct {
	platform domain.Platform
	endpoint string
	client   *http.Client
	tracker  *ActivityTracker
	healthy  atomic.Bool
}

func NewCallbackGateway(p domain.Platform, endpoint string, tracker *ActivityTracker) *CallbackGateway {
	g := &CallbackGateway{
		platform: p,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		tracker:  tracker,
	}
	g.healthy.Store(true)
	return g
}

func (g *CallbackGateway) Platform() domain.Platform {
	return g.platform
}

type outboundPayload struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

func (g *CallbackGateway) SendMessage(ctx context.Context, recipientID, text string) (string, error) {
	body, err := json.Marshal(outboundPayload{RecipientID: recipientID, Text: text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.healthy.Store(false)
		return "", fmt.Errorf("callback delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.healthy.Store(false)
		return "", fmt.Errorf("callback endpoint returned status %d", resp.StatusCode)
	}
	g.healthy.Store(true)

	var result struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Delivery succeeded; a missing message id is not an error.
		return "", nil
	}
	return result.MessageID, nil
}

// IsConnected reports whether the last delivery attempt succeeded.
func (g *CallbackGateway) IsConnected() bool {
	return g.healthy.Load()
}

func (g *CallbackGateway) ActiveUserCount() int {
	return g.tracker.Count(g.platform)
}
