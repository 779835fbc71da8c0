package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docwatch/internal/core/domain"
	"github.com/custodia-labs/docwatch/internal/core/ports/driven"
)

// DefaultWebhookTimeout bounds a single webhook delivery.
const DefaultWebhookTimeout = 10 * time.Second

// Ensure Webhook implements the interface.
var _ driven.Notifier = (*Webhook)(nil)

// webhookPayload is the JSON body posted to the destination URL.
type webhookPayload struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

// webhookResponse is the optional JSON reply; a non-empty id becomes the reference.
type webhookResponse struct {
	ID string `json:"id"`
}

// Webhook posts notifications as JSON to an http(s) URL.
type Webhook struct {
	client *http.Client
	now    func() time.Time
}

// NewWebhook creates a webhook notifier. A zero timeout uses DefaultWebhookTimeout.
func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &Webhook{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Notify posts msg to destination. The returned reference is the id from
// the receiver's JSON reply, or the generated delivery ID otherwise.
func (w *Webhook) Notify(ctx context.Context, destination string, msg driven.Message) (string, error) {
	if !strings.HasPrefix(destination, "https://") && !strings.HasPrefix(destination, "http://") {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedDestination, destination)
	}

	deliveryID := uuid.New().String()
	body, err := json.Marshal(webhookPayload{
		ID:      deliveryID,
		Subject: msg.Subject,
		Body:    msg.Body,
		SentAt:  w.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "docwatch")
	req.Header.Set("X-Docwatch-Delivery", deliveryID)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	var reply webhookResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if len(data) > 0 && json.Unmarshal(data, &reply) == nil && reply.ID != "" {
		return reply.ID, nil
	}
	return deliveryID, nil
}
