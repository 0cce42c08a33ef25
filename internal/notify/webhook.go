package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSender posts notification JSON to subscriber URLs.
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a webhook sender. A nil client gets a 10s timeout client.
func NewWebhookSender(client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSender{client: client}
}

// Deliver implements Deliverer.
func (s *WebhookSender) Deliver(ctx context.Context, target Target, n Notification) error {
	hook, ok := target.(Webhook)
	if !ok {
		return fmt.Errorf("%w: webhook sender got %s target", ErrInvalidTarget, target.Channel())
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: marshal webhook body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
