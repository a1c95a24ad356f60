package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier POSTs each notification as JSON to a URL.
type WebhookNotifier struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewWebhookNotifier creates a webhook notifier. A non-empty secret is sent
// as a bearer token.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WebhookPayload is the JSON body of a webhook delivery.
type WebhookPayload struct {
	Kind      Kind      `json:"kind"`
	Recipient string    `json:"recipient"`
	Message   Message   `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// Notify delivers the notification. Any non-2xx response is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, kind Kind, recipient string, msg Message) error {
	data, err := json.Marshal(WebhookPayload{
		Kind:      kind,
		Recipient: recipient,
		Message:   msg,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("Authorization", "Bearer "+n.secret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing webhook response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return nil
}
