package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const webhookTimeout = 10 * time.Second

// WebhookPayload is the body POSTed to a monitor's configured webhook
// URL.
type WebhookPayload struct {
	Event     string       `json:"event"`
	Check     WebhookCheck `json:"check"`
	Timestamp string       `json:"timestamp"`
	Message   string       `json:"message"`
}

type WebhookCheck struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// WebhookSender delivers alert payloads to owner-configured webhook
// URLs. Delivery succeeds only on a 2xx response within the request
// timeout; redirects are not followed and count as failures.
type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		client: &http.Client{
			Timeout: webhookTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (w *WebhookSender) Send(ctx context.Context, url string, alert Alert) error {
	event := webhookEvent(alert.Kind)

	payload := WebhookPayload{
		Event: event,
		Check: WebhookCheck{
			ID:     alert.MonitorID,
			Name:   alert.MonitorName,
			URL:    alert.URL,
			Status: alert.Status,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   FormatMessage(alert),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Vigil-Event", event)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
