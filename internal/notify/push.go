package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushSender delivers alerts to the owner's registered devices through
// an Expo-compatible push gateway.
type PushSender struct {
	endpoint string
	client   *http.Client
}

func NewPushSender(endpoint string) *PushSender {
	if endpoint == "" {
		return nil
	}
	return &PushSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type pushMessage struct {
	To    []string `json:"to"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Sound string   `json:"sound"`
}

func (p *PushSender) Send(ctx context.Context, tokens []string, title, body string) error {
	if p == nil {
		return fmt.Errorf("push disabled")
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no push tokens registered")
	}

	payload, err := json.Marshal(pushMessage{
		To:    tokens,
		Title: title,
		Body:  body,
		Sound: "default",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	return nil
}
