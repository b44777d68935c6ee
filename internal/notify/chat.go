package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ChatSender delivers alerts to the owner's chat via the Telegram bot
// API.
type ChatSender struct {
	apiBase string
	token   string
	client  *http.Client
}

func NewChatSender(botToken string) *ChatSender {
	if botToken == "" {
		return nil
	}
	return &ChatSender{
		apiBase: "https://api.telegram.org",
		token:   botToken,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type chatMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (c *ChatSender) Send(ctx context.Context, chatID, text string) error {
	if c == nil {
		return fmt.Errorf("chat disabled")
	}

	payload, err := json.Marshal(chatMessage{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("chat API returned status %d", resp.StatusCode)
	}

	return nil
}
