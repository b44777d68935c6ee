package notify

import (
	"context"
	"time"

	"github.com/vigil-dev/vigil/internal/config"
	"go.uber.org/zap"
)

// Channel interfaces, satisfied by the concrete senders and by test
// fakes.
type EmailChannel interface {
	Send(ctx context.Context, to, subject, body string) error
}

type PushChannel interface {
	Send(ctx context.Context, tokens []string, title, body string) error
}

type ChatChannel interface {
	Send(ctx context.Context, chatID, text string) error
}

type WebhookChannel interface {
	Send(ctx context.Context, url string, alert Alert) error
}

// Dispatcher fans an alert out across the configured channels. Channels
// are attempted independently with bounded retries; one channel
// exhausting its retries never prevents the others from being tried,
// and nothing propagates to the caller.
type Dispatcher struct {
	Email   EmailChannel
	Push    PushChannel
	Chat    ChatChannel
	Webhook WebhookChannel

	Retries int           // retries per channel after the first attempt
	Backoff time.Duration // attempt delay = Backoff × attempt index

	Logger *zap.Logger
}

// NewDispatcher wires the real channel senders. Unconfigured channels
// stay nil and are skipped at dispatch time.
func NewDispatcher(cfg config.Config, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		Webhook: NewWebhookSender(),
		Retries: cfg.Engine.NotifyRetries,
		Backoff: cfg.Engine.NotifyBackoff(),
		Logger:  logger,
	}

	if email := NewEmailSender(cfg.SMTP); email != nil {
		d.Email = email
	}
	if push := NewPushSender(cfg.PushGatewayURL); push != nil {
		d.Push = push
	}
	if chat := NewChatSender(cfg.TelegramBotToken); chat != nil {
		d.Chat = chat
	}

	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) []ChannelResult {
	title := FormatTitle(alert)
	message := FormatMessage(alert)
	contact := alert.Contact

	var results []ChannelResult

	if d.Email != nil && contact != nil && contact.EmailOptIn && contact.Email != "" {
		delivered := d.attempt(ctx, "email", alert, func() error {
			return d.Email.Send(ctx, contact.Email, title, message)
		})
		results = append(results, ChannelResult{Channel: "email", Delivered: delivered})
	}

	if d.Push != nil && contact != nil && contact.PushOptIn && len(contact.PushTokens) > 0 {
		delivered := d.attempt(ctx, "push", alert, func() error {
			return d.Push.Send(ctx, contact.PushTokens, title, message)
		})
		results = append(results, ChannelResult{Channel: "push", Delivered: delivered})
	}

	if d.Chat != nil && contact != nil && contact.ChatOptIn && contact.ChatID != "" {
		delivered := d.attempt(ctx, "chat", alert, func() error {
			return d.Chat.Send(ctx, contact.ChatID, title+"\n"+message)
		})
		results = append(results, ChannelResult{Channel: "chat", Delivered: delivered})
	}

	if d.Webhook != nil && alert.WebhookURL != "" {
		delivered := d.attempt(ctx, "webhook", alert, func() error {
			return d.Webhook.Send(ctx, alert.WebhookURL, alert)
		})
		results = append(results, ChannelResult{Channel: "webhook", Delivered: delivered})
	}

	return results
}

// attempt runs one channel's delivery with linearly increasing backoff
// between tries. Returns whether delivery eventually succeeded.
func (d *Dispatcher) attempt(ctx context.Context, channel string, alert Alert, send func() error) bool {
	retries := d.Retries
	if retries < 0 {
		retries = 0
	}

	for i := 0; i <= retries; i++ {
		err := send()
		if err == nil {
			return true
		}

		d.Logger.Warn("notification_attempt_failed",
			zap.String("channel", channel),
			zap.String("alert", alert.Kind),
			zap.Uint("monitor_id", alert.MonitorID),
			zap.String("monitor", alert.MonitorName),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < retries {
			select {
			case <-time.After(d.Backoff * time.Duration(i+1)):
			case <-ctx.Done():
				return false
			}
		}
	}

	return false
}
