package notify

import (
	"context"
	"time"

	"github.com/vigil-dev/vigil/internal/store"
)

// Alert carries everything a channel needs to render and deliver one
// state-transition notification.
type Alert struct {
	Kind string // types.AlertDown, AlertRecovery or AlertDegraded

	MonitorID   uint
	MonitorName string
	URL         string
	Status      string

	// Down alerts
	Reason       string
	FailureCount int

	// Recovery alerts; nil when no previous status event existed.
	Downtime *time.Duration

	// Degraded alerts
	ResponseTimeMS int64
	ThresholdMS    int

	Contact    *store.ContactInfo // nil when the lookup failed
	WebhookURL string
}

// ChannelResult records one channel's delivery outcome. It is returned
// to the caller for logging and never persisted.
type ChannelResult struct {
	Channel   string
	Delivered bool
}

// Sender dispatches an alert across the configured channels. It never
// returns an error; per-channel failures are reported in the results.
type Sender interface {
	Dispatch(ctx context.Context, alert Alert) []ChannelResult
}
