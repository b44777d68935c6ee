package store

import (
	"context"

	"github.com/vigil-dev/vigil/internal/models"
)

// ContactInfo is the owning account's alert delivery configuration.
type ContactInfo struct {
	Email      string
	PushTokens []string
	ChatID     string
	EmailOptIn bool
	PushOptIn  bool
	ChatOptIn  bool
}

// MonitorStore is the persistence boundary consumed by the check engine.
// Field updates are whole-field overwrites (last-write-wins); overlapping
// trigger invocations racing on the same monitor are accepted.
type MonitorStore interface {
	ListEnabledMonitors(ctx context.Context) ([]models.Monitor, error)
	GetMonitor(ctx context.Context, id uint) (*models.Monitor, error)
	UpdateMonitorFields(ctx context.Context, id uint, fields map[string]interface{}) error

	AppendCheckResult(ctx context.Context, result *models.CheckResult) error
	AppendStatusEvent(ctx context.Context, monitorID uint, status string, durationMS *int64) (*models.StatusEvent, error)
	LastStatusEvent(ctx context.Context, monitorID uint) (*models.StatusEvent, error)

	ContactInfo(ctx context.Context, userID uint) (*ContactInfo, error)
}
