package engine

import (
	"time"

	"github.com/vigil-dev/vigil/internal/models"
)

// IsDue reports whether a monitor is eligible for a check: either it has
// never been checked, or its interval has elapsed since the last check.
func IsDue(monitor *models.Monitor, now time.Time) bool {
	if monitor.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*monitor.LastCheckedAt) >= monitor.Interval()
}

// DueMonitors filters the enabled monitor set down to those due now.
func DueMonitors(monitors []models.Monitor, now time.Time) []models.Monitor {
	due := make([]models.Monitor, 0, len(monitors))
	for _, m := range monitors {
		if IsDue(&m, now) {
			due = append(due, m)
		}
	}
	return due
}
