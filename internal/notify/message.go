package notify

import (
	"fmt"
	"time"

	"github.com/vigil-dev/vigil/internal/types"
)

// FormatTitle renders the one-line alert headline used as the email
// subject and the first line of chat and push messages.
func FormatTitle(alert Alert) string {
	switch alert.Kind {
	case types.AlertDown:
		return fmt.Sprintf("🔴 %s is DOWN", alert.MonitorName)
	case types.AlertRecovery:
		return fmt.Sprintf("🟢 %s has RECOVERED", alert.MonitorName)
	case types.AlertDegraded:
		return fmt.Sprintf("🟡 %s is DEGRADED", alert.MonitorName)
	default:
		return fmt.Sprintf("%s status changed", alert.MonitorName)
	}
}

// FormatMessage renders the alert body. Down alerts carry the failure
// reason and count, recovery alerts the downtime duration when known,
// degraded alerts the measured versus threshold response time.
func FormatMessage(alert Alert) string {
	switch alert.Kind {
	case types.AlertDown:
		return fmt.Sprintf("%s (%s) is down: %s (failed %d consecutive checks)",
			alert.MonitorName, alert.URL, alert.Reason, alert.FailureCount)

	case types.AlertRecovery:
		if alert.Downtime != nil {
			return fmt.Sprintf("%s (%s) has recovered after %s of downtime",
				alert.MonitorName, alert.URL, formatDuration(*alert.Downtime))
		}
		return fmt.Sprintf("%s (%s) has recovered", alert.MonitorName, alert.URL)

	case types.AlertDegraded:
		return fmt.Sprintf("%s (%s) is degraded: response time %dms exceeded the %dms threshold",
			alert.MonitorName, alert.URL, alert.ResponseTimeMS, alert.ThresholdMS)

	default:
		return fmt.Sprintf("%s (%s) status changed to %s", alert.MonitorName, alert.URL, alert.Status)
	}
}

// webhookEvent maps an alert kind to the payload event name. Degraded
// endpoints are still responding, so webhooks see them as check.up.
func webhookEvent(kind string) string {
	switch kind {
	case types.AlertDown:
		return types.EventCheckDown
	case types.AlertRecovery:
		return types.EventCheckRecovery
	default:
		return types.EventCheckUp
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
