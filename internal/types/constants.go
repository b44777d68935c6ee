package types

import (
	"os"
	"strings"
)

const ContextUserKey = "user"

// UserAgent identifies Vigil probes. The prober sets it after merging
// monitor headers so owners cannot override it.
const UserAgent = "VigilMonitor/1.0 (+https://github.com/vigil-dev/vigil)"

// Monitor health states.
const (
	StatusPending  = "pending"
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDegraded = "degraded"
)

// Alert kinds emitted by the health state machine.
const (
	AlertDown     = "down"
	AlertRecovery = "recovery"
	AlertDegraded = "degraded"
)

// Webhook event names, sent in the payload and the X-Vigil-Event header.
const (
	EventCheckDown     = "check.down"
	EventCheckUp       = "check.up"
	EventCheckRecovery = "check.recovery"
)

// ResponseBodyPreviewLen bounds the stored response body preview.
const ResponseBodyPreviewLen = 500

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
