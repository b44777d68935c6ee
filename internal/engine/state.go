package engine

import (
	"time"

	"github.com/vigil-dev/vigil/internal/types"
)

// Transition is the state machine's verdict for one check: the next
// persisted state, whether a status event must be appended, and which
// alert (if any) to dispatch.
type Transition struct {
	Status              string
	ConsecutiveFailures int

	// Changed is true when the health state moved and a status event
	// must be appended.
	Changed bool

	// Alert is one of types.AlertDown/AlertRecovery/AlertDegraded, or
	// empty when the transition is silent.
	Alert string

	// SincePrevious is the time spent in the previous state, computed
	// from the previous status event; nil when no previous event
	// exists. For recovery alerts this is the downtime duration.
	SincePrevious *time.Duration
}

// NextState computes the health transition for one check. It is a pure
// function of the monitor's persisted state and the latest result:
//
//	failed:  increment the failure counter; at the alert threshold,
//	         transition to down (once).
//	healthy: reset the counter. A slow response degrades, recovery
//	         from down alerts with the downtime duration, and a
//	         degraded monitor returning to speed goes quietly back up.
//
// prevEventAt is the timestamp of the monitor's most recent status
// event, nil when none exists.
func NextState(current string, consecutiveFailures, alertThreshold int, healthy, slow bool, prevEventAt *time.Time, now time.Time) Transition {
	if alertThreshold < 1 {
		alertThreshold = 1
	}

	if !healthy {
		failures := consecutiveFailures + 1
		if failures >= alertThreshold && current != types.StatusDown {
			return Transition{
				Status:              types.StatusDown,
				ConsecutiveFailures: failures,
				Changed:             true,
				Alert:               types.AlertDown,
				SincePrevious:       since(prevEventAt, now),
			}
		}
		return Transition{Status: current, ConsecutiveFailures: failures}
	}

	switch {
	case current == types.StatusDown:
		next := types.StatusUp
		if slow {
			next = types.StatusDegraded
		}
		return Transition{
			Status:        next,
			Changed:       true,
			Alert:         types.AlertRecovery,
			SincePrevious: since(prevEventAt, now),
		}

	case slow && current != types.StatusDegraded:
		return Transition{
			Status:        types.StatusDegraded,
			Changed:       true,
			Alert:         types.AlertDegraded,
			SincePrevious: since(prevEventAt, now),
		}

	case !slow && current == types.StatusDegraded:
		// No alert for degraded recovering to up.
		return Transition{
			Status:        types.StatusUp,
			Changed:       true,
			SincePrevious: since(prevEventAt, now),
		}

	case !slow && current != types.StatusUp:
		// First successful classification (pending) settles to up.
		return Transition{
			Status:        types.StatusUp,
			Changed:       true,
			SincePrevious: since(prevEventAt, now),
		}
	}

	return Transition{Status: current}
}

func since(prevEventAt *time.Time, now time.Time) *time.Duration {
	if prevEventAt == nil {
		return nil
	}

	d := now.Sub(*prevEventAt)
	if d < 0 {
		d = 0
	}
	return &d
}
