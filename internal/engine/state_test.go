package engine

import (
	"testing"
	"time"

	"github.com/vigil-dev/vigil/internal/types"
)

func TestNextStateFailureBelowThreshold(t *testing.T) {
	now := time.Now()

	got := NextState(types.StatusUp, 0, 3, false, false, nil, now)
	if got.Changed || got.Alert != "" {
		t.Fatalf("first failure below threshold must be silent, got %+v", got)
	}
	if got.Status != types.StatusUp || got.ConsecutiveFailures != 1 {
		t.Fatalf("got %+v, want up with 1 failure", got)
	}

	got = NextState(types.StatusUp, 1, 3, false, false, nil, now)
	if got.Changed || got.ConsecutiveFailures != 2 {
		t.Fatalf("second failure below threshold must be silent, got %+v", got)
	}
}

func TestNextStateDownAtThreshold(t *testing.T) {
	now := time.Now()
	prev := now.Add(-30 * time.Minute)

	got := NextState(types.StatusUp, 1, 2, false, false, &prev, now)
	if !got.Changed || got.Status != types.StatusDown || got.Alert != types.AlertDown {
		t.Fatalf("threshold reached, got %+v, want down transition with alert", got)
	}
	if got.ConsecutiveFailures != 2 {
		t.Fatalf("got %d failures, want 2", got.ConsecutiveFailures)
	}
	if got.SincePrevious == nil || *got.SincePrevious != 30*time.Minute {
		t.Fatalf("SincePrevious = %v, want 30m", got.SincePrevious)
	}
}

func TestNextStateDownAlertsOnce(t *testing.T) {
	now := time.Now()

	got := NextState(types.StatusDown, 2, 2, false, false, nil, now)
	if got.Changed || got.Alert != "" {
		t.Fatalf("already down must not re-alert, got %+v", got)
	}
	if got.Status != types.StatusDown || got.ConsecutiveFailures != 3 {
		t.Fatalf("got %+v, want down with 3 failures", got)
	}
}

func TestNextStateRecovery(t *testing.T) {
	now := time.Now()
	prev := now.Add(-10 * time.Minute)

	got := NextState(types.StatusDown, 5, 2, true, false, &prev, now)
	if !got.Changed || got.Status != types.StatusUp || got.Alert != types.AlertRecovery {
		t.Fatalf("got %+v, want up transition with recovery alert", got)
	}
	if got.ConsecutiveFailures != 0 {
		t.Fatalf("recovery must reset the counter, got %d", got.ConsecutiveFailures)
	}
	if got.SincePrevious == nil || *got.SincePrevious != 10*time.Minute {
		t.Fatalf("SincePrevious = %v, want 10m", got.SincePrevious)
	}
}

func TestNextStateRecoveryToDegraded(t *testing.T) {
	// Down monitor responding again but slowly settles to degraded while
	// still alerting recovery.
	got := NextState(types.StatusDown, 3, 2, true, true, nil, time.Now())
	if got.Status != types.StatusDegraded || got.Alert != types.AlertRecovery {
		t.Fatalf("got %+v, want degraded with recovery alert", got)
	}
	if got.SincePrevious != nil {
		t.Fatalf("no previous event, SincePrevious = %v, want nil", got.SincePrevious)
	}
}

func TestNextStateDegradedTransition(t *testing.T) {
	got := NextState(types.StatusUp, 0, 2, true, true, nil, time.Now())
	if !got.Changed || got.Status != types.StatusDegraded || got.Alert != types.AlertDegraded {
		t.Fatalf("got %+v, want degraded transition with alert", got)
	}

	// Staying slow must not re-alert.
	got = NextState(types.StatusDegraded, 0, 2, true, true, nil, time.Now())
	if got.Changed || got.Alert != "" {
		t.Fatalf("already degraded must be silent, got %+v", got)
	}
}

func TestNextStateDegradedBackToUpIsSilent(t *testing.T) {
	got := NextState(types.StatusDegraded, 0, 2, true, false, nil, time.Now())
	if !got.Changed || got.Status != types.StatusUp {
		t.Fatalf("got %+v, want up transition", got)
	}
	if got.Alert != "" {
		t.Fatalf("degraded returning to up must not alert, got %q", got.Alert)
	}
}

func TestNextStatePendingSettlesToUp(t *testing.T) {
	got := NextState(types.StatusPending, 0, 2, true, false, nil, time.Now())
	if !got.Changed || got.Status != types.StatusUp || got.Alert != "" {
		t.Fatalf("got %+v, want silent up transition", got)
	}
}

func TestNextStateUpStaysUp(t *testing.T) {
	got := NextState(types.StatusUp, 0, 2, true, false, nil, time.Now())
	if got.Changed || got.Alert != "" || got.Status != types.StatusUp {
		t.Fatalf("steady up must be a no-op, got %+v", got)
	}
}

func TestNextStateFailureResetsCounterOnSuccess(t *testing.T) {
	got := NextState(types.StatusUp, 1, 3, true, false, nil, time.Now())
	if got.ConsecutiveFailures != 0 {
		t.Fatalf("success must reset the counter, got %d", got.ConsecutiveFailures)
	}
}

func TestNextStateThresholdFloor(t *testing.T) {
	// A zero threshold behaves as 1: the first failure goes down.
	got := NextState(types.StatusUp, 0, 0, false, false, nil, time.Now())
	if got.Status != types.StatusDown || got.Alert != types.AlertDown {
		t.Fatalf("got %+v, want immediate down", got)
	}
}

func TestNextStateClockSkewClampedToZero(t *testing.T) {
	now := time.Now()
	prev := now.Add(time.Minute)

	got := NextState(types.StatusDown, 2, 2, true, false, &prev, now)
	if got.SincePrevious == nil || *got.SincePrevious != 0 {
		t.Fatalf("SincePrevious = %v, want 0 for a future previous event", got.SincePrevious)
	}
}
