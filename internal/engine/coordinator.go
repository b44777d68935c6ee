package engine

import (
	"context"
	"sync"
	"time"

	"github.com/vigil-dev/vigil/internal/models"
	"github.com/vigil-dev/vigil/internal/notify"
	"github.com/vigil-dev/vigil/internal/store"
	"github.com/vigil-dev/vigil/internal/types"
	"go.uber.org/zap"
)

// Summary aggregates one coordinator pass.
type Summary struct {
	Checked   int
	Down      int
	Recovered int
	Degraded  int
	Duration  time.Duration
}

// ProbeRunner executes a single monitor probe. *Prober is the real
// implementation.
type ProbeRunner interface {
	Run(ctx context.Context, monitor *models.Monitor) Outcome
}

// Coordinator runs the due monitors' check pipelines under a fixed
// concurrency ceiling, isolating per-monitor failures.
type Coordinator struct {
	store       store.MonitorStore
	prober      ProbeRunner
	dispatcher  notify.Sender
	logger      *zap.Logger
	concurrency int

	// Broadcast, when set, is invoked once per affected owner after a
	// batch completes.
	Broadcast func(userID uint)

	// Now is a clock hook for tests.
	Now func() time.Time
}

func NewCoordinator(st store.MonitorStore, prober ProbeRunner, dispatcher notify.Sender, logger *zap.Logger, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Coordinator{
		store:       st,
		prober:      prober,
		dispatcher:  dispatcher,
		logger:      logger,
		concurrency: concurrency,
		Now:         time.Now,
	}
}

// Run executes one batch pass: select the due monitors and run each
// pipeline under the concurrency ceiling. A store failure before any
// monitor was processed is returned to the caller; everything after
// that is isolated per monitor. Context cancellation stops launching
// new pipelines, so a time-boxed trigger gets a valid partial summary.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	start := c.Now()

	monitors, err := c.store.ListEnabledMonitors(ctx)
	if err != nil {
		return Summary{}, err
	}

	due := DueMonitors(monitors, start)
	c.logger.Info("batch_started",
		zap.Int("enabled", len(monitors)),
		zap.Int("due", len(due)),
	)

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	sem := make(chan struct{}, c.concurrency)
	owners := make(map[uint]bool)

launch:
	for i := range due {
		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}

		monitor := due[i]
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			outcome := c.runPipeline(ctx, &monitor)

			mu.Lock()
			summary.Checked++
			switch outcome {
			case types.AlertDown:
				summary.Down++
			case types.AlertRecovery:
				summary.Recovered++
			case types.AlertDegraded:
				summary.Degraded++
			}
			owners[monitor.UserID] = true
			mu.Unlock()
		}()
	}

	wg.Wait()
	summary.Duration = c.Now().Sub(start)

	if c.Broadcast != nil {
		for userID := range owners {
			c.Broadcast(userID)
		}
	}

	c.logger.Info("batch_finished",
		zap.Int("checked", summary.Checked),
		zap.Int("down", summary.Down),
		zap.Int("recovered", summary.Recovered),
		zap.Int("degraded", summary.Degraded),
		zap.Duration("duration", summary.Duration),
	)

	return summary, nil
}

// runPipeline executes the probe, evaluation, transition, recording and
// notification steps for one monitor. It never panics out; a failure is logged
// and the monitor still counts as checked. Returns the alert kind
// dispatched, or "" when the check caused no alert.
func (c *Coordinator) runPipeline(ctx context.Context, monitor *models.Monitor) (alertKind string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("pipeline_panic",
				zap.Uint("monitor_id", monitor.ID),
				zap.String("monitor", monitor.Name),
				zap.Any("panic", r),
			)
			alertKind = ""
		}
	}()

	now := c.Now()
	outcome := c.prober.Run(ctx, monitor)

	// A probe cut off by the batch time box says nothing about the
	// endpoint; leave the monitor untouched for the next invocation.
	if outcome.Interrupted {
		c.logger.Warn("check_interrupted",
			zap.Uint("monitor_id", monitor.ID),
			zap.String("monitor", monitor.Name),
		)
		return ""
	}

	// A probe failure skips assertion evaluation; the classified error
	// is the check's reason.
	healthy := false
	slow := false
	reason := outcome.Error
	if outcome.Success {
		assertion := Evaluate(*outcome.StatusCode, outcome.ResponseTimeMS, outcome.Body, Expectations{
			StatusCodes:       monitor.StatusCodes(),
			MaxResponseTimeMS: monitor.MaxResponseTimeMS,
			BodyContains:      monitor.BodyContains,
			BodyNotContains:   monitor.BodyNotContains,
		})
		healthy = assertion.HealthyIgnoringLatency()
		slow = !assertion.ResponseTimeOK
		reason = assertion.Reason
	}

	check := &models.CheckResult{
		MonitorID:      monitor.ID,
		Success:        healthy,
		StatusCode:     outcome.StatusCode,
		ResponseTimeMS: outcome.ResponseTimeMS,
		Error:          reason,
		ResponseBody:   TruncateBody(outcome.Body),
		CheckedAt:      now,
	}

	// The history record must land before the previous-event lookup so
	// duration math reflects state as of before this check.
	if err := c.store.AppendCheckResult(ctx, check); err != nil {
		c.logger.Error("check_result_write_failed",
			zap.Uint("monitor_id", monitor.ID),
			zap.String("monitor", monitor.Name),
			zap.Error(err),
		)
		return ""
	}

	prevEvent, err := c.store.LastStatusEvent(ctx, monitor.ID)
	if err != nil {
		c.logger.Error("status_event_read_failed",
			zap.Uint("monitor_id", monitor.ID),
			zap.String("monitor", monitor.Name),
			zap.Error(err),
		)
		return ""
	}

	var prevEventAt *time.Time
	if prevEvent != nil {
		t := prevEvent.CreatedAt
		prevEventAt = &t
	}

	transition := NextState(monitor.Status, monitor.ConsecutiveFailures, monitor.AlertAfterFailures, healthy, slow, prevEventAt, now)

	if transition.Changed {
		var durationMS *int64
		if transition.SincePrevious != nil {
			ms := transition.SincePrevious.Milliseconds()
			durationMS = &ms
		}
		if _, err := c.store.AppendStatusEvent(ctx, monitor.ID, transition.Status, durationMS); err != nil {
			c.logger.Error("status_event_write_failed",
				zap.Uint("monitor_id", monitor.ID),
				zap.String("monitor", monitor.Name),
				zap.Error(err),
			)
		}
	}

	// Telemetry is updated on every check, transition or not.
	fields := map[string]interface{}{
		"status":                transition.Status,
		"consecutive_failures":  transition.ConsecutiveFailures,
		"last_checked_at":       now,
		"last_status_code":      outcome.StatusCode,
		"last_response_time_ms": outcome.ResponseTimeMS,
		"last_error":            reason,
		"last_response_body":    check.ResponseBody,
	}
	if err := c.store.UpdateMonitorFields(ctx, monitor.ID, fields); err != nil {
		c.logger.Error("monitor_update_failed",
			zap.Uint("monitor_id", monitor.ID),
			zap.String("monitor", monitor.Name),
			zap.Error(err),
		)
	}

	if transition.Alert == "" {
		return ""
	}

	c.dispatchAlert(ctx, monitor, transition, reason, outcome.ResponseTimeMS)
	return transition.Alert
}

func (c *Coordinator) dispatchAlert(ctx context.Context, monitor *models.Monitor, transition Transition, reason string, responseTimeMS int64) {
	contact, err := c.store.ContactInfo(ctx, monitor.UserID)
	if err != nil {
		// Webhook delivery is monitor-configured and can still go out.
		c.logger.Error("contact_lookup_failed",
			zap.Uint("monitor_id", monitor.ID),
			zap.Uint("user_id", monitor.UserID),
			zap.Error(err),
		)
		contact = nil
	}

	threshold := 0
	if monitor.MaxResponseTimeMS != nil {
		threshold = *monitor.MaxResponseTimeMS
	}

	alert := notify.Alert{
		Kind:           transition.Alert,
		MonitorID:      monitor.ID,
		MonitorName:    monitor.Name,
		URL:            monitor.URL,
		Status:         transition.Status,
		Reason:         reason,
		FailureCount:   transition.ConsecutiveFailures,
		Downtime:       transition.SincePrevious,
		ResponseTimeMS: responseTimeMS,
		ThresholdMS:    threshold,
		Contact:        contact,
		WebhookURL:     monitor.WebhookURL,
	}

	results := c.dispatcher.Dispatch(ctx, alert)
	for _, r := range results {
		c.logger.Info("notification_result",
			zap.Uint("monitor_id", monitor.ID),
			zap.String("monitor", monitor.Name),
			zap.String("alert", transition.Alert),
			zap.String("channel", r.Channel),
			zap.Bool("delivered", r.Delivered),
		)
	}
}
