package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/vigil-dev/vigil/internal/models"
	"github.com/vigil-dev/vigil/internal/notify"
	"github.com/vigil-dev/vigil/internal/store"
	"github.com/vigil-dev/vigil/internal/types"
)

type fakeStore struct {
	mu sync.Mutex

	monitors []models.Monitor
	checks   []models.CheckResult
	events   map[uint][]models.StatusEvent
	updates  map[uint]map[string]interface{}

	contact    *store.ContactInfo
	contactErr error
	checkErr   error
}

func newFakeStore(monitors ...models.Monitor) *fakeStore {
	return &fakeStore{
		monitors: monitors,
		events:   make(map[uint][]models.StatusEvent),
		updates:  make(map[uint]map[string]interface{}),
		contact:  &store.ContactInfo{Email: "owner@example.com", EmailOptIn: true},
	}
}

func (f *fakeStore) ListEnabledMonitors(ctx context.Context) ([]models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Monitor, len(f.monitors))
	copy(out, f.monitors)
	return out, nil
}

func (f *fakeStore) GetMonitor(ctx context.Context, id uint) (*models.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.monitors {
		if f.monitors[i].ID == id {
			m := f.monitors[i]
			return &m, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeStore) UpdateMonitorFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = fields
	return nil
}

func (f *fakeStore) AppendCheckResult(ctx context.Context, result *models.CheckResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return f.checkErr
	}
	f.checks = append(f.checks, *result)
	return nil
}

func (f *fakeStore) AppendStatusEvent(ctx context.Context, monitorID uint, status string, durationMS *int64) (*models.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event := models.StatusEvent{MonitorID: monitorID, Status: status, DurationMS: durationMS}
	event.CreatedAt = time.Now()
	f.events[monitorID] = append(f.events[monitorID], event)
	return &event, nil
}

func (f *fakeStore) LastStatusEvent(ctx context.Context, monitorID uint) (*models.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events[monitorID]
	if len(events) == 0 {
		return nil, nil
	}
	e := events[len(events)-1]
	return &e, nil
}

func (f *fakeStore) ContactInfo(ctx context.Context, userID uint) (*store.ContactInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return f.contact, nil
}

type fakeProbe struct {
	fn func(monitor *models.Monitor) Outcome
}

func (f *fakeProbe) Run(ctx context.Context, monitor *models.Monitor) Outcome {
	return f.fn(monitor)
}

type fakeDispatcher struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, alert notify.Alert) []notify.ChannelResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return []notify.ChannelResult{{Channel: "email", Delivered: true}}
}

func (f *fakeDispatcher) dispatched() []notify.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.Alert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

func statusOutcome(code int, responseTimeMS int64) Outcome {
	return Outcome{Success: true, StatusCode: &code, ResponseTimeMS: responseTimeMS, Body: "ok"}
}

func failedOutcome(reason string) Outcome {
	return Outcome{Success: false, ResponseTimeMS: 5, Error: reason}
}

func testMonitor(id uint, status string, failures int) models.Monitor {
	m := models.Monitor{
		UserID:              1,
		Name:                "api",
		URL:                 "https://api.example.com/health",
		Method:              "GET",
		ExpectedStatusCodes: datatypes.JSON([]byte(`[200]`)),
		TimeoutSeconds:      5,
		IntervalSeconds:     60,
		AlertAfterFailures:  2,
		Enabled:             true,
		Status:              status,
		ConsecutiveFailures: failures,
	}
	m.ID = id
	return m
}

func newTestCoordinator(st store.MonitorStore, probe ProbeRunner, dispatcher notify.Sender) *Coordinator {
	return NewCoordinator(st, probe, dispatcher, zap.NewNop(), 10)
}

func TestCoordinatorDownAfterThreshold(t *testing.T) {
	st := newFakeStore(testMonitor(1, types.StatusUp, 1))
	probe := &fakeProbe{fn: func(*models.Monitor) Outcome { return failedOutcome("Connection refused") }}
	dispatcher := &fakeDispatcher{}

	summary, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Checked != 1 || summary.Down != 1 {
		t.Fatalf("summary = %+v, want 1 checked, 1 down", summary)
	}

	alerts := dispatcher.dispatched()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	alert := alerts[0]
	if alert.Kind != types.AlertDown || alert.Reason != "Connection refused" || alert.FailureCount != 2 {
		t.Fatalf("alert = %+v", alert)
	}

	events := st.events[1]
	if len(events) != 1 || events[0].Status != types.StatusDown {
		t.Fatalf("events = %+v, want one down event", events)
	}

	fields := st.updates[1]
	if fields["status"] != types.StatusDown || fields["consecutive_failures"] != 2 {
		t.Fatalf("updates = %+v", fields)
	}

	if len(st.checks) != 1 || st.checks[0].Success {
		t.Fatalf("checks = %+v, want one failed record", st.checks)
	}
}

func TestCoordinatorFirstFailureBelowThresholdIsSilent(t *testing.T) {
	st := newFakeStore(testMonitor(1, types.StatusUp, 0))
	probe := &fakeProbe{fn: func(*models.Monitor) Outcome { return failedOutcome("Timeout after 5000ms") }}
	dispatcher := &fakeDispatcher{}

	summary, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Checked != 1 || summary.Down != 0 {
		t.Fatalf("summary = %+v, want 1 checked, 0 down", summary)
	}
	if len(dispatcher.dispatched()) != 0 {
		t.Fatal("below the threshold no alert must be dispatched")
	}
	if len(st.events[1]) != 0 {
		t.Fatalf("events = %+v, want none", st.events[1])
	}
	if st.updates[1]["consecutive_failures"] != 1 || st.updates[1]["status"] != types.StatusUp {
		t.Fatalf("updates = %+v", st.updates[1])
	}
}

func TestCoordinatorRecovery(t *testing.T) {
	st := newFakeStore(testMonitor(1, types.StatusDown, 4))

	downAt := time.Now().Add(-10 * time.Minute)
	downEvent := models.StatusEvent{MonitorID: 1, Status: types.StatusDown}
	downEvent.CreatedAt = downAt
	st.events[1] = []models.StatusEvent{downEvent}

	probe := &fakeProbe{fn: func(*models.Monitor) Outcome { return statusOutcome(200, 40) }}
	dispatcher := &fakeDispatcher{}

	summary, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Recovered != 1 {
		t.Fatalf("summary = %+v, want 1 recovered", summary)
	}

	alerts := dispatcher.dispatched()
	if len(alerts) != 1 || alerts[0].Kind != types.AlertRecovery {
		t.Fatalf("alerts = %+v, want one recovery", alerts)
	}
	if alerts[0].Downtime == nil || alerts[0].Downtime.Round(time.Second) != 10*time.Minute {
		t.Fatalf("Downtime = %v, want ~10m", alerts[0].Downtime)
	}

	events := st.events[1]
	last := events[len(events)-1]
	if last.Status != types.StatusUp {
		t.Fatalf("last event = %+v, want up", last)
	}
	if last.DurationMS == nil || *last.DurationMS < 599000 || *last.DurationMS > 601000 {
		t.Fatalf("DurationMS = %v, want ~600000", last.DurationMS)
	}

	if st.updates[1]["consecutive_failures"] != 0 {
		t.Fatalf("updates = %+v, want counter reset", st.updates[1])
	}
}

func TestCoordinatorDegradedOnSlowResponse(t *testing.T) {
	monitor := testMonitor(1, types.StatusUp, 0)
	threshold := 100
	monitor.MaxResponseTimeMS = &threshold
	st := newFakeStore(monitor)

	probe := &fakeProbe{fn: func(*models.Monitor) Outcome { return statusOutcome(200, 250) }}
	dispatcher := &fakeDispatcher{}

	summary, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Degraded != 1 || summary.Down != 0 {
		t.Fatalf("summary = %+v, want 1 degraded", summary)
	}

	alerts := dispatcher.dispatched()
	if len(alerts) != 1 || alerts[0].Kind != types.AlertDegraded {
		t.Fatalf("alerts = %+v, want one degraded", alerts)
	}
	if alerts[0].ResponseTimeMS != 250 || alerts[0].ThresholdMS != 100 {
		t.Fatalf("alert = %+v", alerts[0])
	}

	// A slow response is not a failure: the stored check succeeds and
	// the counter stays reset.
	if len(st.checks) != 1 || !st.checks[0].Success {
		t.Fatalf("checks = %+v, want one successful record", st.checks)
	}
	if st.updates[1]["status"] != types.StatusDegraded || st.updates[1]["consecutive_failures"] != 0 {
		t.Fatalf("updates = %+v", st.updates[1])
	}
}

func TestCoordinatorConcurrencyCeiling(t *testing.T) {
	var monitors []models.Monitor
	for i := uint(1); i <= 25; i++ {
		m := testMonitor(i, types.StatusUp, 0)
		m.UserID = i % 3
		monitors = append(monitors, m)
	}
	st := newFakeStore(monitors...)

	var inflight, peak int64
	probe := &fakeProbe{fn: func(*models.Monitor) Outcome {
		n := atomic.AddInt64(&inflight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inflight, -1)
		return statusOutcome(200, 10)
	}}
	dispatcher := &fakeDispatcher{}

	coord := newTestCoordinator(st, probe, dispatcher)

	var broadcastMu sync.Mutex
	broadcast := make(map[uint]int)
	coord.Broadcast = func(userID uint) {
		broadcastMu.Lock()
		broadcast[userID]++
		broadcastMu.Unlock()
	}

	summary, err := coord.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Checked != 25 {
		t.Fatalf("checked = %d, want 25", summary.Checked)
	}
	if got := atomic.LoadInt64(&peak); got > 10 {
		t.Fatalf("peak concurrency = %d, want at most 10", got)
	}

	// One refresh per owner, not per monitor.
	if len(broadcast) != 3 {
		t.Fatalf("broadcast owners = %v, want 3", broadcast)
	}
	for userID, n := range broadcast {
		if n != 1 {
			t.Fatalf("owner %d broadcast %d times, want once", userID, n)
		}
	}
}

func TestCoordinatorCheckWriteFailureStillCounted(t *testing.T) {
	st := newFakeStore(testMonitor(1, types.StatusUp, 1))
	st.checkErr = errors.New("disk full")

	probe := &fakeProbe{fn: func(*models.Monitor) Outcome { return failedOutcome("Connection refused") }}
	dispatcher := &fakeDispatcher{}

	summary, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Checked != 1 || summary.Down != 0 {
		t.Fatalf("summary = %+v, want checked but no transition", summary)
	}
	if len(dispatcher.dispatched()) != 0 {
		t.Fatal("an abandoned pipeline must not alert")
	}
	if len(st.updates) != 0 {
		t.Fatalf("updates = %+v, want none", st.updates)
	}
}

func TestCoordinatorInterruptedProbeLeavesNoTrace(t *testing.T) {
	st := newFakeStore(testMonitor(1, types.StatusUp, 1))
	probe := &fakeProbe{fn: func(*models.Monitor) Outcome {
		return Outcome{Success: false, Error: "Check interrupted before completion", Interrupted: true}
	}}
	dispatcher := &fakeDispatcher{}

	summary, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Down != 0 {
		t.Fatalf("summary = %+v, want no down transitions", summary)
	}

	// The batch cutoff says nothing about the endpoint: no check record,
	// no counter increment, no alert.
	if len(st.checks) != 0 {
		t.Fatalf("checks = %+v, want none", st.checks)
	}
	if len(st.updates) != 0 {
		t.Fatalf("updates = %+v, want none", st.updates)
	}
	if len(dispatcher.dispatched()) != 0 {
		t.Fatal("an interrupted probe must not alert")
	}
}

func TestCoordinatorSkipsNotDue(t *testing.T) {
	monitor := testMonitor(1, types.StatusUp, 0)
	recent := time.Now().Add(-5 * time.Second)
	monitor.LastCheckedAt = &recent
	st := newFakeStore(monitor)

	calls := int64(0)
	probe := &fakeProbe{fn: func(*models.Monitor) Outcome {
		atomic.AddInt64(&calls, 1)
		return statusOutcome(200, 10)
	}}

	summary, err := newTestCoordinator(st, probe, &fakeDispatcher{}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Checked != 0 || atomic.LoadInt64(&calls) != 0 {
		t.Fatalf("summary = %+v, calls = %d, want nothing checked", summary, calls)
	}
}

func TestCoordinatorContactLookupFailureStillAlerts(t *testing.T) {
	monitor := testMonitor(1, types.StatusUp, 1)
	monitor.WebhookURL = "https://hooks.example.com/vigil"
	st := newFakeStore(monitor)
	st.contactErr = errors.New("db gone")

	probe := &fakeProbe{fn: func(*models.Monitor) Outcome { return failedOutcome("Connection refused") }}
	dispatcher := &fakeDispatcher{}

	if _, err := newTestCoordinator(st, probe, dispatcher).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	alerts := dispatcher.dispatched()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].Contact != nil {
		t.Fatalf("Contact = %+v, want nil after lookup failure", alerts[0].Contact)
	}
	if alerts[0].WebhookURL != "https://hooks.example.com/vigil" {
		t.Fatalf("WebhookURL = %q", alerts[0].WebhookURL)
	}
}
