package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/aristath/dashboard/internal/events"
	"github.com/aristath/dashboard/internal/modules/market_hours"
	"github.com/aristath/dashboard/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	o      *Orchestrator
	client *fakeJobClient
	clock  *fakeClock
	cron   *scheduler.Scheduler
	store  *mockCacheStore
	events *eventRecorder
	loc    *time.Location
}

func newHarness(t *testing.T, now func(loc *time.Location) time.Time, opts ...func(*Config)) *harness {
	t.Helper()
	loc, err := time.LoadLocation(market_hours.ReferenceTimezone)
	require.NoError(t, err)

	h := &harness{
		client: newFakeJobClient(),
		clock:  newFakeClock(now(loc)),
		cron:   scheduler.New(zerolog.Nop()),
		store:  &mockCacheStore{},
		loc:    loc,
	}
	h.store.On("Invalidate", mock.Anything).Return(int64(1), nil)

	bus := events.NewBus(zerolog.Nop())
	h.events = recordEvents(bus, events.AllEventTypes...)
	manager := events.NewManager(bus, zerolog.Nop())

	cfg := Config{
		Poller:       PollerConfig{Interval: time.Hour, Now: h.clock.Now},
		MessageDelay: 20 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h.o = New(h.client, market_hours.NewGateIn(loc), h.cron, h.store, manager, cfg, zerolog.Nop())
	t.Cleanup(h.o.Stop)
	return h
}

func tuesday11(loc *time.Location) time.Time  { return time.Date(2024, 1, 9, 11, 0, 0, 0, loc) }
func saturday23(loc *time.Location) time.Time { return time.Date(2024, 1, 13, 23, 0, 0, 0, loc) }

// tick drives one poll step of the active session and waits for its fetch.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	session, ok := h.o.poller.Session()
	require.True(t, ok, "expected an active poll session")
	h.o.poller.tick(context.Background(), session.ID)
	h.o.poller.Wait()
}

func TestOrchestrator_EnableOnTuesdayForcesSubmitAndArmsTimer(t *testing.T) {
	h := newHarness(t, tuesday11)

	require.NoError(t, h.o.SetEnabled(context.Background(), true))

	assert.Equal(t, []bool{true}, h.client.Submits(), "exactly one forced submission")
	assert.True(t, h.o.scheduler.Enabled())
	assert.True(t, h.cron.Has(h.o.scheduler.EntryID()))

	snap := h.o.Snapshot()
	assert.True(t, snap.Enabled)
	assert.Equal(t, PhaseConfirmed, snap.SettingPhase)
	assert.True(t, snap.Running)
	assert.NotEmpty(t, snap.SessionID)

	started := h.events.OfType(events.RefreshStarted)
	require.Len(t, started, 1)
	data := started[0].GetTypedData().(*events.RefreshStartedData)
	assert.Equal(t, SourceEnable, data.Source)
	assert.True(t, data.Force)
	assert.Equal(t, int64(160000), data.TimeoutBudget)
}

func TestOrchestrator_EnableOutsideMarketHoursStillForces(t *testing.T) {
	h := newHarness(t, saturday23)

	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	assert.Equal(t, []bool{true}, h.client.Submits())
}

func TestOrchestrator_ReEnableIsIdempotent(t *testing.T) {
	h := newHarness(t, tuesday11)

	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return finished(1, 1), nil })
	h.tick(t)

	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	assert.Len(t, h.client.Submits(), 1)
	assert.Equal(t, 1, h.cron.Len())
}

func TestOrchestrator_SaturdayTickDoesNotSubmit(t *testing.T) {
	h := newHarness(t, saturday23)
	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return finished(0, 0), nil })
	h.tick(t)
	require.False(t, h.o.Busy())

	submits := len(h.client.Submits())
	calls := h.client.Calls()
	h.o.scheduler.Tick()

	assert.Len(t, h.client.Submits(), submits, "closed market tick issues no POST")
	assert.Equal(t, calls, h.client.Calls(), "closed market tick issues no status read")
}

func TestOrchestrator_OpenMarketTickSubmitsUnforced(t *testing.T) {
	h := newHarness(t, tuesday11)
	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return finished(5, 5), nil })
	h.tick(t)

	h.o.scheduler.Tick()
	assert.Equal(t, []bool{true, false}, h.client.Submits())
}

func TestOrchestrator_TickWhileRunningIsSkipped(t *testing.T) {
	h := newHarness(t, tuesday11)
	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	require.True(t, h.o.Busy())

	h.o.scheduler.Tick()
	assert.Len(t, h.client.Submits(), 1)
}

func TestOrchestrator_CompletionScenario(t *testing.T) {
	h := newHarness(t, tuesday11)
	require.NoError(t, h.o.Refresh(context.Background(), true))

	h.client.fakeFetcher.setRespond(func(call int) (*dashboard.JobStatus, error) {
		if call == 1 {
			return running(20, 42), nil
		}
		return finished(42, 42), nil
	})

	h.tick(t)
	snap := h.o.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, 20, snap.Status.CompletedSymbols)

	h.tick(t)
	snap = h.o.Snapshot()
	assert.False(t, snap.Running)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, "Done: 42 prices updated", snap.Message)
	assert.Equal(t, OutcomeCompleted, snap.LastOutcome)
	assert.Equal(t, 42, snap.LastCompleted)

	assert.Len(t, h.events.OfType(events.CacheInvalidated), 1)
	h.store.AssertNumberOfCalls(t, "Invalidate", len(InvalidatedCaches))

	require.Eventually(t, func() bool { return h.o.Snapshot().Message == "" }, time.Second, time.Millisecond)

	report := h.o.History()
	require.Len(t, report.Runs, 1)
	assert.Equal(t, OutcomeCompleted, report.Runs[0].Outcome)
	assert.Equal(t, 42, report.Runs[0].CompletedSymbols)
}

func TestOrchestrator_LocalTimeoutScenario(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.totalBatches = 3
	start := h.clock.Now()

	require.NoError(t, h.o.Refresh(context.Background(), false))
	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return running(10, 100), nil })

	h.clock.Set(start.Add(224 * time.Second))
	h.tick(t)
	assert.True(t, h.o.Busy())

	h.clock.Set(start.Add(226 * time.Second))
	h.tick(t)

	snap := h.o.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, OutcomeTimedOut, snap.LastOutcome)
	assert.Equal(t, 0, snap.LastCompleted)
	assert.Equal(t, "Done: 0 prices updated", snap.Message)
	assert.False(t, h.o.poller.Active())
	assert.Equal(t, 1, h.o.poller.clears)

	completed := h.events.OfType(events.PriceRefreshCompleted)
	require.Len(t, completed, 1)
	data := completed[0].GetTypedData().(*events.PriceRefreshCompletedData)
	assert.Equal(t, "timed_out", data.Outcome)
	assert.Equal(t, 0, data.CompletedSymbols)
	assert.InDelta(t, 226.0, data.DurationSeconds, 0.001)

	assert.Len(t, h.events.OfType(events.CacheInvalidated), 1)
}

func TestOrchestrator_RefreshWhileRunning(t *testing.T) {
	h := newHarness(t, tuesday11)
	require.NoError(t, h.o.Refresh(context.Background(), true))

	err := h.o.Refresh(context.Background(), true)
	assert.ErrorIs(t, err, ErrRefreshInProgress)
	assert.Len(t, h.client.Submits(), 1)
}

func TestOrchestrator_SubmitFailureClearsStartingMessage(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.submitErr = &dashboard.APIError{StatusCode: 500, Body: "boom"}

	var mu sync.Mutex
	var messages []string
	unsubscribe := h.o.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, s.Message)
	})
	defer unsubscribe()

	err := h.o.Refresh(context.Background(), true)
	var apiErr *dashboard.APIError
	require.True(t, errors.As(err, &apiErr))

	mu.Lock()
	assert.Contains(t, messages, MessageStarting)
	assert.Equal(t, "", messages[len(messages)-1])
	mu.Unlock()

	snap := h.o.Snapshot()
	assert.False(t, snap.Running)
	assert.Empty(t, snap.Message)
	assert.False(t, h.o.poller.Active())
	assert.Len(t, h.events.OfType(events.ErrorOccurred), 1)

	// The user can retry right away.
	h.client.submitErr = nil
	require.NoError(t, h.o.Refresh(context.Background(), true))
}

func TestOrchestrator_SetEnabledFailureReverts(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.setErr = errors.New("503 Service Unavailable")

	var mu sync.Mutex
	var phases []SettingPhase
	unsubscribe := h.o.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.SettingPhase)
	})
	defer unsubscribe()

	err := h.o.SetEnabled(context.Background(), true)
	require.Error(t, err)

	snap := h.o.Snapshot()
	assert.False(t, snap.Enabled)
	assert.Equal(t, PhaseFailed, snap.SettingPhase)
	assert.Contains(t, snap.SettingError, "503")
	assert.False(t, h.o.scheduler.Enabled())
	assert.Empty(t, h.client.Submits())

	mu.Lock()
	assert.Equal(t, []SettingPhase{PhasePending, PhaseFailed}, phases)
	mu.Unlock()

	changed := h.events.OfType(events.SettingsChanged)
	require.Len(t, changed, 1)
	data := changed[0].GetTypedData().(*events.SettingsChangedData)
	assert.Equal(t, false, data.Value)
	assert.Equal(t, "failed", data.Phase)
}

func TestOrchestrator_SetEnabledSchedulerFailureMarksFailed(t *testing.T) {
	h := newHarness(t, tuesday11, func(cfg *Config) { cfg.Schedule = "every other blue moon" })

	err := h.o.SetEnabled(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to arm refresh scheduler")

	assert.Equal(t, []bool{true}, h.client.sets, "the server accepted the value")
	assert.False(t, h.o.scheduler.Enabled())
	assert.Equal(t, 0, h.cron.Len())
	assert.Empty(t, h.client.Submits())

	snap := h.o.Snapshot()
	assert.True(t, snap.Enabled)
	assert.Equal(t, PhaseFailed, snap.SettingPhase, "no timer armed so the setting is not confirmed")
	assert.Contains(t, snap.SettingError, "failed to arm refresh scheduler")

	changed := h.events.OfType(events.SettingsChanged)
	require.Len(t, changed, 1)
	data := changed[0].GetTypedData().(*events.SettingsChangedData)
	assert.Equal(t, "failed", data.Phase)
}

func TestOrchestrator_SettingChangeAdvancesUpdatedAt(t *testing.T) {
	h := newHarness(t, tuesday11)

	h.o.ShowMessage("one")
	first := h.o.Snapshot().UpdatedAt
	h.clock.Set(first.Add(time.Second))

	require.NoError(t, h.o.SetEnabled(context.Background(), false))

	assert.True(t, h.o.Snapshot().UpdatedAt.After(first))
}

func TestOrchestrator_DisableLeavesSessionRunning(t *testing.T) {
	h := newHarness(t, tuesday11)
	require.NoError(t, h.o.SetEnabled(context.Background(), true))
	require.True(t, h.o.Busy())

	require.NoError(t, h.o.SetEnabled(context.Background(), false))
	assert.False(t, h.o.scheduler.Enabled())
	assert.Equal(t, 0, h.cron.Len())
	assert.True(t, h.o.Busy(), "in-flight session finishes naturally")
}

func TestOrchestrator_Discover(t *testing.T) {
	h := newHarness(t, tuesday11)

	attached, err := h.o.Discover(context.Background())
	require.NoError(t, err)
	assert.False(t, attached, "nothing running")

	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return running(3, 9), nil })
	attached, err = h.o.Discover(context.Background())
	require.NoError(t, err)
	assert.True(t, attached)

	session, ok := h.o.poller.Session()
	require.True(t, ok)
	assert.Equal(t, 160*time.Second, session.TimeoutBudget)
	assert.Equal(t, "Updating prices: 3/9", h.o.Snapshot().Message)

	attached, err = h.o.Discover(context.Background())
	require.NoError(t, err)
	assert.False(t, attached, "already tracking")
}

func TestOrchestrator_DiscoverTransportError(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return nil, errTransport })

	attached, err := h.o.Discover(context.Background())
	assert.ErrorIs(t, err, errTransport)
	assert.False(t, attached)
}

func TestOrchestrator_StartLoadsSettingAndArms(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.enabled = true

	require.NoError(t, h.o.Start(context.Background()))
	assert.True(t, h.o.scheduler.Enabled())
	assert.Equal(t, []bool{true}, h.client.Submits())

	require.NoError(t, h.o.Start(context.Background()))
	assert.Len(t, h.client.Submits(), 1, "second Start is a no-op")
}

func TestOrchestrator_StartAttachesToRunningJob(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.enabled = true
	h.client.fakeFetcher.setRespond(func(int) (*dashboard.JobStatus, error) { return running(1, 10), nil })

	require.NoError(t, h.o.Start(context.Background()))
	assert.True(t, h.o.Busy())
	assert.Empty(t, h.client.Submits(), "forced refresh skipped while a job is tracked")
	assert.True(t, h.o.scheduler.Enabled())
}

func TestOrchestrator_StartWithUnreachableSetting(t *testing.T) {
	h := newHarness(t, tuesday11)
	h.client.getEnabledErr = errTransport

	require.NoError(t, h.o.Start(context.Background()))
	assert.False(t, h.o.scheduler.Enabled())
	assert.Equal(t, PhaseUnknown, h.o.Snapshot().SettingPhase)
}

func TestOrchestrator_Stop(t *testing.T) {
	h := newHarness(t, tuesday11)
	require.NoError(t, h.o.SetEnabled(context.Background(), true))

	h.o.Stop()
	h.o.Stop()

	assert.False(t, h.o.poller.Active())
	assert.False(t, h.o.scheduler.Enabled())
	assert.ErrorIs(t, h.o.Refresh(context.Background(), true), ErrOrchestratorStopped)
	assert.ErrorIs(t, h.o.Start(context.Background()), ErrOrchestratorStopped)
}

func TestOrchestrator_SubscribeUnsubscribe(t *testing.T) {
	h := newHarness(t, tuesday11)

	var mu sync.Mutex
	count := 0
	unsubscribe := h.o.Subscribe(func(Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	require.NoError(t, h.o.Refresh(context.Background(), true))
	mu.Lock()
	seen := count
	mu.Unlock()
	assert.GreaterOrEqual(t, seen, 2)

	unsubscribe()
	unsubscribe()
	h.o.ShowMessage("x")

	mu.Lock()
	assert.Equal(t, seen, count)
	mu.Unlock()
}

func TestOrchestrator_ClearMessageOnlyClearsMatching(t *testing.T) {
	h := newHarness(t, tuesday11)

	h.o.ShowMessage("Done: 1 prices updated")
	h.o.ShowMessage(MessageStarting)
	h.o.ClearMessage("Done: 1 prices updated")
	assert.Equal(t, MessageStarting, h.o.Snapshot().Message)

	h.o.ClearMessage(MessageStarting)
	assert.Empty(t, h.o.Snapshot().Message)
}
