package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/aristath/dashboard/internal/events"
	"github.com/aristath/dashboard/internal/modules/market_hours"
	"github.com/aristath/dashboard/internal/scheduler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MessageStarting is shown between a submit and its response.
const MessageStarting = "Starting…"

var (
	// ErrRefreshInProgress is returned when a refresh is requested while one is tracked.
	ErrRefreshInProgress = errors.New("price refresh already in progress")
	// ErrOrchestratorStopped is returned after Stop.
	ErrOrchestratorStopped = errors.New("refresh orchestrator stopped")
)

// JobClient is the backend surface the orchestrator drives.
type JobClient interface {
	StatusFetcher
	SettingStore
	Submit(ctx context.Context, force bool) (*dashboard.SubmitResult, error)
}

// Config tunes the orchestrator. Zero values select production defaults.
type Config struct {
	Poller       PollerConfig
	Schedule     string
	MessageDelay time.Duration
	HistorySize  int
}

// Orchestrator is the single owner of the refresh scheduler and status
// poller. UI surfaces observe it through Subscribe.
type Orchestrator struct {
	client    JobClient
	events    *events.Manager
	poller    *Poller
	scheduler *RefreshScheduler
	finalizer *Finalizer
	setting   *Setting
	history   *History
	now       func() time.Time
	log       zerolog.Logger

	// setMu serializes setting writes.
	setMu sync.Mutex

	mu            sync.Mutex
	baseCtx       context.Context
	cancel        context.CancelFunc
	started       bool
	stopped       bool
	submitting    bool
	sessionID     uuid.UUID
	status        *dashboard.JobStatus
	message       string
	lastOutcome   Outcome
	lastCompleted int
	updatedAt     time.Time
}

// New creates an orchestrator. cache may be nil; a nil eventManager gets a
// private bus.
func New(client JobClient, gate MarketGate, cron *scheduler.Scheduler, cache CacheStore, eventManager *events.Manager, cfg Config, log zerolog.Logger) *Orchestrator {
	pollerCfg := cfg.Poller.withDefaults()
	log = log.With().Str("component", "refresh_orchestrator").Logger()
	if eventManager == nil {
		eventManager = events.NewManager(events.NewBus(log), log)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		client:  client,
		events:  eventManager,
		setting: NewSetting(client),
		history: NewHistory(cfg.HistorySize),
		now:     pollerCfg.Now,
		log:     log,
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	o.poller = NewPoller(client, pollerCfg, PollerHooks{
		OnProgress: o.onProgress,
		OnTerminal: o.onTerminal,
	}, log)

	o.scheduler = NewRefreshScheduler(cron, gate, cfg.Schedule, pollerCfg.Now, SchedulerHooks{
		Fire:        o.fireScheduled,
		Busy:        o.Busy,
		GateChanged: o.onGateChanged,
	}, log)

	broadcaster := NewBroadcaster(cache, eventManager, log)
	o.finalizer = NewFinalizer(broadcaster, eventManager, o, cfg.MessageDelay, log)
	o.finalizer.now = pollerCfg.Now

	return o
}

// Start loads the persisted setting, attaches to a job already running on
// the server and arms the scheduler if auto refresh is on.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return ErrOrchestratorStopped
	}
	if o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	o.mu.Unlock()

	enabled, err := o.setting.Load(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("Could not load refresh setting, auto refresh stays off")
	}
	o.publish()

	if _, err := o.Discover(ctx); err != nil {
		o.log.Warn().Err(err).Msg("Could not check for a running refresh job")
	}

	if enabled {
		if _, err := o.scheduler.Enable(); err != nil {
			return fmt.Errorf("failed to arm refresh scheduler: %w", err)
		}
	}

	o.log.Info().Bool("auto_refresh", enabled).Msg("Refresh orchestrator started")
	return nil
}

// Stop disarms the scheduler, abandons the poll session and cancels the
// pending message clear. Server jobs are not cancelled.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	o.scheduler.Stop()
	o.poller.Stop()
	o.finalizer.Stop()
	o.cancel()
	o.poller.Wait()

	o.log.Info().Msg("Refresh orchestrator stopped")
}

// Refresh submits a refresh job and starts polling it.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) error {
	return o.refresh(ctx, force, SourceManual)
}

func (o *Orchestrator) refresh(ctx context.Context, force bool, source string) error {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return ErrOrchestratorStopped
	}
	if o.submitting || o.sessionID != uuid.Nil {
		o.mu.Unlock()
		return ErrRefreshInProgress
	}
	o.submitting = true
	o.message = MessageStarting
	o.touch()
	o.mu.Unlock()
	o.publish()

	result, err := o.client.Submit(ctx, force)

	o.mu.Lock()
	o.submitting = false
	if err != nil {
		if o.message == MessageStarting {
			o.message = ""
		}
		o.touch()
		o.mu.Unlock()
		o.publish()

		o.log.Error().Err(err).Bool("force", force).Str("source", source).Msg("Price refresh submission failed")
		o.events.EmitError("refresh", err, map[string]interface{}{"force": force, "source": source})
		return err
	}
	if o.stopped {
		o.mu.Unlock()
		return ErrOrchestratorStopped
	}

	session := o.poller.Start(o.baseCtx, result.TotalBatches)
	o.sessionID = session.ID
	o.status = result.Status.Clone()
	if o.status != nil && o.status.StatusMessage != "" {
		o.message = o.status.StatusMessage
	}
	o.touch()
	o.mu.Unlock()

	o.emitStarted(session, force, source)
	o.publish()
	return nil
}

// Discover attaches a poll session to a job already running on the server.
// It reports whether a session was attached.
func (o *Orchestrator) Discover(ctx context.Context) (bool, error) {
	status, err := o.client.GetStatus(ctx)
	if err != nil {
		return false, err
	}
	if status == nil || !status.IsRunning {
		return false, nil
	}

	o.mu.Lock()
	if o.stopped || o.submitting || o.sessionID != uuid.Nil {
		o.mu.Unlock()
		return false, nil
	}
	session := o.poller.Start(o.baseCtx, dashboard.DefaultTotalBatches)
	o.sessionID = session.ID
	o.status = status.Clone()
	o.message = progressMessage(status)
	o.touch()
	o.mu.Unlock()

	o.log.Info().Str("session_id", session.ID.String()).Msg("Attached to running refresh job")
	o.emitStarted(session, false, SourceDiscovery)
	o.publish()
	return true, nil
}

// SetEnabled persists the auto refresh flag and arms or disarms the
// scheduler once the server confirms. On failure the flag reverts.
func (o *Orchestrator) SetEnabled(ctx context.Context, enabled bool) error {
	o.setMu.Lock()
	defer o.setMu.Unlock()

	err := o.setting.Set(ctx, enabled, o.publish)
	if err != nil {
		o.settingChanged()
		o.log.Error().Err(err).Bool("enabled", enabled).Msg("Failed to persist auto refresh setting")
		return err
	}

	if enabled {
		if _, err := o.scheduler.Enable(); err != nil {
			err = fmt.Errorf("failed to arm refresh scheduler: %w", err)
			o.setting.Fail(err)
			o.settingChanged()
			o.log.Error().Err(err).Msg("Auto refresh saved but not armed")
			return err
		}
	} else {
		o.scheduler.Disable()
	}

	o.settingChanged()
	return nil
}

// settingChanged announces the current setting value and phase.
func (o *Orchestrator) settingChanged() {
	value, phase := o.setting.Value()
	o.events.EmitTyped(events.SettingsChanged, "refresh", &events.SettingsChangedData{
		Key:   "realtime_pricing",
		Value: value,
		Phase: string(phase),
	})
	o.publish()
}

// Busy reports whether a submit or poll session is in progress.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitting || o.sessionID != uuid.Nil
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	enabled, phase := o.setting.Value()

	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Enabled:       enabled,
		SettingPhase:  phase,
		Running:       o.submitting || o.sessionID != uuid.Nil,
		Status:        o.status.Clone(),
		Message:       o.message,
		LastOutcome:   o.lastOutcome,
		LastCompleted: o.lastCompleted,
		UpdatedAt:     o.updatedAt,
	}
	if o.sessionID != uuid.Nil {
		snap.SessionID = o.sessionID.String()
	}
	if err := o.setting.Err(); err != nil {
		snap.SettingError = err.Error()
	}
	return snap
}

// Subscribe calls fn with the latest snapshot after every state change.
// The returned function unsubscribes and is safe to call more than once.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) func() {
	bus := o.events.Bus()
	id := bus.Subscribe(events.RefreshStatusChanged, func(*events.Event) {
		fn(o.Snapshot())
	})

	var once sync.Once
	return func() {
		once.Do(func() { bus.Unsubscribe(id) })
	}
}

// History returns finished sessions with summary statistics.
func (o *Orchestrator) History() HistoryReport {
	return o.history.Report()
}

// ShowMessage implements MessageSink.
func (o *Orchestrator) ShowMessage(msg string) {
	o.mu.Lock()
	o.message = msg
	o.touch()
	o.mu.Unlock()
	o.publish()
}

// ClearMessage implements MessageSink.
func (o *Orchestrator) ClearMessage(msg string) {
	o.mu.Lock()
	if o.message != msg {
		o.mu.Unlock()
		return
	}
	o.message = ""
	o.touch()
	o.mu.Unlock()
	o.publish()
}

func (o *Orchestrator) fireScheduled(force bool) {
	source := SourceSchedule
	if force {
		source = SourceEnable
	}
	err := o.refresh(o.baseCtx, force, source)
	switch {
	case err == nil:
	case errors.Is(err, ErrRefreshInProgress):
		o.log.Debug().Str("source", source).Msg("Refresh already in progress")
	default:
		o.log.Warn().Err(err).Str("source", source).Msg("Scheduled refresh failed")
	}
}

func (o *Orchestrator) onProgress(session PollSession, status *dashboard.JobStatus) {
	o.mu.Lock()
	if o.sessionID != session.ID {
		o.mu.Unlock()
		return
	}
	o.status = status
	o.message = progressMessage(status)
	o.touch()
	o.mu.Unlock()
	o.publish()
}

func (o *Orchestrator) onTerminal(term Terminal) {
	o.mu.Lock()
	if o.sessionID == term.Session.ID {
		o.sessionID = uuid.Nil
	}
	o.status = term.Status
	o.lastOutcome = term.Outcome
	o.lastCompleted = term.CompletedSymbols()
	o.touch()
	ctx := o.baseCtx
	o.mu.Unlock()

	finishedAt := o.now()
	run := Run{
		SessionID:        term.Session.ID.String(),
		StartedAt:        term.Session.StartedAt,
		FinishedAt:       finishedAt,
		DurationSeconds:  finishedAt.Sub(term.Session.StartedAt).Seconds(),
		Outcome:          term.Outcome,
		TotalBatches:     term.Session.TotalBatches,
		CompletedSymbols: term.CompletedSymbols(),
	}
	if term.Status != nil {
		run.TotalSymbols = term.Status.TotalSymbols
	}
	o.history.Record(run)

	// Finalize publishes through ShowMessage.
	if !o.finalizer.Finalize(ctx, term) {
		o.publish()
	}
}

func (o *Orchestrator) onGateChanged(open bool) {
	o.events.EmitTyped(events.MarketsStatusChanged, "refresh", &events.MarketsStatusChangedData{
		Open:     open,
		Timezone: market_hours.ReferenceTimezone,
	})
}

func (o *Orchestrator) emitStarted(session PollSession, force bool, source string) {
	o.events.EmitTyped(events.RefreshStarted, "refresh", &events.RefreshStartedData{
		SessionID:     session.ID.String(),
		Force:         force,
		Source:        source,
		TotalBatches:  session.TotalBatches,
		TimeoutBudget: session.TimeoutBudget.Milliseconds(),
	})
}

// publish announces the current snapshot. Must be called without o.mu held.
func (o *Orchestrator) publish() {
	o.mu.Lock()
	o.touch()
	o.mu.Unlock()

	snap := o.Snapshot()
	data := &events.RefreshStatusChangedData{
		Enabled:      snap.Enabled,
		SettingPhase: string(snap.SettingPhase),
		Running:      snap.Running,
		SessionID:    snap.SessionID,
		Message:      snap.Message,
	}
	if snap.Status != nil {
		data.CompletedSymbols = snap.Status.CompletedSymbols
		data.TotalSymbols = snap.Status.TotalSymbols
		data.ProgressPercent = snap.Status.ProgressPercent
	}
	o.events.EmitTyped(events.RefreshStatusChanged, "refresh", data)
}

// touch must be called with o.mu held.
func (o *Orchestrator) touch() {
	o.updatedAt = o.now()
}

func progressMessage(status *dashboard.JobStatus) string {
	if status == nil {
		return ""
	}
	if status.StatusMessage != "" {
		return status.StatusMessage
	}
	if status.TotalSymbols > 0 {
		return fmt.Sprintf("Updating prices: %d/%d", status.CompletedSymbols, status.TotalSymbols)
	}
	return "Updating prices…"
}
