package refresh

import (
	"sync"
	"time"

	"github.com/aristath/dashboard/internal/scheduler"
	"github.com/rs/zerolog"
)

// MarketGate reports whether unforced refreshes may run at a given time.
type MarketGate interface {
	IsOpen(now time.Time) bool
}

// SchedulerHooks connect the refresh scheduler to the orchestrator.
type SchedulerHooks struct {
	// Fire starts a refresh. force is true only for the refresh issued on enable.
	Fire func(force bool)
	// Busy reports whether a refresh is already being tracked.
	Busy func() bool
	// GateChanged is called when a tick observes a different gate state than the last one.
	GateChanged func(open bool)
}

// RefreshScheduler owns the recurring refresh timer.
// At most one cron entry exists per scheduler.
type RefreshScheduler struct {
	cron  *scheduler.Scheduler
	gate  MarketGate
	hooks SchedulerHooks
	spec  string
	now   func() time.Time
	log   zerolog.Logger

	mu       sync.Mutex
	enabled  bool
	entry    scheduler.EntryID
	lastOpen *bool
}

// NewRefreshScheduler creates a disabled scheduler registering on cron with spec.
func NewRefreshScheduler(cron *scheduler.Scheduler, gate MarketGate, spec string, now func() time.Time, hooks SchedulerHooks, log zerolog.Logger) *RefreshScheduler {
	if spec == "" {
		spec = ScheduleSpec
	}
	if now == nil {
		now = time.Now
	}
	return &RefreshScheduler{
		cron:  cron,
		gate:  gate,
		hooks: hooks,
		spec:  spec,
		now:   now,
		log:   log.With().Str("component", "refresh_scheduler").Logger(),
	}
}

// Enable arms the recurring timer and fires one forced refresh.
// It returns false and does nothing if already enabled.
func (s *RefreshScheduler) Enable() (bool, error) {
	s.mu.Lock()
	if s.enabled {
		s.mu.Unlock()
		return false, nil
	}
	id, err := s.cron.AddJob(s.spec, s)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.enabled = true
	s.entry = id
	s.mu.Unlock()

	s.log.Info().Str("schedule", s.spec).Msg("Auto refresh enabled")
	if s.hooks.Fire != nil {
		s.hooks.Fire(true)
	}
	return true, nil
}

// Disable removes the timer. A session already polling is left to finish.
func (s *RefreshScheduler) Disable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return false
	}
	s.cron.Remove(s.entry)
	s.enabled = false
	s.entry = 0
	s.log.Info().Msg("Auto refresh disabled")
	return true
}

// Stop tears the timer down at shutdown.
func (s *RefreshScheduler) Stop() {
	s.Disable()
}

// Enabled reports whether the timer is armed.
func (s *RefreshScheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// EntryID returns the cron entry of the armed timer, or 0.
func (s *RefreshScheduler) EntryID() scheduler.EntryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// Name implements scheduler.Job.
func (s *RefreshScheduler) Name() string {
	return "price_refresh"
}

// Run implements scheduler.Job. It is one timer tick.
func (s *RefreshScheduler) Run() error {
	s.Tick()
	return nil
}

// Tick attempts an unforced refresh. Outside market hours it does nothing.
func (s *RefreshScheduler) Tick() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	open := s.gate.IsOpen(s.now())
	changed := s.lastOpen == nil || *s.lastOpen != open
	s.lastOpen = &open
	s.mu.Unlock()

	if changed && s.hooks.GateChanged != nil {
		s.hooks.GateChanged(open)
	}

	if !open {
		s.log.Debug().Msg("Market closed, skipping scheduled refresh")
		return
	}
	if s.hooks.Busy != nil && s.hooks.Busy() {
		s.log.Debug().Msg("Refresh already in progress, skipping scheduled refresh")
		return
	}
	if s.hooks.Fire != nil {
		s.hooks.Fire(false)
	}
}
