package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatusFetcher reads the server job status. A nil status with a nil error
// means nothing is running.
type StatusFetcher interface {
	GetStatus(ctx context.Context) (*dashboard.JobStatus, error)
}

// PollerConfig tunes the poller. Zero values select production defaults.
type PollerConfig struct {
	Interval time.Duration
	Now      func() time.Time
	// Budget overrides TimeoutBudget.
	Budget func(totalBatches int) time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = PollInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Budget == nil {
		c.Budget = TimeoutBudget
	}
	return c
}

// PollerHooks receive poller results. Both run outside the poller lock.
type PollerHooks struct {
	// OnProgress is called with every applied running status.
	OnProgress func(session PollSession, status *dashboard.JobStatus)
	// OnTerminal is called once per session when it stops on its own.
	OnTerminal func(Terminal)
}

// Poller polls the job status on a fixed cadence until the server reports
// the job finished or the session's timeout budget runs out.
// At most one session is active at a time.
type Poller struct {
	fetcher StatusFetcher
	cfg     PollerConfig
	hooks   PollerHooks
	log     zerolog.Logger

	mu      sync.Mutex
	session *PollSession
	ticker  *time.Ticker
	stopCh  chan struct{}
	cancel  context.CancelFunc
	clears  int
	fetches sync.WaitGroup
}

// NewPoller creates a new status poller.
func NewPoller(fetcher StatusFetcher, cfg PollerConfig, hooks PollerHooks, log zerolog.Logger) *Poller {
	return &Poller{
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		hooks:   hooks,
		log:     log.With().Str("component", "status_poller").Logger(),
	}
}

// Start begins a new session sized by totalBatches, stopping any active one.
func (p *Poller) Start(ctx context.Context, totalBatches int) PollSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		p.log.Debug().Str("session_id", p.session.ID.String()).Msg("Replacing active poll session")
		p.stopLocked()
	}

	if totalBatches < 1 {
		totalBatches = dashboard.DefaultTotalBatches
	}

	session := &PollSession{
		ID:            uuid.New(),
		StartedAt:     p.cfg.Now(),
		TimeoutBudget: p.cfg.Budget(totalBatches),
		TotalBatches:  totalBatches,
	}

	// Fetches outlive the caller's request, so only values are inherited.
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ticker := time.NewTicker(p.cfg.Interval)
	stopCh := make(chan struct{})

	p.session = session
	p.ticker = ticker
	p.stopCh = stopCh
	p.cancel = cancel

	go p.run(sessionCtx, session.ID, ticker, stopCh)

	p.log.Info().
		Str("session_id", session.ID.String()).
		Int("total_batches", totalBatches).
		Dur("timeout_budget", session.TimeoutBudget).
		Msg("Poll session started")

	return *session
}

// Stop ends the active session without finalizing it. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Wait blocks until in-flight status fetches have returned.
func (p *Poller) Wait() {
	p.fetches.Wait()
}

// Active reports whether a session is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Session returns a copy of the active session.
func (p *Poller) Session() (PollSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return PollSession{}, false
	}
	return *p.session, true
}

func (p *Poller) stopLocked() {
	if p.session == nil {
		return
	}
	p.ticker.Stop()
	close(p.stopCh)
	p.cancel()
	p.clears++

	p.session = nil
	p.ticker = nil
	p.stopCh = nil
	p.cancel = nil
}

func (p *Poller) run(ctx context.Context, id uuid.UUID, ticker *time.Ticker, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.tick(ctx, id)
		}
	}
}

// tick runs one poll step for session id.
func (p *Poller) tick(ctx context.Context, id uuid.UUID) {
	p.mu.Lock()
	session := p.session
	if session == nil || session.ID != id {
		p.mu.Unlock()
		return
	}

	elapsed := p.cfg.Now().Sub(session.StartedAt)
	if elapsed > session.TimeoutBudget {
		term := Terminal{
			Session: *session,
			Status:  timedOutStatus(session.LastKnown),
			Outcome: OutcomeTimedOut,
		}
		p.stopLocked()
		p.mu.Unlock()

		p.log.Warn().
			Str("session_id", id.String()).
			Dur("elapsed", elapsed).
			Dur("timeout_budget", term.Session.TimeoutBudget).
			Msg("Poll session timed out")
		p.terminate(term)
		return
	}

	session.Seq++
	seq := session.Seq
	p.fetches.Add(1)
	p.mu.Unlock()

	go p.fetch(ctx, id, seq)
}

func (p *Poller) fetch(ctx context.Context, id uuid.UUID, seq uint64) {
	defer p.fetches.Done()

	status, err := p.fetcher.GetStatus(ctx)
	if err != nil {
		p.log.Debug().Err(err).Uint64("seq", seq).Msg("Status fetch failed, skipping tick")
		return
	}
	p.apply(id, seq, status)
}

// apply folds a fetched status into session id. Responses for ended
// sessions and responses older than the last applied one are dropped.
func (p *Poller) apply(id uuid.UUID, seq uint64, status *dashboard.JobStatus) {
	p.mu.Lock()
	session := p.session
	if session == nil || session.ID != id {
		p.mu.Unlock()
		return
	}
	if seq <= session.LastApplied {
		p.mu.Unlock()
		p.log.Debug().Uint64("seq", seq).Msg("Discarding stale status response")
		return
	}
	session.LastApplied = seq

	if status != nil && status.IsRunning {
		session.LastKnown = status.Clone()
		snapshot := *session
		p.mu.Unlock()

		if p.hooks.OnProgress != nil {
			p.hooks.OnProgress(snapshot, status.Clone())
		}
		return
	}

	term := Terminal{Session: *session, Status: status.Clone(), Outcome: OutcomeCompleted}
	p.stopLocked()
	p.mu.Unlock()

	p.log.Info().
		Str("session_id", id.String()).
		Int("completed_symbols", term.CompletedSymbols()).
		Msg("Refresh job finished")
	p.terminate(term)
}

func (p *Poller) terminate(term Terminal) {
	if p.hooks.OnTerminal != nil {
		p.hooks.OnTerminal(term)
	}
}

// timedOutStatus synthesizes the terminal status of a timed-out session.
func timedOutStatus(last *dashboard.JobStatus) *dashboard.JobStatus {
	status := &dashboard.JobStatus{StatusMessage: "Timed out waiting for refresh"}
	if last != nil {
		status.TotalSymbols = last.TotalSymbols
	}
	return status
}
