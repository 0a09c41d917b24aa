// Package scheduler wraps robfig/cron for the service's recurring background jobs.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// EntryID identifies a registered schedule entry.
type EntryID = cron.EntryID

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	mu      sync.Mutex
	started bool
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler. Calling it twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with a cron schedule
// Schedule examples:
//   - "@every 15m"      - Every 15 minutes
//   - "@daily"          - Once a day at midnight
//   - "0 9 * * MON-FRI" - 9 AM weekdays
func (s *Scheduler) AddJob(schedule string, job Job) (EntryID, error) {
	return s.AddFunc(schedule, job.Name(), func() {
		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
}

// AddFunc registers a named function with a cron schedule.
func (s *Scheduler) AddFunc(schedule, name string, fn func()) (EntryID, error) {
	id, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", name).Msg("Running job")
		fn()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to register %s with schedule %q: %w", name, schedule, err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", name).
		Msg("Job registered")

	return id, nil
}

// Remove unregisters an entry. Unknown ids are ignored.
func (s *Scheduler) Remove(id EntryID) {
	s.cron.Remove(id)
}

// Has reports whether an entry is currently registered.
func (s *Scheduler) Has(id EntryID) bool {
	return s.cron.Entry(id).Valid()
}

// Len returns the number of registered entries.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}
