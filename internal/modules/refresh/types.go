// Package refresh orchestrates server-side market price refreshes: when to
// submit, how long to poll, and what to invalidate once a job finishes.
package refresh

import (
	"time"

	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/google/uuid"
)

// Outcome is how a poll session ended.
type Outcome string

const (
	// OutcomeCompleted means the server reported the job as no longer running.
	OutcomeCompleted Outcome = "completed"
	// OutcomeTimedOut means the local timeout budget ran out first. The
	// server job may still be running.
	OutcomeTimedOut Outcome = "timed_out"
)

// Trigger sources, recorded on RefreshStarted events.
const (
	SourceManual    = "manual"
	SourceSchedule  = "schedule"
	SourceEnable    = "enable"
	SourceDiscovery = "discovery"
)

// PollSession is the local bookkeeping for tracking one server job.
// It is never persisted.
type PollSession struct {
	ID            uuid.UUID
	StartedAt     time.Time
	TimeoutBudget time.Duration
	TotalBatches  int
	// Seq is the sequence number of the most recently issued status fetch.
	Seq uint64
	// LastApplied is the sequence number of the newest response applied.
	LastApplied uint64
	LastKnown   *dashboard.JobStatus
}

// Snapshot is the orchestrator state published to observers.
type Snapshot struct {
	Enabled       bool                 `json:"enabled" msgpack:"enabled"`
	SettingPhase  SettingPhase         `json:"setting_phase" msgpack:"setting_phase"`
	Running       bool                 `json:"running" msgpack:"running"`
	SessionID     string               `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	Status        *dashboard.JobStatus `json:"status" msgpack:"status"`
	Message       string               `json:"message" msgpack:"message"`
	LastOutcome   Outcome              `json:"last_outcome,omitempty" msgpack:"last_outcome,omitempty"`
	LastCompleted int                  `json:"last_completed" msgpack:"last_completed"`
	SettingError  string               `json:"setting_error,omitempty" msgpack:"setting_error,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at" msgpack:"updated_at"`
}

// Terminal describes how a poll session finished.
type Terminal struct {
	Session PollSession
	Status  *dashboard.JobStatus
	Outcome Outcome
}

// CompletedSymbols returns the symbol count to report for the session.
func (t Terminal) CompletedSymbols() int {
	if t.Outcome == OutcomeTimedOut || t.Status == nil {
		return 0
	}
	return t.Status.CompletedSymbols
}
