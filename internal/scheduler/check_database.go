package scheduler

import (
	"context"
	"fmt"
	"time"
)

// IntegrityChecker is a database that can verify itself.
type IntegrityChecker interface {
	Name() string
	IntegrityCheck(ctx context.Context) error
}

// CheckDatabaseJob verifies the integrity of the client-local SQLite store.
// A corrupt store only holds view caches and UI state, so failure is
// reported but never fatal.
type CheckDatabaseJob struct {
	db      IntegrityChecker
	timeout time.Duration
}

// NewCheckDatabaseJob creates a new CheckDatabaseJob
func NewCheckDatabaseJob(db IntegrityChecker) *CheckDatabaseJob {
	return &CheckDatabaseJob{db: db, timeout: 30 * time.Second}
}

// Name returns the job name
func (j *CheckDatabaseJob) Name() string {
	return "check_database"
}

// Run executes the integrity check
func (j *CheckDatabaseJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.db.IntegrityCheck(ctx); err != nil {
		return fmt.Errorf("database %s is corrupted: %w", j.db.Name(), err)
	}
	return nil
}
