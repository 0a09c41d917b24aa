package clientdata

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CleanupJob purges view-cache rows whose TTL lapsed without a refresh
// invalidating them first.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the view-cache purge job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

// Run purges expired rows from every view-cache table and logs one summary.
func (j *CleanupJob) Run() error {
	purged, err := j.repo.DeleteAllExpired()
	if err != nil {
		return fmt.Errorf("view cache cleanup: %w", err)
	}

	perTable := zerolog.Dict()
	var total int64
	for _, table := range AllTables {
		perTable.Int64(table, purged[table])
		total += purged[table]
	}

	level := zerolog.DebugLevel
	if total > 0 {
		level = zerolog.InfoLevel
	}
	j.log.WithLevel(level).
		Dict("purged", perTable).
		Int64("total", total).
		Msg("View cache cleanup finished")
	return nil
}

// Name implements scheduler.Job.
func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
