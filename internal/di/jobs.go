// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/dashboard/internal/clientdata"
	"github.com/aristath/dashboard/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	cleanupSchedule       = "@daily"
	checkDatabaseSchedule = "@every 6h"
)

// RegisterJobs registers maintenance jobs with the cron scheduler.
// The refresh schedule is owned by the orchestrator and registered on enable.
func RegisterJobs(container *Container, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		ClientDataCleanup: clientdata.NewCleanupJob(container.ClientDataRepo, log),
		CheckDatabase:     scheduler.NewCheckDatabaseJob(container.ClientDataDB),
	}

	if _, err := container.Cron.AddJob(cleanupSchedule, instances.ClientDataCleanup); err != nil {
		return nil, fmt.Errorf("failed to register client data cleanup: %w", err)
	}
	if _, err := container.Cron.AddJob(checkDatabaseSchedule, instances.CheckDatabase); err != nil {
		return nil, fmt.Errorf("failed to register database check: %w", err)
	}

	log.Info().Int("jobs", container.Cron.Len()).Msg("Maintenance jobs registered")
	return instances, nil
}
