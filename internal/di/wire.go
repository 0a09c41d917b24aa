// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/dashboard/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize database and repositories
// 2. Initialize services
// 3. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.ClientDataDB.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(container, log)
	if err != nil {
		container.ClientDataDB.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}

// Start loads the auto-refresh setting, mounts the observers and starts cron.
// An unreachable backend is logged; the service still comes up.
func (c *Container) Start(ctx context.Context, log zerolog.Logger) {
	if err := c.Refresh.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("Refresh orchestrator started without backend state")
	}

	c.HeaderWidget.Mount(ctx)
	c.PriceManagement.Mount(ctx)

	c.Cron.Start()
}

// Shutdown stops background work and closes the database.
func (c *Container) Shutdown(log zerolog.Logger) {
	c.HeaderWidget.Unmount()
	c.PriceManagement.Unmount()

	c.Refresh.Stop()
	c.Cron.Stop()

	if err := c.ClientDataDB.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close client data database")
	}
}
