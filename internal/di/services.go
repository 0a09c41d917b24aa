// Package di provides dependency injection for services.
package di

import (
	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/aristath/dashboard/internal/config"
	"github.com/aristath/dashboard/internal/events"
	"github.com/aristath/dashboard/internal/modules/market_hours"
	"github.com/aristath/dashboard/internal/modules/observers"
	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/aristath/dashboard/internal/modules/settings"
	"github.com/aristath/dashboard/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates the event system, the backend client and the
// refresh orchestrator with its observers. The orchestrator is not started.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// A token saved through the UI overrides the environment
	envToken := cfg.APIToken
	if err := cfg.UpdateFromStore(container.UIState); err != nil {
		log.Warn().Err(err).Msg("Failed to read stored API token, using environment")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.DashboardClient = dashboard.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.HTTPTimeout, log)
	container.APIToken = settings.NewTokenService(container.UIState, container.DashboardClient, envToken, container.EventManager, log)
	container.Cron = scheduler.New(log)
	container.MarketGate = market_hours.NewGate()

	container.Refresh = refresh.New(
		container.DashboardClient,
		container.MarketGate,
		container.Cron,
		container.ClientDataRepo,
		container.EventManager,
		refresh.Config{},
		log,
	)

	container.HeaderWidget = observers.NewHeaderWidget(container.Refresh, log)
	container.PriceManagement = observers.NewPriceManagementView(
		container.Refresh,
		container.DashboardClient,
		container.UIState,
		container.EventManager,
		log,
	)

	log.Info().Str("api", cfg.APIBaseURL).Msg("Services initialized")
	return nil
}
