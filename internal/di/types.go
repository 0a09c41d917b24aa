/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the HTTP server for access to services.
 */
package di

import (
	"github.com/aristath/dashboard/internal/clientdata"
	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/aristath/dashboard/internal/database"
	"github.com/aristath/dashboard/internal/events"
	"github.com/aristath/dashboard/internal/modules/market_hours"
	"github.com/aristath/dashboard/internal/modules/observers"
	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/aristath/dashboard/internal/modules/settings"
	"github.com/aristath/dashboard/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Database: client_data.db holds view caches and UI state
 * - Clients: the backend dashboard API
 * - Services: the shared price refresh orchestrator and its observers
 * - Cron: one scheduler for the refresh cadence and maintenance jobs
 */
type Container struct {
	// Database
	ClientDataDB *database.DB // View caches and client-local UI state

	// Repositories
	ClientDataRepo *clientdata.Repository
	UIState        *clientdata.UIStateStore

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients
	DashboardClient *dashboard.Client

	// Services
	Cron            *scheduler.Scheduler
	MarketGate      *market_hours.Gate
	Refresh         *refresh.Orchestrator
	HeaderWidget    *observers.HeaderWidget
	PriceManagement *observers.PriceManagementView
	APIToken        *settings.TokenService
}

// JobInstances holds maintenance jobs for manual triggering
type JobInstances struct {
	ClientDataCleanup *clientdata.CleanupJob
	CheckDatabase     *scheduler.CheckDatabaseJob
}
