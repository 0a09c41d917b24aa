// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/dashboard/internal/clientdata"
	"github.com/aristath/dashboard/internal/config"
	"github.com/aristath/dashboard/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens client_data.db, applies its schema and builds
// the repositories on top of it.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}

	if err := clientDataDB.Migrate(); err != nil {
		clientDataDB.Close()
		return nil, fmt.Errorf("failed to migrate client_data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	container.ClientDataRepo = clientdata.NewRepository(clientDataDB.Conn())
	container.UIState = clientdata.NewUIStateStore(clientDataDB.Conn())

	log.Info().Str("path", clientDataDB.Path()).Msg("Client data database initialized")

	return container, nil
}
