package cli

import (
	"context"
	"fmt"

	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/directory"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/missiv"
)

func openDatabase() (*db.DB, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		logger := logging.Component("cli")
		logger.Warn().Err(err).Msg("failed to create directories")
	}

	database, err := db.Open(db.Config{
		Path:           cfg.DatabasePath(),
		MaxConnections: cfg.Database.MaxConnections,
		BusyTimeoutMs:  cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return nil, err
	}
	if _, err := database.MigrateUp(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

// openService opens the local database and wraps it in a Service. The
// returned close function releases the database.
func openService() (*missiv.Service, func(), error) {
	database, err := openDatabase()
	if err != nil {
		return nil, nil, Exitf(ExitCodeFailure, "open database: %v", err)
	}
	svc := missiv.New(database, missiv.WithLogger(logging.Component("missiv")))
	return svc, func() { _ = database.Close() }, nil
}

func currentDirectory() directory.Directory {
	if cfg := GetConfig(); cfg != nil {
		return directory.NewStatic(cfg.Directory)
	}
	return directory.NewStatic(nil)
}
