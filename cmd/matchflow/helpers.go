package main

import (
	"context"
	"fmt"

	"github.com/matchflow/matchflow/internal/common"
	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/service"
	"github.com/matchflow/matchflow/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/matchflow/matchflow.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// engineConfig loads the matching and learning thresholds.
func engineConfig() (config.Engine, error) {
	cfg, err := config.EngineFromViper()
	if err != nil {
		return config.Engine{}, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return cfg, nil
}

// requireUser returns the user id every command operates on.
func requireUser() (string, error) {
	userID := viper.GetString("user.id")
	if userID == "" {
		return "", common.NewUserError("no user id configured; pass --user or set user.id", common.ErrMissingConfig)
	}
	return userID, nil
}
