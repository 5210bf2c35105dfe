package cli

import (
	"context"
	"fmt"

	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/internal/storage/postgres"
	"github.com/flowcanvas/flowcanvas/internal/storage/sqlite"
)

// openStorage opens and initializes the store selected by cfg.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	var (
		store storage.Storage
		err   error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Storage.Connection == "" {
			return nil, fmt.Errorf("storage.connection (or DATABASE_URL) is required for the postgres driver")
		}
		store, err = postgres.Open(ctx, cfg.Storage.Connection)
	case "sqlite", "":
		if err := config.EnsureStorageDir(cfg.Storage.Path); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		store, err = sqlite.New(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}
