package bootstrap

import (
	"fmt"

	"github.com/Avamagic/mgserver-web-api/internal/config"
	"github.com/Avamagic/mgserver-web-api/internal/store"
)

// initializeDatabase creates and migrates the database connection
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN, store.Options{
		SeedOnEmpty: cfg.SeedOnEmpty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
