package cmd

import (
	"context"

	"github.com/3leaps/gobiome/internal/config"
	"github.com/3leaps/gobiome/pkg/metastore"
)

// loadSettings reads the settings file, honoring the --config flag over
// $GOBIOME_CONFIG_FP.
func loadSettings() (*config.Settings, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// storeConfig maps settings onto a store configuration. A non-empty dbPath
// (the --db flag) selects the embedded sqlite backend instead, for local
// work and tests.
func storeConfig(s *config.Settings, dbPath string) metastore.Config {
	if dbPath != "" {
		return metastore.Config{Path: dbPath}
	}
	return metastore.Config{
		Host:     s.Postgres.Host,
		Port:     s.Postgres.Port,
		User:     s.Postgres.User,
		Password: s.Postgres.Password,
		Database: s.Postgres.Database,
		SSLMode:  s.Postgres.SSLMode,
	}
}

// openStore loads settings and opens the configured backend.
func openStore(ctx context.Context, dbPath string) (*config.Settings, *metastore.DB, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	db, err := metastore.Open(ctx, storeConfig(settings, dbPath))
	if err != nil {
		return nil, nil, err
	}
	return settings, db, nil
}
