package storage

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage/migrations"
)

// runMigrations applies all pending goose migrations.
func (s *Storage) runMigrations() error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		s.logger.Info("Applied migration",
			"version", r.Source.Version,
			"file", r.Source.Path,
			"duration", r.Duration,
		)
	}
	return nil
}

// SchemaVersion returns the current goose schema version.
func (s *Storage) SchemaVersion() (int64, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations.FS)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(context.Background())
}
