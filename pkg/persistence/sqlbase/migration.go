// Package sqlbase holds the schema versioning shared by SQL archives.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

const schemaMigrationsDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
`

// MigrationManager applies versioned DDL scripts, one transaction per version, and
// records each applied version in schema_migrations.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations map[int]string
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations map[int]string) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger,
		migrations: migrations,
	}
}

// LatestVersion returns the highest schema version known to the manager.
func (m *MigrationManager) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return slices.Max(slices.Collect(maps.Keys(m.migrations)))
}

// Pending lists, in ascending order, the versions newer than current.
func (m *MigrationManager) Pending(current int) []int {
	pending := slices.DeleteFunc(slices.Collect(maps.Keys(m.migrations)), func(version int) bool {
		return version <= current
	})
	slices.Sort(pending)

	return pending
}

// RunMigrations brings the schema up to LatestVersion.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	pending := m.Pending(current)
	m.logger.InfoContext(ctx, "Checking schema", "version", current, "pending", len(pending))

	for _, version := range pending {
		if err := m.apply(ctx, version); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		m.logger.InfoContext(ctx, "Applied migration", "version", version)
	}

	return nil
}

// CurrentVersion returns the schema version recorded in the database.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return version, nil
}

func (m *MigrationManager) apply(ctx context.Context, version int) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", version, err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, m.migrations[version]); err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}

	if _, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("migration %d: record version: %w", version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", version, err)
	}

	return nil
}
