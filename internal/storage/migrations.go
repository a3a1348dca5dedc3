package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/rulecart/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Datasets stored as entity-attribute-value rows",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS datasets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					columns TEXT NOT NULL,
					row_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS dataset_values (
					dataset_id INTEGER NOT NULL,
					row_index INTEGER NOT NULL,
					attribute TEXT NOT NULL,
					value TEXT NOT NULL,
					PRIMARY KEY (dataset_id, row_index, attribute),
					FOREIGN KEY (dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS idx_dataset_values_attribute ON dataset_values(dataset_id, attribute)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Mining results and classifier rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS mining_results (
					id TEXT PRIMARY KEY,
					dataset TEXT NOT NULL DEFAULT '',
					task_name TEXT NOT NULL DEFAULT '',
					mode TEXT NOT NULL,
					target TEXT NOT NULL,
					default_class TEXT NOT NULL,
					accuracy REAL NOT NULL DEFAULT 0,
					rule_count INTEGER NOT NULL DEFAULT 0,
					payload TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS classifier_rules (
					result_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					rank INTEGER NOT NULL,
					antecedent TEXT NOT NULL,
					consequent_attribute TEXT NOT NULL,
					consequent_value TEXT NOT NULL,
					support REAL NOT NULL,
					confidence REAL NOT NULL,
					lift REAL,
					support_count INTEGER NOT NULL,
					antecedent_count INTEGER NOT NULL,
					correct INTEGER NOT NULL DEFAULT 0,
					incorrect INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (result_id, position),
					FOREIGN KEY (result_id) REFERENCES mining_results(id) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Index results by dataset and record budget exhaustion",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE mining_results ADD COLUMN budget_exhausted INTEGER NOT NULL DEFAULT 0`,
				`CREATE INDEX IF NOT EXISTS idx_mining_results_dataset ON mining_results(dataset, created_at)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// SchemaVersion returns the current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// PendingMigrations lists the migrations newer than the current schema.
func (s *SQLiteStorage) PendingMigrations(ctx context.Context) ([]Migration, error) {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		common.LogInfo("applied migration", common.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		})
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
