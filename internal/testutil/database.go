// Package testutil provides test helpers shared across packages: a migrated
// SQLite store seeded with fixture datasets.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/service"
	"github.com/Veraticus/rulecart/internal/storage"
	"github.com/Veraticus/rulecart/internal/testutil/tables"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database with the given fixtures
// stored as datasets under their fixture names. It handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, tables.FixtureLoans)
//	table := db.MustLoad("loans")
func SetupTestDB(t *testing.T, fixtures ...tables.Fixture) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t}
	for _, f := range fixtures {
		db.WithDataset(f.Name(), tables.NewBuilder(t).WithFixture(f).Build())
	}
	return db
}

// WithDataset stores table under name or fails the test.
func (db *TestDB) WithDataset(name string, table *model.Table) *TestDB {
	db.t.Helper()
	if _, err := db.Storage.SaveDataset(context.Background(), name, table); err != nil {
		db.t.Fatalf("failed to seed dataset %q: %v", name, err)
	}
	return db
}

// MustLoad reads a stored dataset back or fails the test.
func (db *TestDB) MustLoad(name string, columns ...string) *model.Table {
	db.t.Helper()
	table, err := db.Storage.LoadTable(context.Background(), name, columns)
	if err != nil {
		db.t.Fatalf("failed to load dataset %q: %v", name, err)
	}
	return table
}
