// Package storage persists datasets and mining results in SQLite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/service"
	lru "github.com/hashicorp/golang-lru/v2"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultResultCacheSize bounds the number of decoded results kept in memory.
const DefaultResultCacheSize = 64

var _ service.Storage = (*SQLiteStorage)(nil)

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db      *sql.DB
	results *lru.Cache[string, *model.Result]
	dbPath  string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	return NewSQLiteStorageWithCache(dbPath, DefaultResultCacheSize)
}

// NewSQLiteStorageWithCache creates a storage whose result cache holds at
// most cacheSize entries.
func NewSQLiteStorageWithCache(dbPath string, cacheSize int) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = DefaultResultCacheSize
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cache, err := lru.NewWithEvict[string, *model.Result](cacheSize, func(id string, _ *model.Result) {
		common.LogDebug("result evicted from cache", common.Fields{"result_id": id})
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	return &SQLiteStorage{
		db:      db,
		dbPath:  dbPath,
		results: cache,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.results.Purge()
	return s.db.Close()
}
