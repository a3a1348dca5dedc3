// Package service defines the interfaces shared by the CLI and its collaborators.
package service

import (
	"context"

	"github.com/Veraticus/rulecart/internal/model"
)

// ResultFilter narrows result listings.
type ResultFilter struct {
	Dataset string
	Limit   int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Dataset operations
	SaveDataset(ctx context.Context, name string, table *model.Table) (*model.DatasetInfo, error)
	GetDataset(ctx context.Context, name string) (*model.DatasetInfo, error)
	ListDatasets(ctx context.Context) ([]model.DatasetInfo, error)
	LoadTable(ctx context.Context, name string, columns []string) (*model.Table, error)
	DeleteDataset(ctx context.Context, name string) error

	// Result operations
	SaveResult(ctx context.Context, result *model.Result) error
	GetResult(ctx context.Context, id string) (*model.Result, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]model.ResultSummary, error)
	DeleteResult(ctx context.Context, id string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Miner runs one mining task over a table.
type Miner interface {
	Mine(ctx context.Context, task *model.MiningTask, table *model.Table) (*model.Result, error)
}
