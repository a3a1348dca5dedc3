package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
)

// TableLoader reads a stored dataset projected onto the given columns.
type TableLoader interface {
	LoadTable(ctx context.Context, name string, columns []string) (*model.Table, error)
}

// MineStored validates the task, loads only the columns it references from
// the named dataset and mines it. An empty dataset name falls back to the
// task header's dataset extension.
func (e *MiningEngine) MineStored(ctx context.Context, task *model.MiningTask, dataset string, loader TableLoader) (*model.Result, error) {
	prep, err := e.Prepare(task)
	if err != nil {
		return nil, err
	}
	if dataset == "" {
		dataset = task.Header.Dataset()
	}
	if dataset == "" {
		return nil, common.NewValidationError("dataset", "task names no dataset and none was given")
	}

	columns := append(append([]string(nil), prep.Antecedent.Attributes...), prep.Consequent.Attributes...)
	table, err := loader.LoadTable(ctx, dataset, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %q: %w", dataset, err)
	}

	result, err := e.Mine(ctx, task, table)
	if err != nil {
		return nil, err
	}
	result.Dataset = dataset
	return result, nil
}
