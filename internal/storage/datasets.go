package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/mattn/go-sqlite3"
)

// SaveDataset stores a table under a new name. Missing cells are not stored.
func (s *SQLiteStorage) SaveDataset(ctx context.Context, name string, table *model.Table) (*model.DatasetInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	columnsJSON, err := json.Marshal(table.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode columns: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (name, columns, row_count) VALUES (?, ?, ?)`,
		name, string(columnsJSON), table.Len())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("%w: dataset %q", common.ErrDuplicateEntry, name)
		}
		return nil, fmt.Errorf("failed to insert dataset: %w", err)
	}
	datasetID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset id: %w", err)
	}

	if err := s.saveValuesTx(ctx, tx, datasetID, table); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dataset: %w", err)
	}

	common.LogInfo("dataset saved", common.Fields{"dataset": name, "rows": table.Len(), "columns": len(table.Columns)})
	return s.GetDataset(ctx, name)
}

func (s *SQLiteStorage) saveValuesTx(ctx context.Context, tx *sql.Tx, datasetID int64, table *model.Table) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_values (dataset_id, row_index, attribute, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range table.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for _, col := range table.Columns {
			v, ok := row[col]
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, datasetID, i, col, v); err != nil {
				return fmt.Errorf("failed to insert row %d: %w", i, err)
			}
		}
	}
	return nil
}

// GetDataset returns the metadata of a stored dataset.
func (s *SQLiteStorage) GetDataset(ctx context.Context, name string) (*model.DatasetInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	info, _, err := s.datasetByName(ctx, name)
	return info, err
}

func (s *SQLiteStorage) datasetByName(ctx context.Context, name string) (*model.DatasetInfo, int64, error) {
	var (
		id          int64
		info        model.DatasetInfo
		columnsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, columns, row_count, created_at FROM datasets WHERE name = ?`, name).
		Scan(&id, &info.Name, &columnsJSON, &info.Rows, &info.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("%w: dataset %q", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query dataset: %w", err)
	}
	if err := json.Unmarshal([]byte(columnsJSON), &info.Columns); err != nil {
		return nil, 0, fmt.Errorf("failed to decode columns of %q: %w", name, err)
	}
	return &info, id, nil
}

// ListDatasets returns every stored dataset ordered by name.
func (s *SQLiteStorage) ListDatasets(ctx context.Context) ([]model.DatasetInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, columns, row_count, created_at FROM datasets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.DatasetInfo
	for rows.Next() {
		var info model.DatasetInfo
		var columnsJSON string
		if err := rows.Scan(&info.Name, &columnsJSON, &info.Rows, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		if err := json.Unmarshal([]byte(columnsJSON), &info.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode columns of %q: %w", info.Name, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadTable reads a stored dataset back as a table. A non-empty columns list
// projects the table; requested columns the dataset lacks are dropped.
func (s *SQLiteStorage) LoadTable(ctx context.Context, name string, columns []string) (*model.Table, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	info, id, err := s.datasetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	keep := info.Columns
	if len(columns) > 0 {
		stored := make(map[string]struct{}, len(info.Columns))
		for _, c := range info.Columns {
			stored[c] = struct{}{}
		}
		keep = make([]string, 0, len(columns))
		for _, c := range columns {
			if _, ok := stored[c]; ok {
				keep = append(keep, c)
			}
		}
	}

	query := `SELECT row_index, attribute, value FROM dataset_values WHERE dataset_id = ?`
	args := []any{id}
	if len(columns) > 0 {
		if len(keep) == 0 {
			return model.NewTable([]string{}, emptyRows(info.Rows)), nil
		}
		query += ` AND attribute IN (?` + strings.Repeat(`, ?`, len(keep)-1) + `)`
		for _, c := range keep {
			args = append(args, c)
		}
	}
	query += ` ORDER BY row_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	data := emptyRows(info.Rows)
	for rows.Next() {
		var (
			index     int
			attribute string
			value     string
		)
		if err := rows.Scan(&index, &attribute, &value); err != nil {
			return nil, fmt.Errorf("failed to scan dataset value: %w", err)
		}
		if index < 0 || index >= len(data) {
			return nil, fmt.Errorf("%w: row index %d out of range in %q", ErrInvalidDataset, index, name)
		}
		data[index][attribute] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset values: %w", err)
	}

	common.LogDebug("dataset loaded", common.Fields{"dataset": name, "rows": len(data), "columns": keep})
	return model.NewTable(keep, data), nil
}

func emptyRows(n int) []model.TransactionRow {
	out := make([]model.TransactionRow, n)
	for i := range out {
		out[i] = model.TransactionRow{}
	}
	return out
}

// DeleteDataset removes a dataset and its values.
func (s *SQLiteStorage) DeleteDataset(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM datasets WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: dataset %q", common.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query dataset: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_values WHERE dataset_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dataset values: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset deletion: %w", err)
	}

	common.LogInfo("dataset deleted", common.Fields{"dataset": name})
	return nil
}
