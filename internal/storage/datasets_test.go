package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_DatasetRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	table := sampleTable()

	info, err := store.SaveDataset(ctx, "loans", table)
	require.NoError(t, err)
	assert.Equal(t, "loans", info.Name)
	assert.Equal(t, []string{"district", "age", "salary"}, info.Columns)
	assert.Equal(t, 4, info.Rows)
	assert.False(t, info.CreatedAt.IsZero())

	loaded, err := store.LoadTable(ctx, "loans", nil)
	require.NoError(t, err)
	assert.Equal(t, table.Columns, loaded.Columns)
	assert.Equal(t, table.Rows, loaded.Rows)
}

func TestSQLiteStorage_LoadTableProjection(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	_, err := store.SaveDataset(ctx, "loans", sampleTable())
	require.NoError(t, err)

	tests := []struct {
		name     string
		columns  []string
		wantCols []string
		wantRow1 model.TransactionRow
	}{
		{
			name:     "subset keeps request order",
			columns:  []string{"salary", "district"},
			wantCols: []string{"salary", "district"},
			wantRow1: model.TransactionRow{"district": "Brno", "salary": "low"},
		},
		{
			name:     "unknown columns dropped",
			columns:  []string{"age", "income"},
			wantCols: []string{"age"},
			wantRow1: model.TransactionRow{},
		},
		{
			name:     "nothing known",
			columns:  []string{"income"},
			wantCols: []string{},
			wantRow1: model.TransactionRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := store.LoadTable(ctx, "loans", tt.columns)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, table.Columns)
			require.Equal(t, 4, table.Len())
			assert.Equal(t, tt.wantRow1, table.Rows[1])
		})
	}
}

func TestSQLiteStorage_DatasetLifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveDataset(ctx, "b", sampleTable())
	require.NoError(t, err)
	_, err = store.SaveDataset(ctx, "a", sampleTable())
	require.NoError(t, err)

	_, err = store.SaveDataset(ctx, "a", sampleTable())
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	list, err := store.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)

	require.NoError(t, store.DeleteDataset(ctx, "a"))
	assert.ErrorIs(t, store.DeleteDataset(ctx, "a"), common.ErrNotFound)

	_, err = store.GetDataset(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.LoadTable(ctx, "a", nil)
	assert.ErrorIs(t, err, common.ErrNotFound)

	var orphans int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM dataset_values v
		LEFT JOIN datasets d ON d.id = v.dataset_id WHERE d.id IS NULL`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestSQLiteStorage_SaveDatasetValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		dataset string
		table   *model.Table
		wantErr error
	}{
		{name: "blank name", dataset: " ", table: sampleTable(), wantErr: ErrEmptyString},
		{name: "nil table", dataset: "x", table: nil, wantErr: ErrNilParameter},
		{name: "no columns", dataset: "x", table: &model.Table{}, wantErr: ErrInvalidDataset},
		{
			name:    "duplicate column",
			dataset: "x",
			table:   model.NewTable([]string{"a", "a"}, nil),
			wantErr: ErrInvalidDataset,
		},
		{
			name:    "undeclared attribute",
			dataset: "x",
			table:   model.NewTable([]string{"a"}, []model.TransactionRow{{"b": "1"}}),
			wantErr: ErrInvalidDataset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.SaveDataset(ctx, tt.dataset, tt.table)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
