// Package tables provides a fluent builder and fixtures for transaction
// tables used across the mining, classifier and storage tests.
//
// Example usage:
//
//	table := tables.NewBuilder(t).
//		WithColumns("district", "age", "salary").
//		WithRows(19, "Praha", "middle", "high").
//		Build()
package tables

import (
	"testing"

	"github.com/Veraticus/rulecart/internal/model"
)

// Missing marks a cell that should be absent from the built row.
const Missing = "\x00"

// Builder accumulates rows for a test table.
type Builder interface {
	// WithColumns sets the column order used by positional rows.
	WithColumns(columns ...string) Builder

	// WithRows appends n copies of a positional row.
	WithRows(n int, values ...string) Builder

	// WithRow appends a single row given as a map.
	WithRow(row model.TransactionRow) Builder

	// WithFixture appends every row of a fixture.
	WithFixture(f Fixture) Builder

	// Build returns the table.
	Build() *model.Table
}

type tableBuilder struct {
	t       *testing.T
	columns []string
	rows    []model.TransactionRow
}

// NewBuilder creates a table builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &tableBuilder{t: t}
}

func (b *tableBuilder) WithColumns(columns ...string) Builder {
	b.columns = columns
	return b
}

func (b *tableBuilder) WithRows(n int, values ...string) Builder {
	b.t.Helper()
	if len(values) != len(b.columns) {
		b.t.Fatalf("row has %d values for %d columns", len(values), len(b.columns))
	}
	for i := 0; i < n; i++ {
		row := make(model.TransactionRow, len(values))
		for c, v := range values {
			if v != Missing {
				row[b.columns[c]] = v
			}
		}
		b.rows = append(b.rows, row)
	}
	return b
}

func (b *tableBuilder) WithRow(row model.TransactionRow) Builder {
	b.rows = append(b.rows, row)
	return b
}

func (b *tableBuilder) WithFixture(f Fixture) Builder {
	b.t.Helper()
	b.columns = f.Columns()
	for _, g := range f.Groups() {
		b.WithRows(g.Count, g.Values...)
	}
	return b
}

func (b *tableBuilder) Build() *model.Table {
	return model.NewTable(b.columns, b.rows)
}
