package model

import "sort"

// TransactionRow maps attribute names to categorical values. An absent key
// means the value is missing for that row.
type TransactionRow map[string]string

// Table is a read-only transaction table. Callers must not mutate a table
// while it is being mined or used to build a classifier.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []TransactionRow `json:"rows"`
}

// NewTable builds a table; the column list is derived from the rows when nil.
func NewTable(columns []string, rows []TransactionRow) *Table {
	if columns == nil {
		seen := make(map[string]struct{})
		for _, row := range rows {
			for k := range row {
				seen[k] = struct{}{}
			}
		}
		for k := range seen {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}
	return &Table{Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Values returns the sorted distinct values of a column.
func (t *Table) Values(column string) []string {
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		if v, ok := row[column]; ok {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Project returns a table restricted to the given columns. Rows are copied.
func (t *Table) Project(columns []string) *Table {
	rows := make([]TransactionRow, len(t.Rows))
	for i, row := range t.Rows {
		p := make(TransactionRow, len(columns))
		for _, c := range columns {
			if v, ok := row[c]; ok {
				p[c] = v
			}
		}
		rows[i] = p
	}
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	return &Table{Columns: cols, Rows: rows}
}
