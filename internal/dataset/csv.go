// Package dataset imports categorical transaction tables.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
)

// ErrInvalidCSV is returned for headers or records that cannot form a table.
var ErrInvalidCSV = errors.New("invalid csv dataset")

// Options controls CSV import.
type Options struct {
	// Progress is called after every ProgressEvery records with the running count.
	Progress func(rows int)
	// Missing lists cell values treated as absent, compared after trimming.
	Missing []string
	// ProgressEvery defaults to 1000.
	ProgressEvery int
	// Delimiter defaults to ','.
	Delimiter rune
}

// DefaultMissing is used when Options.Missing is nil.
var DefaultMissing = []string{"", "?", "NA", "null"}

// ReadCSV reads a CSV document whose first record names the columns. Every
// value is kept as a category string; missing cells are left out of the row.
func ReadCSV(r io.Reader, opts Options) (*model.Table, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no header record", ErrInvalidCSV)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	columns, err := columnNames(header)
	if err != nil {
		return nil, err
	}

	missing := opts.Missing
	if missing == nil {
		missing = DefaultMissing
	}
	absent := make(map[string]struct{}, len(missing))
	for _, m := range missing {
		absent[strings.TrimSpace(m)] = struct{}{}
	}

	every := opts.ProgressEvery
	if every <= 0 {
		every = 1000
	}

	var rows []model.TransactionRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}

		row := make(model.TransactionRow, len(columns))
		for i, cell := range record {
			v := strings.TrimSpace(cell)
			if _, skip := absent[v]; skip {
				continue
			}
			row[columns[i]] = v
		}
		rows = append(rows, row)

		if opts.Progress != nil && len(rows)%every == 0 {
			opts.Progress(len(rows))
		}
	}
	if opts.Progress != nil && len(rows)%every != 0 {
		opts.Progress(len(rows))
	}

	common.LogDebug("csv dataset read", common.Fields{"columns": len(columns), "rows": len(rows)})
	return model.NewTable(columns, rows), nil
}

func columnNames(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidCSV, i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: column %q repeated at positions %d and %d", ErrInvalidCSV, name, prev+1, i+1)
		}
		seen[name] = i
		columns[i] = name
	}
	return columns, nil
}
