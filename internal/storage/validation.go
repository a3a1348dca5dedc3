package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/rulecart/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidDataset = errors.New("invalid dataset")
	ErrInvalidResult  = errors.New("invalid mining result")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTable checks that every row value belongs to a declared column.
func validateTable(table *model.Table) error {
	if table == nil {
		return fmt.Errorf("%w: table", ErrNilParameter)
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidDataset)
	}
	declared := make(map[string]struct{}, len(table.Columns))
	for _, c := range table.Columns {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: blank column name", ErrInvalidDataset)
		}
		if _, dup := declared[c]; dup {
			return fmt.Errorf("%w: column %q declared twice", ErrInvalidDataset, c)
		}
		declared[c] = struct{}{}
	}
	for i, row := range table.Rows {
		for attr := range row {
			if _, ok := declared[attr]; !ok {
				return fmt.Errorf("%w: row %d has undeclared attribute %q", ErrInvalidDataset, i, attr)
			}
		}
	}
	return nil
}

// validateResult ensures a result carries what listing and prediction need.
func validateResult(result *model.Result) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if strings.TrimSpace(result.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidResult)
	}
	if result.Classifier == nil {
		return fmt.Errorf("%w: missing classifier", ErrInvalidResult)
	}
	if result.Classifier.DefaultClass == "" && len(result.Classifier.Labels) > 0 {
		return fmt.Errorf("%w: classifier has no default class", ErrInvalidResult)
	}
	if result.Stats.Accuracy < 0 || result.Stats.Accuracy > 1 {
		return fmt.Errorf("%w: accuracy must be between 0 and 1", ErrInvalidResult)
	}
	return nil
}
