package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/rulecart/internal/cli"
	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/config"
	"github.com/Veraticus/rulecart/internal/dataset"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/pmml"
	"github.com/Veraticus/rulecart/internal/service"
	"github.com/Veraticus/rulecart/internal/storage"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func databasePath() string {
	return config.DatabasePath(viper.GetViper())
}

// initStorage opens the configured database and applies pending migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(databasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store service.Storage) {
	if err := store.Close(); err != nil {
		common.LogError(err, "failed to close storage", nil)
	}
}

// readCSVFile imports a CSV file, showing a row counter on progress when set.
func readCSVFile(path string, delimiter string, progress io.Writer) (*model.Table, error) {
	f, err := os.Open(path) //nolint:gosec // user-specified dataset path
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	opts := dataset.Options{}
	if delimiter != "" {
		runes := []rune(delimiter)
		if len(runes) != 1 {
			return nil, fmt.Errorf("%w: delimiter must be a single character", common.ErrInvalidConfig)
		}
		opts.Delimiter = runes[0]
	}
	if progress != nil {
		bar, update := cli.NewImportProgress(progress)
		opts.Progress = update
		defer func() { _ = bar.Finish() }()
	}

	table, err := dataset.ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return table, nil
}

// outputFormat selects how results are written.
type outputFormat string

const (
	formatText outputFormat = "text"
	formatPMML outputFormat = "pmml"
	formatYAML outputFormat = "yaml"
	formatJSON outputFormat = "json"
)

func parseFormat(s string, allowText bool) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case formatPMML, formatYAML, formatJSON:
		return f, nil
	case formatText:
		if allowText {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: output format %q", common.ErrUnsupportedFormat, s)
}

// writeResult renders a result. The table, when known, gives exact
// fourfold tables in PMML output.
func writeResult(w io.Writer, format outputFormat, result *model.Result, table *model.Table) error {
	switch format {
	case formatText:
		if err := cli.WriteResultSummary(w, result); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return cli.WriteRules(w, result.Classifier)
	case formatPMML:
		return pmml.WriteResult(w, result, table)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: output format %q", common.ErrUnsupportedFormat, format)
	}
}

// openOutput returns stdout for an empty path, otherwise a created file.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path) //nolint:gosec // user-specified output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
