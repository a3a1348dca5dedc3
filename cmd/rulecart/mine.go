package main

import (
	"fmt"

	"github.com/Veraticus/rulecart/internal/cli"
	"github.com/Veraticus/rulecart/internal/config"
	"github.com/Veraticus/rulecart/internal/engine"
	"github.com/Veraticus/rulecart/internal/mining"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/service"
	"github.com/Veraticus/rulecart/internal/taskfile"
	"github.com/spf13/cobra"
)

func mineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine a rule classifier for a task",
		Long: `Resolve the task's attributes, mine class association rules over the
dataset and build an ordered classifier from them.

The dataset is the stored dataset named by --dataset or by the task's
"dataset" header extension. Use --csv to mine a file without importing it.
Thresholds come from the task; the AutoSearch schedule comes from the
"mining" section of the config file.`,
		Example: `  rulecart mine --task loans.pmml
  rulecart mine --task loans.yaml --dataset loans --save
  rulecart mine --task loans.pmml --csv loans.csv --output pmml > result.pmml`,
		RunE: runMine,
	}

	cmd.Flags().StringP("task", "t", "", "task file (.pmml, .xml, .yaml, .yml)")
	cmd.Flags().String("dataset", "", "stored dataset to mine (default: the task's dataset extension)")
	cmd.Flags().String("csv", "", "mine a CSV file instead of a stored dataset")
	cmd.Flags().String("delimiter", "", "CSV field delimiter (default: comma)")
	cmd.Flags().Bool("save", false, "store the result for later prediction")
	cmd.Flags().StringP("output", "o", "text", "output format (text, pmml, yaml, json)")
	cmd.Flags().String("out", "", "write output to a file instead of stdout")
	cmd.Flags().Int("workers", 0, "worker goroutines (default: mining.workers, then GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("task")

	return cmd
}

func runMine(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	taskPath, _ := cmd.Flags().GetString("task")
	datasetName, _ := cmd.Flags().GetString("dataset")
	csvPath, _ := cmd.Flags().GetString("csv")
	delimiter, _ := cmd.Flags().GetString("delimiter")
	save, _ := cmd.Flags().GetBool("save")
	output, _ := cmd.Flags().GetString("output")
	outPath, _ := cmd.Flags().GetString("out")

	format, err := parseFormat(output, true)
	if err != nil {
		return err
	}

	task, err := taskfile.Load(taskPath)
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}

	cfg, err := config.LoadMiningConfig(nil)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}

	engineCfg := engine.Config{
		Schedule:        cfg.Schedule(),
		TargetRuleCount: cfg.TargetRuleCount,
		Workers:         cfg.Workers,
	}
	var progress *cli.SearchProgress
	if format == formatText {
		engineCfg.OnIteration = func(it mining.Iteration) {
			if progress == nil {
				progress = cli.NewSearchProgress(cmd.ErrOrStderr(), cfg.MaxIterations)
			}
			progress.Observe(it)
		}
	}
	eng := engine.New(mining.NewApriori(cfg.Workers), engineCfg)

	var store service.Storage
	if csvPath == "" || save {
		store, err = initStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer closeStorage(store)
	}

	var (
		result *model.Result
		table  *model.Table
	)
	if csvPath != "" {
		var progressOut = cmd.ErrOrStderr()
		if format != formatText {
			progressOut = nil
		}
		table, err = readCSVFile(csvPath, delimiter, progressOut)
		if err != nil {
			return err
		}
		result, err = eng.Mine(ctx, task, table)
		if err == nil && datasetName != "" {
			result.Dataset = datasetName
		}
	} else {
		result, err = eng.MineStored(ctx, task, datasetName, store)
	}
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return fmt.Errorf("mining failed: %w", err)
	}

	if save {
		if err := store.SaveResult(ctx, result); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
	}

	w, closeOut, err := openOutput(cmd.OutOrStdout(), outPath)
	if err != nil {
		return err
	}
	if err := writeResult(w, format, result, table); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}

	if save && format == formatText {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("saved as "+result.ID))
	}
	return err
}
