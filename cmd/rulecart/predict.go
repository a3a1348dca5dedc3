package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/Veraticus/rulecart/internal/cba"
	"github.com/Veraticus/rulecart/internal/cli"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/service"
	"github.com/spf13/cobra"
)

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("result", "r", "", "stored result id")
	cmd.Flags().String("dataset", "", "stored dataset to classify")
	cmd.Flags().String("csv", "", "CSV file to classify")
	cmd.Flags().String("delimiter", "", "CSV field delimiter (default: comma)")
	_ = cmd.MarkFlagRequired("result")
	cmd.MarkFlagsOneRequired("dataset", "csv")
	cmd.MarkFlagsMutuallyExclusive("dataset", "csv")
}

// loadClassifierInput opens storage and returns the stored result with the
// table to run it over.
func loadClassifierInput(ctx context.Context, cmd *cobra.Command) (service.Storage, *model.Result, *model.Table, error) {
	id, _ := cmd.Flags().GetString("result")
	datasetName, _ := cmd.Flags().GetString("dataset")
	csvPath, _ := cmd.Flags().GetString("csv")
	delimiter, _ := cmd.Flags().GetString("delimiter")

	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	result, err := store.GetResult(ctx, id)
	if err != nil {
		closeStorage(store)
		return nil, nil, nil, err
	}

	var table *model.Table
	if csvPath != "" {
		table, err = readCSVFile(csvPath, delimiter, nil)
	} else {
		table, err = store.LoadTable(ctx, datasetName, nil)
	}
	if err != nil {
		closeStorage(store)
		return nil, nil, nil, err
	}
	return store, result, table, nil
}

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify rows with a stored classifier",
		Long: `Apply a stored classifier to every row of a dataset or CSV file and
write the rows back as CSV with the predicted class and one probability
column per class label.`,
		RunE: runPredict,
	}
	addInputFlags(cmd)
	cmd.Flags().String("out", "", "write predictions to a file instead of stdout")
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	outPath, _ := cmd.Flags().GetString("out")

	store, result, table, err := loadClassifierInput(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	out, closeOut, err := openOutput(cmd.OutOrStdout(), outPath)
	if err != nil {
		return err
	}
	clf := result.Classifier

	w := csv.NewWriter(out)
	header := append([]string(nil), table.Columns...)
	header = append(header, "predicted")
	for _, label := range clf.Labels {
		header = append(header, "p_"+label)
	}
	if err := w.Write(header); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range table.Rows {
		record = record[:0]
		for _, col := range table.Columns {
			record = append(record, row[col])
		}
		record = append(record, cba.Predict(clf, row))
		for _, p := range cba.PredictProba(clf, row) {
			record = append(record, strconv.FormatFloat(p, 'f', 4, 64))
		}
		if err := w.Write(record); err != nil {
			_ = closeOut()
			return fmt.Errorf("failed to write prediction: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = closeOut()
		return fmt.Errorf("failed to write predictions: %w", err)
	}
	return closeOut()
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Measure a stored classifier's accuracy on a dataset",
		RunE:  runEvaluate,
	}
	addInputFlags(cmd)
	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, result, table, err := loadClassifierInput(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStorage(store)

	clf := result.Classifier
	accuracy := cba.Evaluate(clf, table)

	defaults := 0
	for _, row := range table.Rows {
		if cba.Match(clf, row) < 0 {
			defaults++
		}
	}

	summary := fmt.Sprintf("Rows:          %d\n", table.Len()) +
		fmt.Sprintf("Target:        %s\n", clf.Target) +
		fmt.Sprintf("Default class: %s (%d rows)\n", clf.DefaultClass, defaults) +
		fmt.Sprintf("Accuracy:      %.2f%%", 100*accuracy)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.ChartIcon+" Evaluation of "+result.ID, summary))
	return err
}
