package main

import (
	"fmt"

	"github.com/Veraticus/rulecart/internal/cli"
	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/model"
	"github.com/Veraticus/rulecart/internal/service"
	"github.com/spf13/cobra"
)

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "results",
		Aliases: []string{"result"},
		Short:   "Manage stored mining results",
	}

	cmd.AddCommand(resultsListCmd())
	cmd.AddCommand(resultsShowCmd())
	cmd.AddCommand(resultsExportCmd())
	cmd.AddCommand(resultsDeleteCmd())

	return cmd
}

func resultsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			datasetName, _ := cmd.Flags().GetString("dataset")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			results, err := store.ListResults(ctx, service.ResultFilter{Dataset: datasetName, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}
			return cli.WriteResultList(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().String("dataset", "", "only results mined from this dataset")
	cmd.Flags().Int("limit", 0, "maximum number of results")

	return cmd
}

func resultsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored result and its rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			result, err := store.GetResult(ctx, args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), formatText, result, nil)
		},
	}
}

func resultsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a stored result as PMML, YAML or JSON",
		Long: `Export a stored result. PMML output includes a fourfold table per rule,
computed from the result's dataset when it is still stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			formatName, _ := cmd.Flags().GetString("format")
			outPath, _ := cmd.Flags().GetString("out")

			format, err := parseFormat(formatName, false)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			result, err := store.GetResult(ctx, args[0])
			if err != nil {
				return err
			}

			var table *model.Table
			if format == formatPMML && result.Dataset != "" {
				columns := append(append([]string(nil), result.AntecedentAttrs...), result.Classifier.Target)
				table, err = store.LoadTable(ctx, result.Dataset, columns)
				if err != nil {
					common.LogWarn("dataset unavailable; fourfold tables derived from rule counts", common.Fields{
						"dataset": result.Dataset,
						"error":   err.Error(),
					})
					table = nil
				} else if table.Len() != result.Rows {
					common.LogWarn("dataset changed since mining; fourfold tables derived from rule counts", common.Fields{
						"dataset": result.Dataset,
					})
					table = nil
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
			return closeOut()
		},
	}

	cmd.Flags().StringP("format", "f", "pmml", "export format (pmml, yaml, json)")
	cmd.Flags().String("out", "", "write to a file instead of stdout")

	return cmd
}

func resultsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if err := store.DeleteResult(ctx, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("deleted result "+args[0]))
			return err
		},
	}
}
