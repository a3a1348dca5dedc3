package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/rulecart/internal/cli"
	"github.com/Veraticus/rulecart/internal/common"
	"github.com/spf13/cobra"
)

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"dataset", "ds"},
		Short:   "Manage stored datasets",
	}

	cmd.AddCommand(datasetsImportCmd())
	cmd.AddCommand(datasetsListCmd())
	cmd.AddCommand(datasetsShowCmd())
	cmd.AddCommand(datasetsDeleteCmd())

	return cmd
}

func datasetsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <name> <file.csv>",
		Short: "Import a CSV file as a dataset",
		Long: `Import a CSV file whose first record names the columns. Every value is
stored as a category; empty cells and "?", "NA" or "null" are missing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, path := args[0], args[1]
			delimiter, _ := cmd.Flags().GetString("delimiter")
			replace, _ := cmd.Flags().GetBool("replace")

			table, err := readCSVFile(path, delimiter, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if replace {
				if err := store.DeleteDataset(ctx, name); err != nil && !errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("failed to replace dataset: %w", err)
				}
			}

			info, err := store.SaveDataset(ctx, name, table)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return &common.UserError{Err: err, UserMessage: fmt.Sprintf("dataset %q exists; use --replace to overwrite it", name)}
				}
				return fmt.Errorf("failed to save dataset: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("imported %s: %d rows, %d columns", info.Name, info.Rows, len(info.Columns))))
			return err
		},
	}

	cmd.Flags().String("delimiter", "", "CSV field delimiter (default: comma)")
	cmd.Flags().Bool("replace", false, "replace an existing dataset of the same name")

	return cmd
}

func datasetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			datasets, err := store.ListDatasets(ctx)
			if err != nil {
				return fmt.Errorf("failed to list datasets: %w", err)
			}
			return cli.WriteDatasets(cmd.OutOrStdout(), datasets)
		},
	}
}

func datasetsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a dataset's columns and categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			table, err := store.LoadTable(ctx, args[0], nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s (%d rows)", args[0], table.Len()))); err != nil {
				return err
			}
			return cli.WriteColumnProfile(out, table)
		},
	}
}

func datasetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			if err := store.DeleteDataset(ctx, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("deleted dataset "+args[0]))
			return err
		},
	}
}
