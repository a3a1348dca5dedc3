package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rulecart/internal/cli"
	"github.com/Veraticus/rulecart/internal/common"
	"github.com/Veraticus/rulecart/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup; this command does it explicitly
and can report the schema version without changing anything.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	dbPath := databasePath()

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		pending, err := store.PendingMigrations(ctx)
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Database: %s\nCurrent:  %d\nLatest:   %d", dbPath, current, storage.ExpectedSchemaVersion)
		if len(pending) == 0 {
			b.WriteString("\nSchema is up to date")
		}
		for _, m := range pending {
			fmt.Fprintf(&b, "\nPending:  v%d %s", m.Version, m.Description)
		}
		_, err = fmt.Fprintln(out, cli.RenderBox(cli.FolderIcon+" Migration Status", b.String()))
		return err
	}

	common.LogInfo("running database migrations", common.Fields{"database": dbPath})
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess("database migrations completed"))
	return err
}
