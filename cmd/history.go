package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/iocache"
	"github.com/huangsam/autopush/internal/outwriter"
	"github.com/huangsam/autopush/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyCmd focused on sync history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by watch and sync. This avoids Git repo validation
// so the history can be inspected from any directory.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage recorded syncs",
	Long: `Manage the optional store of sync runs and their git steps.

History is only recorded when --history-backend is sqlite, mysql or postgresql.

Subcommands:
  list    - Show the most recent syncs
  status  - Show store statistics and connection info
  clear   - Remove all recorded syncs
  export  - Write syncs and steps to Parquet files
  migrate - Run schema migrations

Examples:
  # Show the last 20 syncs recorded in SQLite
  autopush history list --history-backend sqlite

  # Use MySQL (set connection string via env variable)
  AUTOPUSH_HISTORY_BACKEND=mysql AUTOPUSH_HISTORY_DB_CONNECT="..." autopush history status`,
}

// requireHistoryBackend rejects the none backend for commands that read history.
func requireHistoryBackend() error {
	if cfg.HistoryBackend == schema.NoneBackend {
		return errors.New("history is disabled; pass --history-backend sqlite, mysql or postgresql")
	}
	return nil
}

// historyListCmd lists recent syncs.
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent syncs",
	Long: `List recorded syncs, newest first, with the step that failed if any.

Examples:
  autopush history list --history-backend sqlite --limit 50
  autopush history list --history-backend sqlite --output csv --output-file syncs.csv`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := requireHistoryBackend(); err != nil {
			contract.LogFatal("Failed to list history", err)
		}
		records, err := iocache.Manager.GetHistoryStore().ListSyncs(cfg.ResultLimit)
		if err != nil {
			contract.LogFatal("Failed to list history", err)
		}
		if err := outwriter.NewOutWriter().WriteSyncHistory(records, cfg); err != nil {
			contract.LogFatal("Failed to print history", err)
		}
	},
}

// historyStatusCmd shows history store status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show the backend, connection state, number of syncs, failed syncs, the newest
and oldest sync, and the row count of each history table.`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyClearCmd clears the history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded syncs",
	Long: `Delete all recorded syncs from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		dbFilePath := iocache.GetHistoryDBFilePath()
		if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect != "" {
			dbFilePath = cfg.HistoryDBConnect
		}
		if err := iocache.ClearHistory(cfg.HistoryBackend, dbFilePath, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded syncs to Parquet for analytics tools",
	Long: `Export all recorded syncs and their steps to Parquet.

Writes two files next to --output-file:
  <output-file>.sync_runs.parquet
  <output-file>.sync_steps.parquet

Requires: --output-file parameter

Examples:
  autopush history export --history-backend sqlite --output-file autopush
  duckdb -c "SELECT failed_step, count(*) FROM read_parquet('autopush.sync_runs.parquet') GROUP BY 1"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := requireHistoryBackend(); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
		if err := iocache.ExecuteHistoryExport(iocache.Manager.GetHistoryStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  autopush history migrate --history-backend sqlite

  # Rollback to initial state
  autopush history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
