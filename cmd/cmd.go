// Package cmd defines the command-line interface for autopush.
package cmd

import (
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Sync settings are persistent so the bare root command, watch, sync and mcp share them
	rootCmd.PersistentFlags().StringP("message", "m", schema.DefaultCommitMessage, "Commit message used for every sync")
	rootCmd.PersistentFlags().String("remote", "", "Remote to push to (empty = git's default)")
	rootCmd.PersistentFlags().String("branch", "", "Branch to push (requires --remote)")
	rootCmd.PersistentFlags().String("metadata-dir", schema.DefaultMetadataDir, "Changes whose path contains this name are ignored")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().String("debounce", "0s", "Coalesce bursts of changes into one sync (e.g. 500ms, 0s = sync every change)")

	// Output and history settings
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "History backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of history entries to display")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every git step and watcher event to stderr")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
