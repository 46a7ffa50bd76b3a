package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/iocache"
	"github.com/huangsam/autopush/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// historyManager is the global persistence manager instance.
var historyManager contract.HistoryManager

// logger is built once the verbose setting is known.
var logger = contract.NewNopLogger()

// rootCmd is the command-line entrypoint for all other commands.
// Without a subcommand it behaves like 'autopush watch'.
var rootCmd = &cobra.Command{
	Use:   "autopush [path]",
	Short: "Stage, commit and push a Git work tree on every file change.",
	Long: `Autopush watches a directory tree and runs 'git add .', 'git commit -m "auto update"'
and 'git push' whenever something under it changes. Changes inside the .git
directory are ignored.`,
	Version:            version,
	Args:               cobra.MaximumNArgs(1),
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	PreRunE:            sharedSetupWrapper,
	Run:                runWatch,
}

// initConfig sets up config file lookup, ENV variables and defaults.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("AUTOPUSH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("message", schema.DefaultCommitMessage)
	viper.SetDefault("remote", "")
	viper.SetDefault("branch", "")
	viper.SetDefault("metadata-dir", schema.DefaultMetadataDir)
	viper.SetDefault("exclude", "")
	viper.SetDefault("debounce", "0s")
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("limit", contract.DefaultResultLimit)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
}

// setConfigFile points viper at --config or the default .autopush.yaml lookup paths.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".autopush") // Name of config file (without extension)
	viper.SetConfigType("yaml")      // We'll use YAML format
	viper.AddConfigPath(".")         // Look in the current directory
	viper.AddConfigPath("$HOME")     // Look in the home directory
}

// loadConfig reads the config file, if any, and unmarshals every resolved
// value into the raw input struct.
func loadConfig() error {
	setConfigFile()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return nil
}

// setupLogger replaces the nop logger once cfg.Verbose is known.
func setupLogger() error {
	l, err := contract.NewLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger = l
	return nil
}

// sharedSetup unmarshals config, resolves the watch root and initializes history.
func sharedSetup(ctx context.Context, _ *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	// Handle positional arguments (which Viper doesn't do).
	if len(args) == 1 {
		input.RootPathStr = args[0]
	} else {
		input.RootPathStr = "."
	}

	client := contract.NewLocalGitClient()
	if err := contract.ProcessAndValidate(ctx, cfg, client, input); err != nil {
		return err
	}
	if err := setupLogger(); err != nil {
		return err
	}

	if err := iocache.InitStores(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// historySetup loads the configuration the history commands need.
// It skips Git repository resolution so history can be inspected from anywhere.
func historySetup(initStore bool) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := contract.ProcessHistoryConfig(cfg, input); err != nil {
		return err
	}
	if err := setupLogger(); err != nil {
		return err
	}
	if !initStore {
		return nil
	}
	if err := iocache.InitStores(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup(true)
}

// historyMigrateSetupWrapper loads config without creating tables, so
// migrations can run against a fresh database.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	if err := historySetup(false); err != nil {
		return err
	}
	if cfg.HistoryBackend == schema.SQLiteBackend && cfg.HistoryDBConnect == "" {
		cfg.HistoryDBConnect = iocache.GetHistoryDBFilePath()
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetHistoryManager sets the global history manager.
func SetHistoryManager(mgr contract.HistoryManager) {
	historyManager = mgr
}

// Logger returns the logger configured by the last setup.
func Logger() *zap.SugaredLogger {
	return logger
}
