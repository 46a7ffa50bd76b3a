package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/autopush/schema"
)

// Default values for configuration.
const (
	DefaultResultLimit = 20
	MaxResultLimit     = 1000
	MaxDebounce        = time.Minute
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for autopush.
// This struct remains the "final, validated" config.
type Config struct {
	RootPath string // Absolute watch root; git commands run here

	CommitMessage string
	Remote        string
	Branch        string
	MetadataDir   string
	Excludes      []string
	Debounce      time.Duration

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Output      schema.OutputMode
	OutputFile  string
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)

	UseColors bool
	Verbose   bool
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	RootPathStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Color            string `mapstructure:"color"`
	Verbose          bool   `mapstructure:"verbose"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Limit            int    `mapstructure:"limit"`
	Width            int    `mapstructure:"width"`

	// --- Fields from watchCmd.Flags() and syncCmd.Flags() ---
	Message     string `mapstructure:"message"`
	Remote      string `mapstructure:"remote"`
	Branch      string `mapstructure:"branch"`
	MetadataDir string `mapstructure:"metadata-dir"`
	Exclude     string `mapstructure:"exclude"`
	Debounce    string `mapstructure:"debounce"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Excludes = slices.Clone(c.Excludes)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processSyncInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := resolveWatchRoot(ctx, cfg, client, input); err != nil {
		return err
	}
	return nil
}

// ProcessHistoryConfig validates only what the history commands need.
// It avoids Git repository resolution so history can be inspected anywhere.
func ProcessHistoryConfig(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// RevalidateRoot points cfg at a different watch root and re-resolves its
// git work tree. It is used by callers that override the root per request.
func RevalidateRoot(ctx context.Context, cfg *Config, client GitClient, rootPath string) error {
	return resolveWatchRoot(ctx, cfg, client, &ConfigRawInput{RootPathStr: rootPath})
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the history backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend := strings.ToLower(strings.TrimSpace(input.HistoryBackend))
	if backend == "" {
		backend = string(schema.NoneBackend)
	}
	cfg.HistoryBackend = schema.DatabaseBackend(backend)
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// validateSimpleInputs processes and validates the output related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Verbose = input.Verbose

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	return nil
}

// processSyncInputs handles the commit, push, filter and debounce settings.
func processSyncInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.CommitMessage = input.Message
	if strings.TrimSpace(cfg.CommitMessage) == "" {
		cfg.CommitMessage = schema.DefaultCommitMessage
	}

	cfg.Remote = strings.TrimSpace(input.Remote)
	cfg.Branch = strings.TrimSpace(input.Branch)
	if cfg.Branch != "" && cfg.Remote == "" {
		return fmt.Errorf("--branch requires --remote (received branch %q)", cfg.Branch)
	}

	cfg.MetadataDir = strings.TrimSpace(input.MetadataDir)
	if cfg.MetadataDir == "" {
		cfg.MetadataDir = schema.DefaultMetadataDir
	}
	if strings.ContainsRune(cfg.MetadataDir, os.PathSeparator) || strings.Contains(cfg.MetadataDir, "/") {
		return fmt.Errorf("metadata-dir must be a directory name, not a path (received %q)", cfg.MetadataDir)
	}

	cfg.Excludes = nil
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				cfg.Excludes = append(cfg.Excludes, trimmed)
			}
		}
	}

	cfg.Debounce = 0
	if input.Debounce != "" {
		d, err := time.ParseDuration(input.Debounce)
		if err != nil {
			return fmt.Errorf("invalid debounce '%s'. Expected a duration like 500ms or 2s: %w", input.Debounce, err)
		}
		if d < 0 || d > MaxDebounce {
			return fmt.Errorf("debounce must be between 0s and %s (received %s)", MaxDebounce, d)
		}
		cfg.Debounce = d
	}

	return nil
}

// resolveWatchRoot resolves the absolute watch root and checks that it lies
// inside a git work tree.
func resolveWatchRoot(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	searchPath := input.RootPathStr
	if searchPath == "" {
		searchPath = "."
	}
	absRoot, err := filepath.Abs(searchPath)
	if err != nil {
		return err
	}
	absRoot = filepath.Clean(absRoot)

	info, err := os.Stat(absRoot)
	if err != nil {
		return fmt.Errorf("cannot watch %q: %w", searchPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %q must be a directory", searchPath)
	}

	if _, err := client.GetRepoRoot(ctx, absRoot); err != nil {
		return err
	}

	cfg.RootPath = absRoot
	return nil
}
