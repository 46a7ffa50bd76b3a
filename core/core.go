// Package core has the sync pipeline and the entry points used by the CLI and MCP server.
package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/internal/outwriter"
	"github.com/huangsam/autopush/internal/watch"
	"github.com/huangsam/autopush/schema"
	"go.uber.org/zap"
)

// ExecuteSync runs one add/commit/push sequence and prints the step results.
func ExecuteSync(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager, logger *zap.SugaredLogger) error {
	return executeSync(ctx, cfg, contract.NewLocalGitClient(), mgr, logger)
}

func executeSync(ctx context.Context, cfg *contract.Config, client contract.GitClient, mgr contract.HistoryManager, logger *zap.SugaredLogger) error {
	result := RunSync(ctx, cfg, client, mgr, logger)
	if err := outwriter.NewOutWriter().WriteSyncResult(result, cfg); err != nil {
		return err
	}
	return result.Err()
}

// RunSync runs one sequence without printing, for callers that render the result themselves.
func RunSync(ctx context.Context, cfg *contract.Config, client contract.GitClient, mgr contract.HistoryManager, logger *zap.SugaredLogger) *schema.SyncResult {
	return NewSyncer(cfg, client, mgr, logger).Sync(ctx, ManualEvent())
}

// ExecuteWatch watches cfg.RootPath and syncs on every change until ctx is cancelled.
func ExecuteWatch(ctx context.Context, cfg *contract.Config, mgr contract.HistoryManager, logger *zap.SugaredLogger) error {
	return executeWatch(ctx, cfg, contract.NewLocalGitClient(), mgr, logger, os.Stdout)
}

func executeWatch(ctx context.Context, cfg *contract.Config, client contract.GitClient, mgr contract.HistoryManager, logger *zap.SugaredLogger, out io.Writer) error {
	if logger == nil {
		logger = contract.NewNopLogger()
	}
	syncer := NewSyncer(cfg, client, mgr, logger).WithOutput(out)

	w, err := watch.New(watch.Options{
		Root:        cfg.RootPath,
		MetadataDir: cfg.MetadataDir,
		Debounce:    cfg.Debounce,
	}, syncer, logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	banner := "Watching files... Press CTRL+C to stop"
	if cfg.UseColors {
		banner = contract.InfoColor.Sprint(banner)
	}
	_, _ = fmt.Fprintln(out, banner)
	logger.Debugw("Watching",
		"root", cfg.RootPath,
		"metadata_dir", cfg.MetadataDir,
		"debounce", cfg.Debounce,
		"watches", w.Stats().Watches,
	)

	runErr := w.Run(ctx)

	stats := w.Stats()
	logger.Infow("Watcher stopped",
		"events", stats.Events,
		"filtered", stats.Filtered,
		"syncs", stats.Syncs,
		"failures", stats.Failures,
		"notifier_errors", stats.NotifierErrors,
	)
	return runErr
}
