package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/huangsam/autopush/core"
	"github.com/huangsam/autopush/internal/contract"
	"github.com/spf13/cobra"
)

// watchCmd runs the watch loop until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and push every change",
	Long: `Watch the given directory (default: current directory) recursively and run
'git add .', 'git commit' and 'git push' on every change.

Each change runs all three commands in order, even when an earlier one fails;
failures are reported and watching continues. Changes inside the metadata
directory (.git by default) never trigger anything. Press CTRL+C to stop;
a push already in progress is allowed to finish.

Examples:
  # Watch the current repository
  autopush watch

  # Watch a docs folder and batch bursts of saves
  autopush watch ./docs --debounce 2s

  # Record every sync to SQLite
  autopush watch --history-backend sqlite`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run:     runWatch,
}

// runWatch blocks until SIGINT or SIGTERM.
func runWatch(_ *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := core.ExecuteWatch(ctx, cfg, historyManager, logger); err != nil {
		contract.LogFatal("Failed to watch", err)
	}
}
