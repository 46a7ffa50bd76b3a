package cmd

import (
	"github.com/huangsam/autopush/core"
	"github.com/huangsam/autopush/internal/contract"
	"github.com/spf13/cobra"
)

// syncCmd runs one sync and prints every step.
var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Stage, commit and push once",
	Long: `Run the same three commands a change would trigger, once, and print the
exit status and duration of each step.

Exits non-zero when any step fails.

Examples:
  # Sync the current repository
  autopush sync

  # Push to a specific remote and branch, as JSON
  autopush sync --remote origin --branch main --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSync(rootCtx, cfg, historyManager, logger); err != nil {
			contract.LogFatal("Sync failed", err)
		}
	},
}
