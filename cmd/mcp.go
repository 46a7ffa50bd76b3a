package cmd

import (
	"github.com/huangsam/autopush/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [path]",
	Short: "Start the autopush MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents trigger a sync and read
the sync history via standard tools (sync_now, get_history, get_status).`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr; stdout is reserved for the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, historyManager, logger)
	},
}
