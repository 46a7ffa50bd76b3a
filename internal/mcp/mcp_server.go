// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/autopush/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewMCPServer initializes and configures the autopush MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, client contract.GitClient, mgr contract.HistoryManager, logger *zap.SugaredLogger) *server.MCPServer {
	s := server.NewMCPServer(
		"Autopush Sync Server",
		"1.0.0",
		server.WithLogging(),
	)

	if logger == nil {
		logger = contract.NewNopLogger()
	}
	h := &toolHandler{
		baseCfg: baseCfg,
		client:  client,
		mgr:     mgr,
		logger:  logger,
	}

	// --- 1. Tool: sync_now ---
	s.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Stage, commit and push every pending change in the watched repository, once."),
		mcp.WithString("root_path", mcp.Description("Directory to sync (defaults to the configured watch root).")),
		mcp.WithString("message", mcp.Description("Commit message (defaults to the configured message).")),
	), h.handleSyncNow)

	// --- 2. Tool: get_history ---
	s.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List the most recent recorded syncs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of syncs returned.")),
	), h.handleGetHistory)

	// --- 3. Tool: get_status ---
	s.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Summarize the sync history store (backend, totals, failures, table sizes)."),
	), h.handleGetStatus)

	return s
}

// StartMCPServer starts the autopush MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.HistoryManager, logger *zap.SugaredLogger) error {
	s := NewMCPServer(baseCfg, contract.NewLocalGitClient(), mgr, logger)
	return server.ServeStdio(s)
}
