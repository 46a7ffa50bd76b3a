package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/autopush/core"
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	client  contract.GitClient
	mgr     contract.HistoryManager
	logger  *zap.SugaredLogger
}

// historyStore returns the configured store or a tool error explaining how to enable one.
func (h *toolHandler) historyStore() (contract.HistoryStore, *mcp.CallToolResult) {
	if h.mgr != nil && h.baseCfg.HistoryBackend != schema.NoneBackend {
		if store := h.mgr.GetHistoryStore(); store != nil {
			return store, nil
		}
	}
	return nil, mcp.NewToolResultError("sync history is disabled; restart with --history-backend sqlite, mysql or postgresql")
}

func (h *toolHandler) handleSyncNow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if msg := request.GetString("message", ""); strings.TrimSpace(msg) != "" {
		cfg.CommitMessage = msg
	}
	if p := request.GetString("root_path", ""); p != "" {
		if err := contract.RevalidateRoot(ctx, cfg, h.client, p); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid root_path: %v", err)), nil
		}
	}

	result := core.RunSync(ctx, cfg, h.client, h.mgr, h.logger)

	type syncResponse struct {
		Succeeded  bool               `json:"succeeded"`
		FailedStep string             `json:"failed_step,omitempty"`
		Error      string             `json:"error,omitempty"`
		Result     *schema.SyncResult `json:"result"`
	}
	resp := syncResponse{
		Succeeded:  result.Succeeded(),
		FailedStep: string(result.FailedStep()),
		Result:     result,
	}
	if err := result.Err(); err != nil {
		resp.Error = err.Error()
	}

	jsonData, _ := json.MarshalIndent(resp, "", "  ")
	if !resp.Succeeded {
		// Partial failure is still a tool result the agent can inspect
		return mcp.NewToolResultError(string(jsonData)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, errResult := h.historyStore()
	if errResult != nil {
		return errResult, nil
	}

	limit := h.baseCfg.ResultLimit
	if l := request.GetInt("limit", 0); l > 0 {
		limit = l
	}
	if limit <= 0 {
		limit = contract.DefaultResultLimit
	}
	if limit > contract.MaxResultLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit cannot exceed %d (received %d)", contract.MaxResultLimit, limit)), nil
	}

	records, err := store.ListSyncs(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list syncs: %v", err)), nil
	}
	if records == nil {
		records = []schema.SyncRecord{}
	}

	jsonData, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, errResult := h.historyStore()
	if errResult != nil {
		return errResult, nil
	}

	status, err := store.GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get history status: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
