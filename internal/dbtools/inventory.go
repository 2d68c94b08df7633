package dbtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// InventoryTool handles the inventory MCP tool.
type InventoryTool struct {
	store *index.Store
}

// NewInventoryTool creates an InventoryTool.
func NewInventoryTool(store *index.Store) *InventoryTool {
	return &InventoryTool{store: store}
}

// Definition returns the MCP tool definition for inventory.
func (t *InventoryTool) Definition() mcp.Tool {
	return mcp.NewTool("inventory",
		mcp.WithDescription(
			"List every tracked file with its stored hash, disk hash, and sync "+
				"status (in_sync, stale_on_disk, missing_on_disk, missing_in_db). "+
				"Use this to spot files edited outside the patch flow.",
		),
		mcp.WithBoolean("summary",
			mcp.Description("Include per-state and per-status counts (default: true)"),
		),
	)
}

// Handle processes the inventory tool call.
func (t *InventoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.store.Inventory(boolArg(req, "summary", true))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}
