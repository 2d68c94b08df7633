package dbtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// FocusTool handles the focus MCP tool.
type FocusTool struct {
	store *index.Store
}

// NewFocusTool creates a FocusTool.
func NewFocusTool(store *index.Store) *FocusTool {
	return &FocusTool{store: store}
}

// Definition returns the MCP tool definition for focus.
func (t *FocusTool) Definition() mcp.Tool {
	return mcp.NewTool("focus",
		mcp.WithDescription(
			"Explore the relationship graph around a symbol. Walks calls/inherits "+
				"edges breadth-first from the handle's symbol, returning neighbors "+
				"bucketed by distance. Use depth 0 for just the symbol itself.",
		),
		mcp.WithString("handle",
			mcp.Required(),
			mcp.Description("Symbol handle: ctx://path::symbol@sha256:HASH (sha256:ANY skips the hash check; the symbol must be concrete)"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Traversal depth (default: 1, clamped to the configured maximum)"),
		),
		mcp.WithString("edge_types",
			mcp.Description("Comma-separated edge types to follow: calls, inherits (default: all)"),
		),
	)
}

// Handle processes the focus tool call.
func (t *FocusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle := req.GetString("handle", "")
	if handle == "" {
		return mcp.NewToolResultError("'handle' is required"), nil
	}

	res, err := t.store.Focus(handle, intArg(req, "depth", 1), patternsArg(req, "edge_types"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}
