package dbtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// ZoomTool handles the zoom MCP tool.
type ZoomTool struct {
	store *index.Store
}

// NewZoomTool creates a ZoomTool.
func NewZoomTool(store *index.Store) *ZoomTool {
	return &ZoomTool{store: store}
}

// Definition returns the MCP tool definition for zoom.
func (t *ZoomTool) Definition() mcp.Tool {
	return mcp.NewTool("zoom",
		mcp.WithDescription(
			"Read a symbol's layered documentation. Level 0-1 return the overview "+
				"and contract, 2 adds pseudocode, 3 adds the AST excerpt, 4 adds "+
				"the raw source lines from disk. Use the cheapest level that "+
				"answers your question.",
		),
		mcp.WithString("handle",
			mcp.Required(),
			mcp.Description("Symbol handle: ctx://path::symbol@sha256:HASH (symbol ANY picks the file's first symbol)"),
		),
		mcp.WithNumber("level",
			mcp.Description("Detail level 0-4 (default: 0)"),
		),
	)
}

// Handle processes the zoom tool call.
func (t *ZoomTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle := req.GetString("handle", "")
	if handle == "" {
		return mcp.NewToolResultError("'handle' is required"), nil
	}

	res, err := t.store.Zoom(handle, intArg(req, "level", 0))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}
