package dbtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// SearchTool handles the search MCP tool.
type SearchTool struct {
	store *index.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(store *index.Store) *SearchTool {
	return &SearchTool{store: store}
}

// Definition returns the MCP tool definition for search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription(
			"Full-text search over indexed symbols: names, overviews, and "+
				"contracts. Returns ranked hits; combine a hit's path and name "+
				"with a file hash from inventory to build a handle for zoom or focus.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("FTS5 query — keywords or quoted phrases"),
		),
		mcp.WithString("kind",
			mcp.Description("Filter by symbol kind: function, class, method, module, file"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	res, err := t.store.Search(query, req.GetString("kind", ""), intArg(req, "limit", 10))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}
