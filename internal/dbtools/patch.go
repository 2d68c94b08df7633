package dbtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// PatchTool handles the patch MCP tool.
type PatchTool struct {
	store *index.Store
}

// NewPatchTool creates a PatchTool.
func NewPatchTool(store *index.Store) *PatchTool {
	return &PatchTool{store: store}
}

// Definition returns the MCP tool definition for patch.
func (t *PatchTool) Definition() mcp.Tool {
	return mcp.NewTool("patch",
		mcp.WithDescription(
			"Modify an indexed file with a unified diff. The expected_hash must "+
				"match the stored file hash; a mismatch means your view is stale — "+
				"re-read the file and regenerate the diff. On success the file is "+
				"rewritten on disk and its symbol index rebuilt.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Repository-relative path of an indexed file"),
		),
		mcp.WithString("expected_hash",
			mcp.Required(),
			mcp.Description("Stored file hash (sha256:…) the diff was generated against"),
		),
		mcp.WithString("diff",
			mcp.Required(),
			mcp.Description("Unified diff text with ---/+++ headers and @@ hunks"),
		),
	)
}

// Handle processes the patch tool call.
func (t *PatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	expectedHash := req.GetString("expected_hash", "")
	if expectedHash == "" {
		return mcp.NewToolResultError("'expected_hash' is required"), nil
	}
	diff := req.GetString("diff", "")
	if diff == "" {
		return mcp.NewToolResultError("'diff' is required"), nil
	}

	res, err := t.store.ApplyPatch(path, expectedHash, diff)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}
