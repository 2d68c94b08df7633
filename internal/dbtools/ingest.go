package dbtools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// IngestTool handles the ingest MCP tool.
type IngestTool struct {
	store *index.Store
}

// NewIngestTool creates an IngestTool.
func NewIngestTool(store *index.Store) *IngestTool {
	return &IngestTool{store: store}
}

// Definition returns the MCP tool definition for ingest.
func (t *IngestTool) Definition() mcp.Tool {
	return mcp.NewTool("ingest",
		mcp.WithDescription(
			"Index a new file. The content must end with an AGTAG metadata block "+
				"describing its symbols. Writes the file to disk, records its hash, "+
				"and builds the symbol index. Already-indexed files are rejected — "+
				"use patch to modify them.",
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Repository-relative file path, forward slashes"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full file content including the trailing AGTAG block"),
		),
	)
}

// Handle processes the ingest tool call.
func (t *IngestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	res, err := t.store.IngestFile(path, content)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}

// IngestDirectoryTool handles the ingest_directory MCP tool.
type IngestDirectoryTool struct {
	store *index.Store
}

// NewIngestDirectoryTool creates an IngestDirectoryTool.
func NewIngestDirectoryTool(store *index.Store) *IngestDirectoryTool {
	return &IngestDirectoryTool{store: store}
}

// Definition returns the MCP tool definition for ingest_directory.
func (t *IngestDirectoryTool) Definition() mcp.Tool {
	return mcp.NewTool("ingest_directory",
		mcp.WithDescription(
			"Index every matching file under a directory that already lives on disk. "+
				"Files are indexed in place without rewriting. Each file succeeds or "+
				"fails independently; the result lists both.",
		),
		mcp.WithString("dir",
			mcp.Required(),
			mcp.Description("Repository-relative directory to walk"),
		),
		mcp.WithString("include",
			mcp.Description("Comma-separated glob patterns to include (default: *)"),
		),
		mcp.WithString("exclude",
			mcp.Description("Comma-separated glob patterns to skip, matched against the path relative to dir"),
		),
	)
}

// Handle processes the ingest_directory tool call.
func (t *IngestDirectoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("dir", "")
	if dir == "" {
		return mcp.NewToolResultError("'dir' is required"), nil
	}

	res, err := t.store.IngestDirectory(dir, patternsArg(req, "include"), patternsArg(req, "exclude"))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res), nil
}
