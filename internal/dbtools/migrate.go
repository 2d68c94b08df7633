package dbtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
	"agentdb/internal/migrate"
)

// MigrateTool handles the migrate MCP tool.
type MigrateTool struct {
	store *index.Store
}

// NewMigrateTool creates a MigrateTool.
func NewMigrateTool(store *index.Store) *MigrateTool {
	return &MigrateTool{store: store}
}

// Definition returns the MCP tool definition for migrate.
func (t *MigrateTool) Definition() mcp.Tool {
	return mcp.NewTool("migrate",
		mcp.WithDescription(
			"Inspect or change the database schema version. Action 'status' "+
				"shows applied and pending migrations, 'up' applies pending ones "+
				"(backing up the database first), 'rollback' reverts the latest "+
				"applied migration.",
		),
		mcp.WithString("action",
			mcp.Description("status (default), up, or rollback"),
		),
		mcp.WithNumber("target",
			mcp.Description("For 'up': stop at this version (default: latest). For 'rollback': the version to revert, which must be the latest applied."),
		),
	)
}

type migrateStatus struct {
	CurrentVersion int               `json:"current_version"`
	Applied        []migrate.Applied `json:"applied"`
	Pending        []migrate.Step    `json:"pending"`
}

type migrateUpResult struct {
	OK      bool              `json:"ok"`
	Applied []migrate.Applied `json:"applied"`
	Version int               `json:"version"`
}

type migrateRollbackResult struct {
	OK      bool `json:"ok"`
	Version int  `json:"version"`
}

// Handle processes the migrate tool call.
func (t *MigrateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runner := t.store.Migrator()
	action := req.GetString("action", "status")
	target := intArg(req, "target", 0)

	switch action {
	case "status":
		applied, err := runner.AppliedVersions()
		if err != nil {
			return errorResult(err), nil
		}
		current, err := runner.CurrentVersion()
		if err != nil {
			return errorResult(err), nil
		}
		pending, err := runner.Plan(0)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(migrateStatus{CurrentVersion: current, Applied: applied, Pending: pending}), nil

	case "up":
		applied, err := runner.Apply(target)
		if err != nil {
			return errorResult(err), nil
		}
		current, err := runner.CurrentVersion()
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(migrateUpResult{OK: true, Applied: applied, Version: current}), nil

	case "rollback":
		if target <= 0 {
			current, err := runner.CurrentVersion()
			if err != nil {
				return errorResult(err), nil
			}
			target = current
		}
		if err := runner.Rollback(target); err != nil {
			return errorResult(err), nil
		}
		current, err := runner.CurrentVersion()
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(migrateRollbackResult{OK: true, Version: current}), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q: use status, up, or rollback", action)), nil
	}
}
