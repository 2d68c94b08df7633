// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the index store and injects it
// into the tool and resource handlers. No business logic lives here —
// only wiring.
package server

import (
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"agentdb/internal/config"
	"agentdb/internal/dbtools"
	"agentdb/internal/index"
	"agentdb/internal/prompts"
	"agentdb/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools and resources
// registered. This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the index store's database
// connection and must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even if setup failed.
func New() (*server.MCPServer, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, noop, err
	}

	store, err := index.Open(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("opening index store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("WARNING: index store close: %v", err)
		}
	}

	s := server.NewMCPServer(
		"agentdb",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerIndexTools(s, store)

	onboardPrompt := prompts.NewOnboardPrompt()
	s.AddPrompt(onboardPrompt.Definition(), onboardPrompt.Handle)

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when setup failed
// before the store was opened.
func noop() {}

// registerIndexTools registers the index MCP tools with the server.
func registerIndexTools(s *server.MCPServer, store *index.Store) {
	// --- Write path ---
	ingestTool := dbtools.NewIngestTool(store)
	s.AddTool(ingestTool.Definition(), ingestTool.Handle)

	ingestDirTool := dbtools.NewIngestDirectoryTool(store)
	s.AddTool(ingestDirTool.Definition(), ingestDirTool.Handle)

	patchTool := dbtools.NewPatchTool(store)
	s.AddTool(patchTool.Definition(), patchTool.Handle)

	// --- Read path ---
	focusTool := dbtools.NewFocusTool(store)
	s.AddTool(focusTool.Definition(), focusTool.Handle)

	zoomTool := dbtools.NewZoomTool(store)
	s.AddTool(zoomTool.Definition(), zoomTool.Handle)

	searchTool := dbtools.NewSearchTool(store)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	inventoryTool := dbtools.NewInventoryTool(store)
	s.AddTool(inventoryTool.Definition(), inventoryTool.Handle)

	// --- Maintenance ---
	migrateTool := dbtools.NewMigrateTool(store)
	s.AddTool(migrateTool.Definition(), migrateTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use the context index effectively.
func serverInstructions() string {
	return `You have access to agentdb, a context index for codebases.

## What it is
agentdb tracks files whose content ends with an AGTAG metadata block — a JSON
document describing the file's symbols at several detail levels (overview,
contract, pseudocode, AST excerpt). The index stores each file's hash and
builds a symbol graph (calls/inherits edges) you can query cheaply instead of
re-reading whole files.

## Handles
Symbols are addressed by handle: ctx://path::symbol@sha256:HASH
- path is repository-relative with forward slashes
- HASH is the file hash returned by ingest/patch/inventory
- sha256:ANY skips the hash check (zoom and focus)
- symbol ANY picks the file's first symbol (zoom only)

## Workflow
1. NEW file: call ingest with the full content, AGTAG block included.
   The tool writes the file to disk and returns its hash. Never call ingest
   for a file that is already indexed — it will be rejected.
2. EXISTING file: call patch with a unified diff and the expected_hash you
   hold. A hash_conflict means your view is stale: re-read, regenerate the
   diff, retry. Include the updated AGTAG block in the diff when symbols
   change.
3. EXPLORING: use search to find symbols by keyword, zoom to read a symbol
   at the cheapest sufficient level (start at 0, escalate only when needed),
   and focus to walk the relationship graph around a symbol.
4. AUDIT: inventory shows which files drifted out of sync with the index.
5. SCHEMA: migrate reports and applies database schema versions. If tools
   fail with db_version_mismatch, run migrate with action "up".

## Error handling
Failures return a JSON payload {error, hint, path?}. The hint tells you how
to recover — follow it instead of retrying the same call.

## Writing AGTAG blocks
Append exactly one block at the end of the file:

<!--AGTAG v1 START-->
{"version":"v1","symbols":[{"name":"parse","kind":"function","lines":[10,42],
"summary_l0":"One-sentence overview.","contract_l1":"Signature, inputs, outputs, errors."}]}
<!--AGTAG v1 END-->

- lines is [start, end], 1-based and inclusive, covering the symbol's source
- summary_l0 and contract_l1 are what search and zoom levels 0-1 return —
  write them for every symbol you want discoverable
- pseudocode_l2 and ast_excerpt_l3 are optional deeper levels`
}
