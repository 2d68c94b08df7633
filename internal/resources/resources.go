// Package resources implements MCP resource handlers for the context index.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (agentdb://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/index"
)

// Handler manages index resource endpoints.
type Handler struct {
	store *index.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *index.Store) *Handler {
	return &Handler{store: store}
}

// StatusResource returns the MCP resource definition for index status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"agentdb://index/status",
		"Context Index Status",
		mcp.WithResourceDescription("Schema version plus per-file sync state between the index and the working tree"),
		mcp.WithMIMEType("application/json"),
	)
}

type statusPayload struct {
	SchemaVersion int                    `json:"schema_version"`
	Files         int                    `json:"files"`
	ByStatus      map[string]int         `json:"by_status"`
	Inventory     *index.InventoryResult `json:"inventory"`
}

// HandleStatus returns the current index status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	version, err := h.store.Migrator().CurrentVersion()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	inv, err := h.store.Inventory(true)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(statusPayload{
		SchemaVersion: version,
		Files:         inv.Summary.Total,
		ByStatus:      inv.Summary.ByStatus,
		Inventory:     inv,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
