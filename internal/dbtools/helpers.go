// Package dbtools provides MCP tool handlers for the context index.
//
// Each tool handler follows the same pattern:
// - A struct with the index store injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers render results as JSON text. Index failures become tool-result
// errors carrying the structured {error, hint, path?} payload; a Go-level
// error from Handle is reserved for transport problems.
package dbtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/enginerr"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// patternsArg splits a comma-separated pattern list, trimming whitespace
// and dropping empty entries. Returns nil when the argument is absent.
func patternsArg(req mcp.CallToolRequest, key string) []string {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(payload))
}

// errorResult renders err as a tool-result error. Index errors keep their
// structured form so callers can branch on the error kind.
func errorResult(err error) *mcp.CallToolResult {
	var e *enginerr.Error
	if errors.As(err, &e) {
		payload, merr := json.Marshal(e)
		if merr == nil {
			return mcp.NewToolResultError(string(payload))
		}
	}
	return mcp.NewToolResultError(err.Error())
}
