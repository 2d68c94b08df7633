package dbtools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"agentdb/internal/agtag"
	"agentdb/internal/index"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestStore creates an index.Store in a temp directory for testing.
func newTestStore(t *testing.T) *index.Store {
	t.Helper()
	cfg := index.DefaultConfig()
	cfg.RootDir = t.TempDir()
	cfg.StorePath = filepath.Join(cfg.RootDir, ".agentdb", "index.db")
	store, err := index.Open(cfg)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustNotError(t *testing.T, result *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("tool result error: %s", resultText(result))
	}
}

// taggedContent appends a one-symbol metadata block to code.
func taggedContent(t *testing.T, code, name, kind string) string {
	t.Helper()
	content, err := agtag.Append(code, &agtag.Tag{
		Version: "v1",
		Symbols: []agtag.Symbol{{Name: name, Kind: kind, SummaryL0: "A " + kind + "."}},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return content
}

func ingestFixture(t *testing.T, store *index.Store) string {
	t.Helper()
	res, err := store.IngestFile("lib/util.py", taggedContent(t, "def util():\n    pass\n", "util", "function"))
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	return res.FileHash
}

// ─── IngestTool ──────────────────────────────────────────────────────────────

func TestIngestTool_Definition(t *testing.T) {
	tool := NewIngestTool(newTestStore(t))
	def := tool.Definition()

	if def.Name != "ingest" {
		t.Errorf("tool name = %q, want %q", def.Name, "ingest")
	}
	props := def.InputSchema.Properties
	if _, ok := props["path"]; !ok {
		t.Error("missing 'path' parameter")
	}
	if _, ok := props["content"]; !ok {
		t.Error("missing 'content' parameter")
	}
}

func TestIngestTool_Success(t *testing.T) {
	store := newTestStore(t)
	tool := NewIngestTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"path":    "lib/util.py",
		"content": taggedContent(t, "def util():\n    pass\n", "util", "function"),
	}))
	mustNotError(t, result, err)

	var payload struct {
		OK       bool   `json:"ok"`
		Path     string `json:"path"`
		FileHash string `json:"content_hash"`
	}
	if err := json.Unmarshal([]byte(resultText(result)), &payload); err != nil {
		t.Fatalf("result not JSON: %v\n%s", err, resultText(result))
	}
	if !payload.OK || payload.Path != "lib/util.py" || !strings.HasPrefix(payload.FileHash, "sha256:") {
		t.Errorf("payload = %+v", payload)
	}
}

func TestIngestTool_MissingArgs(t *testing.T) {
	tool := NewIngestTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool-result error for missing path")
	}
}

func TestIngestTool_EngineErrorPayload(t *testing.T) {
	store := newTestStore(t)
	tool := NewIngestTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"path":    "plain.md",
		"content": "no metadata block\n",
	}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool-result error")
	}

	var payload struct {
		Error string `json:"error"`
		Hint  string `json:"hint"`
	}
	if jerr := json.Unmarshal([]byte(resultText(result)), &payload); jerr != nil {
		t.Fatalf("error payload not JSON: %v\n%s", jerr, resultText(result))
	}
	if payload.Error != "agtag_missing" || payload.Hint == "" {
		t.Errorf("payload = %+v", payload)
	}
}

// ─── PatchTool ───────────────────────────────────────────────────────────────

func TestPatchTool_StaleHash(t *testing.T) {
	store := newTestStore(t)
	ingestFixture(t, store)
	tool := NewPatchTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"path":          "lib/util.py",
		"expected_hash": "sha256:0000",
		"diff":          "--- a/lib/util.py\n+++ b/lib/util.py\n@@ -1,1 +1,1 @@\n-x\n+y\n",
	}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(result), "hash_conflict") {
		t.Errorf("result = %s", resultText(result))
	}
}

// ─── ZoomTool / FocusTool ────────────────────────────────────────────────────

func TestZoomTool_Wildcard(t *testing.T) {
	store := newTestStore(t)
	ingestFixture(t, store)
	tool := NewZoomTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"handle": "ctx://lib/util.py::ANY@sha256:ANY",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "A function.") {
		t.Errorf("zoom payload missing overview: %s", resultText(result))
	}
}

func TestFocusTool_WildcardSymbolRejected(t *testing.T) {
	store := newTestStore(t)
	ingestFixture(t, store)
	tool := NewFocusTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"handle": "ctx://lib/util.py::ANY@sha256:ANY",
	}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(result), "symbol_required") {
		t.Errorf("result = %s", resultText(result))
	}
}

// ─── SearchTool / InventoryTool ──────────────────────────────────────────────

func TestSearchTool_FindsSymbol(t *testing.T) {
	store := newTestStore(t)
	ingestFixture(t, store)
	tool := NewSearchTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "util",
	}))
	mustNotError(t, result, err)

	var payload struct {
		Count int `json:"count"`
	}
	if jerr := json.Unmarshal([]byte(resultText(result)), &payload); jerr != nil {
		t.Fatalf("result not JSON: %v", jerr)
	}
	if payload.Count != 1 {
		t.Errorf("count = %d, want 1", payload.Count)
	}
}

func TestInventoryTool_ListsFiles(t *testing.T) {
	store := newTestStore(t)
	ingestFixture(t, store)
	tool := NewInventoryTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)
	text := resultText(result)
	if !strings.Contains(text, "lib/util.py") || !strings.Contains(text, "in_sync") {
		t.Errorf("inventory payload = %s", text)
	}
}

// ─── MigrateTool ─────────────────────────────────────────────────────────────

func TestMigrateTool_Status(t *testing.T) {
	store := newTestStore(t)
	tool := NewMigrateTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)

	var payload struct {
		CurrentVersion int               `json:"current_version"`
		Pending        []json.RawMessage `json:"pending"`
	}
	if jerr := json.Unmarshal([]byte(resultText(result)), &payload); jerr != nil {
		t.Fatalf("result not JSON: %v\n%s", jerr, resultText(result))
	}
	if payload.CurrentVersion == 0 {
		t.Error("fresh store should report a nonzero schema version")
	}
	if len(payload.Pending) != 0 {
		t.Errorf("pending = %d, want 0", len(payload.Pending))
	}
}

func TestMigrateTool_UnknownAction(t *testing.T) {
	store := newTestStore(t)
	tool := NewMigrateTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"action": "sideways",
	}))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool-result error for unknown action")
	}
}
