package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"agentdb/internal/enginerr"
)

// ZoomResult carries a symbol's disclosure levels up to the requested
// one. L0/L1 are always present; L2 appears at level >= 2, L3 at >= 3
// (decoded from its stored JSON), L4 at >= 4 as the live source slice
// read from disk. L4 is resolved on demand and never stored; a read
// failure is reported in l4_error rather than failing the zoom.
type ZoomResult struct {
	Handle string         `json:"handle"`
	Level  int            `json:"level"`
	Data   map[string]any `json:"data"`
}

// Zoom resolves a handle to one symbol and returns its levels. The ANY
// wildcard selects the file's first symbol. A #l<level> fragment on the
// handle takes precedence over the level argument.
func (s *Store) Zoom(rawHandle string, level int) (*ZoomResult, error) {
	h, err := ParseHandle(rawHandle)
	if err != nil {
		return nil, err
	}
	if h.Level >= 0 {
		level = h.Level
	}
	if level < 0 || level > 4 {
		return nil, enginerr.New(enginerr.BadLevel, "level must be between 0 and 4")
	}
	safePath, _, err := s.resolveHandle(h)
	if err != nil {
		return nil, err
	}

	var (
		l0, l1, l2, l3     sql.NullString
		startLine, endLine sql.NullInt64
		name               string
	)
	err = s.db.QueryRow(
		`SELECT name, l0_overview, l1_contract, l2_pseudocode, l3_ast_json, start_line, end_line
		 FROM symbols
		 WHERE repo_path = ? AND (name = ? OR ? = ?)
		 ORDER BY id ASC LIMIT 1`,
		safePath, h.Symbol, h.Symbol, WildcardSymbol,
	).Scan(&name, &l0, &l1, &l2, &l3, &startLine, &endLine)
	if err == sql.ErrNoRows {
		return nil, enginerr.Newf(enginerr.SymbolNotFound,
			"no symbol %q indexed for this file", h.Symbol).WithPath(safePath)
	}
	if err != nil {
		return nil, fmt.Errorf("index: zoom lookup: %w", err)
	}

	data := map[string]any{
		"l0": nullStr(l0),
		"l1": nullStr(l1),
	}
	if level >= 2 {
		data["l2"] = nullStr(l2)
	}
	if level >= 3 {
		raw := "{}"
		if l3.Valid && l3.String != "" {
			raw = l3.String
		}
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			decoded = map[string]any{}
		}
		data["l3"] = decoded
	}
	if level >= 4 {
		slice, err := s.sourceSlice(safePath, startLine, endLine)
		if err != nil {
			data["l4_error"] = err.Error()
		} else {
			data["l4"] = slice
		}
	}

	return &ZoomResult{Handle: rawHandle, Level: level, Data: data}, nil
}

// sourceSlice reads the symbol's line range from disk, defaulting to
// the whole file when the symbol is unranged.
func (s *Store) sourceSlice(repoPath string, startLine, endLine sql.NullInt64) (string, error) {
	b, err := os.ReadFile(s.diskPath(repoPath))
	if err != nil {
		return "", err
	}
	lines := splitCodeLines(string(b))
	start, end := 1, len(lines)
	if startLine.Valid {
		start = int(startLine.Int64)
	}
	if endLine.Valid {
		end = int(endLine.Int64)
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", nil
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}
