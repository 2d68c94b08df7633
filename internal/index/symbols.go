package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"agentdb/internal/agtag"
	"agentdb/internal/enginerr"
)

// clearSymbols removes every symbol, FTS, and edge row for a path.
// Rebuilds always go through here first so the index never mixes old
// and new rows for one file.
func clearSymbols(tx *sql.Tx, repoPath string) error {
	rows, err := tx.Query(`SELECT id FROM symbols WHERE repo_path = ?`, repoPath)
	if err != nil {
		return fmt.Errorf("index: query symbols for clear: %w", err)
	}
	var ids []any
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		if _, err := tx.Exec(
			"DELETE FROM edges WHERE src_id IN ("+placeholders+")", ids...,
		); err != nil {
			return fmt.Errorf("index: clear outgoing edges: %w", err)
		}
		if _, err := tx.Exec(
			"DELETE FROM edges WHERE dst_id IN ("+placeholders+")", ids...,
		); err != nil {
			return fmt.Errorf("index: clear incoming edges: %w", err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE repo_path = ?`, repoPath); err != nil {
		return fmt.Errorf("index: clear symbols: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM symbols_fts WHERE repo_path = ?`, repoPath); err != nil {
		return fmt.Errorf("index: clear symbol fts: %w", err)
	}
	return nil
}

// rebuildSymbols replaces all symbol and edge rows for a path from its
// parsed metadata. code is the file text without the metadata block;
// line ranges and content hashes are computed against it.
func (s *Store) rebuildSymbols(tx *sql.Tx, repoPath string, tag *agtag.Tag, code string) error {
	if err := clearSymbols(tx, repoPath); err != nil {
		return err
	}

	lines := splitCodeLines(code)
	total := len(lines)

	for i := range tag.Symbols {
		sym := &tag.Symbols[i]
		var startLine, endLine any
		var contentHash string
		if sym.HasLines() {
			start, end := sym.Lines[0], sym.Lines[1]
			if start < 1 || end < start {
				return enginerr.Newf(enginerr.InvalidLineRange,
					"symbol %q has an invalid line range [%d, %d]", sym.Name, start, end).WithPath(repoPath)
			}
			if end > total {
				return enginerr.Newf(enginerr.InvalidLineRange,
					"symbol %q references lines beyond file length %d", sym.Name, total).WithPath(repoPath)
			}
			startLine, endLine = start, end
			contentHash = HashString(strings.Join(lines[start-1:end], "\n"))
		} else {
			contentHash = HashString(code)
		}

		var l3 any
		if sym.ASTExcerptL3 != nil {
			b, err := json.Marshal(sym.ASTExcerptL3)
			if err != nil {
				return enginerr.Newf(enginerr.AgtagSymbolInvalid,
					"symbol %q has an unencodable ast excerpt: %v", sym.Name, err).WithPath(repoPath)
			}
			l3 = string(b)
		}

		if _, err := tx.Exec(
			`INSERT INTO symbols (repo_path, name, kind, signature, start_line, end_line,
			                      content_hash, l0_overview, l1_contract, l2_pseudocode, l3_ast_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			repoPath, sym.Name, sym.Kind, nullable(sym.Signature), startLine, endLine,
			contentHash, nullable(sym.SummaryL0), nullable(sym.ContractL1), nullable(sym.PseudocodeL2), l3,
		); err != nil {
			return fmt.Errorf("index: insert symbol %s: %w", sym.Name, err)
		}
	}

	if len(tag.Symbols) > 0 {
		if _, err := tx.Exec(
			`INSERT INTO symbols_fts (rowid, repo_path, name, l0_overview, l1_contract)
			 SELECT id, repo_path, name, l0_overview, l1_contract FROM symbols WHERE repo_path = ?`,
			repoPath,
		); err != nil {
			return fmt.Errorf("index: populate symbol fts: %w", err)
		}
		if err := s.rebuildEdges(tx, repoPath, code); err != nil {
			return err
		}
	}
	return nil
}

// rebuildEdges derives intra-file calls/inherits edges from a
// structural parse. A missing analyzer or a parse failure yields zero
// edges instead of failing the ingest.
func (s *Store) rebuildEdges(tx *sql.Tx, repoPath, code string) error {
	an := s.analyzers.ForPath(repoPath)
	if an == nil {
		return nil
	}
	structure, err := an.Analyze([]byte(code))
	if err != nil {
		log.Printf("WARNING: structural parse of %s failed, skipping edges: %v", repoPath, err)
		return nil
	}

	nameToID, err := symbolIDsByName(tx, repoPath)
	if err != nil {
		return err
	}

	for _, ssym := range structure.Symbols {
		srcID, ok := nameToID[ssym.Name]
		if !ok {
			continue
		}
		var targets []string
		var edgeType string
		switch {
		case ssym.FunctionLike():
			targets, edgeType = ssym.Calls, "calls"
		case ssym.ClassLike():
			targets, edgeType = ssym.Bases, "inherits"
		default:
			continue
		}
		for _, target := range targets {
			dstID, ok := nameToID[target]
			if !ok || dstID == srcID {
				continue
			}
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO edges (src_id, dst_id, edge_type) VALUES (?, ?, ?)`,
				srcID, dstID, edgeType,
			); err != nil {
				return fmt.Errorf("index: insert edge %s: %w", edgeType, err)
			}
		}
	}
	return nil
}

func symbolIDsByName(tx *sql.Tx, repoPath string) (map[string]int64, error) {
	rows, err := tx.Query(`SELECT id, name FROM symbols WHERE repo_path = ? ORDER BY id ASC`, repoPath)
	if err != nil {
		return nil, fmt.Errorf("index: query symbol ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		// First row wins when names collide, matching lookup order.
		if _, dup := out[name]; !dup {
			out[name] = id
		}
	}
	return out, rows.Err()
}

// splitCodeLines splits file text into lines without a phantom empty
// line after a trailing newline.
func splitCodeLines(code string) []string {
	if code == "" {
		return nil
	}
	lines := strings.Split(code, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
