package index

import (
	"database/sql"
	"fmt"
)

// SearchHit is one full-text match over the symbol index.
type SearchHit struct {
	RepoPath    string  `json:"repo_path"`
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	StartLine   *int    `json:"start_line"`
	EndLine     *int    `json:"end_line"`
	L0Overview  *string `json:"l0_overview"`
	L1Contract  *string `json:"l1_contract"`
	ContentHash string  `json:"content_hash"`
	Rank        float64 `json:"rank"`
}

// SearchResult is the payload of a symbol search.
type SearchResult struct {
	Query      string      `json:"query"`
	KindFilter string      `json:"kind_filter,omitempty"`
	Count      int         `json:"count"`
	Limit      int         `json:"limit"`
	Results    []SearchHit `json:"results"`
}

// Search runs FTS5 full-text search over symbol names, overviews, and
// contracts, optionally filtered by kind, ranked by relevance.
func (s *Store) Search(query, kind string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	sqlStr := `
		SELECT s.repo_path, s.name, s.kind, s.start_line, s.end_line,
		       s.l0_overview, s.l1_contract, s.content_hash, fts.rank
		FROM symbols_fts fts
		JOIN symbols s ON s.id = fts.rowid
		WHERE symbols_fts MATCH ?
	`
	args := []any{query}
	if kind != "" {
		sqlStr += " AND s.kind = ?"
		args = append(args, kind)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("index: fts query: %w", err)
	}
	defer rows.Close()

	result := &SearchResult{Query: query, KindFilter: kind, Limit: limit, Results: []SearchHit{}}
	for rows.Next() {
		var hit SearchHit
		var startLine, endLine sql.NullInt64
		var l0, l1 sql.NullString
		if err := rows.Scan(
			&hit.RepoPath, &hit.Name, &hit.Kind, &startLine, &endLine,
			&l0, &l1, &hit.ContentHash, &hit.Rank,
		); err != nil {
			return nil, fmt.Errorf("index: scan search hit: %w", err)
		}
		hit.StartLine = nullInt(startLine)
		hit.EndLine = nullInt(endLine)
		hit.L0Overview = nullStr(l0)
		hit.L1Contract = nullStr(l1)
		result.Results = append(result.Results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.Count = len(result.Results)
	return result, nil
}
