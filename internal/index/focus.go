package index

import (
	"database/sql"
	"fmt"
	"sort"

	"agentdb/internal/enginerr"
)

// PrimarySymbol is the focus target with its first two disclosure levels.
type PrimarySymbol struct {
	ID         int64   `json:"id"`
	RepoPath   string  `json:"repo_path"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	L0Overview *string `json:"l0_overview"`
	L1Contract *string `json:"l1_contract"`
	StartLine  *int    `json:"start_line"`
	EndLine    *int    `json:"end_line"`
}

// Neighbor is a symbol reached during traversal, summarized.
type Neighbor struct {
	ID         int64   `json:"id"`
	RepoPath   string  `json:"repo_path"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	L0Overview *string `json:"l0_overview"`
}

// EdgeEndpoint identifies one side of a traversed edge.
type EdgeEndpoint struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	RepoPath string `json:"repo_path"`
}

// EdgeInfo is a traversed edge with resolved endpoints.
type EdgeInfo struct {
	Type   string       `json:"type"`
	Source EdgeEndpoint `json:"source"`
	Target EdgeEndpoint `json:"target"`
}

// FocusStats summarizes a traversal.
type FocusStats struct {
	SymbolsReturned int `json:"symbols_returned"`
	EdgesTraversed  int `json:"edges_traversed"`
	MaxDepthReached int `json:"max_depth_reached"`
}

// FocusResult is the full context-expansion payload. Neighbors are
// bucketed by the depth at which BFS first reached them ("depth_1",
// "depth_2", …); buckets and edges are sorted so identical queries over
// unchanged data return byte-identical output.
type FocusResult struct {
	Handle    string                `json:"handle"`
	Depth     int                   `json:"depth"`
	Filters   []string              `json:"filters"`
	Primary   PrimarySymbol         `json:"primary"`
	Neighbors map[string][]Neighbor `json:"neighbors"`
	Edges     []EdgeInfo            `json:"edges"`
	Stats     FocusStats            `json:"stats"`
}

type focusRow struct {
	id        int64
	repoPath  string
	name      string
	kind      string
	l0        sql.NullString
	l1        sql.NullString
	startLine sql.NullInt64
	endLine   sql.NullInt64
}

type edgeRow struct {
	srcID    int64
	dstID    int64
	edgeType string
}

// Focus runs a bounded BFS from the symbol named in the handle. Depth 0
// returns only the primary symbol. Only same-file neighbors are
// admitted, each at its first-reached depth. edgeTypes, when non-empty,
// restricts traversal to those edge types.
func (s *Store) Focus(rawHandle string, depth int, edgeTypes []string) (*FocusResult, error) {
	if depth < 0 {
		return nil, enginerr.New(enginerr.BadDepth, "depth must be >= 0")
	}
	if s.cfg.MaxFocusDepth > 0 && depth > s.cfg.MaxFocusDepth {
		depth = s.cfg.MaxFocusDepth
	}

	h, err := ParseHandle(rawHandle)
	if err != nil {
		return nil, err
	}
	if h.Symbol == WildcardSymbol {
		return nil, enginerr.New(enginerr.SymbolRequired,
			"provide a concrete symbol in the handle; ANY is only valid for zoom")
	}
	safePath, _, err := s.resolveHandle(h)
	if err != nil {
		return nil, err
	}

	primary, err := s.symbolByName(safePath, h.Symbol)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, enginerr.Newf(enginerr.SymbolNotFound,
			"no symbol %q indexed for this file", h.Symbol).WithPath(safePath)
	}

	result := &FocusResult{
		Handle:    rawHandle,
		Depth:     depth,
		Filters:   append([]string{}, edgeTypes...),
		Primary:   primaryPayload(primary),
		Neighbors: map[string][]Neighbor{},
		Edges:     []EdgeInfo{},
		Stats:     FocusStats{SymbolsReturned: 1},
	}
	if depth == 0 {
		return result, nil
	}

	typeFilter := make(map[string]struct{}, len(edgeTypes))
	for _, t := range edgeTypes {
		if t != "" {
			typeFilter[t] = struct{}{}
		}
	}

	symbolCache := map[int64]*focusRow{primary.id: primary}
	lookup := func(id int64) (*focusRow, error) {
		if cached, ok := symbolCache[id]; ok {
			return cached, nil
		}
		row, err := s.symbolByID(id)
		if err != nil {
			return nil, err
		}
		symbolCache[id] = row
		return row, nil
	}

	type queueItem struct {
		id    int64
		depth int
	}
	visited := map[int64]bool{primary.id: true}
	queue := []queueItem{{id: primary.id, depth: 0}}
	edgesSeen := map[[2]int64]map[string]bool{}
	maxDepth := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= depth {
			continue
		}

		edges, err := s.incidentEdges(current.id)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if len(typeFilter) > 0 {
				if _, ok := typeFilter[e.edgeType]; !ok {
					continue
				}
			}

			key := [2]int64{e.srcID, e.dstID}
			if edgesSeen[key] == nil {
				edgesSeen[key] = map[string]bool{}
			}
			if !edgesSeen[key][e.edgeType] {
				edgesSeen[key][e.edgeType] = true
				src, err := lookup(e.srcID)
				if err != nil {
					return nil, err
				}
				dst, err := lookup(e.dstID)
				if err != nil {
					return nil, err
				}
				if src != nil && dst != nil {
					result.Edges = append(result.Edges, EdgeInfo{
						Type:   e.edgeType,
						Source: EdgeEndpoint{ID: src.id, Name: src.name, RepoPath: src.repoPath},
						Target: EdgeEndpoint{ID: dst.id, Name: dst.name, RepoPath: dst.repoPath},
					})
				}
			}

			neighborID := e.dstID
			if current.id == e.dstID {
				neighborID = e.srcID
			}
			if visited[neighborID] {
				continue
			}
			neighbor, err := lookup(neighborID)
			if err != nil {
				return nil, err
			}
			if neighbor == nil || neighbor.repoPath != safePath {
				continue
			}
			nextDepth := current.depth + 1
			if nextDepth > depth {
				continue
			}
			visited[neighborID] = true
			queue = append(queue, queueItem{id: neighborID, depth: nextDepth})
			bucket := fmt.Sprintf("depth_%d", nextDepth)
			result.Neighbors[bucket] = append(result.Neighbors[bucket], neighborPayload(neighbor))
			if nextDepth > maxDepth {
				maxDepth = nextDepth
			}
		}
	}

	for _, bucket := range result.Neighbors {
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].Name != bucket[j].Name {
				return bucket[i].Name < bucket[j].Name
			}
			return bucket[i].Kind < bucket[j].Kind
		})
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		a, b := result.Edges[i], result.Edges[j]
		if a.Source.Name != b.Source.Name {
			return a.Source.Name < b.Source.Name
		}
		if a.Target.Name != b.Target.Name {
			return a.Target.Name < b.Target.Name
		}
		return a.Type < b.Type
	})

	for _, bucket := range result.Neighbors {
		result.Stats.SymbolsReturned += len(bucket)
	}
	result.Stats.EdgesTraversed = len(result.Edges)
	result.Stats.MaxDepthReached = maxDepth
	return result, nil
}

const focusSymbolColumns = `id, repo_path, name, kind, l0_overview, l1_contract, start_line, end_line`

func scanFocusRow(scan func(dest ...any) error) (*focusRow, error) {
	var r focusRow
	err := scan(&r.id, &r.repoPath, &r.name, &r.kind, &r.l0, &r.l1, &r.startLine, &r.endLine)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) symbolByName(repoPath, name string) (*focusRow, error) {
	row := s.db.QueryRow(
		`SELECT `+focusSymbolColumns+` FROM symbols
		 WHERE repo_path = ? AND name = ? ORDER BY id ASC LIMIT 1`,
		repoPath, name,
	)
	return scanFocusRow(row.Scan)
}

func (s *Store) symbolByID(id int64) (*focusRow, error) {
	row := s.db.QueryRow(
		`SELECT `+focusSymbolColumns+` FROM symbols WHERE id = ?`, id,
	)
	return scanFocusRow(row.Scan)
}

// incidentEdges returns edges touching a symbol in stable order so BFS
// admission order does not depend on storage layout.
func (s *Store) incidentEdges(symbolID int64) ([]edgeRow, error) {
	rows, err := s.db.Query(
		`SELECT src_id, dst_id, edge_type FROM edges
		 WHERE src_id = ? OR dst_id = ?
		 ORDER BY src_id ASC, dst_id ASC, edge_type ASC`,
		symbolID, symbolID,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query edges: %w", err)
	}
	defer rows.Close()

	var out []edgeRow
	for rows.Next() {
		var e edgeRow
		if err := rows.Scan(&e.srcID, &e.dstID, &e.edgeType); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func primaryPayload(r *focusRow) PrimarySymbol {
	return PrimarySymbol{
		ID:         r.id,
		RepoPath:   r.repoPath,
		Name:       r.name,
		Kind:       r.kind,
		L0Overview: nullStr(r.l0),
		L1Contract: nullStr(r.l1),
		StartLine:  nullInt(r.startLine),
		EndLine:    nullInt(r.endLine),
	}
}

func neighborPayload(r *focusRow) Neighbor {
	return Neighbor{
		ID:         r.id,
		RepoPath:   r.repoPath,
		Name:       r.name,
		Kind:       r.kind,
		L0Overview: nullStr(r.l0),
	}
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
