package index

import "fmt"

// InventoryEntry is one tracked file's sync status against disk.
type InventoryEntry struct {
	RepoPath     string  `json:"repo_path"`
	FileHash     string  `json:"file_hash"`
	DBState      string  `json:"db_state"`
	LastSeen     string  `json:"last_seen"`
	ExistsOnDisk bool    `json:"exists_on_disk"`
	DiskHash     *string `json:"disk_hash"`
	HashMatches  bool    `json:"hash_matches"`
	Status       string  `json:"status"`
}

// InventorySummary aggregates counts across an inventory listing.
type InventorySummary struct {
	ByState  map[string]int `json:"by_state"`
	ByStatus map[string]int `json:"by_status"`
	Total    int            `json:"total"`
}

// InventoryResult lists tracked files ordered by path, with optional
// aggregate counts.
type InventoryResult struct {
	Files   []InventoryEntry  `json:"files"`
	Summary *InventorySummary `json:"summary,omitempty"`
}

// Inventory compares every tracked file against its on-disk content.
// Status is one of in_sync, stale_on_disk, missing_on_disk, or
// missing_in_db (a row that never reached indexed state).
func (s *Store) Inventory(withSummary bool) (*InventoryResult, error) {
	rows, err := s.db.Query(
		`SELECT repo_path, file_hash, db_state, last_seen FROM files ORDER BY repo_path ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query files: %w", err)
	}
	defer rows.Close()

	result := &InventoryResult{Files: []InventoryEntry{}}
	summary := &InventorySummary{ByState: map[string]int{}, ByStatus: map[string]int{}}

	for rows.Next() {
		var e InventoryEntry
		if err := rows.Scan(&e.RepoPath, &e.FileHash, &e.DBState, &e.LastSeen); err != nil {
			return nil, err
		}

		diskHash, err := HashFile(s.diskPath(e.RepoPath))
		if err != nil {
			return nil, fmt.Errorf("index: hash %s: %w", e.RepoPath, err)
		}
		e.ExistsOnDisk = diskHash != ""
		if e.ExistsOnDisk {
			h := diskHash
			e.DiskHash = &h
		}
		e.HashMatches = e.FileHash != "" && diskHash != "" && e.FileHash == diskHash

		switch {
		case e.DBState == "missing":
			e.Status = "missing_in_db"
		case !e.ExistsOnDisk:
			e.Status = "missing_on_disk"
		case e.HashMatches:
			e.Status = "in_sync"
		default:
			e.Status = "stale_on_disk"
		}

		summary.ByState[e.DBState]++
		summary.ByStatus[e.Status]++
		result.Files = append(result.Files, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary.Total = len(result.Files)
	if withSummary {
		result.Summary = summary
	}
	return result, nil
}
