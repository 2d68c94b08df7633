package index

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// OpRecord is one append-only operations-log row.
type OpRecord struct {
	ID        string          `json:"id"`
	Op        string          `json:"op"`
	Details   json.RawMessage `json:"details"`
	CreatedAt string          `json:"created_at"`
}

// logOp appends an ops_log row inside the mutating transaction, so the
// log entry commits or rolls back with the operation it records.
func logOp(tx *sql.Tx, op string, details any) error {
	b, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("index: encode op details: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO ops_log (id, op, details) VALUES (?, ?, ?)`,
		uuid.NewString(), op, string(b),
	); err != nil {
		return fmt.Errorf("index: append ops log: %w", err)
	}
	return nil
}

// RecentOps returns the newest operations-log entries, newest first.
func (s *Store) RecentOps(limit int) ([]OpRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, op, details, created_at FROM ops_log
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("index: query ops log: %w", err)
	}
	defer rows.Close()

	var out []OpRecord
	for rows.Next() {
		var r OpRecord
		var details string
		if err := rows.Scan(&r.ID, &r.Op, &details, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Details = json.RawMessage(details)
		out = append(out, r)
	}
	return out, rows.Err()
}
