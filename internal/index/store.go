// Package index implements the persistent symbol index engine.
//
// It tracks repository files by content hash, rebuilds symbol and edge
// rows from the metadata block trailing each file, and answers graph
// and disclosure queries over the result. SQLite with FTS5 is the
// backing store; every mutating operation commits as one transaction.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"agentdb/internal/agtag"
	"agentdb/internal/analyzer"
	"agentdb/internal/enginerr"
	"agentdb/internal/migrate"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds engine configuration. All limits are explicit; there are
// no process-wide globals.
type Config struct {
	// RootDir is the repository root all tracked paths are relative to.
	RootDir string
	// StorePath is the SQLite database file.
	StorePath string
	// MaxMetadataBytes bounds the JSON payload of a metadata block.
	MaxMetadataBytes int
	// MaxNestingDepth bounds container nesting inside that payload.
	MaxNestingDepth int
	// MaxFocusDepth clamps graph traversal depth.
	MaxFocusDepth int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		RootDir:          ".",
		StorePath:        filepath.Join(".agentdb", "index.db"),
		MaxMetadataBytes: 100_000,
		MaxNestingDepth:  10,
		MaxFocusDepth:    5,
	}
}

func (c Config) limits() agtag.Limits {
	return agtag.Limits{MaxBytes: c.MaxMetadataBytes, MaxDepth: c.MaxNestingDepth}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the symbol index engine backed by SQLite + FTS5.
type Store struct {
	db        *sql.DB
	cfg       Config
	analyzers *analyzer.Registry
}

// Open opens (creating if needed) the index database and verifies its
// schema version. A fresh database gets all migrations applied; an
// existing database with pending migrations is refused so the caller
// can run an explicit migrate.
func Open(cfg Config) (*Store, error) {
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0700); err != nil {
		return nil, fmt.Errorf("index: create store dir: %w", err)
	}

	_, statErr := os.Stat(cfg.StorePath)
	fresh := os.IsNotExist(statErr)

	db, err := openDB("sqlite", cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("index: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("index: pragma %q: %w", p, err)
		}
	}

	runner := migrate.NewRunner(db, cfg.StorePath, migrate.Builtin())
	if fresh {
		if _, err := runner.Apply(0); err != nil {
			db.Close()
			return nil, fmt.Errorf("index: initialize schema: %w", err)
		}
	} else {
		if err := runner.Verify(); err != nil {
			db.Close()
			return nil, err
		}
		pending, err := runner.Pending(0)
		if err != nil {
			db.Close()
			return nil, err
		}
		if len(pending) > 0 {
			db.Close()
			return nil, enginerr.Newf(enginerr.DBVersionMismatch,
				"database schema is outdated: %d pending migrations; run migrate to upgrade", len(pending))
		}
	}

	return &Store{db: db, cfg: cfg, analyzers: analyzer.NewDefaultRegistry()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrator returns a migration runner bound to this store's database,
// for the explicit migrate operation.
func (s *Store) Migrator() *migrate.Runner {
	return migrate.NewRunner(s.db, s.cfg.StorePath, migrate.Builtin())
}

// diskPath resolves a repo-relative path to its on-disk location.
func (s *Store) diskPath(repoPath string) string {
	return filepath.Join(s.cfg.RootDir, filepath.FromSlash(repoPath))
}

// fileRow is a tracked-file record. State is "missing" until the first
// successful ingest, then "indexed" forever after.
type fileRow struct {
	RepoPath string
	FileHash string
	DBState  string
	LastSeen string
}

func (s *Store) lookupFile(repoPath string) (*fileRow, error) {
	var fr fileRow
	err := s.db.QueryRow(
		`SELECT repo_path, file_hash, db_state, last_seen FROM files WHERE repo_path = ?`,
		repoPath,
	).Scan(&fr.RepoPath, &fr.FileHash, &fr.DBState, &fr.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: lookup file %s: %w", repoPath, err)
	}
	return &fr, nil
}

func upsertFile(tx *sql.Tx, repoPath, fileHash, state string) error {
	_, err := tx.Exec(
		`INSERT INTO files (repo_path, file_hash, db_state) VALUES (?, ?, ?)
		 ON CONFLICT(repo_path) DO UPDATE SET
		   file_hash = excluded.file_hash,
		   db_state  = excluded.db_state,
		   last_seen = datetime('now')`,
		repoPath, fileHash, state,
	)
	if err != nil {
		return fmt.Errorf("index: upsert file %s: %w", repoPath, err)
	}
	return nil
}
