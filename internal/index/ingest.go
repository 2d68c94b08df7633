package index

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"agentdb/internal/agtag"
	"agentdb/internal/enginerr"
)

// IngestResult is the success payload of a file ingest.
type IngestResult struct {
	OK       bool   `json:"ok"`
	Path     string `json:"path"`
	FileHash string `json:"content_hash"`
}

// IngestFile ingests full file content under a repo-relative path. The
// file must be untracked: once indexed, changes go through Patch so
// incremental history is never discarded by a full rewrite. Content is
// normalized to a single trailing newline, written to disk, and the
// symbol rebuild plus file-state update commit as one transaction.
func (s *Store) IngestFile(repoPath, content string) (*IngestResult, error) {
	safePath, err := NormalizePath(repoPath)
	if err != nil {
		return nil, err
	}
	return s.ingestContent(safePath, content, true)
}

func (s *Store) ingestContent(safePath, content string, writeToDisk bool) (*IngestResult, error) {
	fr, err := s.lookupFile(safePath)
	if err != nil {
		return nil, err
	}
	if fr != nil && fr.DBState != "missing" {
		return nil, enginerr.New(enginerr.IndexedFileRejectsFullContent,
			"file is already indexed; use patch instead").WithPath(safePath)
	}

	code, block := agtag.Split(content)
	if block == "" {
		return nil, enginerr.New(enginerr.AgtagMissing,
			"append a metadata block at end of file").WithPath(safePath)
	}
	tag, err := agtag.Parse(block, safePath, s.cfg.limits())
	if err != nil {
		return nil, err
	}

	stored := content
	if writeToDisk {
		stored = strings.TrimRight(content, "\n") + "\n"
		target := s.diskPath(safePath)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, fmt.Errorf("index: create parent dir for %s: %w", safePath, err)
		}
		if err := os.WriteFile(target, []byte(stored), 0644); err != nil {
			return nil, fmt.Errorf("index: write %s: %w", safePath, err)
		}
	}
	fileHash := HashString(stored)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("index: begin ingest: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The files row must exist before symbol rows reference it.
	if err := upsertFile(tx, safePath, fileHash, "indexed"); err != nil {
		return nil, err
	}
	if err := s.rebuildSymbols(tx, safePath, tag, code); err != nil {
		return nil, err
	}
	if err := logOp(tx, "ingest_file", map[string]string{"path": safePath}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("index: commit ingest: %w", err)
	}

	return &IngestResult{OK: true, Path: safePath, FileHash: fileHash}, nil
}

// IngestFailure records one file that a bulk ingest could not process.
type IngestFailure struct {
	Path  string       `json:"path"`
	Error enginerr.Kind `json:"error"`
	Hint  string       `json:"hint"`
}

// DirectoryResult is the outcome of a bulk directory ingest.
type DirectoryResult struct {
	OK            bool            `json:"ok"`
	FilesIngested int             `json:"files_ingested"`
	Results       []IngestResult  `json:"results"`
	Errors        []IngestFailure `json:"errors,omitempty"`
}

// IngestDirectory ingests every file under dir (repo-relative) whose
// base name matches an include pattern and whose relative path matches
// no exclude pattern. Files are processed independently: one file's
// failure is reported but does not roll back files already committed.
func (s *Store) IngestDirectory(dir string, include, exclude []string) (*DirectoryResult, error) {
	// "." and "" name the repository root, which NormalizePath rejects
	// for single-file operations.
	safeDir := "."
	if dir != "" && dir != "." {
		var err error
		safeDir, err = NormalizePath(dir)
		if err != nil {
			return nil, err
		}
	}
	if len(include) == 0 {
		include = []string{"*"}
	}

	root := s.diskPath(safeDir)
	storeDir := filepath.Clean(filepath.Dir(s.cfg.StorePath))
	var candidates []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if filepath.Clean(p) == storeDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchesAny(include, path.Base(rel)) && !matchesAny(include, rel) {
			return nil
		}
		if matchesAny(exclude, rel) {
			return nil
		}
		candidates = append(candidates, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index: walk %s: %w", safeDir, err)
	}
	sort.Strings(candidates)

	result := &DirectoryResult{}
	for _, rel := range candidates {
		repoPath := path.Join(safeDir, rel)
		b, err := os.ReadFile(s.diskPath(repoPath))
		if err != nil {
			result.Errors = append(result.Errors, IngestFailure{
				Path: repoPath, Error: "read_failed", Hint: err.Error(),
			})
			continue
		}
		// Content already lives on disk; index it without rewriting.
		res, err := s.ingestContent(repoPath, string(b), false)
		if err != nil {
			result.Errors = append(result.Errors, failureFor(repoPath, err))
			continue
		}
		result.Results = append(result.Results, *res)
	}
	result.FilesIngested = len(result.Results)
	result.OK = len(result.Errors) == 0
	return result, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func failureFor(repoPath string, err error) IngestFailure {
	f := IngestFailure{Path: repoPath, Hint: err.Error()}
	if kind := enginerr.KindOf(err); kind != "" {
		f.Error = kind
	} else {
		f.Error = "ingest_failed"
	}
	return f
}
