package index

import (
	"fmt"
	"os"
	"strings"

	"agentdb/internal/agtag"
	"agentdb/internal/enginerr"
	"agentdb/internal/patch"
)

// PatchResult is the success payload of a patch operation.
type PatchResult struct {
	OK       bool   `json:"ok"`
	Path     string `json:"path"`
	FileHash string `json:"content_hash"`
}

// ApplyPatch applies a unified diff to an indexed file. expectedHash is
// the caller's pre-image hash; a mismatch with the stored hash fails
// hash_conflict before anything is touched. The diff may carry a
// trailing final-file assertion, cross-checked against the patched
// result. On success the new content is written to disk and the symbol
// index rebuilt (or cleared, when the new content carries no metadata
// block) in one transaction with the new hash.
func (s *Store) ApplyPatch(repoPath, expectedHash, diffText string) (*PatchResult, error) {
	safePath, err := NormalizePath(repoPath)
	if err != nil {
		return nil, err
	}

	fr, err := s.lookupFile(safePath)
	if err != nil {
		return nil, err
	}
	if fr == nil || fr.DBState != "indexed" {
		return nil, enginerr.New(enginerr.NotIndexed, "ingest the file first").WithPath(safePath)
	}
	if fr.FileHash != expectedHash {
		return nil, enginerr.Newf(enginerr.HashConflict,
			"expected hash %s but store has %s; refresh and retry", expectedHash, fr.FileHash).WithPath(safePath)
	}

	finalFile, diffToApply, hasFinal, err := patch.ExtractFinalFile(diffText)
	if err != nil {
		return nil, err
	}

	originalBytes, err := os.ReadFile(s.diskPath(safePath))
	if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", safePath, err)
	}
	original := string(originalBytes)

	patched, err := patch.Apply(original, diffToApply, safePath)
	if err != nil {
		return nil, err
	}

	finalContent := patched
	if hasFinal {
		if err := patch.CheckFinalFile(patched, finalFile); err != nil {
			return nil, err
		}
		finalContent = finalFile
	}
	finalContent = strings.TrimRight(finalContent, "\n") + "\n"

	if err := os.WriteFile(s.diskPath(safePath), []byte(finalContent), 0644); err != nil {
		return nil, fmt.Errorf("index: write %s: %w", safePath, err)
	}
	newHash := HashString(finalContent)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("index: begin patch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	code, block := agtag.Split(finalContent)
	if block != "" {
		tag, err := agtag.Parse(block, safePath, s.cfg.limits())
		if err != nil {
			return nil, err
		}
		if err := s.rebuildSymbols(tx, safePath, tag, code); err != nil {
			return nil, err
		}
	} else {
		// Metadata block removed by the patch: the file stays tracked
		// but exposes no symbols until re-tagged.
		if err := clearSymbols(tx, safePath); err != nil {
			return nil, err
		}
	}

	if err := upsertFile(tx, safePath, newHash, "indexed"); err != nil {
		return nil, err
	}
	if err := logOp(tx, "patch", map[string]string{"path": safePath}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("index: commit patch: %w", err)
	}

	return &PatchResult{OK: true, Path: safePath, FileHash: newHash}, nil
}
