package index

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"agentdb/internal/enginerr"
)

// WildcardSymbol is the symbol placeholder accepted by zoom (first
// symbol of the file) and rejected by focus.
const WildcardSymbol = "ANY"

// WildcardHash skips the stored-hash check in a handle.
const WildcardHash = "sha256:ANY"

// Handle is a parsed ctx:// reference:
// ctx://<repo-path>::<symbol-or-ANY>@<hash-or-sha256:ANY>[#l<level>].
type Handle struct {
	RepoPath string
	Symbol   string
	Hash     string
	// Level is the optional disclosure level suffix, -1 when absent.
	Level int
}

var handleRe = regexp.MustCompile(`^ctx://(.+?)::(.+?)@([^#]+)(?:#l(\d+))?$`)

// ParseHandle parses a ctx:// handle string.
func ParseHandle(raw string) (*Handle, error) {
	m := handleRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, enginerr.New(enginerr.HandleInvalid,
			"expected format ctx://path::symbol@sha256:HASH[#lN]")
	}
	h := &Handle{RepoPath: m[1], Symbol: m[2], Hash: m[3], Level: -1}
	if m[4] != "" {
		lvl, err := strconv.Atoi(m[4])
		if err != nil {
			return nil, enginerr.New(enginerr.HandleInvalid, "level suffix is not a number")
		}
		h.Level = lvl
	}
	return h, nil
}

// String renders the handle back to its wire form.
func (h *Handle) String() string {
	s := fmt.Sprintf("ctx://%s::%s@%s", h.RepoPath, h.Symbol, h.Hash)
	if h.Level >= 0 {
		s += fmt.Sprintf("#l%d", h.Level)
	}
	return s
}

// WildcardHash reports whether the handle skips the hash check.
func (h *Handle) WildcardHash() bool {
	return strings.EqualFold(h.Hash, WildcardHash)
}

// resolveHandle normalizes the handle path and verifies it against the
// tracked-file table: the file must be indexed, and a non-wildcard
// handle hash must match the stored hash.
func (s *Store) resolveHandle(h *Handle) (string, *fileRow, error) {
	safePath, err := NormalizePath(h.RepoPath)
	if err != nil {
		return "", nil, err
	}
	fr, err := s.lookupFile(safePath)
	if err != nil {
		return "", nil, err
	}
	if fr == nil || fr.DBState != "indexed" {
		return "", nil, enginerr.New(enginerr.NotIndexed,
			"ingest the file before referencing it").WithPath(safePath)
	}
	if !h.WildcardHash() && h.Hash != fr.FileHash {
		return "", nil, enginerr.Newf(enginerr.HashConflict,
			"handle hash %s does not match stored hash %s", h.Hash, fr.FileHash).WithPath(safePath)
	}
	return safePath, fr, nil
}
