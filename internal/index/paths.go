package index

import (
	"path"
	"strings"

	"agentdb/internal/enginerr"
)

// NormalizePath validates an agent-supplied path and returns its
// canonical repo-relative form. Absolute paths and paths that escape
// the repository root are rejected with unsafe_path.
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", enginerr.New(enginerr.UnsafePath, "path must not be empty")
	}
	slashed := strings.ReplaceAll(p, "\\", "/")
	if path.IsAbs(slashed) || (len(slashed) > 1 && slashed[1] == ':') {
		return "", enginerr.New(enginerr.UnsafePath, "absolute paths are not allowed").WithPath(p)
	}
	norm := path.Clean(slashed)
	if norm == ".." || strings.HasPrefix(norm, "../") {
		return "", enginerr.New(enginerr.UnsafePath, "path must stay within the repository").WithPath(p)
	}
	if norm == "." {
		return "", enginerr.New(enginerr.UnsafePath, "path must name a file").WithPath(p)
	}
	return norm, nil
}
