// Package patch applies unified diffs to known base content. Every context
// and deletion line is verified against the original before anything is
// emitted, so a stale or mistargeted diff fails instead of corrupting the
// file. The engine is pure: callers own persistence.
package patch

import (
	"path"
	"regexp"
	"strings"

	"agentdb/internal/enginerr"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Apply patches original with a unified diff. The +++ header, stripped of
// any a/ or b/ prefix, must name expectedPath. Hunks must be in
// non-decreasing order and may not overlap; a hunk starting exactly at the
// current cursor is accepted. The trailing-newline convention of the
// original is preserved.
func Apply(original, diffText, expectedPath string) (string, error) {
	diffLines := strings.Split(strings.TrimSuffix(diffText, "\n"), "\n")
	originalLines := splitLines(original)
	hadTrailingNewline := strings.HasSuffix(original, "\n")

	var patched []string
	cursor := 0
	sawOldHeader := false
	appliedHunk := false

	i := 0
	for i < len(diffLines) {
		line := diffLines[i]
		switch {
		case strings.HasPrefix(line, "--- "):
			sawOldHeader = true
			i++

		case strings.HasPrefix(line, "+++ "):
			if !sawOldHeader {
				return "", enginerr.New(enginerr.TargetMismatch, "diff is missing the original file header")
			}
			target := headerPath(line[4:])
			if target != path.Clean(expectedPath) {
				return "", enginerr.Newf(enginerr.TargetMismatch,
					"diff targets %q but patch path is %q", target, expectedPath)
			}
			i++

		case strings.HasPrefix(line, "@@ "):
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				return "", enginerr.Newf(enginerr.ContextMismatch, "malformed hunk header: %q", line)
			}
			appliedHunk = true
			start := atoi(m[1]) - 1
			if start < cursor {
				return "", enginerr.New(enginerr.OverlappingHunks,
					"overlapping hunks or repeated context in diff")
			}
			if start > len(originalLines) {
				return "", enginerr.Newf(enginerr.ContextMismatch,
					"hunk starts at line %d beyond end of file (%d lines)", start+1, len(originalLines))
			}
			patched = append(patched, originalLines[cursor:start]...)
			cursor = start
			i++

			var err error
			patched, cursor, i, err = applyHunkBody(diffLines, i, originalLines, patched, cursor)
			if err != nil {
				return "", err
			}

		default:
			i++
		}
	}

	if !appliedHunk {
		return "", enginerr.New(enginerr.NoHunks, "diff contained no hunks to apply")
	}

	patched = append(patched, originalLines[cursor:]...)
	result := strings.Join(patched, "\n")
	if hadTrailingNewline && !strings.HasSuffix(result, "\n") {
		result += "\n"
	}
	return result, nil
}

// applyHunkBody consumes context/deletion/addition lines until the next
// header or end of diff.
func applyHunkBody(diffLines []string, i int, originalLines, patched []string, cursor int) ([]string, int, int, error) {
	for i < len(diffLines) {
		line := diffLines[i]
		if strings.HasPrefix(line, "@@ ") ||
			strings.HasPrefix(line, "--- ") ||
			strings.HasPrefix(line, "+++ ") {
			break
		}
		switch {
		case strings.HasPrefix(line, `\ No newline at end of file`):
			// Informational marker; the trailing-newline convention is
			// restored from the original after the last hunk.

		case strings.HasPrefix(line, " "):
			want := line[1:]
			if cursor >= len(originalLines) || originalLines[cursor] != want {
				return nil, 0, 0, contextError("context", want, originalLines, cursor)
			}
			patched = append(patched, want)
			cursor++

		case strings.HasPrefix(line, "-"):
			want := line[1:]
			if cursor >= len(originalLines) || originalLines[cursor] != want {
				return nil, 0, 0, contextError("deletion", want, originalLines, cursor)
			}
			cursor++

		case strings.HasPrefix(line, "+"):
			patched = append(patched, line[1:])

		case line == "":
			// Tolerate a bare empty line as empty context (some emitters
			// drop the leading space).
			if cursor >= len(originalLines) || originalLines[cursor] != "" {
				return nil, 0, 0, contextError("context", "", originalLines, cursor)
			}
			patched = append(patched, "")
			cursor++

		default:
			return nil, 0, 0, enginerr.Newf(enginerr.ContextMismatch, "unsupported diff line: %q", line)
		}
		i++
	}
	return patched, cursor, i, nil
}

func contextError(role, want string, originalLines []string, cursor int) error {
	have := "<end of file>"
	if cursor < len(originalLines) {
		have = originalLines[cursor]
	}
	return enginerr.Newf(enginerr.ContextMismatch,
		"%s line mismatch at line %d: diff expects %q, file has %q", role, cursor+1, want, have)
}

// headerPath extracts the file path from a ---/+++ header value, dropping
// a trailing tab section and git's a/ b/ prefixes.
func headerPath(raw string) string {
	p := strings.TrimSpace(raw)
	if idx := strings.IndexByte(p, '\t'); idx != -1 {
		p = p[:idx]
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		p = p[2:]
	}
	return path.Clean(p)
}

// splitLines splits text into lines without the trailing empty element
// that Split produces for newline-terminated content.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
