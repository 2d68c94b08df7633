package patch_test

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"agentdb/internal/enginerr"
	"agentdb/internal/patch"
)

// diffOf generates a real unified diff between a and b with git-style
// a/ b/ header prefixes, the same shape agents submit.
func diffOf(t *testing.T, a, b, path string) string {
	t.Helper()
	u := difflib.UnifiedDiff{
		A:        keepNewlines(a),
		B:        keepNewlines(b),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		t.Fatalf("difflib: %v", err)
	}
	if s == "" {
		t.Fatal("difflib produced an empty diff (a == b?)")
	}
	return s
}

func keepNewlines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ─── Round-trip ─────────────────────────────────────────────────────────────

func TestApply_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{
			"replace middle line",
			"alpha\nbeta\ngamma\n",
			"alpha\nBETA\ngamma\n",
		},
		{
			"insert lines",
			"one\ntwo\n",
			"one\none-and-a-half\ntwo\nthree\n",
		},
		{
			"delete lines",
			"a\nb\nc\nd\ne\n",
			"a\nd\ne\n",
		},
		{
			"change far-apart regions",
			"h1\nx\nx\nx\nx\nx\nx\nx\nx\nx\nh2\n",
			"H1\nx\nx\nx\nx\nx\nx\nx\nx\nx\nH2\n",
		},
		{
			"empty lines in context",
			"a\n\nb\n\nc\n",
			"a\n\nB\n\nc\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := diffOf(t, tt.a, tt.b, "pkg/file.py")
			got, err := patch.Apply(tt.a, diff, "pkg/file.py")
			if err != nil {
				t.Fatalf("Apply error: %v\ndiff:\n%s", err, diff)
			}
			if got != tt.b {
				t.Errorf("patched = %q, want %q", got, tt.b)
			}
		})
	}
}

func TestApply_PreservesMissingTrailingNewline(t *testing.T) {
	original := "a\nb"
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,2 @@\n a\n-b\n+B\n"
	got, err := patch.Apply(original, diff, "f.txt")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got != "a\nB" {
		t.Errorf("patched = %q, want %q (no trailing newline)", got, "a\nB")
	}
}

func TestApply_NoNewlineMarkerIgnored(t *testing.T) {
	original := "a\nb\n"
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,2 @@\n a\n-b\n+B\n\\ No newline at end of file\n"
	got, err := patch.Apply(original, diff, "f.txt")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got != "a\nB\n" {
		t.Errorf("patched = %q, want %q", got, "a\nB\n")
	}
}

// ─── Failure kinds ──────────────────────────────────────────────────────────

func TestApply_TargetMismatch(t *testing.T) {
	diff := diffOf(t, "x\n", "y\n", "other.py")
	_, err := patch.Apply("x\n", diff, "mine.py")
	if got := enginerr.KindOf(err); got != enginerr.TargetMismatch {
		t.Errorf("kind = %q, want target_mismatch", got)
	}
}

func TestApply_MissingOldHeader(t *testing.T) {
	diff := "+++ b/f.txt\n@@ -1,1 +1,1 @@\n-x\n+y\n"
	_, err := patch.Apply("x\n", diff, "f.txt")
	if got := enginerr.KindOf(err); got != enginerr.TargetMismatch {
		t.Errorf("kind = %q, want target_mismatch", got)
	}
}

func TestApply_ContextMismatch(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,2 @@\n wrong\n-b\n+B\n"
	_, err := patch.Apply("a\nb\n", diff, "f.txt")
	if got := enginerr.KindOf(err); got != enginerr.ContextMismatch {
		t.Errorf("kind = %q, want context_mismatch", got)
	}
}

func TestApply_DeletionMismatch(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,2 @@\n a\n-not-b\n+B\n"
	_, err := patch.Apply("a\nb\n", diff, "f.txt")
	if got := enginerr.KindOf(err); got != enginerr.ContextMismatch {
		t.Errorf("kind = %q, want context_mismatch", got)
	}
}

func TestApply_NoHunks(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n"
	_, err := patch.Apply("a\n", diff, "f.txt")
	if got := enginerr.KindOf(err); got != enginerr.NoHunks {
		t.Errorf("kind = %q, want no_hunks", got)
	}
}

func TestApply_OverlappingHunks(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n" +
		"@@ -3,1 +3,1 @@\n-c\n+C\n" +
		"@@ -1,1 +1,1 @@\n-a\n+A\n"
	_, err := patch.Apply("a\nb\nc\n", diff, "f.txt")
	if got := enginerr.KindOf(err); got != enginerr.OverlappingHunks {
		t.Errorf("kind = %q, want overlapping_hunks", got)
	}
}

// A second hunk starting exactly at the cursor position (zero lines
// consumed since the previous hunk ended there) is accepted; only hunks
// starting strictly before the cursor overlap.
func TestApply_AdjacentHunksAtSameCursorAccepted(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n" +
		"@@ -1,1 +1,1 @@\n-a\n+A\n" +
		"@@ -2,1 +2,1 @@\n-b\n+B\n"
	got, err := patch.Apply("a\nb\nc\n", diff, "f.txt")
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got != "A\nB\nc\n" {
		t.Errorf("patched = %q, want %q", got, "A\nB\nc\n")
	}
}

func TestApply_HunkBeyondEOF(t *testing.T) {
	diff := "--- a/f.txt\n+++ b/f.txt\n@@ -10,1 +10,1 @@\n-x\n+y\n"
	_, err := patch.Apply("a\n", diff, "f.txt")
	if got := enginerr.KindOf(err); got != enginerr.ContextMismatch {
		t.Errorf("kind = %q, want context_mismatch", got)
	}
}

// ─── Final-file assertion ───────────────────────────────────────────────────

func TestExtractFinalFile_Absent(t *testing.T) {
	diff := "--- a/f\n+++ b/f\n@@ -1,1 +1,1 @@\n-x\n+y\n"
	_, rest, found, err := patch.ExtractFinalFile(diff)
	if err != nil || found {
		t.Fatalf("found=%v err=%v, want absent", found, err)
	}
	if rest != diff {
		t.Errorf("rest altered: %q", rest)
	}
}

func TestExtractFinalFile_Present(t *testing.T) {
	diff := "--- a/f\n+++ b/f\n@@ -1,1 +1,1 @@\n-x\n+y\n" +
		"AGTAG_PATCH_FINAL_FILE\n{\"final_file\": \"y\\n\"}\nEND\n"
	final, rest, found, err := patch.ExtractFinalFile(diff)
	if err != nil {
		t.Fatalf("ExtractFinalFile error: %v", err)
	}
	if !found || final != "y\n" {
		t.Errorf("final = %q found=%v", final, found)
	}
	if strings.Contains(rest, "AGTAG_PATCH_FINAL_FILE") {
		t.Errorf("envelope not stripped from rest: %q", rest)
	}
}

func TestExtractFinalFile_MissingField(t *testing.T) {
	diff := "@@\nAGTAG_PATCH_FINAL_FILE\n{\"other\": 1}\nEND\n"
	_, _, _, err := patch.ExtractFinalFile(diff)
	if got := enginerr.KindOf(err); got != enginerr.FinalMismatch {
		t.Errorf("kind = %q, want final_mismatch", got)
	}
}

func TestCheckFinalFile(t *testing.T) {
	if err := patch.CheckFinalFile("a\nb\n", "a\nb"); err != nil {
		t.Errorf("trailing-newline difference should match: %v", err)
	}
	err := patch.CheckFinalFile("a\nb\n", "a\nc\n")
	if got := enginerr.KindOf(err); got != enginerr.FinalMismatch {
		t.Errorf("kind = %q, want final_mismatch", got)
	}
}
