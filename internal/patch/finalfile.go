package patch

import (
	"encoding/json"
	"regexp"
	"strings"

	"agentdb/internal/enginerr"
)

// Final-file assertion envelope: the diff may be followed by marker lines
// wrapping {"final_file": "<content>"}. When present, the patched result
// must equal the asserted content (trailing newlines ignored) — an
// independent cross-check on the hunk application.
var finalFileRe = regexp.MustCompile(`(?s)AGTAG_PATCH_FINAL_FILE\s*\{.*?\}\s*END`)

type finalFilePayload struct {
	FinalFile *string `json:"final_file"`
}

// ExtractFinalFile finds an optional final-file assertion in diffText.
// Returns (content, diff-without-envelope, found). A present but malformed
// envelope fails final_mismatch: an assertion the engine cannot read must
// not be silently dropped.
func ExtractFinalFile(diffText string) (string, string, bool, error) {
	loc := finalFileRe.FindStringIndex(diffText)
	if loc == nil {
		return "", diffText, false, nil
	}
	envelope := diffText[loc[0]:loc[1]]
	jstart := strings.Index(envelope, "{")
	jend := strings.LastIndex(envelope, "}")
	var payload finalFilePayload
	if err := json.Unmarshal([]byte(envelope[jstart:jend+1]), &payload); err != nil {
		return "", "", false, enginerr.Newf(enginerr.FinalMismatch,
			"final-file assertion is not valid JSON: %v", err)
	}
	if payload.FinalFile == nil {
		return "", "", false, enginerr.New(enginerr.FinalMismatch,
			"final-file assertion missing 'final_file' field")
	}
	return *payload.FinalFile, diffText[:loc[0]], true, nil
}

// CheckFinalFile compares the patched result against an asserted final
// file, ignoring trailing-newline differences.
func CheckFinalFile(patched, asserted string) error {
	if strings.TrimRight(patched, "\n") != strings.TrimRight(asserted, "\n") {
		return enginerr.New(enginerr.FinalMismatch,
			"final-file assertion does not match the applied diff")
	}
	return nil
}
