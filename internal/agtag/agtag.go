// Package agtag parses and validates the metadata block trailing a source
// file. The block is self-delimited by HTML-comment markers (a no-op in most
// text formats) and carries a JSON payload describing the file's symbols.
//
// Parsing is defensive: agent-supplied blocks are untrusted, so a byte-size
// ceiling is enforced before decoding and a nesting-depth ceiling after.
// Validation is a hand-rolled structural check, not a schema library.
package agtag

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agentdb/internal/enginerr"
)

// Block delimiters. The blank line before the start marker separates the
// block from code.
const (
	StartMarker = "\n\n<!--AGTAG v1 START-->"
	EndMarker   = "<!--AGTAG v1 END-->"
)

// SupportedVersion is the only payload version this codec accepts.
const SupportedVersion = "v1"

// Limits bounds how much work a hostile block can cause.
type Limits struct {
	MaxBytes int // ceiling on the JSON payload size, checked before decoding
	MaxDepth int // ceiling on container nesting depth
}

// DefaultLimits returns the standard codec limits.
func DefaultLimits() Limits {
	return Limits{MaxBytes: 100_000, MaxDepth: 10}
}

// Split separates file content from a trailing metadata block. The block
// includes both markers. If the start marker is absent, or present but
// unterminated, the whole content is returned as code and block is "".
func Split(content string) (code, block string) {
	idx := strings.LastIndex(content, StartMarker)
	if idx == -1 {
		return content, ""
	}
	tail := content[idx:]
	if !strings.Contains(tail, EndMarker) {
		return content, ""
	}
	return content[:idx], tail
}

// Append returns content with a serialized metadata block appended.
func Append(content string, tag *Tag) (string, error) {
	payload, err := json.Marshal(tag)
	if err != nil {
		return "", fmt.Errorf("agtag: encode payload: %w", err)
	}
	return content + StartMarker + "\n" + string(payload) + "\n" + EndMarker, nil
}

// Parse validates and decodes a metadata block. The path is used only for
// error context. Checks run in a fixed order: size, JSON decode, nesting
// depth, structural schema.
func Parse(block, path string, limits Limits) (*Tag, error) {
	jstart := strings.Index(block, "{")
	jend := strings.LastIndex(block, "}")
	if jstart == -1 || jend == -1 || jend < jstart {
		return nil, enginerr.New(enginerr.MissingJSON, "AGTAG block contains no JSON object").WithPath(path)
	}
	payload := block[jstart : jend+1]

	if len(payload) > limits.MaxBytes {
		return nil, enginerr.Newf(enginerr.TooLarge,
			"AGTAG JSON too large: %d bytes (max %d); split into multiple symbols or reduce metadata",
			len(payload), limits.MaxBytes).WithPath(path)
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, enginerr.Newf(enginerr.InvalidJSON, "invalid JSON in AGTAG block: %v", err).WithPath(path)
	}

	if err := checkDepth(raw, limits.MaxDepth, 0); err != nil {
		return nil, withPath(err, path)
	}

	tag, err := buildTag(raw)
	if err != nil {
		return nil, withPath(err, path)
	}
	return tag, nil
}

func withPath(err error, path string) error {
	var e *enginerr.Error
	if errors.As(err, &e) {
		return e.WithPath(path)
	}
	return err
}

// checkDepth walks the decoded value and fails once container nesting
// exceeds max. Primitives do not add depth.
func checkDepth(v any, max, depth int) error {
	if depth > max {
		return enginerr.Newf(enginerr.TooDeep,
			"JSON nesting too deep: exceeds %d levels; this may indicate a malicious or malformed AGTAG block", max)
	}
	switch node := v.(type) {
	case map[string]any:
		for _, child := range node {
			if err := checkDepth(child, max, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range node {
			if err := checkDepth(child, max, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildTag maps the decoded payload onto Tag with explicit required-field,
// type, and shape checks.
func buildTag(raw any) (*Tag, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, enginerr.New(enginerr.AgtagInvalid, "AGTAG payload must be a JSON object")
	}

	version, ok := root["version"].(string)
	if !ok {
		return nil, enginerr.New(enginerr.AgtagInvalid, "AGTAG payload missing required string field 'version'")
	}
	if version != SupportedVersion {
		return nil, enginerr.Newf(enginerr.AgtagInvalid, "unsupported AGTAG version %q (expected %q)", version, SupportedVersion)
	}

	rawSymbols, ok := root["symbols"].([]any)
	if !ok {
		return nil, enginerr.New(enginerr.AgtagInvalid, "AGTAG payload missing required array field 'symbols'")
	}

	tag := &Tag{Version: version}
	for i, rawSym := range rawSymbols {
		sym, err := buildSymbol(rawSym, i)
		if err != nil {
			return nil, err
		}
		tag.Symbols = append(tag.Symbols, *sym)
	}

	if rawDocs, ok := root["docs"].([]any); ok {
		for _, rawDoc := range rawDocs {
			if m, ok := rawDoc.(map[string]any); ok {
				tag.Docs = append(tag.Docs, Doc{
					Path:    optString(m, "path"),
					Section: optString(m, "section"),
					Summary: optString(m, "summary"),
				})
			}
		}
	}
	if rawTests, ok := root["tests"].([]any); ok {
		for _, rawTest := range rawTests {
			if m, ok := rawTest.(map[string]any); ok {
				tag.Tests = append(tag.Tests, Test{
					Path:   optString(m, "path"),
					Name:   optString(m, "name"),
					Covers: optStrings(m, "covers"),
					Status: optString(m, "status"),
				})
			}
		}
	}

	return tag, nil
}

func buildSymbol(raw any, idx int) (*Symbol, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, enginerr.Newf(enginerr.AgtagSymbolInvalid, "symbol %d is not a JSON object", idx)
	}
	name := optString(m, "name")
	if name == "" {
		return nil, enginerr.Newf(enginerr.AgtagSymbolInvalid, "symbol %d missing required field 'name'", idx)
	}
	kind := optString(m, "kind")
	if kind == "" {
		return nil, enginerr.Newf(enginerr.AgtagSymbolInvalid, "symbol %q missing required field 'kind'", name)
	}

	sym := &Symbol{
		Path:          optString(m, "path"),
		Name:          name,
		Kind:          kind,
		QualifiedName: optString(m, "qualified_name"),
		Signature:     optString(m, "signature"),
		SummaryL0:     optString(m, "summary_l0"),
		ContractL1:    optString(m, "contract_l1"),
		PseudocodeL2:  optString(m, "pseudocode_l2"),
	}

	if excerpt, ok := m["ast_excerpt_l3"]; ok && excerpt != nil {
		sym.ASTExcerptL3 = excerpt
	} else if legacy, ok := m["ast_l3"]; ok && legacy != nil {
		sym.ASTExcerptL3 = legacy
	}

	if rawLines, present := m["lines"]; present && rawLines != nil {
		arr, ok := rawLines.([]any)
		if !ok || len(arr) != 2 {
			return nil, enginerr.Newf(enginerr.AgtagSymbolInvalid, "symbol %q has invalid lines array (expected [start, end])", name)
		}
		start, startOK := intValue(arr[0])
		end, endOK := intValue(arr[1])
		switch {
		case arr[0] == nil && arr[1] == nil:
			// Unranged symbol: content hash covers the whole file.
		case startOK && endOK:
			sym.Lines = []int{start, end}
		default:
			return nil, enginerr.Newf(enginerr.AgtagSymbolInvalid, "symbol %q lines must be two integers or two nulls", name)
		}
	}

	return sym, nil
}

func optString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func optStrings(m map[string]any, key string) []string {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intValue(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
