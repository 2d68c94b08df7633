package agtag

// Symbol describes one source symbol reported by the metadata block.
// Levels are incremental: any of L0-L3 may be absent and is stored null.
type Symbol struct {
	Path          string `json:"path,omitempty"`
	Name          string `json:"name"`
	Kind          string `json:"kind"` // "function" | "class" | "method" | "module" | "file"
	QualifiedName string `json:"qualified_name,omitempty"`
	Signature     string `json:"signature,omitempty"`
	Lines         []int  `json:"lines,omitempty"` // [start, end], 1-based inclusive
	SummaryL0     string `json:"summary_l0,omitempty"`
	ContractL1    string `json:"contract_l1,omitempty"`
	PseudocodeL2  string `json:"pseudocode_l2,omitempty"`
	ASTExcerptL3  any    `json:"ast_excerpt_l3,omitempty"`
}

// Doc describes a documentation section referenced by the block.
type Doc struct {
	Path    string `json:"path,omitempty"`
	Section string `json:"section,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Test links automated coverage to symbols.
type Test struct {
	Path   string   `json:"path,omitempty"`
	Name   string   `json:"name,omitempty"`
	Covers []string `json:"covers,omitempty"` // symbol names or handles
	Status string   `json:"status,omitempty"` // "new" | "updated"
}

// Tag is the parsed v1 metadata payload. It is a write-time input only:
// callers derive symbol rows from it and discard it.
type Tag struct {
	Version string   `json:"version"`
	Symbols []Symbol `json:"symbols"`
	Docs    []Doc    `json:"docs,omitempty"`
	Tests   []Test   `json:"tests,omitempty"`
}

// HasLines reports whether the symbol carries an explicit line range.
func (s *Symbol) HasLines() bool {
	return len(s.Lines) == 2
}
