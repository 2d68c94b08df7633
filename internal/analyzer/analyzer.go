// Package analyzer provides per-language structural analysis of source
// files for edge derivation. Each analyzer reports, for every symbol it
// finds, the callee names used in its body and the base names it inherits
// from. Analysis is best-effort by contract: callers treat any failure as
// "no structure", never as an ingestion failure.
package analyzer

import (
	"path/filepath"
	"strings"
)

// SymbolStructure is one symbol discovered by structural analysis.
type SymbolStructure struct {
	Name      string
	Kind      string // "function" | "method" | "class" | "struct" | "interface" | "type"
	StartLine int    // 1-based
	Calls     []string
	Bases     []string
}

// FileStructure is the structural parse of a whole file.
type FileStructure struct {
	Language string
	Symbols  []SymbolStructure
}

// FunctionLike reports whether the symbol can be the source of calls edges.
func (s *SymbolStructure) FunctionLike() bool {
	return s.Kind == "function" || s.Kind == "method"
}

// ClassLike reports whether the symbol can be the source of inherits edges.
func (s *SymbolStructure) ClassLike() bool {
	switch s.Kind {
	case "class", "struct", "interface":
		return true
	}
	return false
}

// Analyzer extracts structure from one language's source files.
type Analyzer interface {
	Language() string
	Extensions() []string
	Analyze(content []byte) (*FileStructure, error)
}

// Registry maps file extensions to analyzers.
type Registry struct {
	byExt map[string]Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Analyzer)}
}

// Register adds an analyzer for all of its extensions.
func (r *Registry) Register(a Analyzer) {
	for _, ext := range a.Extensions() {
		r.byExt[ext] = a
	}
}

// ForPath returns the analyzer for a file path, or nil when the
// extension is unsupported.
func (r *Registry) ForPath(path string) Analyzer {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// NewDefaultRegistry returns a registry with all built-in analyzers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoAnalyzer())
	r.Register(NewPythonAnalyzer())
	return r
}
