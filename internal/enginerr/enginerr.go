// Package enginerr defines the stable error taxonomy shared by every
// engine subsystem. Each recoverable failure carries a machine-readable
// kind plus a human hint; callers render it as the {error, hint, path?}
// envelope. Nothing in this taxonomy is process-fatal.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind is a stable error code for a failure mode.
type Kind string

const (
	// Path safety.
	UnsafePath Kind = "unsafe_path"

	// File state machine.
	IndexedFileRejectsFullContent Kind = "indexed_file_rejects_full_content"
	NotIndexed                    Kind = "not_indexed"
	HashConflict                  Kind = "hash_conflict"

	// Metadata block codec.
	AgtagMissing       Kind = "agtag_missing"
	MissingJSON        Kind = "missing_json"
	TooLarge           Kind = "too_large"
	TooDeep            Kind = "too_deep"
	InvalidJSON        Kind = "invalid_json"
	AgtagInvalid       Kind = "agtag_invalid"
	AgtagSymbolInvalid Kind = "agtag_symbol_invalid"
	InvalidLineRange   Kind = "invalid_line_range"

	// Diff patch engine.
	TargetMismatch   Kind = "target_mismatch"
	OverlappingHunks Kind = "overlapping_hunks"
	ContextMismatch  Kind = "context_mismatch"
	NoHunks          Kind = "no_hunks"
	FinalMismatch    Kind = "final_mismatch"

	// Handles and graph queries.
	HandleInvalid  Kind = "handle_invalid"
	SymbolRequired Kind = "symbol_required"
	SymbolNotFound Kind = "symbol_not_found"
	BadDepth       Kind = "bad_depth"
	BadLevel       Kind = "bad_level"

	// Migrations.
	DBVersionMismatch Kind = "db_version_mismatch"
	RollbackFailed    Kind = "rollback_failed"
	NoDBFound         Kind = "no_db_found"
)

// Error is a typed engine failure. Path is optional context, set when the
// failure concerns a specific tracked file.
type Error struct {
	Kind Kind   `json:"error"`
	Hint string `json:"hint"`
	Path string `json:"path,omitempty"`
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Hint, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Hint)
}

// New creates a typed engine error.
func New(kind Kind, hint string) *Error {
	return &Error{Kind: kind, Hint: hint}
}

// Newf creates a typed engine error with a formatted hint.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Hint: fmt.Sprintf(format, args...)}
}

// WithPath returns a copy of the error annotated with a file path.
func (e *Error) WithPath(path string) *Error {
	clone := *e
	clone.Path = path
	return &clone
}

// KindOf extracts the Kind from err, or "" if err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an engine error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
