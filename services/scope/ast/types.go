// Package ast provides tree-sitter based syntax extraction for workflow
// source files.
//
// This package turns a Python source file into a normalized tree of typed
// symbols (classes, methods, fields, imports) that the signal extractors in
// services/scope/signals consume. It knows nothing about CrewAI semantics
// beyond a cheap textual pre-filter; decorator classification, listener
// graphs and behavioral flags live one layer up.
//
// Design principles:
//   - Concrete types only - no map[string]interface{}
//   - Timestamps as int64 UnixMilli per project conventions
//   - Error-tolerant: syntactically invalid input yields partial results,
//     never a panic
package ast

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SymbolKind represents the type of code symbol extracted from source code.
type SymbolKind int

const (
	// SymbolKindUnknown indicates an unrecognized or unparseable symbol.
	SymbolKindUnknown SymbolKind = iota

	// SymbolKindClass represents a Python class definition.
	SymbolKindClass

	// SymbolKindMethod represents a function attached to a class.
	SymbolKindMethod

	// SymbolKindFunction represents a module-level function.
	SymbolKindFunction

	// SymbolKindField represents a class-level attribute assignment.
	SymbolKindField

	// SymbolKindVariable represents a module-level variable.
	SymbolKindVariable

	// SymbolKindConstant represents a module-level ALL_CAPS variable.
	SymbolKindConstant

	// SymbolKindImport represents an import statement.
	SymbolKindImport
)

// symbolKindNames maps SymbolKind values to their string representations.
var symbolKindNames = map[SymbolKind]string{
	SymbolKindUnknown:  "unknown",
	SymbolKindClass:    "class",
	SymbolKindMethod:   "method",
	SymbolKindFunction: "function",
	SymbolKindField:    "field",
	SymbolKindVariable: "variable",
	SymbolKindConstant: "constant",
	SymbolKindImport:   "import",
}

// String returns the string representation of the SymbolKind.
//
// Returns "unknown" for unrecognized values.
func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements json.Marshaler for SymbolKind.
//
// Serializes the kind as a JSON string (e.g., "method") rather than
// a number for better readability and forward compatibility.
func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler for SymbolKind.
//
// Accepts both string values (e.g., "method") and numeric values
// for backward compatibility.
func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = ParseSymbolKind(s)
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("SymbolKind must be string or int: %w", err)
	}
	*k = SymbolKind(i)
	return nil
}

// ParseSymbolKind converts a string to a SymbolKind.
//
// Returns SymbolKindUnknown if the string is not recognized.
func ParseSymbolKind(s string) SymbolKind {
	for kind, name := range symbolKindNames {
		if name == s {
			return kind
		}
	}
	return SymbolKindUnknown
}

// Symbol represents a code symbol extracted from AST parsing.
//
// A symbol is any named code construct: class, method, field, import.
// Line numbers are 1-indexed; column numbers are 0-indexed, matching
// the convention used by most editors and LSP.
type Symbol struct {
	// ID is a unique identifier for this symbol.
	// Format: "file_path:start_line:name"
	// Example: "src/report/flow.py:14:ReportFlow"
	ID string `json:"id"`

	// Name is the symbol's identifier as it appears in source code.
	Name string `json:"name"`

	// Kind indicates what type of symbol this is (class, method, etc.).
	Kind SymbolKind `json:"kind"`

	// FilePath is the path to the containing file, relative to project root.
	FilePath string `json:"file_path"`

	// StartLine is the 1-indexed line number where the symbol definition
	// starts. For decorated definitions this includes the decorators, so
	// the source span covers the full decorated block.
	StartLine int `json:"start_line"`

	// EndLine is the 1-indexed line number where the symbol definition ends.
	EndLine int `json:"end_line"`

	// Signature is the declaration line.
	// Example: "async def gather(self) -> str" for a Python method.
	Signature string `json:"signature"`

	// DocComment is the docstring associated with the symbol, if any.
	DocComment string `json:"doc_comment"`

	// Exported indicates whether the symbol is publicly visible
	// (Python convention: not prefixed with a single underscore).
	Exported bool `json:"exported"`

	// Children contains nested symbols (e.g., methods within a class).
	// May be nil if the symbol has no children.
	Children []*Symbol `json:"children,omitempty"`

	// Metadata contains decorator and typing information.
	Metadata *SymbolMetadata `json:"metadata,omitempty"`
}

// SymbolMetadata contains optional language-specific metadata for a symbol.
//
// All fields are optional. The signal extractors rely on DecoratorCalls
// carrying the *full* decorator expression text (e.g. `listen(or_(a, "b"))`)
// because argument detail is what drives listener/router classification.
type SymbolMetadata struct {
	// Decorators lists decorator base names applied to the symbol.
	// Example: ["start", "listen"] - call arguments stripped.
	Decorators []string `json:"decorators,omitempty"`

	// DecoratorCalls lists the full decorator expression text, one entry
	// per decorator, in source order. A bare decorator appears as its
	// name; a call decorator keeps its argument list verbatim.
	// Example: ["start()", "listen(or_(fetch, \"retry\"))"]
	DecoratorCalls []string `json:"decorator_calls,omitempty"`

	// Parameters lists parameter names in declaration order, including
	// self for methods.
	Parameters []string `json:"parameters,omitempty"`

	// ReturnType is the declared return annotation (if available).
	ReturnType string `json:"return_type,omitempty"`

	// IsAsync indicates if the function/method is asynchronous.
	IsAsync bool `json:"is_async,omitempty"`

	// Bases lists base class expressions for class symbols, verbatim.
	// Example: ["Flow[ReportState]"] or ["Flow", "ABC"].
	Bases []string `json:"bases,omitempty"`
}

// GenerateID creates a unique identifier for a symbol based on its
// location and name.
//
// Format: "file_path:start_line:name"
//
// This format ensures uniqueness within a project while remaining
// human-readable. Callers must validate that filePath is within the
// project boundary before calling; this function does not perform path
// validation.
func GenerateID(filePath string, startLine int, name string) string {
	return fmt.Sprintf("%s:%d:%s", filePath, startLine, name)
}

// ValidationError represents a validation failure with field context.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks if the Symbol has valid field values.
//
// Returns nil if valid, or a ValidationError describing the first
// invalid field.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return ValidationError{Field: "Name", Message: "must not be empty"}
	}
	if s.FilePath == "" {
		return ValidationError{Field: "FilePath", Message: "must not be empty"}
	}
	if strings.Contains(s.FilePath, "..") {
		return ValidationError{Field: "FilePath", Message: "must not contain path traversal (..)"}
	}
	if s.StartLine < 1 {
		return ValidationError{Field: "StartLine", Message: "must be >= 1 (1-indexed)"}
	}
	if s.EndLine < s.StartLine {
		return ValidationError{Field: "EndLine", Message: "must be >= StartLine"}
	}

	for i, child := range s.Children {
		if err := child.Validate(); err != nil {
			return ValidationError{
				Field:   fmt.Sprintf("Children[%d]", i),
				Message: err.Error(),
			}
		}
	}
	return nil
}

// ParseResult contains the output of parsing a single source file.
//
// The result is owned by the caller that requested the parse and is not
// persisted anywhere; signal extraction consumes it and discards it.
type ParseResult struct {
	// FilePath is the path to the parsed file, relative to project root.
	FilePath string `json:"file_path"`

	// Language is the language of the file. Always "python" for the
	// workflow parser.
	Language string `json:"language"`

	// Symbols contains all symbols extracted from the file, in source
	// order. Import statements appear as SymbolKindImport entries.
	Symbols []*Symbol `json:"symbols"`

	// Imports lists all import statements with structured metadata.
	Imports []Import `json:"imports"`

	// ParsedAtMilli is the Unix timestamp in milliseconds when parsing
	// completed.
	ParsedAtMilli int64 `json:"parsed_at_milli"`

	// Errors contains non-fatal parse errors encountered. The parse may
	// still produce partial results despite errors.
	Errors []string `json:"errors,omitempty"`

	// Hash is the SHA256 hash of the file content at parse time.
	Hash string `json:"hash"`
}

// Import represents an import statement in source code.
type Import struct {
	// Path is the module path.
	// Example: "crewai.flow.flow" for 'from crewai.flow.flow import Flow'.
	Path string `json:"path"`

	// Alias is the local alias if the import is aliased.
	Alias string `json:"alias,omitempty"`

	// Names lists specific names imported (for from-imports).
	// Example: ["Flow", "listen", "start"].
	Names []string `json:"names,omitempty"`

	// IsRelative indicates a relative import ('from . import foo').
	IsRelative bool `json:"is_relative,omitempty"`

	// Line is the 1-indexed line of the import statement.
	Line int `json:"line"`
}

// Classes returns the class symbols of the result, in source order.
func (r *ParseResult) Classes() []*Symbol {
	var classes []*Symbol
	for _, sym := range r.Symbols {
		if sym.Kind == SymbolKindClass {
			classes = append(classes, sym)
		}
	}
	return classes
}

// HasErrors returns true if the parse result contains any errors.
func (r *ParseResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// SetParsedAt sets the ParsedAtMilli field to the current time.
func (r *ParseResult) SetParsedAt() {
	r.ParsedAtMilli = time.Now().UnixMilli()
}

// Validate checks if the ParseResult has valid field values.
//
// Returns nil if valid, or a ValidationError describing the first
// invalid field.
func (r *ParseResult) Validate() error {
	if r.FilePath == "" {
		return ValidationError{Field: "FilePath", Message: "must not be empty"}
	}
	if strings.Contains(r.FilePath, "..") {
		return ValidationError{Field: "FilePath", Message: "must not contain path traversal (..)"}
	}
	if r.Language == "" {
		return ValidationError{Field: "Language", Message: "must not be empty"}
	}

	for i, sym := range r.Symbols {
		if err := sym.Validate(); err != nil {
			return ValidationError{
				Field:   fmt.Sprintf("Symbols[%d]", i),
				Message: err.Error(),
			}
		}
	}

	for i, imp := range r.Imports {
		if imp.Path == "" {
			return ValidationError{
				Field:   fmt.Sprintf("Imports[%d].Path", i),
				Message: "must not be empty",
			}
		}
	}
	return nil
}
