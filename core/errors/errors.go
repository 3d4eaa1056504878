// Package errors provides the error taxonomy shared by the manuscript engine.
//
// Precondition errors carry enough context (the offending id, the full valid
// id set, the available slugs) for a caller to retry without re-querying.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a block, annotation or file was not found
	ErrNotFound = errors.New("not found")
	// ErrDuplicateID indicates an identifier collides with an existing one
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidPermutation indicates a reorder did not name every block exactly once
	ErrInvalidPermutation = errors.New("invalid permutation")
	// ErrAmbiguousAnchor indicates anchor text matched more than once
	ErrAmbiguousAnchor = errors.New("ambiguous anchor")
	// ErrAnchorNotFound indicates anchor text did not match at all
	ErrAnchorNotFound = errors.New("anchor not found")
	// ErrSectionNotFound indicates a slug names no section
	ErrSectionNotFound = errors.New("section not found")
	// ErrStructural indicates the text violates the marker grammar
	ErrStructural = errors.New("structural error")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError represents a missing resource. Available lists the valid
// identifiers at the time of the failure.
type NotFoundError struct {
	Resource  string // Type of resource (e.g., "beat", "annotation")
	ID        string // Identifier of the resource
	Available []string
	Err       error // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found", e.Resource)
	if e.ID != "" {
		msg = fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	if len(e.Available) > 0 {
		msg += " (available: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// DuplicateIDError reports an identifier that is already in use.
type DuplicateIDError struct {
	Resource string
	ID       string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s id already in use: %s", e.Resource, e.ID)
}

func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}

// InvalidPermutationError reports a reorder request that does not match the
// document's block ids exactly.
type InvalidPermutationError struct {
	Missing    []string // ids present in the document but absent from the request
	Unknown    []string // ids in the request that the document does not have
	Duplicated []string // ids named more than once
	Valid      []string // the document's ids in current order
}

func (e *InvalidPermutationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, "repeated "+strings.Join(e.Duplicated, ", "))
	}
	return fmt.Sprintf("invalid permutation: %s (expected each of: %s)",
		strings.Join(parts, "; "), strings.Join(e.Valid, ", "))
}

func (e *InvalidPermutationError) Unwrap() error {
	return ErrInvalidPermutation
}

// AnchorError reports anchor text that matched zero or several times.
type AnchorError struct {
	Anchor  string
	Matches int
	Lines   []int // 1-based lines of every match
}

func (e *AnchorError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("anchor not found: %q", e.Anchor)
	}
	lines := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = fmt.Sprint(l)
	}
	return fmt.Sprintf("ambiguous anchor: %q matches %d times (lines %s); use a longer anchor",
		e.Anchor, e.Matches, strings.Join(lines, ", "))
}

func (e *AnchorError) Unwrap() error {
	if e.Matches == 0 {
		return ErrAnchorNotFound
	}
	return ErrAmbiguousAnchor
}

// SectionNotFoundError reports an unknown slug along with every valid one.
type SectionNotFoundError struct {
	Slug      string
	Available []string
}

func (e *SectionNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("section not found: %s (document has no sections)", e.Slug)
	}
	return fmt.Sprintf("section not found: %s (available: %s)", e.Slug, strings.Join(e.Available, ", "))
}

func (e *SectionNotFoundError) Unwrap() error {
	return ErrSectionNotFound
}

// Issue is a single grammar violation.
type Issue struct {
	Line    int
	Message string
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// StructuralError aggregates every grammar violation found in one parse.
type StructuralError struct {
	Path   string
	Issues []Issue
}

func (e *StructuralError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	prefix := "structural error"
	if e.Path != "" {
		prefix += " in " + e.Path
	}
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

func (e *StructuralError) Unwrap() error {
	return ErrStructural
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "commit")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string, available []string) *NotFoundError {
	return &NotFoundError{
		Resource:  resource,
		ID:        id,
		Available: available,
	}
}

// NewDuplicateID creates a DuplicateIDError
func NewDuplicateID(resource, id string) *DuplicateIDError {
	return &DuplicateIDError{Resource: resource, ID: id}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
