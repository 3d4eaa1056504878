package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "beat", ID: "b9"},
			wantMsg:  "beat not found: b9",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "chapter"},
			wantMsg:  "chapter not found",
			wantBase: ErrNotFound,
		},
		{
			name:     "with available ids",
			err:      NewNotFound("beat", "b9", []string{"b1", "b2"}),
			wantMsg:  "beat not found: b9 (available: b1, b2)",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "file", ID: "ch01.md", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestDuplicateIDError(t *testing.T) {
	err := NewDuplicateID("beat", "b1")
	if got, want := err.Error(), "beat id already in use: b1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrDuplicateID) {
		t.Error("expected errors.Is(err, ErrDuplicateID)")
	}
}

func TestInvalidPermutationError(t *testing.T) {
	err := &InvalidPermutationError{
		Missing:    []string{"b3"},
		Unknown:    []string{"zz"},
		Duplicated: []string{"b1"},
		Valid:      []string{"b1", "b2", "b3"},
	}
	msg := err.Error()
	for _, want := range []string{"missing b3", "unknown zz", "repeated b1", "expected each of: b1, b2, b3"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, ErrInvalidPermutation) {
		t.Error("expected errors.Is(err, ErrInvalidPermutation)")
	}
}

func TestAnchorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AnchorError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "not found",
			err:      &AnchorError{Anchor: "xyzzy"},
			wantMsg:  `anchor not found: "xyzzy"`,
			wantBase: ErrAnchorNotFound,
		},
		{
			name:     "ambiguous",
			err:      &AnchorError{Anchor: "apple", Matches: 2, Lines: []int{1, 3}},
			wantMsg:  `ambiguous anchor: "apple" matches 2 times (lines 1, 3); use a longer anchor`,
			wantBase: ErrAmbiguousAnchor,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantBase) {
				t.Errorf("errors.Is(%v) = false", tt.wantBase)
			}
		})
	}
}

func TestSectionNotFoundError(t *testing.T) {
	err := &SectionNotFoundError{Slug: "magic", Available: []string{"geography", "history"}}
	if got, want := err.Error(), "section not found: magic (available: geography, history)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	empty := &SectionNotFoundError{Slug: "magic"}
	if got, want := empty.Error(), "section not found: magic (document has no sections)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrSectionNotFound) {
		t.Error("expected errors.Is(err, ErrSectionNotFound)")
	}
}

func TestStructuralError(t *testing.T) {
	err := &StructuralError{
		Path: "ch01.md",
		Issues: []Issue{
			{Line: 3, Message: "duplicate beat id b1 (first on line 1)"},
			{Message: "second closing sentinel"},
		},
	}
	want := "structural error in ch01.md: line 3: duplicate beat id b1 (first on line 1); second closing sentinel"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrStructural) {
		t.Error("expected errors.Is(err, ErrStructural)")
	}
	if got := (&StructuralError{}).Error(); got != "structural error" {
		t.Errorf("empty Error() = %q", got)
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     NewValidation("label", "must be a single line"),
			wantMsg: "validation failed for label: must be a single line",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("expected errors.Is(err, ErrInvalidInput)")
			}
		})
	}
}

func TestIOError(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := NewIO("write", "ch01.md", underlying)
	if got, want := err.Error(), "failed to write ch01.md: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Unwrap() != underlying {
		t.Error("Unwrap() did not return underlying error")
	}
	noPath := &IOError{Operation: "commit", Err: underlying}
	if got, want := noPath.Error(), "failed to commit: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	base := NewNotFound("beat", "b1", nil)
	wrapped := Wrap(base, "remove")
	if got, want := wrapped.Error(), "remove: beat not found: b1"; got != want {
		t.Errorf("Wrap() = %q, want %q", got, want)
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should match ErrNotFound")
	}
	var nf *NotFoundError
	if !As(wrapped, &nf) || nf.ID != "b1" {
		t.Errorf("As() failed to extract NotFoundError, got %+v", nf)
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	wrapped := Wrapf(ErrStructural, "parse %s", "ch02.md")
	if got, want := wrapped.Error(), "parse ch02.md: structural error"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
}
