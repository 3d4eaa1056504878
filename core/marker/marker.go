// Package marker recognizes the structural comments embedded in manuscript text.
//
// Every marker uses the HTML comment bracket, so any renderer that ignores
// comments ignores all of them uniformly:
//
//	<!-- beat:ID [STATUS] | LABEL -->     block open
//	<!-- summary: TEXT -->                block summary
//	<!-- chapter-summary: TEXT -->        document summary
//	<!-- /chapter -->                     closing sentinel
//	<!-- @TYPE(AUTHOR): MESSAGE -->       inline annotation
//	<!-- @flag -->                        flag annotation without message
//
// Two legacy forms are recognized so they can be migrated away:
// <!-- beat-summary: TEXT --> and <!-- chapter-synopsis: TEXT -->.
//
// The package only recognizes; it never mutates text. Scan reports three
// classes of finding: tokens, warnings (tolerated anomalies such as an
// unterminated annotation) and structural issues (duplicate ids, malformed
// markers). Deciding whether an issue rejects the document is the caller's job.
package marker

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the lexical form of a token.
type Kind int

const (
	// KindBlockOpen is a beat marker carrying id, status and label.
	KindBlockOpen Kind = iota
	// KindBlockSummary is the summary comment following a beat marker.
	KindBlockSummary
	// KindDocSummary is the chapter-summary comment in the preamble.
	KindDocSummary
	// KindClose is the closing sentinel.
	KindClose
	// KindAnnotation is an inline editorial annotation.
	KindAnnotation
	// KindLegacyBlockSummary is a superseded beat-summary comment.
	KindLegacyBlockSummary
	// KindLegacyDocSummary is a superseded chapter-synopsis comment.
	KindLegacyDocSummary
)

var kindNames = map[Kind]string{
	KindBlockOpen:          "block-open",
	KindBlockSummary:       "block-summary",
	KindDocSummary:         "doc-summary",
	KindClose:              "close",
	KindAnnotation:         "annotation",
	KindLegacyBlockSummary: "legacy-block-summary",
	KindLegacyDocSummary:   "legacy-doc-summary",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Structural reports whether the kind shapes the block sequence. Structural
// tokens may not appear inside replacement prose.
func (k Kind) Structural() bool {
	switch k {
	case KindBlockOpen, KindBlockSummary, KindDocSummary, KindClose:
		return true
	}
	return false
}

// Legacy reports whether the kind is a superseded form.
func (k Kind) Legacy() bool {
	return k == KindLegacyBlockSummary || k == KindLegacyDocSummary
}

// Status is the caller-asserted state of a beat.
type Status string

const (
	StatusPlanned  Status = "planned"
	StatusWritten  Status = "written"
	StatusDirty    Status = "dirty"
	StatusConflict Status = "conflict"
)

// validStatuses is the set of valid status values.
var validStatuses = map[Status]bool{
	StatusPlanned:  true,
	StatusWritten:  true,
	StatusDirty:    true,
	StatusConflict: true,
}

// IsValid returns true if the status is one of the four known values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Statuses lists the valid status values in display order.
func Statuses() []Status {
	return []Status{StatusPlanned, StatusWritten, StatusDirty, StatusConflict}
}

// ParseStatus converts text to a Status. Matching is exact; "Written" is not
// coerced to "written".
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown status %q (want planned, written, dirty or conflict)", s)
	}
	return st, nil
}

// AnnotationType classifies an editorial annotation.
type AnnotationType string

const (
	AnnotationNote       AnnotationType = "note"
	AnnotationDev        AnnotationType = "dev"
	AnnotationLine       AnnotationType = "line"
	AnnotationContinuity AnnotationType = "continuity"
	AnnotationQuery      AnnotationType = "query"
	AnnotationFlag       AnnotationType = "flag"
)

var validAnnotationTypes = map[AnnotationType]bool{
	AnnotationNote:       true,
	AnnotationDev:        true,
	AnnotationLine:       true,
	AnnotationContinuity: true,
	AnnotationQuery:      true,
	AnnotationFlag:       true,
}

// IsValid returns true if the annotation type is known.
func (t AnnotationType) IsValid() bool {
	return validAnnotationTypes[t]
}

// MessageOptional reports whether an annotation of this type may omit its message.
func (t AnnotationType) MessageOptional() bool {
	return t == AnnotationFlag
}

// Token is one recognized marker with its position in the scanned text.
type Token struct {
	Kind Kind

	// Start and End are byte offsets; End is exclusive.
	Start int
	End   int

	// Line and EndLine are 1-based. They differ for wrapped or multi-line comments.
	Line    int
	EndLine int

	// ID, Status and Label are set for KindBlockOpen. Status is empty for a
	// legacy marker written without brackets.
	ID     string
	Status Status
	Label  string

	// Text holds the normalized summary or annotation message.
	Text string

	// Type and Author are set for KindAnnotation. Author is empty when the
	// annotation did not name one.
	Type   AnnotationType
	Author string
}

// Raw returns the exact source bytes of the token.
func (t Token) Raw(text string) string {
	return text[t.Start:t.End]
}

// WarningKind classifies a tolerated anomaly.
type WarningKind string

const (
	// UnterminatedAnnotation is an annotation opener with no closing bracket
	// before the next comment opener or end of text.
	UnterminatedAnnotation WarningKind = "UnterminatedAnnotation"
	// UnterminatedComment is any other comment opener with no closing bracket.
	UnterminatedComment WarningKind = "UnterminatedComment"
	// UnknownAnnotationType is an @-comment naming a type outside the known set.
	UnknownAnnotationType WarningKind = "UnknownAnnotationType"
	// MalformedAnnotation is an @-comment whose head could not be parsed.
	MalformedAnnotation WarningKind = "MalformedAnnotation"
	// EmptyAnnotation is a non-flag annotation without a message.
	EmptyAnnotation WarningKind = "EmptyAnnotation"
	// StraySummary is a summary comment that does not directly follow a beat marker.
	StraySummary WarningKind = "StraySummary"
)

// Warning is a tolerated anomaly. Warnings never stop a parse.
type Warning struct {
	Kind    WarningKind
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// idPattern is the lexical form of a beat id.
var idPattern = regexp.MustCompile(`^[^\s\[\]()|:@]+$`)

// closePrefix is what the body lexer reads as a sentinel.
var closePrefix = regexp.MustCompile(`^/chapter\b`)

// ValidID reports whether id can be written into a beat marker and read
// back as the same id. Comment brackets and a leading "/chapter" are
// lexically words but would end the comment or turn it into a sentinel.
func ValidID(id string) bool {
	return idPattern.MatchString(id) && ValidText(id) && !closePrefix.MatchString(id)
}

// Normalize collapses every run of whitespace to a single space and trims
// the ends. Wrapped and unwrapped comment text normalize to the same value.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
