// Package annotate extracts, inserts and removes inline editorial annotations.
//
// Annotations are values derived from prose. They are never stored apart
// from the text: removing one removes its comment from the prose.
//
// Annotation ids are derived from the document id, block id, line number and
// position among the annotations starting on that line, at extraction time. They are valid for a single extract-then-mutate cycle;
// any edit that shifts lines invalidates them, so callers re-extract before
// removing when the text may have changed.
package annotate

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/Quill/core/chapter"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// idLength is the number of hex characters kept from the digest.
const idLength = 12

// Annotation is one editorial comment found in prose.
type Annotation struct {
	ID     string
	Type   marker.AnnotationType
	Author string
	// Message is whitespace-normalized; a comment wrapped over several lines
	// reads as one logical message.
	Message string

	BlockID string
	// Line and EndLine are 1-based lines within the block prose. They differ
	// for an annotation written over several lines.
	Line    int
	EndLine int

	span marker.Span
}

// MultiLine reports whether the annotation was written over several lines.
func (a Annotation) MultiLine() bool {
	return a.EndLine > a.Line
}

// Render returns the canonical single-line form of the annotation.
func (a Annotation) Render() string {
	return marker.RenderAnnotation(a.Type, a.Author, a.Message)
}

func (a Annotation) String() string {
	return fmt.Sprintf("%s %s line %d @%s(%s): %s", a.ID, a.BlockID, a.Line, a.Type, a.Author, a.Message)
}

// Options identify the prose being scanned.
type Options struct {
	DocumentID    string
	BlockID       string
	DefaultAuthor string
}

// ID derives the annotation id for a location. ordinal is the 0-based
// position of the annotation among those starting on line.
func ID(documentID, blockID string, line, ordinal int) string {
	key := fmt.Sprintf("%s\x00%s\x00%d", documentID, blockID, line)
	if ordinal > 0 {
		key += fmt.Sprintf("\x00%d", ordinal)
	}
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:idLength]
}

// Extract returns the annotations of prose in text order, together with the
// anomalies found on the way. Unterminated or otherwise malformed annotation
// markup is reported as a warning and the rest of the prose is still read.
func Extract(prose string, opts Options) ([]Annotation, []marker.Warning) {
	res := marker.Scan(prose)
	warnings := append([]marker.Warning(nil), res.Warnings...)

	var out []Annotation
	perLine := map[int]int{}
	for _, tok := range res.Filter(marker.KindAnnotation) {
		if tok.Text == "" && !tok.Type.MessageOptional() {
			warnings = append(warnings, marker.Warning{Kind: marker.EmptyAnnotation, Line: tok.Line,
				Message: fmt.Sprintf("@%s annotation has no message", tok.Type)})
			continue
		}
		author := tok.Author
		if author == "" {
			author = opts.DefaultAuthor
		}
		ordinal := perLine[tok.Line]
		perLine[tok.Line]++
		out = append(out, Annotation{
			ID:      ID(opts.DocumentID, opts.BlockID, tok.Line, ordinal),
			Type:    tok.Type,
			Author:  author,
			Message: tok.Text,
			BlockID: opts.BlockID,
			Line:    tok.Line,
			EndLine: tok.EndLine,
			span:    marker.Span{Start: tok.Start, End: tok.End},
		})
	}
	return out, warnings
}

// BlockWarning is a warning found in one block's prose.
type BlockWarning struct {
	BlockID string
	marker.Warning
}

func (w BlockWarning) String() string {
	return w.BlockID + ": " + w.Warning.String()
}

// ExtractDocument walks every block of doc in order.
func ExtractDocument(doc *chapter.Document, opts Options) ([]Annotation, []BlockWarning) {
	var (
		all      []Annotation
		warnings []BlockWarning
	)
	for _, b := range doc.Blocks {
		o := opts
		o.BlockID = b.ID
		anns, warns := Extract(b.Prose, o)
		all = append(all, anns...)
		for _, w := range warns {
			warnings = append(warnings, BlockWarning{BlockID: b.ID, Warning: w})
		}
	}
	return all, warnings
}

// Filter returns the annotations of the given type; an empty type matches all.
func Filter(anns []Annotation, typ marker.AnnotationType) []Annotation {
	if typ == "" {
		return anns
	}
	var out []Annotation
	for _, a := range anns {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}
