package chapter

import (
	"fmt"
	"strings"
	"unicode"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// Block is one beat: a marker, an optional summary and the prose up to the
// next marker.
type Block struct {
	ID      string
	Status  marker.Status
	Label   string
	Summary string
	// Prose is the beat content with surrounding whitespace trimmed.
	Prose string

	src *source
}

// source records how a parsed block was laid out in its text.
type source struct {
	marker string
	id     string
	status marker.Status
	label  string

	gap         string // whitespace between marker and summary
	summary     string // summary comment as written, "" when absent
	summaryText string

	lead  string // whitespace before prose
	prose string
	trail string // whitespace after prose

	// loose blocks have been repositioned; the separators around them are
	// normalized on output.
	loose bool
}

// Parsed reports whether the block came from Parse rather than being built
// by the caller.
func (b Block) Parsed() bool {
	return b.src != nil
}

func (b Block) clone() Block {
	if b.src != nil {
		cp := *b.src
		b.src = &cp
	}
	return b
}

// preamble is the text before the first beat marker.
type preamble struct {
	before      string // text before the chapter summary, or the whole preamble
	summary     string // chapter summary comment as written
	summaryText string
	after       string
}

// Document is a parsed chapter.
type Document struct {
	Summary string
	Blocks  []Block
	Closed  bool

	// Warnings are tolerated anomalies found while parsing.
	Warnings []marker.Warning

	// WrapColumn is the column at which re-rendered summaries wrap.
	WrapColumn int

	pre       preamble
	closeRaw  string
	tail      string
	srcClosed bool
	// newline is the line ending of the source text, "\n" or "\r\n".
	newline string
}

// New returns an empty document with the given top text (usually a heading).
func New(top string) *Document {
	return &Document{
		WrapColumn: marker.DefaultWrapColumn,
		pre:        preamble{before: top},
	}
}

// Parse builds a Document from text. It fails with a StructuralError listing
// every grammar violation: duplicate beat ids, malformed markers, a
// chapter summary outside the preamble or repeated, or markers after the
// closing sentinel.
func Parse(text string) (*Document, error) {
	res := marker.Scan(text)
	issues := append([]qerrors.Issue(nil), res.Issues...)
	warnings := append([]marker.Warning(nil), res.Warnings...)

	var (
		opens    []marker.Token
		summary  = map[int]marker.Token{} // index into opens -> attached summary
		docSum   *marker.Token
		closeTok *marker.Token
	)

	var prev *marker.Token
	for i := range res.Tokens {
		tok := res.Tokens[i]
		if !tok.Kind.Structural() {
			continue
		}
		if closeTok != nil {
			if tok.Kind == marker.KindClose {
				issues = append(issues, qerrors.Issue{Line: tok.Line,
					Message: fmt.Sprintf("second closing sentinel (first on line %d)", closeTok.Line)})
			} else {
				issues = append(issues, qerrors.Issue{Line: tok.Line,
					Message: fmt.Sprintf("%s after closing sentinel on line %d", tok.Kind, closeTok.Line)})
			}
			continue
		}
		switch tok.Kind {
		case marker.KindBlockOpen:
			opens = append(opens, tok)
		case marker.KindBlockSummary:
			idx := len(opens) - 1
			_, taken := summary[idx]
			if idx >= 0 && !taken && prev != nil && prev.Kind == marker.KindBlockOpen && marker.Follows(text, *prev, tok) {
				summary[idx] = tok
			} else {
				warnings = append(warnings, marker.Warning{Kind: marker.StraySummary, Line: tok.Line,
					Message: "summary does not directly follow a beat marker; kept as prose"})
			}
		case marker.KindDocSummary:
			switch {
			case len(opens) > 0:
				issues = append(issues, qerrors.Issue{Line: tok.Line,
					Message: "chapter-summary must appear before the first beat marker"})
			case docSum != nil:
				issues = append(issues, qerrors.Issue{Line: tok.Line,
					Message: fmt.Sprintf("second chapter-summary (first on line %d)", docSum.Line)})
			default:
				t := tok
				docSum = &t
			}
		case marker.KindClose:
			t := tok
			closeTok = &t
		}
		t := tok
		prev = &t
	}

	if len(issues) > 0 {
		return nil, &qerrors.StructuralError{Issues: issues}
	}

	doc := &Document{WrapColumn: marker.DefaultWrapColumn, Warnings: warnings, newline: lineEnding(text)}

	end := len(text)
	if closeTok != nil {
		end = closeTok.Start
		doc.Closed = true
		doc.srcClosed = true
		doc.closeRaw = text[closeTok.Start:closeTok.End]
		doc.tail = text[closeTok.End:]
	}

	preEnd := end
	if len(opens) > 0 {
		preEnd = opens[0].Start
	}
	if docSum != nil {
		doc.pre = preamble{
			before:      text[:docSum.Start],
			summary:     text[docSum.Start:docSum.End],
			summaryText: docSum.Text,
			after:       text[docSum.End:preEnd],
		}
		doc.Summary = docSum.Text
	} else {
		doc.pre = preamble{before: text[:preEnd]}
	}

	for i, open := range opens {
		regionEnd := end
		if i+1 < len(opens) {
			regionEnd = opens[i+1].Start
		}
		src := &source{
			marker: text[open.Start:open.End],
			id:     open.ID,
			status: open.Status,
			label:  open.Label,
		}
		bodyStart := open.End
		if sum, ok := summary[i]; ok {
			src.gap = text[open.End:sum.Start]
			src.summary = text[sum.Start:sum.End]
			src.summaryText = sum.Text
			bodyStart = sum.End
		}
		src.lead, src.prose, src.trail = splitBody(text[bodyStart:regionEnd])
		doc.Blocks = append(doc.Blocks, Block{
			ID:      open.ID,
			Status:  open.Status,
			Label:   open.Label,
			Summary: src.summaryText,
			Prose:   src.prose,
			src:     src,
		})
	}
	return doc, nil
}

// lineEnding returns the ending of the first line of text.
func lineEnding(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// splitBody separates leading whitespace, trimmed prose and trailing whitespace.
func splitBody(body string) (lead, prose, trail string) {
	trimmedLeft := strings.TrimLeftFunc(body, unicode.IsSpace)
	if trimmedLeft == "" {
		return "", "", body
	}
	lead = body[:len(body)-len(trimmedLeft)]
	prose = strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	trail = trimmedLeft[len(prose):]
	return lead, prose, trail
}

// IDs returns the block ids in document order.
func (d *Document) IDs() []string {
	ids := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		ids[i] = b.ID
	}
	return ids
}

// Index returns the position of the block with id, or -1.
func (d *Document) Index(id string) int {
	for i, b := range d.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Block returns the block with id.
func (d *Document) Block(id string) (Block, error) {
	i := d.Index(id)
	if i < 0 {
		return Block{}, qerrors.NewNotFound("beat", id, d.IDs())
	}
	return d.Blocks[i], nil
}

// Clone returns a deep copy; edits to the copy never reach d.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Blocks = make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		cp.Blocks[i] = b.clone()
	}
	cp.Warnings = append([]marker.Warning(nil), d.Warnings...)
	return &cp
}

// Equal reports structural equality: same chapter summary, closing flag and
// block fields in the same order. Layout whitespace is ignored.
func Equal(a, b *Document) bool {
	if marker.Normalize(a.Summary) != marker.Normalize(b.Summary) || a.Closed != b.Closed {
		return false
	}
	if len(a.Blocks) != len(b.Blocks) {
		return false
	}
	for i := range a.Blocks {
		x, y := a.Blocks[i], b.Blocks[i]
		if x.ID != y.ID || x.Status != y.Status ||
			marker.Normalize(x.Label) != marker.Normalize(y.Label) ||
			marker.Normalize(x.Summary) != marker.Normalize(y.Summary) ||
			strings.TrimSpace(x.Prose) != strings.TrimSpace(y.Prose) {
			return false
		}
	}
	return true
}

// Edit parses text, applies fn and serializes the result. The text is
// returned unchanged alongside any error.
func Edit(text string, fn func(*Document) (*Document, error)) (string, error) {
	doc, err := Parse(text)
	if err != nil {
		return text, err
	}
	next, err := fn(doc)
	if err != nil {
		return text, err
	}
	return next.Serialize(), nil
}
