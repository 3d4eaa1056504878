// Package sections indexes reference documents by heading.
//
// A reference document is split at ATX headings of one level. The text
// before the first such heading is the top matter; each section runs from
// its heading line up to the next heading of the same level or the end of
// the text. Headings inside fenced code blocks are ignored. Concatenating
// the top matter and every section in order reproduces the text exactly.
package sections

import (
	"strings"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
)

// DefaultLevel is the heading level used when none is configured.
const DefaultLevel = 2

// Section is one entry of the table of contents.
type Section struct {
	Name string // heading text as displayed
	Slug string
	Line int // 1-based line of the heading

	start, end int
}

// Document is an indexed reference document.
type Document struct {
	Level     int
	TopMatter string
	Sections  []Section

	text   string
	bySlug map[string]int
}

// Index splits text on headings of the given level. A text without such
// headings yields the whole text as top matter and no sections.
func Index(text string, level int) (*Document, error) {
	if level < 1 || level > 6 {
		return nil, qerrors.NewValidation("level", "heading level must be between 1 and 6")
	}
	doc := &Document{Level: level, text: text, bySlug: map[string]int{}}

	var (
		fence    string
		offset   int
		lineNo   int
		starts   []int
		names    []string
		lineNums []int
	)
	for offset < len(text) {
		lineNo++
		end := strings.IndexByte(text[offset:], '\n')
		next := len(text)
		if end >= 0 {
			next = offset + end + 1
		}
		line := strings.TrimRight(text[offset:next], "\r\n")

		if f := fenceMarker(line); f != "" {
			switch {
			case fence == "":
				fence = f
			case f[0] == fence[0] && len(f) >= len(fence) && strings.TrimSpace(strings.TrimLeft(line, " ")[len(f):]) == "":
				fence = ""
			}
		} else if fence == "" {
			if name, ok := heading(line, level); ok {
				starts = append(starts, offset)
				names = append(names, name)
				lineNums = append(lineNums, lineNo)
			}
		}
		offset = next
	}

	if len(starts) == 0 {
		doc.TopMatter = text
		return doc, nil
	}
	doc.TopMatter = text[:starts[0]]
	taken := map[string]bool{}
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		slug := unique(Slugify(names[i]), taken)
		doc.bySlug[slug] = len(doc.Sections)
		doc.Sections = append(doc.Sections, Section{
			Name:  names[i],
			Slug:  slug,
			Line:  lineNums[i],
			start: start,
			end:   end,
		})
	}
	return doc, nil
}

// heading reports whether line is an ATX heading of exactly level hashes and
// returns its display text without the optional closing sequence.
func heading(line string, level int) (string, bool) {
	indent := len(line) - len(strings.TrimLeft(line, " "))
	if indent > 3 {
		return "", false
	}
	rest := line[indent:]
	hashes := len(rest) - len(strings.TrimLeft(rest, "#"))
	if hashes != level {
		return "", false
	}
	rest = rest[hashes:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if trimmed := strings.TrimRight(rest, "#"); trimmed != rest {
		if trimmed == "" {
			rest = ""
		} else if last := trimmed[len(trimmed)-1]; last == ' ' || last == '\t' {
			rest = strings.TrimSpace(trimmed)
		}
	}
	return rest, true
}

// fenceMarker returns the opening run of a code fence line, or "".
func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return ""
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return ""
	}
	n := len(trimmed) - len(strings.TrimLeft(trimmed, string(c)))
	if n < 3 {
		return ""
	}
	return trimmed[:n]
}

// Text returns the whole document.
func (d *Document) Text() string {
	return d.text
}

// Slugs returns the section slugs in heading order.
func (d *Document) Slugs() []string {
	slugs := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		slugs[i] = s.Slug
	}
	return slugs
}

// Fetch returns the section text for slug, heading line included.
func (d *Document) Fetch(slug string) (string, error) {
	i, ok := d.bySlug[slug]
	if !ok {
		return "", &qerrors.SectionNotFoundError{Slug: slug, Available: d.Slugs()}
	}
	s := d.Sections[i]
	return d.text[s.start:s.end], nil
}

// FetchMany returns the text of each slug in request order. It fails on the
// first unknown slug without returning partial results.
func (d *Document) FetchMany(slugs []string) ([]string, error) {
	out := make([]string, len(slugs))
	for i, slug := range slugs {
		text, err := d.Fetch(slug)
		if err != nil {
			return nil, err
		}
		out[i] = text
	}
	return out, nil
}

// Fetch indexes text and returns one section. Use Index and FetchMany when
// several sections of the same document are needed.
func Fetch(text string, level int, slug string) (string, error) {
	doc, err := Index(text, level)
	if err != nil {
		return "", err
	}
	return doc.Fetch(slug)
}
