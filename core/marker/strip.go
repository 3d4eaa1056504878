package marker

import (
	"regexp"
	"sort"
	"strings"
)

// Span is a byte range [Start, End) of text.
type Span struct {
	Start int
	End   int
}

// Cut removes spans from text surgically. A span that is alone on its
// line(s) takes the whole line(s) with it, including the trailing newline,
// plus one following blank line when the span sat between blank lines. A
// span sharing a line with other text is removed together with one adjacent
// space. Everything else is preserved byte for byte.
func Cut(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var sb strings.Builder
	last := 0
	for _, sp := range sorted {
		s, e := expand(text, sp)
		if s < last {
			s = last
		}
		if e <= s {
			continue
		}
		sb.WriteString(text[last:s])
		last = e
	}
	sb.WriteString(text[last:])
	return sb.String()
}

func expand(text string, sp Span) (int, int) {
	ls := strings.LastIndexByte(text[:sp.Start], '\n') + 1
	le := len(text)
	if i := strings.IndexByte(text[sp.End:], '\n'); i >= 0 {
		le = sp.End + i
	}
	before := text[ls:sp.Start]
	after := text[sp.End:le]
	if strings.TrimSpace(before) == "" && strings.TrimSpace(after) == "" {
		if le < len(text) {
			end := le + 1
			// do not leave two blank lines where there was one
			if blankBefore(text, ls) {
				if n := blankLineEnd(text, end); n > 0 {
					end = n
				}
			}
			return ls, end
		}
		// last line without newline: take the newline that precedes it instead
		if ls > 0 {
			return ls - 1, le
		}
		return ls, le
	}
	switch {
	case sp.Start > 0 && text[sp.Start-1] == ' ':
		return sp.Start - 1, sp.End
	case sp.End < len(text) && text[sp.End] == ' ':
		return sp.Start, sp.End + 1
	}
	return sp.Start, sp.End
}

// blankBefore reports whether the line starting at ls follows a blank line
// or opens the text.
func blankBefore(text string, ls int) bool {
	if ls == 0 {
		return true
	}
	prev := strings.LastIndexByte(text[:ls-1], '\n') + 1
	return strings.TrimSpace(text[prev:ls-1]) == ""
}

// blankLineEnd returns the offset past the blank line starting at from, or -1.
func blankLineEnd(text string, from int) int {
	i := strings.IndexByte(text[from:], '\n')
	if i < 0 || strings.TrimSpace(text[from:from+i]) != "" {
		return -1
	}
	return from + i + 1
}

var blankRun = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)

// Strip removes every recognized marker and annotation, returning the clean
// manuscript. Ordinary comments and unterminated openers are left alone.
// Runs of blank lines left behind collapse to one blank line.
func Strip(text string) string {
	res := Scan(text)
	spans := make([]Span, len(res.Tokens))
	for i, tok := range res.Tokens {
		spans[i] = Span{Start: tok.Start, End: tok.End}
	}
	out := Cut(text, spans)
	out = blankRun.ReplaceAllString(out, "\n\n")
	return strings.TrimLeft(out, "\n")
}

// Follows reports whether next comes directly after prev with nothing but
// whitespace between them. A summary is attached to a beat marker only when
// it follows it.
func Follows(text string, prev, next Token) bool {
	if next.Start < prev.End {
		return false
	}
	return strings.TrimSpace(text[prev.End:next.Start]) == ""
}

// ValidText reports whether s can be embedded inside a comment without
// changing the comment structure.
func ValidText(s string) bool {
	return !strings.Contains(s, commentOpen) && !strings.Contains(s, commentClose)
}
