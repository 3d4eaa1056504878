package marker

import (
	"fmt"
	"sort"
	"strings"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
)

// Result is the outcome of scanning one text.
type Result struct {
	Tokens   []Token
	Warnings []Warning
	Issues   []qerrors.Issue
}

// Err returns a StructuralError when the scan found grammar violations.
func (r *Result) Err(path string) error {
	if len(r.Issues) == 0 {
		return nil
	}
	return &qerrors.StructuralError{Path: path, Issues: r.Issues}
}

// Filter returns the tokens of the given kinds, in text order.
func (r *Result) Filter(kinds ...Kind) []Token {
	var out []Token
	for _, tok := range r.Tokens {
		for _, k := range kinds {
			if tok.Kind == k {
				out = append(out, tok)
				break
			}
		}
	}
	return out
}

// Scan tokenizes text.
//
// Tie-breaks:
//   - a comment runs from "<!--" to the first "-->"; if another "<!--"
//     appears first, the earlier opener is unterminated, becomes prose and
//     produces a warning, and scanning resumes at the later opener;
//   - two beat markers with the same id are both reported as tokens and a
//     structural issue names the id and both lines;
//   - comments matching no form are ordinary prose and produce nothing.
func Scan(text string) *Result {
	res := &Result{}
	lines := newLineIndex(text)
	seen := map[string]int{}

	pos := 0
	for {
		i := strings.Index(text[pos:], commentOpen)
		if i < 0 {
			break
		}
		start := pos + i
		bodyStart := start + len(commentOpen)
		end := strings.Index(text[bodyStart:], commentClose)
		next := strings.Index(text[bodyStart:], commentOpen)
		if end < 0 || (next >= 0 && next < end) {
			res.Warnings = append(res.Warnings, unterminated(text[bodyStart:], lines.line(start)))
			pos = bodyStart
			continue
		}

		stop := bodyStart + end + len(commentClose)
		c := classifyBody(text[bodyStart : bodyStart+end])
		line := lines.line(start)
		switch c.class {
		case classToken:
			tok := c.token
			tok.Start = start
			tok.End = stop
			tok.Line = line
			tok.EndLine = lines.line(stop - 1)
			if tok.Kind == KindBlockOpen {
				if first, dup := seen[tok.ID]; dup {
					res.Issues = append(res.Issues, qerrors.Issue{
						Line:    line,
						Message: fmt.Sprintf("duplicate beat id %s (first on line %d)", tok.ID, first),
					})
				} else {
					seen[tok.ID] = line
				}
			}
			res.Tokens = append(res.Tokens, tok)
		case classIssue:
			res.Issues = append(res.Issues, qerrors.Issue{Line: line, Message: c.message})
		case classWarning:
			res.Warnings = append(res.Warnings, Warning{Kind: c.warning, Line: line, Message: c.message})
		}
		pos = stop
	}
	return res
}

func unterminated(rest string, line int) Warning {
	if strings.HasPrefix(strings.TrimLeft(rest, " \t"), "@") {
		return Warning{Kind: UnterminatedAnnotation, Line: line,
			Message: "annotation is missing its closing \"-->\""}
	}
	return Warning{Kind: UnterminatedComment, Line: line,
		Message: "comment is missing its closing \"-->\""}
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

func (li lineIndex) line(offset int) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset })
}

// LineAt returns the 1-based line containing the byte offset.
func LineAt(text string, offset int) int {
	return newLineIndex(text).line(offset)
}
