package annotate

import (
	"strings"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// InsertAfter adds a single-line annotation on a new line after the line on
// which anchor ends. The anchor must occur exactly once in prose. When the
// anchor ends inside a comment the annotation goes after that comment's line.
// Newlines in message collapse to spaces.
func InsertAfter(prose, anchor string, typ marker.AnnotationType, author, message string) (string, error) {
	if err := validateNew(anchor, typ, author, message); err != nil {
		return prose, err
	}

	var matches []int
	for from := 0; ; {
		i := strings.Index(prose[from:], anchor)
		if i < 0 {
			break
		}
		matches = append(matches, from+i)
		// overlapping occurrences count too
		from += i + 1
	}
	if len(matches) != 1 {
		lines := make([]int, len(matches))
		for i, m := range matches {
			lines[i] = marker.LineAt(prose, m)
		}
		return prose, &qerrors.AnchorError{Anchor: anchor, Matches: len(matches), Lines: lines}
	}

	last := matches[0] + len(anchor) - 1
	if end := commentEnd(prose, last); end > 0 {
		last = end - 1
	}
	line := marker.RenderAnnotation(typ, author, message)

	nl := strings.IndexByte(prose[last:], '\n')
	if nl < 0 {
		if strings.Contains(prose, "\r\n") {
			return prose + "\r\n" + line, nil
		}
		return prose + "\n" + line, nil
	}
	pos := last + nl
	sep := "\n"
	if pos > 0 && prose[pos-1] == '\r' {
		pos--
		sep = "\r\n"
	}
	return prose[:pos] + sep + line + prose[pos:], nil
}

// commentEnd returns the offset just past the comment enclosing off, or -1.
func commentEnd(prose string, off int) int {
	open := strings.LastIndex(prose[:off+1], "<!--")
	if open < 0 {
		return -1
	}
	n := strings.Index(prose[open+len("<!--"):], "-->")
	if n < 0 {
		return -1
	}
	end := open + len("<!--") + n + len("-->")
	if end <= off {
		return -1
	}
	return end
}

func validateNew(anchor string, typ marker.AnnotationType, author, message string) error {
	switch {
	case anchor == "":
		return qerrors.NewValidation("anchor", "must not be empty")
	case !typ.IsValid():
		return qerrors.NewValidation("type",
			"unknown annotation type "+string(typ)+" (want note, dev, line, continuity, query or flag)")
	case marker.Normalize(message) == "" && !typ.MessageOptional():
		return qerrors.NewValidation("message", "required for @"+string(typ))
	case !marker.ValidText(message), !marker.ValidText(author):
		return qerrors.NewValidation("message", "must not contain comment brackets")
	case strings.ContainsAny(author, "()"):
		return qerrors.NewValidation("author", "must not contain parentheses")
	}
	return nil
}

// Remove deletes the annotation with id from prose. A comment alone on its
// lines takes those lines with it, including every line of a multi-line
// annotation; a comment sharing a line with prose is cut out with one
// adjacent space. The id must come from an extraction of this same prose.
func Remove(prose, id string, opts Options) (string, error) {
	anns, _ := Extract(prose, opts)
	ids := make([]string, 0, len(anns))
	for _, a := range anns {
		if a.ID == id {
			return marker.Cut(prose, []marker.Span{a.span}), nil
		}
		ids = append(ids, a.ID)
	}
	return prose, qerrors.NewNotFound("annotation", id, ids)
}
