package marker

import (
	"strings"
)

// DefaultWrapColumn is the column at which summary comments are wrapped.
const DefaultWrapColumn = 80

// RenderBlockOpen renders a beat marker. The status brackets are omitted when
// status is empty and the label segment when label is empty.
func RenderBlockOpen(id string, status Status, label string) string {
	var sb strings.Builder
	sb.WriteString("<!-- beat:")
	sb.WriteString(id)
	if status != "" {
		sb.WriteString(" [")
		sb.WriteString(string(status))
		sb.WriteString("]")
	}
	if label = Normalize(label); label != "" {
		sb.WriteString(" | ")
		sb.WriteString(label)
	}
	sb.WriteString(" -->")
	return sb.String()
}

// RenderSummary renders a block summary wrapped at width (no wrapping when width <= 0).
func RenderSummary(text string, width int) string {
	return wrapComment(keySummary, text, width)
}

// RenderDocSummary renders a document summary wrapped at width.
func RenderDocSummary(text string, width int) string {
	return wrapComment(keyChapterSummary, text, width)
}

// RenderClose renders the closing sentinel.
func RenderClose() string {
	return "<!-- /chapter -->"
}

// RenderAnnotation renders an annotation on exactly one physical line.
// Newlines in message collapse to spaces.
func RenderAnnotation(typ AnnotationType, author, message string) string {
	var sb strings.Builder
	sb.WriteString("<!-- @")
	sb.WriteString(string(typ))
	if author = Normalize(author); author != "" {
		sb.WriteString("(")
		sb.WriteString(author)
		sb.WriteString(")")
	}
	if message = Normalize(message); message != "" {
		sb.WriteString(": ")
		sb.WriteString(message)
	}
	sb.WriteString(" -->")
	return sb.String()
}

// wrapComment lays out "<!-- key: words -->" greedily so no line, closing
// bracket included, passes width unless a single word is longer than it.
func wrapComment(key, text string, width int) string {
	words := strings.Fields(text)
	var sb strings.Builder
	sb.WriteString("<!-- ")
	sb.WriteString(key)
	sb.WriteString(":")
	col := sb.Len()
	for i, w := range words {
		need := 1 + len(w)
		if i == len(words)-1 {
			need += len(" -->")
		}
		if width > 0 && col > 0 && col+need > width {
			sb.WriteString("\n")
			sb.WriteString(w)
			col = len(w)
			continue
		}
		sb.WriteString(" ")
		sb.WriteString(w)
		col += 1 + len(w)
	}
	sb.WriteString(" -->")
	return sb.String()
}
