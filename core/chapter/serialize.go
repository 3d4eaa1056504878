package chapter

import (
	"strings"

	"github.com/FocuswithJustin/Quill/core/marker"
)

// Serialize renders the document as text. Unchanged fields are written with
// their original bytes; changed or new ones are rendered canonically.
func (d *Document) Serialize() string {
	var sb strings.Builder
	d.writePreamble(&sb)

	nl := d.eol()
	for i, b := range d.Blocks {
		if d.touched(i) || (i > 0 && d.touched(i-1)) {
			ensureBlankLine(&sb, nl)
		}
		d.writeBlock(&sb, b)
	}

	lastTouched := len(d.Blocks) > 0 && d.touched(len(d.Blocks)-1)
	switch {
	case d.Closed && d.srcClosed:
		if lastTouched {
			ensureBlankLine(&sb, nl)
		}
		sb.WriteString(d.closeRaw)
	case d.Closed:
		ensureBlankLine(&sb, nl)
		sb.WriteString(marker.RenderClose())
		sb.WriteString(nl)
	case lastTouched:
		ensureNewline(&sb, nl)
	}
	if !d.Closed && d.srcClosed {
		// the line break belonged to the removed sentinel
		sb.WriteString(strings.TrimPrefix(strings.TrimPrefix(d.tail, "\r"), "\n"))
	} else {
		sb.WriteString(d.tail)
	}
	return sb.String()
}

// touched reports whether block i is new or has been repositioned.
func (d *Document) touched(i int) bool {
	b := d.Blocks[i]
	return b.src == nil || b.src.loose
}

// eol is the line ending used for rendered text.
func (d *Document) eol() string {
	if d.newline == "" {
		return "\n"
	}
	return d.newline
}

// lines rewrites the line breaks of rendered text to the document's ending.
func (d *Document) lines(s string) string {
	if d.eol() == "\n" {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", d.eol())
}

func (d *Document) wrap() int {
	if d.WrapColumn == 0 {
		return marker.DefaultWrapColumn
	}
	return d.WrapColumn
}

func (d *Document) writePreamble(sb *strings.Builder) {
	p := d.pre
	want := marker.Normalize(d.Summary)
	switch {
	case p.summary != "" && want == p.summaryText:
		sb.WriteString(p.before)
		sb.WriteString(p.summary)
		sb.WriteString(p.after)
	case p.summary != "" && want == "":
		whole := p.before + p.summary + p.after
		sb.WriteString(marker.Cut(whole, []marker.Span{{Start: len(p.before), End: len(p.before) + len(p.summary)}}))
	case p.summary != "":
		sb.WriteString(p.before)
		sb.WriteString(d.lines(marker.RenderDocSummary(want, d.wrap())))
		sb.WriteString(p.after)
	case want != "":
		sb.WriteString(insertAfterHeading(p.before, d.lines(marker.RenderDocSummary(want, d.wrap())), d.eol()))
	default:
		sb.WriteString(p.before)
	}
}

// insertAfterHeading places line directly after the first level-1 heading,
// or at the very top when the preamble has no heading. nl ends the line.
func insertAfterHeading(pre, line, nl string) string {
	offset := 0
	for offset <= len(pre) {
		rest := pre[offset:]
		i := strings.IndexByte(rest, '\n')
		current := rest
		if i >= 0 {
			current = rest[:i]
		}
		if strings.HasPrefix(current, "# ") || strings.TrimSuffix(current, "\r") == "#" {
			if i < 0 {
				return pre + nl + line + nl
			}
			cut := offset + i + 1
			return pre[:cut] + line + nl + pre[cut:]
		}
		if i < 0 {
			break
		}
		offset += i + 1
	}
	if pre == "" {
		return line + nl
	}
	return line + nl + pre
}

func (d *Document) writeBlock(sb *strings.Builder, b Block) {
	src := b.src
	label := marker.Normalize(b.Label)
	if src != nil && b.ID == src.id && b.Status == src.status && label == src.label {
		sb.WriteString(src.marker)
	} else {
		sb.WriteString(marker.RenderBlockOpen(b.ID, b.Status, label))
	}

	want := marker.Normalize(b.Summary)
	switch {
	case src != nil && src.summary != "" && want == src.summaryText:
		sb.WriteString(src.gap)
		sb.WriteString(src.summary)
	case src != nil && src.summary != "" && want != "":
		sb.WriteString(src.gap)
		sb.WriteString(d.lines(marker.RenderSummary(want, d.wrap())))
	case (src == nil || src.summary == "") && want != "":
		sb.WriteString(d.eol())
		sb.WriteString(d.lines(marker.RenderSummary(want, d.wrap())))
	}

	prose := strings.TrimSpace(b.Prose)
	switch {
	case src != nil && prose == src.prose:
		sb.WriteString(src.lead)
		sb.WriteString(src.prose)
		sb.WriteString(src.trail)
	case src != nil:
		if prose == "" {
			ws := keepNewlines(src.trail, d.eol())
			if ws == "" {
				ws = keepNewlines(src.lead, d.eol())
			}
			sb.WriteString(ws)
			return
		}
		lead := src.lead
		if !strings.Contains(lead, "\n") {
			lead = d.eol()
		}
		sb.WriteString(lead)
		sb.WriteString(d.lines(prose))
		sb.WriteString(src.trail)
	default:
		sb.WriteString(d.eol())
		if prose != "" {
			sb.WriteString(d.lines(prose))
			sb.WriteString(d.eol())
		}
	}
}

// keepNewlines keeps only the line breaks of a whitespace run, so an emptied
// beat does not leave trailing spaces behind.
func keepNewlines(ws, nl string) string {
	n := strings.Count(ws, "\n")
	if n == 0 {
		return ""
	}
	return strings.Repeat(nl, n)
}

func ensureBlankLine(sb *strings.Builder, nl string) {
	s := sb.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"), strings.HasSuffix(s, "\n\r\n"):
	case strings.HasSuffix(s, "\n"):
		sb.WriteString(nl)
	default:
		sb.WriteString(nl + nl)
	}
}

func ensureNewline(sb *strings.Builder, nl string) {
	s := sb.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		sb.WriteString(nl)
	}
}
