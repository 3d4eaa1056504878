package chapter

import (
	"fmt"
	"strings"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// Patch names the marker and summary fields to change. Nil fields are left alone.
type Patch struct {
	Status  *marker.Status
	Summary *string
	Label   *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Summary == nil && p.Label == nil
}

// Insert adds b directly after the prose of the block afterID, or at the end
// of the document (before the closing sentinel) when afterID is empty.
// An empty status defaults to planned for empty prose and written otherwise.
func (d *Document) Insert(b Block, afterID string) (*Document, error) {
	b.src = nil
	b.Prose = strings.TrimSpace(b.Prose)
	if b.Status == "" {
		b.Status = marker.StatusPlanned
		if b.Prose != "" {
			b.Status = marker.StatusWritten
		}
	}
	if err := validateBlock(b); err != nil {
		return nil, err
	}
	if d.Index(b.ID) >= 0 {
		return nil, qerrors.NewDuplicateID("beat", b.ID)
	}
	pos := len(d.Blocks)
	if afterID != "" {
		i := d.Index(afterID)
		if i < 0 {
			return nil, qerrors.NewNotFound("beat", afterID, d.IDs())
		}
		pos = i + 1
	}

	next := d.Clone()
	next.Blocks = append(next.Blocks, Block{})
	copy(next.Blocks[pos+1:], next.Blocks[pos:])
	next.Blocks[pos] = b
	return next, nil
}

// Remove deletes the block's marker, summary and prose as one unit and
// returns the removed prose so the caller can archive it.
func (d *Document) Remove(id string) (*Document, string, error) {
	i := d.Index(id)
	if i < 0 {
		return nil, "", qerrors.NewNotFound("beat", id, d.IDs())
	}
	prose := d.Blocks[i].Prose
	next := d.Clone()
	next.Blocks = append(next.Blocks[:i], next.Blocks[i+1:]...)
	return next, prose, nil
}

// ReplaceProse swaps the block's prose; marker and summary are untouched.
// Text carrying beat markers, summaries or the closing sentinel is rejected.
func (d *Document) ReplaceProse(id, text string) (*Document, error) {
	i := d.Index(id)
	if i < 0 {
		return nil, qerrors.NewNotFound("beat", id, d.IDs())
	}
	text = strings.TrimSpace(text)
	if err := validateProse(text); err != nil {
		return nil, err
	}
	next := d.Clone()
	next.Blocks[i].Prose = text
	return next, nil
}

// Patch updates marker and summary fields without touching prose. Any status
// may follow any other.
func (d *Document) Patch(id string, p Patch) (*Document, error) {
	i := d.Index(id)
	if i < 0 {
		return nil, qerrors.NewNotFound("beat", id, d.IDs())
	}
	next := d.Clone()
	b := &next.Blocks[i]
	if p.Status != nil {
		if !p.Status.IsValid() {
			return nil, qerrors.NewValidation("status", "unknown status "+string(*p.Status))
		}
		b.Status = *p.Status
	}
	if p.Label != nil {
		if err := validateLabel(*p.Label); err != nil {
			return nil, err
		}
		b.Label = marker.Normalize(*p.Label)
	}
	if p.Summary != nil {
		if err := validateSummary("summary", *p.Summary); err != nil {
			return nil, err
		}
		b.Summary = marker.Normalize(*p.Summary)
	}
	return next, nil
}

// Reorder rewrites the block sequence in the order of ids, which must name
// every current block exactly once.
func (d *Document) Reorder(ids []string) (*Document, error) {
	current := d.IDs()
	have := make(map[string]int, len(d.Blocks))
	for i, id := range current {
		have[id] = i
	}
	seen := make(map[string]int, len(ids))
	var perr qerrors.InvalidPermutationError
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			perr.Duplicated = append(perr.Duplicated, id)
		}
		if _, ok := have[id]; !ok && seen[id] == 1 {
			perr.Unknown = append(perr.Unknown, id)
		}
	}
	for _, id := range current {
		if seen[id] == 0 {
			perr.Missing = append(perr.Missing, id)
		}
	}
	if len(perr.Missing)+len(perr.Unknown)+len(perr.Duplicated) > 0 {
		perr.Valid = current
		return nil, &perr
	}

	next := d.Clone()
	for i, id := range ids {
		b := d.Blocks[have[id]].clone()
		if b.src != nil && have[id] != i {
			b.src.loose = true
		}
		next.Blocks[i] = b
	}
	return next, nil
}

// SetSummary replaces the chapter summary. A new summary is placed directly
// after the leading heading.
func (d *Document) SetSummary(summary string) (*Document, error) {
	if err := validateSummary("chapter summary", summary); err != nil {
		return nil, err
	}
	next := d.Clone()
	next.Summary = marker.Normalize(summary)
	return next, nil
}

// SetClosed adds or removes the closing sentinel.
func (d *Document) SetClosed(closed bool) *Document {
	next := d.Clone()
	next.Closed = closed
	return next
}

func validateBlock(b Block) error {
	if !marker.ValidID(b.ID) {
		return qerrors.NewValidation("id", "beat id must be non-empty, contain no whitespace, comment brackets or any of []()|:@, and not start with /chapter")
	}
	if !b.Status.IsValid() {
		return qerrors.NewValidation("status", "unknown status "+string(b.Status))
	}
	if err := validateLabel(b.Label); err != nil {
		return err
	}
	if err := validateSummary("summary", b.Summary); err != nil {
		return err
	}
	return validateProse(b.Prose)
}

func validateLabel(label string) error {
	if strings.ContainsAny(label, "\r\n") {
		return qerrors.NewValidation("label", "must be a single line")
	}
	if !marker.ValidText(label) {
		return qerrors.NewValidation("label", "must not contain comment brackets")
	}
	return nil
}

func validateSummary(field, s string) error {
	if !marker.ValidText(s) {
		return qerrors.NewValidation(field, "must not contain comment brackets")
	}
	return nil
}

// validateProse rejects text that would change the block structure if it
// were spliced into a document.
func validateProse(text string) error {
	res := marker.Scan(text)
	if len(res.Issues) > 0 {
		return qerrors.NewValidation("prose", res.Issues[0].String())
	}
	for _, tok := range res.Tokens {
		if tok.Kind.Structural() {
			return qerrors.NewValidation("prose",
				fmt.Sprintf("must not contain %s markers (line %d)", tok.Kind, tok.Line))
		}
	}
	return nil
}
