// Package migrate moves a chapter from the legacy layout to the current one.
//
// Legacy chapters keep summaries in a sidecar or in superseded comments
// (beat-summary, chapter-synopsis) and may carry beat markers without a
// status. Migrate embeds exactly one canonical summary per beat, removes
// every superseded comment and fills in missing statuses. Running it on a
// migrated chapter returns the text unchanged.
package migrate

import (
	"sort"

	"github.com/FocuswithJustin/Quill/core/chapter"
	"github.com/FocuswithJustin/Quill/core/marker"
	"github.com/FocuswithJustin/Quill/core/sidecar"
)

// Source names where a migrated value came from.
type Source string

const (
	SourceLegacy  Source = "legacy-comment"
	SourceStray   Source = "stray-summary"
	SourceSidecar Source = "sidecar"
	SourceProse   Source = "prose"
)

// Fill is one field set by the migration.
type Fill struct {
	BlockID string // empty for the chapter summary
	Field   string
	Value   string
	Source  Source
}

// Discard is a superseded comment removed without its text being used.
type Discard struct {
	BlockID string
	Line    int
	Kind    marker.Kind
	Text    string
}

// Report describes what a migration did.
type Report struct {
	Fills     []Fill
	Discarded []Discard
	// Removed counts the superseded and stray comments cut from the text.
	Removed int
}

// Changed reports whether the migration altered anything.
func (r Report) Changed() bool {
	return len(r.Fills) > 0 || r.Removed > 0
}

// candidate is a summary text found outside its canonical place.
type candidate struct {
	tok    marker.Token
	source Source
}

// Migrate returns text in the current format. Structural errors in text are
// returned unchanged and nothing is migrated.
func Migrate(text string, side sidecar.Chapter) (string, Report, error) {
	var report Report

	if _, err := chapter.Parse(text); err != nil {
		return text, report, err
	}

	// Superseded comments go first so a canonical summary they separated
	// from its marker attaches again.
	res := marker.Scan(text)
	docCands, blockCands, spans := collectLegacy(res)
	cleaned := marker.Cut(text, spans)
	report.Removed += len(spans)

	res = marker.Scan(cleaned)
	strays, spans := collectStrays(cleaned, res)
	for id, cands := range strays {
		blockCands[id] = append(blockCands[id], cands...)
	}
	cleaned = marker.Cut(cleaned, spans)
	report.Removed += len(spans)

	doc, err := chapter.Parse(cleaned)
	if err != nil {
		return text, Report{}, err
	}

	if doc.Summary == "" {
		if c, rest, ok := pick(docCands); ok {
			doc, _ = doc.SetSummary(c.tok.Text)
			report.Fills = append(report.Fills, Fill{Field: "summary", Value: c.tok.Text, Source: c.source})
			report.Discarded = append(report.Discarded, discards("", rest)...)
		} else if s := marker.Normalize(side.Summary); s != "" {
			if next, err := doc.SetSummary(s); err == nil {
				doc = next
				report.Fills = append(report.Fills, Fill{Field: "summary", Value: doc.Summary, Source: SourceSidecar})
			}
		}
	} else {
		report.Discarded = append(report.Discarded, discards("", docCands)...)
	}

	for _, b := range doc.Blocks {
		rec := side.Beat(b.ID)
		cands := blockCands[b.ID]
		var p chapter.Patch
		var fills []Fill

		if b.Summary == "" {
			if c, rest, ok := pick(cands); ok {
				s := c.tok.Text
				p.Summary = &s
				fills = append(fills, Fill{BlockID: b.ID, Field: "summary", Value: s, Source: c.source})
				cands = rest
			} else if s := marker.Normalize(rec.Summary); s != "" && marker.ValidText(s) {
				p.Summary = &s
				fills = append(fills, Fill{BlockID: b.ID, Field: "summary", Value: s, Source: SourceSidecar})
			}
		}
		report.Discarded = append(report.Discarded, discards(b.ID, cands)...)

		if b.Status == "" {
			st, src := marker.StatusPlanned, SourceProse
			if valid, ok := rec.ValidStatus(); ok {
				st, src = valid, SourceSidecar
			} else if b.Prose != "" {
				st = marker.StatusWritten
			}
			p.Status = &st
			fills = append(fills, Fill{BlockID: b.ID, Field: "status", Value: string(st), Source: src})
		}

		if l := marker.Normalize(rec.Label); b.Label == "" && l != "" && marker.ValidText(l) {
			p.Label = &l
			fills = append(fills, Fill{BlockID: b.ID, Field: "label", Value: l, Source: SourceSidecar})
		}

		if p.Empty() {
			continue
		}
		next, err := doc.Patch(b.ID, p)
		if err != nil {
			return text, Report{}, err
		}
		doc = next
		report.Fills = append(report.Fills, fills...)
	}

	// summaries left in the preamble or owned by no surviving beat
	for id, cands := range blockCands {
		if doc.Index(id) < 0 {
			report.Discarded = append(report.Discarded, discards(id, cands)...)
		}
	}

	sort.SliceStable(report.Discarded, func(i, j int) bool {
		a, b := report.Discarded[i], report.Discarded[j]
		if a.BlockID != b.BlockID {
			return a.BlockID < b.BlockID
		}
		return a.Line < b.Line
	})

	if !report.Changed() {
		return text, report, nil
	}
	return doc.Serialize(), report, nil
}

// collectLegacy gathers the superseded comments and their spans. Legacy beat
// summaries belong to the nearest beat marker before them; those before the
// first marker are kept under the empty id.
func collectLegacy(res *marker.Result) ([]candidate, map[string][]candidate, []marker.Span) {
	var (
		docCands []candidate
		spans    []marker.Span
		owner    string
	)
	blockCands := map[string][]candidate{}
	for _, tok := range res.Tokens {
		switch tok.Kind {
		case marker.KindBlockOpen:
			owner = tok.ID
		case marker.KindLegacyDocSummary:
			docCands = append(docCands, candidate{tok: tok, source: SourceLegacy})
			spans = append(spans, marker.Span{Start: tok.Start, End: tok.End})
		case marker.KindLegacyBlockSummary:
			blockCands[owner] = append(blockCands[owner], candidate{tok: tok, source: SourceLegacy})
			spans = append(spans, marker.Span{Start: tok.Start, End: tok.End})
		}
	}
	return docCands, blockCands, spans
}

// collectStrays gathers canonical summaries that do not directly follow their
// beat marker, using the same attachment rule as chapter.Parse.
func collectStrays(text string, res *marker.Result) (map[string][]candidate, []marker.Span) {
	strays := map[string][]candidate{}
	var (
		spans    []marker.Span
		prev     *marker.Token
		owner    string
		attached = map[string]bool{}
	)
	for i := range res.Tokens {
		tok := res.Tokens[i]
		if !tok.Kind.Structural() {
			continue
		}
		switch tok.Kind {
		case marker.KindBlockOpen:
			owner = tok.ID
		case marker.KindBlockSummary:
			if owner != "" && !attached[owner] && prev != nil && prev.Kind == marker.KindBlockOpen && marker.Follows(text, *prev, tok) {
				attached[owner] = true
			} else {
				strays[owner] = append(strays[owner], candidate{tok: tok, source: SourceStray})
				spans = append(spans, marker.Span{Start: tok.Start, End: tok.End})
			}
		}
		prev = &res.Tokens[i]
	}
	return strays, spans
}

// pick returns the first candidate with text and the ones not chosen.
func pick(cands []candidate) (candidate, []candidate, bool) {
	for i, c := range cands {
		if c.tok.Text != "" {
			rest := append(append([]candidate(nil), cands[:i]...), cands[i+1:]...)
			return c, rest, true
		}
	}
	return candidate{}, cands, false
}

func discards(id string, cands []candidate) []Discard {
	out := make([]Discard, 0, len(cands))
	for _, c := range cands {
		out = append(out, Discard{BlockID: id, Line: c.tok.Line, Kind: c.tok.Kind, Text: c.tok.Text})
	}
	return out
}
