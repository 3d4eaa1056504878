// Package sidecar holds per-chapter metadata kept outside the prose.
//
// The sidecar is a narrower, overwritable cache. Prose-owned fields
// (summary, label, status) are read from it only when migrating a legacy
// chapter; afterwards the text is the source of truth and FromDocument
// recomputes them. Everything else (characters, dirty reason, free-form
// extras) lives only here.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/Quill/core/chapter"
	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// Format is a sidecar encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", qerrors.NewValidation("sidecar", fmt.Sprintf("unsupported sidecar extension %q (want .yaml, .yml or .json)", filepath.Ext(path)))
}

// Record is the metadata of one beat.
type Record struct {
	Summary     string            `yaml:"summary,omitempty" json:"summary,omitempty"`
	Label       string            `yaml:"label,omitempty" json:"label,omitempty"`
	Status      string            `yaml:"status,omitempty" json:"status,omitempty"`
	Characters  []string          `yaml:"characters,omitempty" json:"characters,omitempty"`
	DirtyReason string            `yaml:"dirty_reason,omitempty" json:"dirty_reason,omitempty"`
	Extra       map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// ValidStatus returns the record's status when it is one of the known values.
func (r Record) ValidStatus() (marker.Status, bool) {
	st := marker.Status(r.Status)
	return st, st.IsValid()
}

// Chapter is the sidecar of one chapter.
type Chapter struct {
	Summary string            `yaml:"summary,omitempty" json:"summary,omitempty"`
	Beats   map[string]Record `yaml:"beats,omitempty" json:"beats,omitempty"`
}

// Beat returns the record for id, or the zero record.
func (c Chapter) Beat(id string) Record {
	if c.Beats == nil {
		return Record{}
	}
	return c.Beats[id]
}

// IDs returns the beat ids in sorted order.
func (c Chapter) IDs() []string {
	ids := make([]string, 0, len(c.Beats))
	for id := range c.Beats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Decode parses sidecar data.
func Decode(data []byte, format Format) (Chapter, error) {
	var c Chapter
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &c)
	case FormatJSON:
		err = json.Unmarshal(data, &c)
	default:
		return Chapter{}, qerrors.NewValidation("format", fmt.Sprintf("unknown sidecar format %q", format))
	}
	if err != nil {
		return Chapter{}, qerrors.Wrapf(err, "decode %s sidecar", format)
	}
	return c, nil
}

// Encode renders the sidecar. Map keys are written in sorted order.
func Encode(c Chapter, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(c)
	case FormatJSON:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, qerrors.NewValidation("format", fmt.Sprintf("unknown sidecar format %q", format))
}

// Load reads a sidecar file. A missing file yields an empty sidecar.
func Load(path string) (Chapter, error) {
	format, err := FormatFor(path)
	if err != nil {
		return Chapter{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Chapter{}, nil
	}
	if err != nil {
		return Chapter{}, qerrors.NewIO("read", path, err)
	}
	return Decode(data, format)
}

// FromDocument recomputes the prose-owned fields from doc, keeping every
// non-prose field of prev. Beats no longer in the document are dropped.
func FromDocument(doc *chapter.Document, prev Chapter) Chapter {
	out := Chapter{Summary: doc.Summary, Beats: make(map[string]Record, len(doc.Blocks))}
	for _, b := range doc.Blocks {
		rec := prev.Beat(b.ID)
		rec.Summary = b.Summary
		rec.Label = b.Label
		rec.Status = string(b.Status)
		out.Beats[b.ID] = rec
	}
	return out
}
