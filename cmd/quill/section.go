package main

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/Quill/core/sections"
)

// SectionGroup contains reference document operations.
type SectionGroup struct {
	Index SectionIndexCmd `cmd:"" help:"List the sections of a reference document"`
	Fetch SectionFetchCmd `cmd:"" help:"Print sections by slug"`
}

func (a *App) indexSections(file string, level int) (*sections.Document, error) {
	ws, err := a.Workspace()
	if err != nil {
		return nil, err
	}
	text, err := ws.ReadText(file)
	if err != nil {
		return nil, err
	}
	if level == 0 {
		level = ws.Config().SectionLevel
	}
	return sections.Index(text, level)
}

type sectionJSON struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Line int    `json:"line"`
}

// SectionIndexCmd prints the table of contents.
type SectionIndexCmd struct {
	File  string `arg:"" help:"Reference document"`
	Level int    `short:"l" help:"Heading level (default: section_level from quill.yaml)"`
}

func (c *SectionIndexCmd) Run(app *App) error {
	doc, err := app.indexSections(c.File, c.Level)
	if err != nil {
		return err
	}
	if app.JSON {
		out := make([]sectionJSON, len(doc.Sections))
		for i, s := range doc.Sections {
			out[i] = sectionJSON{Name: s.Name, Slug: s.Slug, Line: s.Line}
		}
		return app.emitJSON(out)
	}
	rows := make([][]string, len(doc.Sections))
	for i, s := range doc.Sections {
		rows[i] = []string{s.Slug, fmt.Sprint(s.Line), s.Name}
	}
	fmt.Fprintln(app.Out, app.table([]string{"SLUG", "LINE", "HEADING"}, rows))
	return nil
}

// SectionFetchCmd prints sections.
type SectionFetchCmd struct {
	File  string   `arg:"" help:"Reference document"`
	Slugs []string `arg:"" name:"slugs" help:"Section slugs, printed in the order given"`
	Level int      `short:"l" help:"Heading level (default: section_level from quill.yaml)"`
}

func (c *SectionFetchCmd) Run(app *App) error {
	doc, err := app.indexSections(c.File, c.Level)
	if err != nil {
		return err
	}
	texts, err := doc.FetchMany(c.Slugs)
	if err != nil {
		return err
	}
	if app.JSON {
		out := make(map[string]string, len(texts))
		for i, slug := range c.Slugs {
			out[slug] = texts[i]
		}
		return app.emitJSON(out)
	}
	for i, t := range texts {
		if i > 0 && !strings.HasSuffix(texts[i-1], "\n") {
			fmt.Fprintln(app.Out)
		}
		fmt.Fprint(app.Out, t)
	}
	return nil
}
