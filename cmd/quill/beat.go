package main

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/Quill/core/chapter"
	"github.com/FocuswithJustin/Quill/core/marker"
	"github.com/FocuswithJustin/Quill/core/sidecar"
)

// BeatGroup contains beat operations.
type BeatGroup struct {
	List    BeatListCmd    `cmd:"" help:"List the beats of a chapter"`
	Show    BeatShowCmd    `cmd:"" help:"Print the prose of one beat"`
	Insert  BeatInsertCmd  `cmd:"" help:"Insert a new beat"`
	Remove  BeatRemoveCmd  `cmd:"" help:"Remove a beat, archiving its prose"`
	Replace BeatReplaceCmd `cmd:"" help:"Replace the prose of a beat"`
	Patch   BeatPatchCmd   `cmd:"" help:"Change the status, label or summary of a beat"`
	Reorder BeatReorderCmd `cmd:"" help:"Reorder the beats of a chapter"`
	Meta    BeatMetaCmd    `cmd:"" help:"Set index-only metadata (characters, dirty reason)"`
}

type beatJSON struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Label       string   `json:"label,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Characters  []string `json:"characters,omitempty"`
	DirtyReason string   `json:"dirty_reason,omitempty"`
	Words       int      `json:"words"`
}

// BeatListCmd lists beats with their index metadata.
type BeatListCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
}

func (c *BeatListCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	ch, err := ws.Load(app.ctx, c.Chapter)
	if err != nil {
		return err
	}
	var side sidecar.Chapter
	if idx := ws.Index(); idx != nil {
		if side, err = idx.Sidecar(app.ctx, ch.Path); err != nil {
			return err
		}
	}

	beats := make([]beatJSON, len(ch.Doc.Blocks))
	for i, b := range ch.Doc.Blocks {
		rec := side.Beat(b.ID)
		beats[i] = beatJSON{
			ID:          b.ID,
			Status:      string(b.Status),
			Label:       b.Label,
			Summary:     b.Summary,
			Characters:  rec.Characters,
			DirtyReason: rec.DirtyReason,
			Words:       len(strings.Fields(marker.Strip(b.Prose))),
		}
	}
	if app.JSON {
		if err := app.emitJSON(beats); err != nil {
			return err
		}
	} else {
		rows := make([][]string, len(beats))
		for i, b := range beats {
			rows[i] = []string{b.ID, b.Status, b.Label, fmt.Sprint(b.Words), b.Summary}
		}
		fmt.Fprintln(app.Out, app.table([]string{"ID", "STATUS", "LABEL", "WORDS", "SUMMARY"}, rows))
	}
	app.printWarnings(ch.Path, ch.Doc.Warnings)
	return nil
}

// BeatShowCmd prints one beat's prose.
type BeatShowCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	ID      string `arg:"" help:"Beat id"`
	Clean   bool   `help:"Strip annotations from the prose"`
}

func (c *BeatShowCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	ch, err := ws.Load(app.ctx, c.Chapter)
	if err != nil {
		return err
	}
	b, err := ch.Doc.Block(c.ID)
	if err != nil {
		return err
	}
	prose := b.Prose
	if c.Clean {
		prose = marker.Strip(prose)
	}
	if app.JSON {
		return app.emitJSON(map[string]string{"id": b.ID, "status": string(b.Status), "label": b.Label, "summary": b.Summary, "prose": prose})
	}
	if prose != "" {
		fmt.Fprintln(app.Out, prose)
	}
	return nil
}

// BeatInsertCmd inserts a beat.
type BeatInsertCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	ID      string `arg:"" help:"New beat id"`
	After   string `help:"Insert after this beat (default: at the end)"`
	Status  string `help:"Initial status (default: planned, or written when prose is given)"`
	Label   string `help:"Beat label"`
	Summary string `help:"Beat summary"`
	Prose   string `help:"Beat prose"`
	File    string `help:"Read prose from file (- for stdin)"`
}

func (c *BeatInsertCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	prose, err := app.readInput(c.Prose, c.File)
	if err != nil {
		return err
	}
	b := chapter.Block{ID: c.ID, Label: c.Label, Summary: c.Summary, Prose: prose}
	if c.Status != "" {
		if b.Status, err = marker.ParseStatus(c.Status); err != nil {
			return err
		}
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: insert beat "+c.ID, func(d *chapter.Document) (*chapter.Document, error) {
		return d.Insert(b, c.After)
	})
	if err != nil {
		return err
	}
	return app.report(res, "inserted beat "+c.ID)
}

// BeatRemoveCmd removes a beat.
type BeatRemoveCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	ID      string `arg:"" help:"Beat id"`
}

func (c *BeatRemoveCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	res, err := ws.RemoveBeat(app.ctx, c.Chapter, c.ID)
	if err != nil {
		return err
	}
	return app.report(res, "removed beat "+c.ID)
}

// BeatReplaceCmd replaces a beat's prose.
type BeatReplaceCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	ID      string `arg:"" help:"Beat id"`
	Prose   string `help:"New prose" xor:"source"`
	File    string `help:"Read prose from file (- for stdin)" xor:"source"`
}

func (c *BeatReplaceCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	prose, err := app.readInput(c.Prose, c.File)
	if err != nil {
		return err
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: replace prose of "+c.ID, func(d *chapter.Document) (*chapter.Document, error) {
		return d.ReplaceProse(c.ID, prose)
	})
	if err != nil {
		return err
	}
	return app.report(res, "replaced prose of "+c.ID)
}

// BeatPatchCmd changes marker fields. Empty flags leave fields alone; the
// clear flags empty them.
type BeatPatchCmd struct {
	Chapter      string `arg:"" help:"Chapter file"`
	ID           string `arg:"" help:"Beat id"`
	Status       string `help:"New status"`
	Label        string `help:"New label"`
	Summary      string `help:"New summary"`
	ClearLabel   bool   `name:"clear-label" help:"Remove the label"`
	ClearSummary bool   `name:"clear-summary" help:"Remove the summary"`
}

func (c *BeatPatchCmd) patch() (chapter.Patch, error) {
	var p chapter.Patch
	if c.Status != "" {
		st := marker.Status(c.Status)
		p.Status = &st
	}
	switch {
	case c.ClearLabel:
		empty := ""
		p.Label = &empty
	case c.Label != "":
		p.Label = &c.Label
	}
	switch {
	case c.ClearSummary:
		empty := ""
		p.Summary = &empty
	case c.Summary != "":
		p.Summary = &c.Summary
	}
	if p.Empty() {
		return p, fmt.Errorf("nothing to change: give --status, --label, --summary or a --clear flag")
	}
	return p, nil
}

func (c *BeatPatchCmd) Run(app *App) error {
	p, err := c.patch()
	if err != nil {
		return err
	}
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: patch beat "+c.ID, func(d *chapter.Document) (*chapter.Document, error) {
		return d.Patch(c.ID, p)
	})
	if err != nil {
		return err
	}
	return app.report(res, "patched beat "+c.ID)
}

// BeatReorderCmd reorders beats.
type BeatReorderCmd struct {
	Chapter string   `arg:"" help:"Chapter file"`
	IDs     []string `arg:"" name:"ids" help:"Every beat id in the new order"`
}

func (c *BeatReorderCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: reorder beats", func(d *chapter.Document) (*chapter.Document, error) {
		return d.Reorder(c.IDs)
	})
	if err != nil {
		return err
	}
	return app.report(res, "reordered "+strings.Join(c.IDs, " "))
}

// BeatMetaCmd sets the metadata that lives only in the index.
type BeatMetaCmd struct {
	Chapter     string `arg:"" help:"Chapter file"`
	ID          string `arg:"" help:"Beat id"`
	Characters  string `help:"Comma-separated characters appearing in the beat"`
	DirtyReason string `name:"dirty-reason" help:"Why the beat needs rework"`
}

func (c *BeatMetaCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	ch, err := ws.Load(app.ctx, c.Chapter)
	if err != nil {
		return err
	}
	if _, err := ch.Doc.Block(c.ID); err != nil {
		return err
	}
	if app.DryRun {
		fmt.Fprintf(app.Out, "%s: would update metadata of %s\n", ch.Path, c.ID)
		return nil
	}
	idx := ws.Index()
	if idx == nil {
		return fmt.Errorf("no index configured")
	}
	// make sure the beat row exists
	if err := idx.Refresh(app.ctx, ch.Path, ch.Doc, ch.Digest); err != nil {
		return err
	}
	if c.Characters != "" {
		if err := idx.SetCharacters(app.ctx, ch.Path, c.ID, splitList(c.Characters)); err != nil {
			return err
		}
	}
	if c.DirtyReason != "" {
		if err := idx.SetDirtyReason(app.ctx, ch.Path, c.ID, c.DirtyReason); err != nil {
			return err
		}
	}
	fmt.Fprintf(app.Out, "%s: updated metadata of %s\n", ch.Path, c.ID)
	return nil
}
