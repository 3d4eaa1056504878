package main

import (
	"fmt"
	"time"

	"github.com/FocuswithJustin/Quill/internal/index"
)

// ArchiveGroup contains archive operations.
type ArchiveGroup struct {
	List ArchiveListCmd `cmd:"" help:"List archived prose"`
	Show ArchiveShowCmd `cmd:"" help:"Print archived prose"`
}

// ArchiveListCmd lists archive entries, newest first.
type ArchiveListCmd struct {
	Chapter string `arg:"" optional:"" help:"Only entries from this chapter"`
}

func (c *ArchiveListCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	chap := ""
	if c.Chapter != "" {
		if chap, err = ws.RelPath(c.Chapter); err != nil {
			return err
		}
	}
	entries := []index.Entry{}
	if idx := ws.Index(); idx != nil {
		if entries, err = idx.Archive(app.ctx, chap); err != nil {
			return err
		}
	}
	if app.JSON {
		return app.emitJSON(entries)
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.ID, e.Chapter, e.BeatID, e.Label, fmt.Sprint(e.Size), e.RemovedAt.Local().Format(time.DateTime)}
	}
	fmt.Fprintln(app.Out, app.table([]string{"ID", "CHAPTER", "BEAT", "LABEL", "BYTES", "REMOVED"}, rows))
	return nil
}

// ArchiveShowCmd prints one archived prose blob.
type ArchiveShowCmd struct {
	ID string `arg:"" help:"Archive entry id"`
}

func (c *ArchiveShowCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	e, prose, err := ws.ArchivedProse(app.ctx, c.ID)
	if err != nil {
		return err
	}
	if app.JSON {
		return app.emitJSON(map[string]any{"entry": e, "prose": prose})
	}
	fmt.Fprintln(app.Out, prose)
	return nil
}
