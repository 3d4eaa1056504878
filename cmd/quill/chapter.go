package main

import (
	"fmt"

	"github.com/FocuswithJustin/Quill/core/chapter"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// ChapterGroup contains whole-chapter operations.
type ChapterGroup struct {
	Check   ChapterCheckCmd   `cmd:"" help:"Validate chapters against the marker grammar"`
	Strip   ChapterStripCmd   `cmd:"" help:"Print the chapter with every marker removed"`
	Migrate ChapterMigrateCmd `cmd:"" help:"Convert a legacy chapter to the current layout"`
	Summary ChapterSummaryCmd `cmd:"" help:"Print or set the chapter summary"`
	Close   ChapterCloseCmd   `cmd:"" help:"Add or remove the closing sentinel"`
	Reindex ChapterReindexCmd `cmd:"" help:"Rebuild the sidecar index from chapter text"`
}

type checkJSON struct {
	Path     string   `json:"path"`
	Blocks   int      `json:"blocks"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ChapterCheckCmd validates chapters. Without arguments every markdown
// file under the root is checked.
type ChapterCheckCmd struct {
	Chapters []string `arg:"" optional:"" help:"Chapter files"`
}

func (c *ChapterCheckCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	paths := c.Chapters
	if len(paths) == 0 {
		if paths, err = ws.Chapters(); err != nil {
			return err
		}
	}
	results, err := ws.Check(app.ctx, paths)
	if err != nil {
		return err
	}

	failed := 0
	out := make([]checkJSON, len(results))
	for i, r := range results {
		out[i] = checkJSON{Path: r.Path, Blocks: r.Blocks}
		for _, w := range r.Warnings {
			out[i].Warnings = append(out[i].Warnings, w.String())
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			failed++
		}
	}
	if app.JSON {
		if err := app.emitJSON(out); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Fprintf(app.Out, "%s %s\n", app.styles.err.Render("FAIL"), r.Path)
				fmt.Fprintf(app.Out, "  %s\n", r.Err)
			default:
				fmt.Fprintf(app.Out, "%s %s (%d beats)\n", app.styles.ok.Render("ok"), r.Path, r.Blocks)
			}
			app.printWarnings(r.Path, r.Warnings)
		}
	}
	if failed > 0 {
		fmt.Fprintf(app.Err, "%d of %d chapters failed\n", failed, len(results))
		return errSilent
	}
	return nil
}

// ChapterStripCmd prints clean prose. The file is not modified.
type ChapterStripCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
}

func (c *ChapterStripCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	text, err := ws.ReadText(c.Chapter)
	if err != nil {
		return err
	}
	fmt.Fprint(app.Out, marker.Strip(text))
	return nil
}

// ChapterMigrateCmd runs the legacy migration.
type ChapterMigrateCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	Sidecar string `help:"Legacy sidecar file (.yaml, .yml or .json)" type:"existingfile"`
}

func (c *ChapterMigrateCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	res, report, err := ws.Migrate(app.ctx, c.Chapter, c.Sidecar)
	if err != nil {
		return err
	}
	if app.JSON {
		return app.emitJSON(map[string]any{
			"path":      res.Path,
			"changed":   res.Changed,
			"written":   res.Written,
			"diff":      res.Diff,
			"fills":     report.Fills,
			"discarded": report.Discarded,
			"removed":   report.Removed,
		})
	}
	if err := app.report(res, fmt.Sprintf("migrated (%d filled, %d removed)", len(report.Fills), report.Removed)); err != nil {
		return err
	}
	for _, f := range report.Fills {
		target := f.BlockID
		if target == "" {
			target = "chapter"
		}
		fmt.Fprintf(app.Out, "  %s %s.%s from %s\n", app.styles.dim.Render("fill"), target, f.Field, f.Source)
	}
	for _, d := range report.Discarded {
		fmt.Fprintln(app.Err, app.styles.warn.Render("discarded:")+fmt.Sprintf(" %s line %d %s: %s", res.Path, d.Line, d.Kind, d.Text))
	}
	return nil
}

// ChapterSummaryCmd prints or replaces the chapter summary.
type ChapterSummaryCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	Text    string `arg:"" optional:"" help:"New summary; omit to print the current one"`
}

func (c *ChapterSummaryCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	if c.Text == "" {
		ch, err := ws.Load(app.ctx, c.Chapter)
		if err != nil {
			return err
		}
		if app.JSON {
			return app.emitJSON(map[string]string{"path": ch.Path, "summary": ch.Doc.Summary})
		}
		fmt.Fprintln(app.Out, ch.Doc.Summary)
		return nil
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: set chapter summary", func(d *chapter.Document) (*chapter.Document, error) {
		return d.SetSummary(c.Text)
	})
	if err != nil {
		return err
	}
	return app.report(res, "summary set")
}

// ChapterCloseCmd toggles the closing sentinel.
type ChapterCloseCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	Reopen  bool   `help:"Remove the sentinel instead of adding it"`
}

func (c *ChapterCloseCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: close chapter", func(d *chapter.Document) (*chapter.Document, error) {
		return d.SetClosed(!c.Reopen), nil
	})
	if err != nil {
		return err
	}
	if c.Reopen {
		return app.report(res, "reopened")
	}
	return app.report(res, "closed")
}

// ChapterReindexCmd refreshes the sidecar index.
type ChapterReindexCmd struct {
	Chapters []string `arg:"" optional:"" help:"Chapter files (default: all)"`
}

func (c *ChapterReindexCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	paths := c.Chapters
	if len(paths) == 0 {
		if paths, err = ws.Chapters(); err != nil {
			return err
		}
	}
	if app.DryRun {
		fmt.Fprintf(app.Out, "would reindex %d chapters\n", len(paths))
		return nil
	}
	if err := ws.Reindex(app.ctx, paths); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "reindexed %d chapters\n", len(paths))
	return nil
}
