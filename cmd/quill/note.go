package main

import (
	"fmt"

	"github.com/FocuswithJustin/Quill/core/annotate"
	"github.com/FocuswithJustin/Quill/core/chapter"
	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
)

// NoteGroup contains inline annotation operations.
type NoteGroup struct {
	List   NoteListCmd   `cmd:"" help:"List the annotations of a chapter"`
	Add    NoteAddCmd    `cmd:"" help:"Add an annotation after anchor text"`
	Remove NoteRemoveCmd `cmd:"" help:"Remove an annotation by id"`
}

type noteJSON struct {
	ID      string `json:"id"`
	Beat    string `json:"beat"`
	Type    string `json:"type"`
	Author  string `json:"author,omitempty"`
	Message string `json:"message,omitempty"`
	Line    int    `json:"line"`
	EndLine int    `json:"end_line"`
}

// NoteListCmd lists annotations.
type NoteListCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	Beat    string `help:"Only annotations of this beat"`
	Type    string `help:"Only annotations of this type"`
}

func (c *NoteListCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	ch, err := ws.Load(app.ctx, c.Chapter)
	if err != nil {
		return err
	}
	if c.Beat != "" {
		if _, err := ch.Doc.Block(c.Beat); err != nil {
			return err
		}
	}
	typ := marker.AnnotationType(c.Type)
	if typ != "" && !typ.IsValid() {
		return qerrors.NewValidation("type", fmt.Sprintf("unknown annotation type %q", c.Type))
	}

	opts := annotate.Options{DocumentID: ch.Path, DefaultAuthor: ws.Config().DefaultAuthor}
	anns, warnings := annotate.ExtractDocument(ch.Doc, opts)
	anns = annotate.Filter(anns, typ)

	notes := make([]noteJSON, 0, len(anns))
	for _, a := range anns {
		if c.Beat != "" && a.BlockID != c.Beat {
			continue
		}
		notes = append(notes, noteJSON{ID: a.ID, Beat: a.BlockID, Type: string(a.Type), Author: a.Author, Message: a.Message, Line: a.Line, EndLine: a.EndLine})
	}
	if app.JSON {
		if err := app.emitJSON(notes); err != nil {
			return err
		}
	} else {
		rows := make([][]string, len(notes))
		for i, n := range notes {
			rows[i] = []string{n.ID, n.Beat, fmt.Sprint(n.Line), n.Type, n.Author, n.Message}
		}
		fmt.Fprintln(app.Out, app.table([]string{"ID", "BEAT", "LINE", "TYPE", "AUTHOR", "MESSAGE"}, rows))
	}
	for _, w := range warnings {
		fmt.Fprintln(app.Err, app.styles.warn.Render("warning:")+" "+ch.Path+": "+w.String())
	}
	app.printWarnings(ch.Path, ch.Doc.Warnings)
	return nil
}

// NoteAddCmd inserts an annotation.
type NoteAddCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	Beat    string `arg:"" help:"Beat id"`
	Anchor  string `arg:"" help:"Text the annotation follows; must occur exactly once in the beat"`
	Type    string `short:"t" default:"note" help:"Annotation type: note, dev, line, continuity, query, flag"`
	Message string `short:"m" help:"Annotation message"`
	Author  string `short:"a" help:"Author (default: default_author from quill.yaml)"`
}

func (c *NoteAddCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	author := c.Author
	if author == "" {
		author = ws.Config().DefaultAuthor
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: annotate beat "+c.Beat, func(d *chapter.Document) (*chapter.Document, error) {
		b, err := d.Block(c.Beat)
		if err != nil {
			return nil, err
		}
		prose, err := annotate.InsertAfter(b.Prose, c.Anchor, marker.AnnotationType(c.Type), author, c.Message)
		if err != nil {
			return nil, err
		}
		return d.ReplaceProse(c.Beat, prose)
	})
	if err != nil {
		return err
	}
	return app.report(res, fmt.Sprintf("added @%s to %s", c.Type, c.Beat))
}

// NoteRemoveCmd removes an annotation.
type NoteRemoveCmd struct {
	Chapter string `arg:"" help:"Chapter file"`
	ID      string `arg:"" help:"Annotation id from note list"`
}

func (c *NoteRemoveCmd) Run(app *App) error {
	ws, err := app.Workspace()
	if err != nil {
		return err
	}
	rel, err := ws.RelPath(c.Chapter)
	if err != nil {
		return err
	}
	res, err := ws.Mutate(app.ctx, c.Chapter, "quill: remove annotation "+c.ID, func(d *chapter.Document) (*chapter.Document, error) {
		opts := annotate.Options{DocumentID: rel, DefaultAuthor: ws.Config().DefaultAuthor}
		anns, _ := annotate.ExtractDocument(d, opts)
		ids := make([]string, 0, len(anns))
		for _, a := range anns {
			if a.ID != c.ID {
				ids = append(ids, a.ID)
				continue
			}
			b, err := d.Block(a.BlockID)
			if err != nil {
				return nil, err
			}
			opts.BlockID = a.BlockID
			prose, err := annotate.Remove(b.Prose, c.ID, opts)
			if err != nil {
				return nil, err
			}
			return d.ReplaceProse(a.BlockID, prose)
		}
		return nil, qerrors.NewNotFound("annotation", c.ID, ids)
	})
	if err != nil {
		return err
	}
	return app.report(res, "removed annotation "+c.ID)
}
