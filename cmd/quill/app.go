package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/FocuswithJustin/Quill/core/marker"
	"github.com/FocuswithJustin/Quill/internal/config"
	"github.com/FocuswithJustin/Quill/internal/logging"
	"github.com/FocuswithJustin/Quill/internal/workspace"
)

// App carries the state shared by command Run methods.
type App struct {
	*Globals
	In  io.Reader
	Out io.Writer
	Err io.Writer

	ctx    context.Context
	ws     *workspace.Workspace
	styles styles
}

type styles struct {
	err    lipgloss.Style
	warn   lipgloss.Style
	dim    lipgloss.Style
	header lipgloss.Style
	ok     lipgloss.Style
	border lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		err:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("#F2C14E")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("#7BC67E")),
		border: r.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
}

func newApp(ctx context.Context, g *Globals, in io.Reader, out, errw io.Writer) *App {
	return &App{Globals: g, In: in, Out: out, Err: errw, ctx: ctx, styles: newStyles(errw)}
}

// Close releases the workspace if one was opened.
func (a *App) Close() {
	if a.ws != nil {
		a.ws.Close()
	}
}

// loadConfig reads the configuration and applies flag overrides.
func (a *App) loadConfig() (config.Config, error) {
	path := a.Config
	if path == "" {
		path = filepath.Join(a.Root, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	if a.LogFormat != "" {
		cfg.Log.Format = a.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logging.InitLoggerTo(a.Err, level, format)
	return cfg, nil
}

// Workspace opens the manuscript workspace on first use.
func (a *App) Workspace() (*workspace.Workspace, error) {
	if a.ws != nil {
		return a.ws, nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	ws, err := workspace.Open(a.Root, cfg, a.DryRun)
	if err != nil {
		return nil, err
	}
	a.ws = ws
	return ws, nil
}

func (a *App) emitJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printError(err error) {
	fmt.Fprintln(a.Err, a.styles.err.Render("error:")+" "+err.Error())
}

func (a *App) printWarnings(path string, warnings []marker.Warning) {
	for _, w := range warnings {
		fmt.Fprintln(a.Err, a.styles.warn.Render("warning:")+" "+path+": "+w.String())
	}
}

// report prints the outcome of a mutation: the diff in dry-run mode, a
// short confirmation otherwise, then any warnings.
func (a *App) report(res *workspace.Result, summary string) error {
	if a.JSON {
		out := mutationJSON{Path: res.Path, Changed: res.Changed, Written: res.Written, Diff: res.Diff}
		for _, e := range res.Archived {
			out.Archived = append(out.Archived, e.ID)
		}
		if err := a.emitJSON(out); err != nil {
			return err
		}
	} else {
		switch {
		case res.Diff != "":
			fmt.Fprint(a.Out, res.Diff)
		case !res.Changed:
			fmt.Fprintf(a.Out, "%s: no change\n", res.Path)
		default:
			fmt.Fprintf(a.Out, "%s: %s\n", res.Path, summary)
			for _, e := range res.Archived {
				fmt.Fprintf(a.Out, "archived %s (%d bytes)\n", e.ID, e.Size)
			}
		}
	}
	if res.Doc != nil {
		a.printWarnings(res.Path, res.Doc.Warnings)
	}
	return nil
}

type mutationJSON struct {
	Path     string   `json:"path"`
	Changed  bool     `json:"changed"`
	Written  bool     `json:"written"`
	Diff     string   `json:"diff,omitempty"`
	Archived []string `json:"archived,omitempty"`
}

func (a *App) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(a.styles.border).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

// readInput returns text given inline, or the content of file ("-" for stdin).
func (a *App) readInput(text, file string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(a.In)
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		return string(data), err
	}
	return text, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InitCmd writes a default configuration file.
type InitCmd struct{}

func (c *InitCmd) Run(app *App) error {
	path, err := config.Init(app.Root)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "config: %s\n", path)
	return nil
}
