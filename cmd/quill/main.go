// Command quill edits structured manuscripts: chapters made of beats with
// embedded summaries and inline editorial annotations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/Quill/core/sqlite"
)

const version = "0.1.0"

// CLI defines the command-line interface for quill.
type CLI struct {
	Globals

	// Command groups (noun-first organization)
	Beat    BeatGroup    `cmd:"" help:"Beat operations (list, insert, remove, replace, patch, reorder)"`
	Note    NoteGroup    `cmd:"" help:"Inline annotation operations"`
	Section SectionGroup `cmd:"" help:"Reference document sections"`
	Chapter ChapterGroup `cmd:"" help:"Whole-chapter operations (check, strip, migrate, summary)"`
	Archive ArchiveGroup `cmd:"" help:"Prose kept from removed beats"`
	Init    InitCmd      `cmd:"" help:"Write a default quill.yaml into the manuscript root"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// Globals are the flags shared by every command.
type Globals struct {
	Root      string `name:"root" short:"C" help:"Manuscript root directory" default:"." type:"path"`
	Config    string `name:"config" help:"Configuration file (default <root>/quill.yaml)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat string `name:"log-format" help:"Log format: text or json"`
	DryRun    bool   `name:"dry-run" short:"n" help:"Print the change as a diff instead of writing it"`
	JSON      bool   `name:"json" help:"Print results as JSON"`
}

// errSilent marks a failure whose details were already printed.
var errSilent = errors.New("failed")

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	info := sqlite.GetInfo()
	if app.JSON {
		return app.emitJSON(map[string]any{"version": version, "sqlite": info})
	}
	fmt.Fprintf(app.Out, "quill version %s\n", version)
	fmt.Fprintf(app.Out, "sqlite: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

// run parses args and executes the selected command, returning the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	exit := -1
	parser, err := kong.New(&cli,
		kong.Name("quill"),
		kong.Description("Quill - structured prose manuscript engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exit = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "quill: %v\n", err)
		return 2
	}
	kctx, err := parser.Parse(args)
	if exit >= 0 {
		// --help and friends
		return exit
	}
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	app := newApp(ctx, &cli.Globals, stdin, stdout, stderr)
	defer app.Close()
	if err := kctx.Run(app); err != nil {
		if !errors.Is(err, errSilent) {
			app.printError(err)
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
