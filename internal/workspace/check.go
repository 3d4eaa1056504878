package workspace

import (
	"context"

	"golang.org/x/sync/errgroup"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
	"github.com/FocuswithJustin/Quill/core/migrate"
	"github.com/FocuswithJustin/Quill/core/sidecar"
	"github.com/FocuswithJustin/Quill/internal/logging"
)

// maxParallel bounds how many chapters are read at once.
const maxParallel = 8

// CheckResult is the outcome of validating one chapter.
type CheckResult struct {
	Path     string
	Blocks   int
	Warnings []marker.Warning
	// Err is the structural or read error, nil for a valid chapter.
	Err error
}

// Check validates chapters concurrently. A chapter passes when it parses and
// serializes back to its exact bytes. Per-chapter failures are reported
// in the results; the returned error is only set when ctx is cancelled.
func (w *Workspace) Check(ctx context.Context, paths []string) ([]CheckResult, error) {
	results := make([]CheckResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := CheckResult{Path: p}
			ch, err := w.Load(gctx, p)
			if err != nil {
				r.Err = err
			} else if ch.Doc.Serialize() != ch.Text {
				r.Err = qerrors.Wrapf(qerrors.ErrStructural, "%s: text does not survive a parse and serialize round trip", ch.Path)
			} else {
				r.Path = ch.Path
				r.Blocks = len(ch.Doc.Blocks)
				r.Warnings = ch.Doc.Warnings
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Reindex refreshes the sidecar index from the current text of each chapter.
// It stops at the first chapter that cannot be loaded. A dry run leaves the
// index alone.
func (w *Workspace) Reindex(ctx context.Context, paths []string) error {
	if w.index == nil || w.dryRun {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			ch, err := w.Load(gctx, p)
			if err != nil {
				return err
			}
			return w.index.Refresh(gctx, ch.Path, ch.Doc, ch.Digest)
		})
	}
	return g.Wait()
}

// Migrate converts a legacy chapter in place. The sidecar at sidecarPath,
// when given, supplies metadata the text lacks and is imported into the
// index; otherwise the index's stored sidecar is used.
func (w *Workspace) Migrate(ctx context.Context, path, sidecarPath string) (*Result, migrate.Report, error) {
	var report migrate.Report
	var side sidecar.Chapter
	_, rel, err := w.resolve(path)
	if err != nil {
		return nil, report, err
	}
	switch {
	case sidecarPath != "":
		if side, err = sidecar.Load(sidecarPath); err != nil {
			return nil, report, err
		}
	case w.index != nil:
		if side, err = w.index.Sidecar(ctx, rel); err != nil {
			return nil, report, err
		}
	}

	apply := func(_, text string) (string, error) {
		out, rep, err := migrate.Migrate(text, side)
		report = rep
		return out, err
	}
	importSide := func(ctx context.Context, rel string, _ *Result) error {
		if sidecarPath == "" || w.index == nil {
			return nil
		}
		return w.index.ImportSidecar(ctx, rel, side)
	}
	res, err := w.mutate(ctx, path, "quill: migrate "+rel, apply, importSide)
	if err != nil {
		return res, report, err
	}
	if res.Written {
		logging.MigrationApplied(ctx, rel, len(report.Fills), len(report.Discarded), report.Removed)
	}
	return res, report, nil
}
