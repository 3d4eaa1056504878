// Package workspace performs read-modify-write edits on the chapter files
// of one manuscript. It owns everything the engine packages leave out:
// path sanitation, atomic replacement on disk, version control commits,
// the sidecar index and the archive of removed prose.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/Quill/core/cache"
	"github.com/FocuswithJustin/Quill/core/cas"
	"github.com/FocuswithJustin/Quill/core/chapter"
	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/internal/config"
	"github.com/FocuswithJustin/Quill/internal/index"
	"github.com/FocuswithJustin/Quill/internal/logging"
	"github.com/FocuswithJustin/Quill/internal/validation"
)

// Options configures a Workspace.
type Options struct {
	Root   string
	Config config.Config
	// DryRun computes results and diffs without touching the disk.
	DryRun bool
	// Committer records every write. Nil means NopCommitter.
	Committer Committer
	// Index receives the recomputed sidecar after every write. Optional.
	Index *index.Index
	// Archive keeps the prose of removed beats. Optional.
	Archive *cas.Store
	// Documents caches parsed chapters by content digest. Nil means a
	// default-sized cache.
	Documents *cache.DocumentCache
}

// Workspace is one manuscript directory.
type Workspace struct {
	root      string
	cfg       config.Config
	dryRun    bool
	committer Committer
	index     *index.Index
	archive   *cas.Store
	docs      *cache.DocumentCache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a workspace from explicit collaborators.
func New(opts Options) *Workspace {
	c := opts.Committer
	if c == nil {
		c = NopCommitter{}
	}
	docs := opts.Documents
	if docs == nil {
		docs = cache.NewDefaultDocumentCache()
	}
	return &Workspace{
		root:      opts.Root,
		cfg:       opts.Config,
		dryRun:    opts.DryRun,
		committer: c,
		index:     opts.Index,
		archive:   opts.Archive,
		docs:      docs,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Open builds a workspace from configuration, opening the index database
// and the archive store under root. A dry run opens the index read-only and
// runs without one when the database does not exist yet.
func Open(root string, cfg config.Config, dryRun bool) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	idx, err := openIndex(config.Resolve(root, cfg.SidecarDB), dryRun)
	if err != nil {
		return nil, err
	}
	store, err := cas.NewStore(config.Resolve(root, cfg.ArchiveDir))
	if err != nil {
		if idx != nil {
			idx.Close()
		}
		return nil, qerrors.Wrap(err, "open prose archive")
	}
	var committer Committer = NopCommitter{}
	if cfg.Commit.Enabled {
		committer = NewGitCommitter(root, cfg.Commit.Author)
	}
	return New(Options{
		Root:      root,
		Config:    cfg,
		DryRun:    dryRun,
		Committer: committer,
		Index:     idx,
		Archive:   store,
	}), nil
}

func openIndex(path string, dryRun bool) (*index.Index, error) {
	if !dryRun {
		return index.Open(path)
	}
	idx, err := index.OpenReadOnly(path)
	if errors.Is(err, qerrors.ErrNotFound) {
		return nil, nil
	}
	return idx, err
}

// Close releases the index database.
func (w *Workspace) Close() error {
	if w.index == nil {
		return nil
	}
	return w.index.Close()
}

// Root returns the manuscript directory.
func (w *Workspace) Root() string { return w.root }

// Config returns the configuration the workspace was built with.
func (w *Workspace) Config() config.Config { return w.cfg }

// Index returns the sidecar index, or nil.
func (w *Workspace) Index() *index.Index { return w.index }

// Chapter is a loaded chapter file.
type Chapter struct {
	// Path is relative to the manuscript root.
	Path   string
	Text   string
	Doc    *chapter.Document
	Digest string
}

// Result describes one mutation.
type Result struct {
	Path    string
	Changed bool
	// Written is false when nothing changed or in dry-run mode.
	Written bool
	// Diff is the unified patch of the change, set in dry-run mode.
	Diff     string
	Text     string
	Doc      *chapter.Document
	Archived []index.Entry
}

// resolve maps a user path to its absolute and root-relative forms.
func (w *Workspace) resolve(path string) (abs, rel string, err error) {
	abs, err = validation.ChapterPath(w.root, path)
	if err != nil {
		return "", "", qerrors.NewValidation("path", err.Error())
	}
	rel, err = filepath.Rel(w.root, abs)
	if err != nil {
		return "", "", qerrors.NewValidation("path", err.Error())
	}
	return abs, filepath.ToSlash(rel), nil
}

// RelPath returns the root-relative form of a chapter path. It is the
// document id annotation ids are derived from.
func (w *Workspace) RelPath(path string) (string, error) {
	_, rel, err := w.resolve(path)
	return rel, err
}

func (w *Workspace) lock(rel string) func() {
	w.mu.Lock()
	m, ok := w.locks[rel]
	if !ok {
		m = &sync.Mutex{}
		w.locks[rel] = m
	}
	w.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (w *Workspace) read(abs string) (string, os.FileMode, error) {
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, qerrors.NewNotFound("chapter", abs, nil)
		}
		return "", 0, qerrors.NewIO("stat", abs, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", 0, qerrors.NewIO("read", abs, err)
	}
	if err := validation.ValidateText(data); err != nil {
		return "", 0, qerrors.NewValidation("path", fmt.Sprintf("%s: %v", abs, err))
	}
	return string(data), info.Mode().Perm(), nil
}

// parse returns a fresh document for text. The cache keeps a private copy
// per digest and only ever hands out clones of it.
func (w *Workspace) parse(rel, text string) (*chapter.Document, error) {
	digest := cas.Blake3Hash([]byte(text))
	if doc, ok := w.docs.Get(digest); ok {
		return doc.Clone(), nil
	}
	doc, err := chapter.Parse(text)
	if err != nil {
		var se *qerrors.StructuralError
		if errors.As(err, &se) {
			se.Path = rel
		}
		return nil, err
	}
	if w.cfg.WrapColumn > 0 {
		doc.WrapColumn = w.cfg.WrapColumn
	}
	w.docs.Put(digest, doc.Clone())
	return doc, nil
}

// Load reads and parses a chapter.
func (w *Workspace) Load(ctx context.Context, path string) (*Chapter, error) {
	abs, rel, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	text, _, err := w.read(abs)
	if err != nil {
		return nil, err
	}
	doc, err := w.parse(rel, text)
	if err != nil {
		return nil, err
	}
	ch := &Chapter{Path: rel, Text: text, Doc: doc, Digest: cas.Blake3Hash([]byte(text))}
	logging.DocumentLoaded(ctx, rel, len(doc.Blocks), ch.Digest)
	logging.WarningsReported(ctx, rel, len(doc.Warnings))
	return ch, nil
}

// ReadText returns the raw text of a chapter without parsing it.
func (w *Workspace) ReadText(path string) (string, error) {
	abs, _, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	text, _, err := w.read(abs)
	return text, err
}

// Mutate applies fn to the parsed chapter and replaces the file with the
// result. Edits to the same path are serialized. When the output equals the
// input nothing is written.
func (w *Workspace) Mutate(ctx context.Context, path, message string, fn func(*chapter.Document) (*chapter.Document, error)) (*Result, error) {
	return w.mutate(ctx, path, message, func(rel, text string) (string, error) {
		doc, err := w.parse(rel, text)
		if err != nil {
			return text, err
		}
		next, err := fn(doc)
		if err != nil {
			return text, err
		}
		return next.Serialize(), nil
	}, nil)
}

// MutateText applies fn to the raw chapter text. The output must parse.
func (w *Workspace) MutateText(ctx context.Context, path, message string, fn func(string) (string, error)) (*Result, error) {
	return w.mutate(ctx, path, message, func(_, text string) (string, error) { return fn(text) }, nil)
}

// afterWrite runs once the new text is on disk, before the commit.
type afterWrite func(ctx context.Context, rel string, res *Result) error

func (w *Workspace) mutate(ctx context.Context, path, message string, apply func(rel, text string) (string, error), after afterWrite) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, rel, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	unlock := w.lock(rel)
	defer unlock()

	ctx = logging.WithOperationID(ctx, uuid.NewString())
	start := time.Now()

	text, perm, err := w.read(abs)
	if err != nil {
		return nil, err
	}
	out, err := apply(rel, text)
	if err != nil {
		var se *qerrors.StructuralError
		if errors.As(err, &se) && se.Path == "" {
			se.Path = rel
		}
		logging.OperationError(ctx, message, err, "path", rel)
		return nil, err
	}

	res := &Result{Path: rel, Text: out}
	doc, err := w.parse(rel, out)
	if err != nil {
		return nil, qerrors.Wrapf(err, "%s produced an invalid chapter", message)
	}
	res.Doc = doc
	if out == text {
		return res, nil
	}
	res.Changed = true

	if w.dryRun {
		res.Diff = unifiedDiff(rel, text, out)
		return res, nil
	}

	if err := cas.WriteFileAtomic(abs, []byte(out), perm); err != nil {
		return nil, qerrors.NewIO("write", abs, err)
	}
	res.Written = true
	logging.DocumentWritten(ctx, rel, message, time.Since(start))

	if after != nil {
		if err := after(ctx, rel, res); err != nil {
			return res, err
		}
	}
	if w.index != nil {
		if err := w.index.Refresh(ctx, rel, doc, cas.Blake3Hash([]byte(out))); err != nil {
			return res, qerrors.Wrapf(err, "refresh index for %s", rel)
		}
	}
	if err := w.committer.Commit(ctx, []string{abs}, message); err != nil {
		return res, qerrors.Wrapf(err, "commit %s", rel)
	}
	if _, ok := w.committer.(NopCommitter); !ok {
		logging.CommitRecorded(ctx, rel, message)
	}
	return res, nil
}

// RemoveBeat removes a beat and keeps its prose in the archive.
func (w *Workspace) RemoveBeat(ctx context.Context, path, id string) (*Result, error) {
	var removed chapter.Block
	var prose string
	apply := func(rel, text string) (string, error) {
		doc, err := w.parse(rel, text)
		if err != nil {
			return text, err
		}
		if removed, err = doc.Block(id); err != nil {
			return text, err
		}
		next, p, err := doc.Remove(id)
		if err != nil {
			return text, err
		}
		prose = p
		return next.Serialize(), nil
	}
	archive := func(ctx context.Context, rel string, res *Result) error {
		if w.archive == nil || strings.TrimSpace(prose) == "" {
			return nil
		}
		entry, err := w.archiveProse(ctx, rel, removed, prose)
		if err != nil {
			return err
		}
		res.Archived = append(res.Archived, entry)
		return nil
	}
	return w.mutate(ctx, path, fmt.Sprintf("quill: remove beat %s", id), apply, archive)
}

func (w *Workspace) archiveProse(ctx context.Context, rel string, b chapter.Block, prose string) (index.Entry, error) {
	h, err := w.archive.StoreWithBlake3([]byte(prose))
	if err != nil {
		return index.Entry{}, qerrors.Wrapf(err, "archive prose of beat %s", b.ID)
	}
	e := index.Entry{
		Chapter: rel,
		BeatID:  b.ID,
		Label:   b.Label,
		SHA256:  h.SHA256,
		BLAKE3:  h.BLAKE3,
		Size:    h.Size,
	}
	if w.index == nil {
		return e, nil
	}
	return w.index.AddArchive(ctx, e)
}

// ArchivedProse returns the prose of an archive entry.
func (w *Workspace) ArchivedProse(ctx context.Context, id string) (index.Entry, string, error) {
	if w.index == nil || w.archive == nil {
		return index.Entry{}, "", qerrors.NewValidation("archive", "no archive configured")
	}
	e, err := w.index.ArchiveEntry(ctx, id)
	if err != nil {
		return e, "", err
	}
	data, err := w.archive.RetrieveByBlake3(e.BLAKE3)
	if err != nil {
		return e, "", qerrors.Wrapf(err, "read archived prose %s", id)
	}
	return e, string(data), nil
}

// Chapters lists the markdown files under the root, skipping hidden
// directories such as the state directory.
func (w *Workspace) Chapters() ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != w.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".md", ".markdown":
		default:
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, qerrors.NewIO("walk", w.root, err)
	}
	sort.Strings(out)
	return out, nil
}
