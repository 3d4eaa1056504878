// Package index keeps the sidecar metadata of every chapter in a SQLite
// database beside the manuscript, together with the catalogue of archived
// prose. The prose-owned columns (summary, label, status, position) are a
// cache recomputed from the chapter text on every write; the remaining
// columns are owned by the index.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/Quill/core/chapter"
	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/sidecar"
	"github.com/FocuswithJustin/Quill/core/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS chapters (
		chapter TEXT PRIMARY KEY,
		summary TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS beats (
		chapter TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		characters TEXT NOT NULL DEFAULT '[]',
		dirty_reason TEXT NOT NULL DEFAULT '',
		extra TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (chapter, id)
	);
	CREATE TABLE IF NOT EXISTS archive (
		id TEXT PRIMARY KEY,
		chapter TEXT NOT NULL,
		beat_id TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		sha256 TEXT NOT NULL,
		blake3 TEXT NOT NULL,
		size INTEGER NOT NULL,
		removed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_beats_position ON beats(chapter, position);
	CREATE INDEX IF NOT EXISTS idx_archive_chapter ON archive(chapter, removed_at);
`

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Index is an open sidecar database.
type Index struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Row is one beat as stored in the index.
type Row struct {
	Chapter  string
	ID       string
	Position int
	sidecar.Record
}

// Entry catalogues one archived piece of prose.
type Entry struct {
	ID        string    `json:"id"`
	Chapter   string    `json:"chapter"`
	BeatID    string    `json:"beat_id"`
	Label     string    `json:"label,omitempty"`
	SHA256    string    `json:"sha256"`
	BLAKE3    string    `json:"blake3"`
	Size      int       `json:"size"`
	RemovedAt time.Time `json:"removed_at"`
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, qerrors.NewIO("mkdir", filepath.Dir(path), err)
	}
	db, err := sqlite.Open(sqlite.FileDSN(path))
	if err != nil {
		return nil, qerrors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, qerrors.Wrapf(err, "create index schema in %s", path)
	}
	return &Index{db: db, path: path, now: time.Now}, nil
}

// OpenReadOnly opens an existing index database without creating it or
// its schema. A missing file is reported as ErrNotFound.
func OpenReadOnly(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, qerrors.Wrapf(qerrors.ErrNotFound, "index %s", path)
		}
		return nil, qerrors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, qerrors.NewIO("open", path, err)
	}
	return &Index{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file.
func (x *Index) Path() string {
	return x.path
}

// Refresh recomputes the prose-owned columns of chap from doc. Non-prose
// columns of surviving beats are kept; rows of removed beats are dropped.
func (x *Index) Refresh(ctx context.Context, chap string, doc *chapter.Document, digest string) error {
	prev, err := x.Sidecar(ctx, chap)
	if err != nil {
		return err
	}
	next := sidecar.FromDocument(doc, prev)
	return x.write(ctx, chap, next, doc.IDs(), digest)
}

// ImportSidecar replaces the stored metadata of chap with side, including
// the prose-owned fields. It is the way legacy sidecar files enter the index.
func (x *Index) ImportSidecar(ctx context.Context, chap string, side sidecar.Chapter) error {
	return x.write(ctx, chap, side, side.IDs(), "")
}

func (x *Index) write(ctx context.Context, chap string, side sidecar.Chapter, order []string, digest string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return qerrors.Wrap(err, "begin index transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM beats WHERE chapter = ?`, chap); err != nil {
		return qerrors.Wrapf(err, "clear beats of %s", chap)
	}
	for pos, id := range order {
		rec := side.Beat(id)
		chars, err := json.Marshal(nonNil(rec.Characters))
		if err != nil {
			return err
		}
		extra, err := json.Marshal(nonNilMap(rec.Extra))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO beats (chapter, id, position, status, label, summary, characters, dirty_reason, extra)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chap, id, pos, rec.Status, rec.Label, rec.Summary, string(chars), rec.DirtyReason, string(extra))
		if err != nil {
			return qerrors.Wrapf(err, "store beat %s of %s", id, chap)
		}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chapters (chapter, summary, digest, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chapter) DO UPDATE SET summary = excluded.summary, digest = excluded.digest, updated_at = excluded.updated_at`,
		chap, side.Summary, digest, x.now().UTC().Format(time.RFC3339))
	if err != nil {
		return qerrors.Wrapf(err, "store chapter %s", chap)
	}
	return tx.Commit()
}

// Rows returns the beats of chap in document order.
func (x *Index) Rows(ctx context.Context, chap string) ([]Row, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT id, position, status, label, summary, characters, dirty_reason, extra
		 FROM beats WHERE chapter = ? ORDER BY position`, chap)
	if err != nil {
		return nil, qerrors.Wrapf(err, "query beats of %s", chap)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r := Row{Chapter: chap}
		var chars, extra string
		if err := rows.Scan(&r.ID, &r.Position, &r.Status, &r.Label, &r.Summary, &chars, &r.DirtyReason, &extra); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(chars), &r.Characters); err != nil {
			return nil, fmt.Errorf("beat %s: bad characters column: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
			return nil, fmt.Errorf("beat %s: bad extra column: %w", r.ID, err)
		}
		if len(r.Characters) == 0 {
			r.Characters = nil
		}
		if len(r.Extra) == 0 {
			r.Extra = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sidecar returns the stored metadata of chap. An unknown chapter yields an
// empty sidecar.
func (x *Index) Sidecar(ctx context.Context, chap string) (sidecar.Chapter, error) {
	var side sidecar.Chapter
	err := x.db.QueryRowContext(ctx, `SELECT summary FROM chapters WHERE chapter = ?`, chap).Scan(&side.Summary)
	if err != nil && err != sql.ErrNoRows {
		return side, qerrors.Wrapf(err, "query chapter %s", chap)
	}
	rows, err := x.Rows(ctx, chap)
	if err != nil {
		return side, err
	}
	if len(rows) > 0 {
		side.Beats = make(map[string]sidecar.Record, len(rows))
		for _, r := range rows {
			side.Beats[r.ID] = r.Record
		}
	}
	return side, nil
}

// Digest returns the content digest recorded by the last Refresh of chap.
func (x *Index) Digest(ctx context.Context, chap string) (string, error) {
	var d string
	err := x.db.QueryRowContext(ctx, `SELECT digest FROM chapters WHERE chapter = ?`, chap).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}

// SetCharacters records the characters appearing in a beat. The beat must
// already be indexed.
func (x *Index) SetCharacters(ctx context.Context, chap, id string, characters []string) error {
	chars, err := json.Marshal(nonNil(characters))
	if err != nil {
		return err
	}
	res, err := x.db.ExecContext(ctx, `UPDATE beats SET characters = ? WHERE chapter = ? AND id = ?`, string(chars), chap, id)
	if err != nil {
		return qerrors.Wrapf(err, "update beat %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return x.missingBeat(ctx, chap, id)
	}
	return nil
}

// SetDirtyReason records why a beat needs rework.
func (x *Index) SetDirtyReason(ctx context.Context, chap, id, reason string) error {
	res, err := x.db.ExecContext(ctx, `UPDATE beats SET dirty_reason = ? WHERE chapter = ? AND id = ?`, reason, chap, id)
	if err != nil {
		return qerrors.Wrapf(err, "update beat %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return x.missingBeat(ctx, chap, id)
	}
	return nil
}

func (x *Index) missingBeat(ctx context.Context, chap, id string) error {
	rows, err := x.Rows(ctx, chap)
	if err != nil {
		return err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return qerrors.NewNotFound("beat", id, ids)
}

// AddArchive catalogues archived prose and returns the entry with its new id.
func (x *Index) AddArchive(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.New().String()
	if e.RemovedAt.IsZero() {
		e.RemovedAt = x.now().UTC()
	}
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO archive (id, chapter, beat_id, label, sha256, blake3, size, removed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Chapter, e.BeatID, e.Label, e.SHA256, e.BLAKE3, e.Size, e.RemovedAt.UTC().Format(timeLayout))
	if err != nil {
		return e, qerrors.Wrapf(err, "catalogue archived beat %s", e.BeatID)
	}
	return e, nil
}

// Archive lists archive entries, newest first. An empty chap lists every chapter.
func (x *Index) Archive(ctx context.Context, chap string) ([]Entry, error) {
	q := `SELECT id, chapter, beat_id, label, sha256, blake3, size, removed_at FROM archive`
	var args []any
	if chap != "" {
		q += ` WHERE chapter = ?`
		args = append(args, chap)
	}
	q += ` ORDER BY removed_at DESC, id`
	rows, err := x.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, qerrors.Wrap(err, "query archive")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ArchiveEntry returns one archive entry by id.
func (x *Index) ArchiveEntry(ctx context.Context, id string) (Entry, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT id, chapter, beat_id, label, sha256, blake3, size, removed_at FROM archive WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return e, qerrors.NewNotFound("archive entry", id, nil)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var removed string
	if err := s.Scan(&e.ID, &e.Chapter, &e.BeatID, &e.Label, &e.SHA256, &e.BLAKE3, &e.Size, &removed); err != nil {
		return e, err
	}
	t, err := time.Parse(timeLayout, removed)
	if err != nil {
		return e, fmt.Errorf("archive entry %s: bad timestamp %q", e.ID, removed)
	}
	e.RemovedAt = t
	return e, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
