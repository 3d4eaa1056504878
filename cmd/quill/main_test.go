package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const chapterText = `# Chapter One

<!-- chapter-summary: Mara arrives at the station. -->

<!-- beat:b1 [written] | Arrival -->
<!-- summary: Mara lands. -->
The ship docked.

<!-- beat:b2 [planned] | Customs -->

<!-- beat:b3 [dirty] | Market -->
<!-- summary: She buys fruit. -->
An apple, a pear.
`

const referenceText = `# World Bible

Intro.

## Geography

Rivers and hills.

## History

Old wars.
`

// Test helper functions

func createManuscript(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	createTestFile(t, root, "ch01.md", chapterText)
	createTestFile(t, root, "world.md", referenceText)
	return root
}

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// quill runs the command line against root and returns exit code, stdout and stderr.
func quill(t *testing.T, root string, args ...string) (int, string, string) {
	t.Helper()
	var out, errw bytes.Buffer
	full := append([]string{"--root", root}, args...)
	code := run(context.Background(), full, strings.NewReader(""), &out, &errw)
	return code, out.String(), errw.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := quill(t, t.TempDir(), "version")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "quill version "+version) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "sqlite: ") {
		t.Errorf("output missing sqlite driver: %q", out)
	}

	code, out, _ = quill(t, t.TempDir(), "--json", "version")
	if code != 0 {
		t.Fatalf("json exit code = %d", code)
	}
	var got struct {
		Version string `json:"version"`
		SQLite  struct {
			DriverName string `json:"driver_name"`
		} `json:"sqlite"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("version output: %v\n%s", err, out)
	}
	if got.Version != version || got.SQLite.DriverName == "" {
		t.Errorf("version = %+v", got)
	}
}

func TestBeatList(t *testing.T) {
	root := createManuscript(t)
	code, out, errOut := quill(t, root, "beat", "list", "ch01.md")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	for _, want := range []string{"b1", "written", "Arrival", "b2", "Customs", "She buys fruit."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBeatListJSON(t *testing.T) {
	root := createManuscript(t)
	code, out, _ := quill(t, root, "--json", "beat", "list", "ch01.md")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var beats []beatJSON
	if err := json.Unmarshal([]byte(out), &beats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(beats) != 3 || beats[0].ID != "b1" || beats[0].Words != 3 || beats[1].Status != "planned" {
		t.Errorf("beats = %+v", beats)
	}
}

func TestBeatInsert(t *testing.T) {
	root := createManuscript(t)
	code, out, errOut := quill(t, root, "beat", "insert", "ch01.md", "b4", "--after", "b1", "--label", "Queue", "--prose", "They wait.")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "ch01.md: inserted beat b4") {
		t.Errorf("output = %q", out)
	}
	text := readFile(t, filepath.Join(root, "ch01.md"))
	if !strings.Contains(text, "<!-- beat:b4 [written] | Queue -->\nThey wait.") {
		t.Errorf("chapter = %s", text)
	}
	if strings.Index(text, "beat:b4") > strings.Index(text, "beat:b2") {
		t.Error("b4 not inserted after b1")
	}
}

func TestDryRunPrintsDiff(t *testing.T) {
	root := createManuscript(t)
	code, out, _ := quill(t, root, "--dry-run", "beat", "patch", "ch01.md", "b2", "--status", "written")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "-<!-- beat:b2 [planned] | Customs -->") || !strings.Contains(out, "+<!-- beat:b2 [written] | Customs -->") {
		t.Errorf("diff = %s", out)
	}
	if readFile(t, filepath.Join(root, "ch01.md")) != chapterText {
		t.Error("dry run modified the chapter")
	}
}

func TestDryRunCreatesNoState(t *testing.T) {
	root := createManuscript(t)
	code, _, errOut := quill(t, root, "--dry-run", "beat", "list", "ch01.md")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	code, out, errOut := quill(t, root, "--dry-run", "--json", "archive", "list")
	if code != 0 {
		t.Fatalf("archive list exit code = %d, stderr = %s", code, errOut)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("archive list = %q", out)
	}
	if _, err := os.Stat(filepath.Join(root, ".quill", "index.db")); !os.IsNotExist(err) {
		t.Errorf("dry run created the index: %v", err)
	}
}

func TestDryRunReadsExistingIndex(t *testing.T) {
	root := createManuscript(t)
	if code, _, errOut := quill(t, root, "beat", "remove", "ch01.md", "b3"); code != 0 {
		t.Fatalf("remove exit code = %d, stderr = %s", code, errOut)
	}
	code, out, errOut := quill(t, root, "--dry-run", "--json", "archive", "list")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, `"beat_id": "b3"`) {
		t.Errorf("archive list = %s", out)
	}
}

func TestBeatPatchNeedsAField(t *testing.T) {
	root := createManuscript(t)
	code, _, errOut := quill(t, root, "beat", "patch", "ch01.md", "b2")
	if code != 1 || !strings.Contains(errOut, "nothing to change") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestBeatRemoveUnknownListsIDs(t *testing.T) {
	root := createManuscript(t)
	code, _, errOut := quill(t, root, "beat", "remove", "ch01.md", "b9")
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(errOut, "beat not found: b9 (available: b1, b2, b3)") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestBeatRemoveAndArchive(t *testing.T) {
	root := createManuscript(t)
	code, out, errOut := quill(t, root, "beat", "remove", "ch01.md", "b3")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "archived ") {
		t.Errorf("output = %q", out)
	}

	code, out, _ = quill(t, root, "--json", "archive", "list")
	if code != 0 {
		t.Fatalf("archive list exit code = %d", code)
	}
	var entries []struct {
		ID     string `json:"id"`
		BeatID string `json:"beat_id"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("archive list output: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].BeatID != "b3" {
		t.Fatalf("entries = %+v", entries)
	}

	code, out, _ = quill(t, root, "archive", "show", entries[0].ID)
	if code != 0 || strings.TrimSpace(out) != "An apple, a pear." {
		t.Errorf("archive show = %d, %q", code, out)
	}
}

func TestNotes(t *testing.T) {
	root := createManuscript(t)
	code, _, errOut := quill(t, root, "note", "add", "ch01.md", "b1", "ship", "-t", "query", "-m", "Which ship?", "-a", "ed")
	if code != 0 {
		t.Fatalf("note add exit code = %d, stderr = %s", code, errOut)
	}

	code, out, _ := quill(t, root, "--json", "note", "list", "ch01.md")
	if code != 0 {
		t.Fatalf("note list exit code = %d", code)
	}
	var notes []noteJSON
	if err := json.Unmarshal([]byte(out), &notes); err != nil {
		t.Fatalf("note list output: %v\n%s", err, out)
	}
	if len(notes) != 1 || notes[0].Type != "query" || notes[0].Message != "Which ship?" || notes[0].Author != "ed" || notes[0].Beat != "b1" {
		t.Fatalf("notes = %+v", notes)
	}

	code, _, errOut = quill(t, root, "note", "remove", "ch01.md", notes[0].ID)
	if code != 0 {
		t.Fatalf("note remove exit code = %d, stderr = %s", code, errOut)
	}
	if got := readFile(t, filepath.Join(root, "ch01.md")); got != chapterText {
		t.Errorf("add then remove did not restore the chapter:\n%s", got)
	}
}

func TestNoteAddAmbiguousAnchor(t *testing.T) {
	root := createManuscript(t)
	createTestFile(t, root, "ch02.md", "<!-- beat:x1 [written] -->\nAn apple and an apple.\n")
	code, _, errOut := quill(t, root, "note", "add", "ch02.md", "x1", "apple", "-m", "twice")
	if code != 1 || !strings.Contains(errOut, "apple") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestSections(t *testing.T) {
	root := createManuscript(t)
	code, out, _ := quill(t, root, "section", "index", "world.md")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "geography") || !strings.Contains(out, "history") {
		t.Errorf("index = %s", out)
	}

	code, out, _ = quill(t, root, "section", "fetch", "world.md", "history", "geography")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "## History\n\nOld wars.\n## Geography\n\nRivers and hills.\n\n" {
		t.Errorf("fetch = %q", out)
	}

	code, _, errOut := quill(t, root, "section", "fetch", "world.md", "nowhere")
	if code != 1 || !strings.Contains(errOut, "geography") {
		t.Errorf("unknown slug: code = %d, stderr = %q", code, errOut)
	}
}

func TestChapterCheck(t *testing.T) {
	root := createManuscript(t)
	code, out, _ := quill(t, root, "chapter", "check")
	if code != 0 {
		t.Fatalf("exit code = %d\n%s", code, out)
	}
	if !strings.Contains(out, "ok ch01.md (3 beats)") {
		t.Errorf("output = %s", out)
	}

	createTestFile(t, root, "broken.md", "<!-- beat:x1 [planned] -->\n<!-- beat:x1 [planned] -->\n")
	code, out, errOut := quill(t, root, "chapter", "check")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out, "FAIL broken.md") || !strings.Contains(errOut, "1 of 3 chapters failed") {
		t.Errorf("stdout = %s\nstderr = %s", out, errOut)
	}
}

func TestChapterStrip(t *testing.T) {
	root := createManuscript(t)
	code, out, _ := quill(t, root, "chapter", "strip", "ch01.md")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(out, "<!--") || !strings.Contains(out, "The ship docked.") {
		t.Errorf("strip = %q", out)
	}
}

func TestChapterSummary(t *testing.T) {
	root := createManuscript(t)
	code, out, _ := quill(t, root, "chapter", "summary", "ch01.md")
	if code != 0 || strings.TrimSpace(out) != "Mara arrives at the station." {
		t.Errorf("summary = %d, %q", code, out)
	}
	code, _, _ = quill(t, root, "chapter", "summary", "ch01.md", "Mara reaches the port.")
	if code != 0 {
		t.Fatalf("set summary exit code = %d", code)
	}
	if !strings.Contains(readFile(t, filepath.Join(root, "ch01.md")), "<!-- chapter-summary: Mara reaches the port. -->") {
		t.Error("summary not written")
	}
}

func TestChapterMigrate(t *testing.T) {
	root := t.TempDir()
	createTestFile(t, root, "ch03.md", "# Chapter Three\n\n<!-- beat:c1 | Setup -->\n<!-- beat-summary: They plan. -->\nThe crew gathers.\n")
	code, out, errOut := quill(t, root, "chapter", "migrate", "ch03.md")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "migrated") {
		t.Errorf("output = %q", out)
	}
	want := "# Chapter Three\n\n<!-- beat:c1 [written] | Setup -->\n<!-- summary: They plan. -->\nThe crew gathers.\n"
	if got := readFile(t, filepath.Join(root, "ch03.md")); got != want {
		t.Errorf("migrated = %q, want %q", got, want)
	}
	code, out, _ = quill(t, root, "chapter", "migrate", "ch03.md")
	if code != 0 || !strings.Contains(out, "no change") {
		t.Errorf("second migrate = %d, %q", code, out)
	}
}

func TestTraversalRejected(t *testing.T) {
	root := createManuscript(t)
	code, _, errOut := quill(t, root, "beat", "list", "../ch01.md")
	if code != 1 || !strings.Contains(errOut, "path traversal") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	code, _, _ := quill(t, root, "init")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if _, err := os.Stat(filepath.Join(root, "quill.yaml")); err != nil {
		t.Errorf("quill.yaml not written: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, _ := quill(t, t.TempDir(), "frobnicate")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}
