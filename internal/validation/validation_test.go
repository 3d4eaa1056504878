package validation

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := "/tmp/manuscript"

	tests := []struct {
		name      string
		userPath  string
		want      string
		wantError error
	}{
		{"simple valid path", "ch01.md", "ch01.md", nil},
		{"nested valid path", "part1/ch01.md", filepath.Join("part1", "ch01.md"), nil},
		{"redundant separators", "part1//ch01.md", filepath.Join("part1", "ch01.md"), nil},
		{"dot component", "./ch01.md", "ch01.md", nil},
		{"dotdot inside name", "a..b.md", "a..b.md", nil},
		{"traversal with dotdot", "../etc/passwd", "", ErrPathTraversal},
		{"traversal in middle", "part1/../../etc/passwd", "", ErrPathTraversal},
		{"bare dotdot", "..", "", ErrPathTraversal},
		{"absolute path", "/etc/passwd", "", ErrPathTraversal},
		{"empty path", "", "", ErrEmptyPath},
		{"null byte", "ch\x0001.md", "", ErrInvalidCharacter},
		{"too long", strings.Repeat("a", MaxPathLength+1), "", ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(baseDir, tt.userPath)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("SanitizePath() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizePath() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SanitizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPathSafe(t *testing.T) {
	if !IsPathSafe("/tmp/m", "ch01.md") {
		t.Error("IsPathSafe(ch01.md) = false")
	}
	if IsPathSafe("/tmp/m", "../ch01.md") {
		t.Error("IsPathSafe(../ch01.md) = true")
	}
}

func TestChapterPath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name      string
		userPath  string
		want      string
		wantError error
	}{
		{"relative", "ch01.md", filepath.Join(root, "ch01.md"), nil},
		{"nested markdown", "part1/ch02.markdown", filepath.Join(root, "part1", "ch02.markdown"), nil},
		{"absolute inside root", filepath.Join(root, "ch03.md"), filepath.Join(root, "ch03.md"), nil},
		{"uppercase extension", "CH04.MD", filepath.Join(root, "CH04.MD"), nil},
		{"absolute outside root", "/etc/ch01.md", "", ErrPathTraversal},
		{"not markdown", "notes.txt", "", ErrNotMarkdown},
		{"leading hyphen", "-rf.md", "", ErrInvalidFilename},
		{"traversal", "../ch01.md", "", ErrPathTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChapterPath(root, tt.userPath)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Errorf("ChapterPath() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("ChapterPath() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ChapterPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     error
	}{
		{"valid", "ch01.md", nil},
		{"unicode", "café.md", nil},
		{"empty", "", ErrInvalidFilename},
		{"dot", ".", ErrInvalidFilename},
		{"dotdot", "..", ErrInvalidFilename},
		{"separator", "a/b.md", ErrInvalidFilename},
		{"backslash", "a\\b.md", ErrInvalidFilename},
		{"null", "a\x00.md", ErrInvalidFilename},
		{"control", "a\tb.md", ErrInvalidFilename},
		{"hyphen", "-x.md", ErrInvalidFilename},
		{"too long", strings.Repeat("a", MaxFilenameLength+1), ErrFilenameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateFilename() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateFilename() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"plain", []byte("# Chapter One\n"), nil},
		{"empty", nil, nil},
		{"bom", []byte("\xEF\xBB\xBF# Title\n"), nil},
		{"accented", []byte("Café au lait.\n"), nil},
		{"null byte", []byte("a\x00b"), ErrNotText},
		{"invalid utf8", []byte{0xff, 0xfe, 'a'}, ErrNotText},
		{"too large", make([]byte, MaxFileSize+1), ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.data)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateText() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateText() error = %v, want %v", err, tt.want)
			}
		})
	}
}
