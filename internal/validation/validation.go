// Package validation checks user-supplied chapter paths and file contents
// before the workspace reads or replaces them. It guards against path
// traversal, binary input and resource exhaustion.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Security limits to prevent DoS attacks (CWE-400).
const (
	// MaxFileSize is the maximum size of a chapter file (32 MB).
	MaxFileSize = 32 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNotText          = errors.New("file is not UTF-8 text")
	ErrNotMarkdown      = errors.New("not a markdown file")
)

// SanitizePath validates and sanitizes a user-supplied path to prevent path traversal attacks.
// It ensures the path does not escape the provided base directory.
// Returns the cleaned path relative to the base directory, or an error if invalid.
func SanitizePath(baseDir, userPath string) (string, error) {
	if err := ValidatePath(userPath); err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(userPath)

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ChapterPath resolves a chapter file named by the user against the
// manuscript root. Absolute paths are accepted when they lie inside root.
// The file must carry a .md or .markdown extension.
func ChapterPath(root, userPath string) (string, error) {
	if filepath.IsAbs(userPath) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("failed to resolve base directory: %w", err)
		}
		rel, err := filepath.Rel(absRoot, filepath.Clean(userPath))
		if err != nil {
			return "", ErrPathTraversal
		}
		userPath = rel
	}
	clean, err := SanitizePath(root, userPath)
	if err != nil {
		return "", err
	}
	if err := ValidateFilename(filepath.Base(clean)); err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(clean)) {
	case ".md", ".markdown":
	default:
		return "", fmt.Errorf("%w: %s", ErrNotMarkdown, clean)
	}
	return filepath.Join(root, clean), nil
}

// ValidateFilename checks if a filename is safe and does not contain malicious characters.
// It rejects filenames with path separators, control characters, and dangerous patterns.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	// can be confused with command flags
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// IsPathSafe is a convenience wrapper around SanitizePath that returns a boolean.
func IsPathSafe(baseDir, userPath string) bool {
	_, err := SanitizePath(baseDir, userPath)
	return err == nil
}

// ValidatePath checks a path for dangerous patterns, length limits, and
// invalid characters without requiring a base directory.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateText checks that data read from a chapter file is bounded UTF-8
// text. A leading byte order mark is allowed.
func ValidateText(data []byte) error {
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), MaxFileSize)
	}
	if bytes.IndexByte(data, 0) != -1 {
		return fmt.Errorf("%w: contains null bytes", ErrNotText)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: invalid UTF-8", ErrNotText)
	}
	return nil
}
