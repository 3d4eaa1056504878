// Package config loads quill.yaml, the per-manuscript configuration.
// Values from the file are merged over defaults; command-line flags
// override both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	qerrors "github.com/FocuswithJustin/Quill/core/errors"
	"github.com/FocuswithJustin/Quill/core/marker"
	"github.com/FocuswithJustin/Quill/core/sections"
	"github.com/FocuswithJustin/Quill/internal/logging"
	"github.com/FocuswithJustin/Quill/internal/validation"
)

// FileName is the name of the configuration file at the manuscript root.
const FileName = "quill.yaml"

// StateDir holds the index database and the prose archive by default.
const StateDir = ".quill"

const defaultConfigYAML = `# quill manuscript configuration

# Author recorded on annotations added without --author.
default_author: ""

# Column at which summary comments are wrapped.
wrap_column: 80

# Heading level treated as a section boundary (1-6).
section_level: 2

# Sidecar index and removed-prose archive, relative to the manuscript root.
sidecar_db: .quill/index.db
archive_dir: .quill/archive

log:
  level: warn
  format: text

# Commit every edited chapter with git.
commit:
  enabled: false
  author: ""
`

// LogConfig selects logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CommitConfig controls version control commits after edits.
type CommitConfig struct {
	Enabled bool `yaml:"enabled"`
	// Author is passed to git as --author when set, e.g. "Ada <ada@example.com>".
	Author string `yaml:"author,omitempty"`
}

// Config models quill.yaml.
type Config struct {
	DefaultAuthor string       `yaml:"default_author"`
	WrapColumn    int          `yaml:"wrap_column"`
	SectionLevel  int          `yaml:"section_level"`
	SidecarDB     string       `yaml:"sidecar_db"`
	ArchiveDir    string       `yaml:"archive_dir"`
	Log           LogConfig    `yaml:"log"`
	Commit        CommitConfig `yaml:"commit"`
}

// Default returns the configuration used when quill.yaml is absent.
func Default() Config {
	return Config{
		WrapColumn:   marker.DefaultWrapColumn,
		SectionLevel: sections.DefaultLevel,
		SidecarDB:    filepath.Join(StateDir, "index.db"),
		ArchiveDir:   filepath.Join(StateDir, "archive"),
		Log:          LogConfig{Level: "warn", Format: "text"},
	}
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, qerrors.NewIO("read", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, qerrors.Wrapf(qerrors.ErrInvalidInput, "parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Init writes a commented default configuration into root unless one exists.
func Init(root string) (string, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return path, qerrors.NewIO("write", path, err)
	}
	return path, nil
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	if c.WrapColumn < 20 || c.WrapColumn > 400 {
		return qerrors.NewValidation("wrap_column", fmt.Sprintf("must be between 20 and 400, got %d", c.WrapColumn))
	}
	if c.SectionLevel < 1 || c.SectionLevel > 6 {
		return qerrors.NewValidation("section_level", fmt.Sprintf("must be between 1 and 6, got %d", c.SectionLevel))
	}
	if err := validateStatePath("sidecar_db", c.SidecarDB); err != nil {
		return err
	}
	if err := validateStatePath("archive_dir", c.ArchiveDir); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return qerrors.NewValidation("log.level", "must be one of debug, info, warn, error")
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return qerrors.NewValidation("log.format", "must be text or json")
	}
	if strings.ContainsAny(c.DefaultAuthor, "[]()\n") {
		return qerrors.NewValidation("default_author", "must not contain brackets, parentheses or newlines")
	}
	return nil
}

// validateStatePath accepts an absolute path or a relative one that stays
// inside the manuscript root.
func validateStatePath(field, p string) error {
	if strings.TrimSpace(p) == "" {
		return qerrors.NewValidation(field, "must not be empty")
	}
	if !filepath.IsAbs(p) && !validation.IsPathSafe(".", p) {
		return qerrors.NewValidation(field, "relative path must stay inside the manuscript root: "+p)
	}
	return nil
}

// Resolve returns p joined to root unless p is absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
