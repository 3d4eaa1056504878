package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Committer records edited chapter files in version control.
type Committer interface {
	Commit(ctx context.Context, paths []string, message string) error
}

// NopCommitter discards commits.
type NopCommitter struct{}

// Commit does nothing.
func (NopCommitter) Commit(context.Context, []string, string) error { return nil }

// runFunc runs a command in dir and returns its combined output.
type runFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// GitCommitter commits with the git binary found on PATH.
type GitCommitter struct {
	// Dir is the working tree the paths belong to.
	Dir string
	// Author overrides the commit author when set.
	Author string

	run runFunc
}

// NewGitCommitter returns a committer for the working tree at dir.
func NewGitCommitter(dir, author string) *GitCommitter {
	return &GitCommitter{Dir: dir, Author: author, run: runCommand}
}

// Commit stages paths and commits only them.
func (g *GitCommitter) Commit(ctx context.Context, paths []string, message string) error {
	if len(paths) == 0 {
		return nil
	}
	run := g.run
	if run == nil {
		run = runCommand
	}

	add := append([]string{"add", "--"}, paths...)
	if out, err := run(ctx, g.Dir, "git", add...); err != nil {
		return fmt.Errorf("git add: %w: %s", err, strings.TrimSpace(string(out)))
	}

	commit := []string{"commit", "--quiet", "-m", message}
	if g.Author != "" {
		commit = append(commit, "--author", g.Author)
	}
	commit = append(commit, "--")
	commit = append(commit, paths...)
	if out, err := run(ctx, g.Dir, "git", commit...); err != nil {
		return fmt.Errorf("git commit: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
