// Package gitrunner drives the git binary for the registry checkout and
// release tags.
package gitrunner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/relpack/internal/log"
)

// ErrSourceUnavailable is returned when the registry repository cannot be
// cloned.
var ErrSourceUnavailable = errors.New("registry repository unavailable")

// ErrGitNotFound is returned when no git binary can be located.
var ErrGitNotFound = errors.New("git binary not found")

// Git runs git commands.
type Git struct {
	binary string
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Git.
type Option func(*Git)

// WithBinary sets the git executable. Used primarily for testing.
func WithBinary(path string) Option {
	return func(g *Git) {
		g.binary = path
	}
}

// WithOutput sets where clone progress is written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(g *Git) {
		g.stdout = stdout
		g.stderr = stderr
	}
}

// New creates a Git with the given options.
func New(opts ...Option) *Git {
	g := &Git{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Binary resolves the git executable.
func (g *Git) Binary() (string, error) {
	if g.binary != "" {
		return g.binary, nil
	}
	path, err := exec.LookPath("git")
	if err != nil {
		return "", ErrGitNotFound
	}
	return path, nil
}

// Clone makes a fresh clone of url at dir. An existing dir is removed
// first. The clone lands in a sibling temporary directory that is removed
// if git fails, and is renamed to dir only on success.
func (g *Git) Clone(url, dir string) error {
	logger := log.Component("git")

	bin, err := g.Binary()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	if _, err := os.Lstat(dir); err == nil {
		logger.Info("removing previous checkout", "path", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dir), err)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", dir, os.Getpid())
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("failed to clear %s: %w", tmp, err)
	}

	logger.Info("cloning registry", "url", url, "dir", dir)
	cmd := exec.Command(bin, "clone", "--", url, tmp)
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("%w: git clone %s: %v", ErrSourceUnavailable, url, err)
	}

	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to move checkout into place: %w", err)
	}
	return nil
}

// IsClean reports whether the work tree at dir has no untracked or
// modified files.
func (g *Git) IsClean(dir string) (bool, error) {
	out, err := g.output(dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) == 0, nil
}

// Tag creates a lightweight tag in dir and pushes it to origin.
func (g *Git) Tag(dir, name string) error {
	if _, err := g.output(dir, "tag", name); err != nil {
		return err
	}
	_, err := g.output(dir, "push", "origin", name)
	return err
}

// CommitAndPush stages path, commits it with message and pushes the
// current branch.
func (g *Git) CommitAndPush(dir, path, message string) error {
	if _, err := g.output(dir, "add", "--", path); err != nil {
		return err
	}
	if _, err := g.output(dir, "commit", "-m", message); err != nil {
		return err
	}
	_, err := g.output(dir, "push")
	return err
}

// output runs git -C dir args... and returns combined output. A non-zero
// exit becomes an error carrying git's output.
func (g *Git) output(dir string, args ...string) ([]byte, error) {
	bin, err := g.Binary()
	if err != nil {
		return nil, err
	}

	full := append([]string{"-C", dir}, args...)
	log.V(log.VerbosityDebug).Debug("running git", "args", strings.Join(full, " "))

	out, err := exec.Command(bin, full...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return out, nil
}
