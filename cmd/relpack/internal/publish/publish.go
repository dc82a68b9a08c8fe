// Package publish sequences a release: read the version, build the
// archive, then optionally tag the project and update the package
// registry.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/albertocavalcante/relpack/internal/log"
	"github.com/albertocavalcante/relpack/pkg/archive"
	"github.com/albertocavalcante/relpack/pkg/registry"
	"github.com/albertocavalcante/relpack/pkg/version"
)

// ErrDirtyTree is returned when a clean work tree is required and the
// project has uncommitted changes.
var ErrDirtyTree = errors.New("work tree has uncommitted changes")

// VCS is the subset of git operations a release needs.
type VCS interface {
	Clone(url, dir string) error
	IsClean(dir string) (bool, error)
	Tag(dir, name string) error
	CommitAndPush(dir, path, message string) error
}

// Recorder stores the artifact of a finished build.
type Recorder interface {
	Record(ctx context.Context, art *archive.Artifact) error
}

// Reporter receives human progress lines.
type Reporter interface {
	Step(format string, args ...any)
}

// RegistryOptions configures the registry update.
type RegistryOptions struct {
	// Enabled gates the whole step. The update targets a shared remote,
	// so callers opt in explicitly.
	Enabled       bool
	URL           string
	CheckoutDir   string // resolved against the project dir when relative
	Path          string // package file inside the checkout
	Marker        string
	Push          bool
	CommitMessage string
}

// Options configures one Run.
type Options struct {
	// VersionFile is the build configuration, relative to the project dir.
	VersionFile  string
	Version      version.Options
	RequireClean bool
	Tag          bool
	Registry     RegistryOptions

	// DryRun computes the registry change without writing, committing or
	// tagging. The archive is still built.
	DryRun bool
}

// Result is the outcome of a Run.
type Result struct {
	Version  string
	Artifact *archive.Artifact
	Registry *registry.Result
	Tagged   bool
	Pushed   bool
}

// Publisher runs releases for one project.
type Publisher struct {
	builder  *archive.Builder
	vcs      VCS
	recorder Recorder
	reporter Reporter
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRecorder records every built artifact.
func WithRecorder(r Recorder) Option {
	return func(p *Publisher) {
		p.recorder = r
	}
}

// WithReporter sets where progress lines go.
func WithReporter(r Reporter) Option {
	return func(p *Publisher) {
		p.reporter = r
	}
}

// New creates a Publisher that packages with builder and talks to git
// through vcs.
func New(builder *archive.Builder, vcs VCS, opts ...Option) *Publisher {
	p := &Publisher{
		builder:  builder,
		vcs:      vcs,
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentVersion reads the version from the project's build configuration.
func (p *Publisher) CurrentVersion(opts Options) (string, error) {
	return version.Read(p.resolve(opts.VersionFile), opts.Version)
}

// Run performs one release. Every step aborts the run on error; an
// archive built before a failing registry step stays on disk.
func (p *Publisher) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := log.Component("publish")

	ver, err := p.CurrentVersion(opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Version: ver}
	p.reporter.Step("version %s", ver)

	if opts.RequireClean {
		clean, err := p.vcs.IsClean(p.builder.SourceDir())
		if err != nil {
			return nil, fmt.Errorf("failed to check work tree: %w", err)
		}
		if !clean {
			return nil, ErrDirtyTree
		}
	}

	p.reporter.Step("staging %s", p.builder.StagingPath(ver))
	art, err := p.builder.Build(ver)
	if err != nil {
		return nil, err
	}
	res.Artifact = art
	p.reporter.Step("archive %s (%d files)", art.Path, art.Files)

	if p.recorder != nil {
		if err := p.recorder.Record(ctx, art); err != nil {
			// Release state only feeds "relpack status".
			logger.Warn("failed to record release state", "error", err)
		}
	}

	if opts.Tag && !opts.DryRun {
		if err := p.vcs.Tag(p.builder.SourceDir(), ver); err != nil {
			return res, fmt.Errorf("failed to tag release: %w", err)
		}
		res.Tagged = true
		p.reporter.Step("tagged %s", ver)
	}

	if !opts.Registry.Enabled {
		logger.Debug("registry update disabled")
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	reg, err := p.updateRegistry(opts, art)
	if err != nil {
		return res, err
	}
	res.Registry = reg

	if opts.Registry.Push && !opts.DryRun && reg.Written {
		p.reporter.Step("pushing %s", opts.Registry.Path)
		dir := p.resolve(opts.Registry.CheckoutDir)
		if err := p.vcs.CommitAndPush(dir, opts.Registry.Path, opts.Registry.CommitMessage); err != nil {
			return res, fmt.Errorf("failed to push registry update: %w", err)
		}
		res.Pushed = true
	}

	return res, nil
}

func (p *Publisher) updateRegistry(opts Options, art *archive.Artifact) (*registry.Result, error) {
	ro := opts.Registry
	if ro.URL == "" || ro.CheckoutDir == "" || ro.Path == "" {
		return nil, errors.New("registry url, checkout dir and path are required")
	}

	dir := p.resolve(ro.CheckoutDir)
	p.reporter.Step("registry clone %s", ro.URL)
	if err := p.vcs.Clone(ro.URL, dir); err != nil {
		return nil, err
	}

	file := filepath.Join(dir, filepath.FromSlash(ro.Path))
	updateOpts := []registry.Option{registry.WithDryRun(opts.DryRun)}
	if ro.Marker != "" {
		updateOpts = append(updateOpts, registry.WithMarker(ro.Marker))
	}
	return registry.UpdateFile(file, art.Version, art.SHA256, updateOpts...)
}

func (p *Publisher) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.builder.SourceDir(), path)
}

type nopReporter struct{}

func (nopReporter) Step(string, ...any) {}
