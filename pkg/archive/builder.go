// Package archive builds a release package from a project's source tree:
// it stages a filtered copy, compresses it into a zip named after the
// product and version, and hashes the result.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/relpack/internal/log"
)

// Artifact describes a produced package. It is created once per run and
// never modified afterwards.
type Artifact struct {
	Path    string `json:"path" yaml:"path"`
	Version string `json:"version" yaml:"version"`
	SHA256  string `json:"sha256" yaml:"sha256"`
	Files   int    `json:"files" yaml:"files"`
}

// String renders the artifact as the (path, version, hash) triple.
func (a *Artifact) String() string {
	if a == nil {
		return "()"
	}
	return fmt.Sprintf("(%q, %q, %q)", a.Path, a.Version, a.SHA256)
}

// Options configures a Builder. Relative paths are resolved against
// SourceDir.
type Options struct {
	SourceDir    string
	StagingDir   string // parent of the per-version staging directory
	OutputDir    string // where <product>-<version>.zip is written
	Product      string
	Exclude      []string
	Patterns     []string
	Reproducible bool
}

// Builder produces archives for one project.
type Builder struct {
	opts   Options
	filter *Filter
}

// NewBuilder validates opts and returns a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Product == "" {
		return nil, errors.New("product name is required")
	}
	if opts.SourceDir == "" {
		opts.SourceDir = "."
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "build"
	}
	if opts.StagingDir == "" {
		opts.StagingDir = filepath.Join(opts.OutputDir, "cpp_package")
	}
	if opts.Exclude == nil {
		opts.Exclude = DefaultExclude
	}

	filter, err := NewFilter(opts.Exclude, opts.Patterns)
	if err != nil {
		return nil, err
	}
	return &Builder{opts: opts, filter: filter}, nil
}

// Filter returns the exclusion filter used for staging.
func (b *Builder) Filter() *Filter {
	return b.filter
}

// SourceDir returns the project root being packaged.
func (b *Builder) SourceDir() string {
	return b.opts.SourceDir
}

// PackageName returns <product>-<version>.
func (b *Builder) PackageName(version string) string {
	return b.opts.Product + "-" + version
}

// StagingPath returns the directory the tree for version is staged into.
func (b *Builder) StagingPath(version string) string {
	return b.resolve(filepath.Join(b.opts.StagingDir, b.PackageName(version)))
}

// ArchivePath returns the zip path for version.
func (b *Builder) ArchivePath(version string) string {
	return b.resolve(filepath.Join(b.opts.OutputDir, b.PackageName(version)+".zip"))
}

func (b *Builder) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.opts.SourceDir, p)
}

// Build stages the source tree for version, zips it and hashes the zip.
// Filesystem errors are returned wrapped but otherwise untranslated.
func (b *Builder) Build(version string) (*Artifact, error) {
	if version == "" {
		return nil, errors.New("version is required")
	}
	logger := log.Component("archive")
	logger.Debug("exclusions", "names", b.filter.Names(), "patterns", b.opts.Patterns)

	staging := b.StagingPath(version)
	files, err := Stage(b.opts.SourceDir, staging, b.filter)
	if err != nil {
		return nil, fmt.Errorf("failed to stage source tree: %w", err)
	}

	zipPath := b.ArchivePath(version)
	logger.Info("creating zip archive", "path", zipPath)
	if err := CreateZip(staging, zipPath, ZipOptions{Reproducible: b.opts.Reproducible}); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	sum, err := HashFile(zipPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(zipPath)
	if err == nil {
		logger.Info("archive ready", "path", zipPath, "bytes", info.Size(), "sha256", sum)
	}

	return &Artifact{
		Path:    zipPath,
		Version: version,
		SHA256:  sum,
		Files:   files,
	}, nil
}
