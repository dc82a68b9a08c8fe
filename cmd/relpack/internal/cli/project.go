package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/gitrunner"
	"github.com/albertocavalcante/relpack/cmd/relpack/internal/manifest"
	"github.com/albertocavalcante/relpack/cmd/relpack/internal/publish"
	"github.com/albertocavalcante/relpack/cmd/relpack/internal/report"
	"github.com/albertocavalcante/relpack/internal/log"
	"github.com/albertocavalcante/relpack/pkg/archive"
	"github.com/albertocavalcante/relpack/pkg/config"
	"github.com/albertocavalcante/relpack/pkg/version"
	"github.com/spf13/cobra"
)

// project is the resolved project directory with its configuration.
type project struct {
	dir string
	cfg *config.Config
}

// loadProject resolves the project directory and loads its configuration.
// Flags are applied by the caller before validate.
func loadProject() (*project, error) {
	dir := globalFlags.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	cfg, src, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	log.Debug("configuration loaded", "dir", dir, "global", src.Global, "project", src.Project)

	p := &project{dir: dir, cfg: cfg}
	p.detectVersionSource()
	return p, nil
}

// detectVersionSource falls back to a detected build file when the
// configured one does not exist.
func (p *project) detectVersionSource() {
	if _, err := os.Stat(p.path(p.cfg.Version.File)); err == nil {
		return
	}
	src, err := version.Detect(p.dir)
	if err != nil {
		return
	}
	log.Info("using detected version source", "file", src.File, "format", src.Format)
	p.cfg.Version.File = src.File
	p.cfg.Version.Format = src.Format
}

func (p *project) validate() error {
	if err := p.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// path resolves a configured path against the project directory.
func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.dir, filepath.FromSlash(rel))
}

func (p *project) builder() (*archive.Builder, error) {
	return archive.NewBuilder(archive.Options{
		SourceDir:    p.dir,
		StagingDir:   p.cfg.Archive.StagingDir,
		OutputDir:    p.cfg.Archive.OutputDir,
		Product:      p.cfg.Product.Name,
		Exclude:      p.cfg.Archive.Exclude,
		Patterns:     p.cfg.Archive.Patterns,
		Reproducible: config.Enabled(p.cfg.Archive.Reproducible),
	})
}

func (p *project) versionOptions() version.Options {
	return version.Options{
		Format: p.cfg.Version.Format,
		Marker: p.cfg.Version.Marker,
	}
}

func (p *project) currentVersion() (string, error) {
	return version.Read(p.path(p.cfg.Version.File), p.versionOptions())
}

// publishOptions maps the configuration onto a publish run.
func (p *project) publishOptions() publish.Options {
	c := p.cfg
	return publish.Options{
		VersionFile:  c.Version.File,
		Version:      p.versionOptions(),
		RequireClean: config.Enabled(c.Release.RequireClean),
		Tag:          config.Enabled(c.Release.Tag),
		Registry: publish.RegistryOptions{
			Enabled:       config.Enabled(c.Registry.Enabled),
			URL:           c.Registry.URL,
			CheckoutDir:   c.RegistryCheckoutDir(),
			Path:          c.Registry.Path,
			Marker:        c.Registry.Marker,
			Push:          config.Enabled(c.Registry.Push),
			CommitMessage: c.RegistryCommitMessage(),
		},
	}
}

// registryFile is the registry package file inside the checkout.
func (p *project) registryFile() string {
	return filepath.Join(p.path(p.cfg.RegistryCheckoutDir()), filepath.FromSlash(p.cfg.Registry.Path))
}

func (p *project) publisher(b *archive.Builder, printer *report.Printer) *publish.Publisher {
	git := gitrunner.New(gitrunner.WithOutput(os.Stderr, os.Stderr))
	return publish.New(b, git,
		publish.WithRecorder(manifest.NewTracker(p.dir, b.Filter())),
		publish.WithReporter(printer),
	)
}

func (p *project) printer(cmd *cobra.Command) *report.Printer {
	return report.New(report.Config{
		Writer:  cmd.OutOrStdout(),
		NoColor: config.Enabled(p.cfg.Output.NoColor),
		Format:  p.cfg.Output.Format,
	})
}

// addOutputFlag registers --output/-o on cmd.
func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "",
		"Output format (text, json, yaml)")
}

// applyOutputFlag overrides the configured output format when set.
func (p *project) applyOutputFlag(format string) error {
	if format == "" {
		return nil
	}
	if !report.ValidFormat(format) {
		return fmt.Errorf("unknown output format %q", format)
	}
	p.cfg.Output.Format = format
	return nil
}
