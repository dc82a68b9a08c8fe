// Package config provides configuration management for relpack.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/relpack/config.toml)
//  3. Project config (.relpack/config.toml or relpack.toml)
//  4. Environment variables (RELPACK_*)
//  5. CLI flags (highest priority)
package config

import (
	"errors"
	"path"
	"strings"
)

// Config is the main configuration struct for relpack.
type Config struct {
	// Product names the package; archives are <name>-<version>.zip.
	Product ProductConfig `toml:"product"`

	// Version configures where the release version is read from.
	Version VersionConfig `toml:"version"`

	// Archive configures staging and the zip archive.
	Archive ArchiveConfig `toml:"archive"`

	// Registry configures the downstream package registry update.
	Registry RegistryConfig `toml:"registry"`

	// Release configures VCS checks and tags on the project itself.
	Release ReleaseConfig `toml:"release"`

	// Output configures console output.
	Output OutputConfig `toml:"output"`
}

// ProductConfig identifies the package being released.
type ProductConfig struct {
	Name string `toml:"name"`
}

// VersionConfig selects the version source.
type VersionConfig struct {
	// File is the build-configuration file, relative to the project root.
	File string `toml:"file"`

	// Format is "marker" or "bazel-module".
	Format string `toml:"format"`

	// Marker is the substring identifying the version line.
	Marker string `toml:"marker"`
}

// ArchiveConfig configures the package archive.
type ArchiveConfig struct {
	// StagingDir holds the filtered copy of the source tree.
	StagingDir string `toml:"staging_dir"`

	// OutputDir receives the zip archive.
	OutputDir string `toml:"output_dir"`

	// Exclude lists entry names skipped at any depth.
	Exclude []string `toml:"exclude"`

	// Patterns lists doublestar globs skipped, relative to the project root.
	Patterns []string `toml:"patterns"`

	// Reproducible pins zip entry timestamps.
	Reproducible *bool `toml:"reproducible"`
}

// RegistryConfig configures the registry update.
type RegistryConfig struct {
	// Enabled gates the registry update. Off by default because the update
	// targets a shared remote.
	Enabled *bool `toml:"enabled"`

	// URL is the registry repository to clone.
	URL string `toml:"url"`

	// Path is the package file inside the repository.
	Path string `toml:"path"`

	// CheckoutDir is where the repository is cloned. Defaults to
	// <output_dir>/<repository name>.
	CheckoutDir string `toml:"checkout_dir"`

	// Marker is the call registering a version.
	Marker string `toml:"marker"`

	// Push commits and pushes the updated file.
	Push *bool `toml:"push"`

	// CommitMessage is used when Push is set. Defaults to "update <product>".
	CommitMessage string `toml:"commit_message"`
}

// ReleaseConfig configures checks on the project repository.
type ReleaseConfig struct {
	// RequireClean refuses to package a work tree with uncommitted changes.
	RequireClean *bool `toml:"require_clean"`

	// Tag creates and pushes a tag named after the version.
	Tag *bool `toml:"tag"`
}

// OutputConfig configures console output.
type OutputConfig struct {
	// Format is "text", "json" or "yaml".
	Format string `toml:"format"`

	// NoColor disables ANSI colour.
	NoColor *bool `toml:"no_color"`
}

// NewConfig creates a new Config with built-in defaults. The defaults
// reproduce the hku_utils release layout; the registry update is disabled.
func NewConfig() *Config {
	falseVal := false
	return &Config{
		Product: ProductConfig{
			Name: "hku_utils",
		},
		Version: VersionConfig{
			File:   "xmake.lua",
			Format: "marker",
			Marker: "set_version(",
		},
		Archive: ArchiveConfig{
			StagingDir:   "build/cpp_package",
			OutputDir:    "build",
			Exclude:      []string{".vscode", ".git", ".xmake", "build", "publish.py"},
			Patterns:     []string{},
			Reproducible: &falseVal,
		},
		Registry: RegistryConfig{
			Enabled: &falseVal,
			URL:     "https://gitee.com/fasiondog/hikyuu_extern_libs.git",
			Path:    "packages/h/hku_utils/xmake.lua",
			Marker:  "add_versions",
			Push:    &falseVal,
		},
		Release: ReleaseConfig{
			RequireClean: &falseVal,
			Tag:          &falseVal,
		},
		Output: OutputConfig{
			Format:  "text",
			NoColor: &falseVal,
		},
	}
}

// Enabled dereferences an optional flag.
func Enabled(b *bool) bool {
	return b != nil && *b
}

// RegistryCheckoutDir returns the configured checkout directory, or
// <output_dir>/<repository name> derived from the URL.
func (c *Config) RegistryCheckoutDir() string {
	if c.Registry.CheckoutDir != "" {
		return c.Registry.CheckoutDir
	}
	return path.Join(c.Archive.OutputDir, RepoName(c.Registry.URL))
}

// RegistryCommitMessage returns the commit message for the registry update.
func (c *Config) RegistryCommitMessage() string {
	if c.Registry.CommitMessage != "" {
		return c.Registry.CommitMessage
	}
	return "update " + c.Product.Name
}

// RepoName derives a directory name from a repository URL the way git
// clone does: last path element without a .git suffix.
func RepoName(url string) string {
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	url = strings.TrimSuffix(url, ".git")
	if url == "" {
		return "registry"
	}
	return url
}

// Validate reports configuration that cannot produce a release.
func (c *Config) Validate() error {
	var errs []error
	if c.Product.Name == "" {
		errs = append(errs, errors.New("product.name is required"))
	}
	if c.Version.File == "" {
		errs = append(errs, errors.New("version.file is required"))
	}
	switch c.Version.Format {
	case "", "marker", "bazel-module":
	default:
		errs = append(errs, errors.New("version.format must be \"marker\" or \"bazel-module\""))
	}
	switch c.Output.Format {
	case "", "text", "json", "yaml":
	default:
		errs = append(errs, errors.New("output.format must be text, json or yaml"))
	}
	if Enabled(c.Registry.Enabled) {
		if c.Registry.URL == "" {
			errs = append(errs, errors.New("registry.url is required when the registry update is enabled"))
		}
		if c.Registry.Path == "" {
			errs = append(errs, errors.New("registry.path is required when the registry update is enabled"))
		}
	}
	return errors.Join(errs...)
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Product.Name != "" {
		c.Product.Name = other.Product.Name
	}

	if other.Version.File != "" {
		c.Version.File = other.Version.File
	}
	if other.Version.Format != "" {
		c.Version.Format = other.Version.Format
	}
	if other.Version.Marker != "" {
		c.Version.Marker = other.Version.Marker
	}

	if other.Archive.StagingDir != "" {
		c.Archive.StagingDir = other.Archive.StagingDir
	}
	if other.Archive.OutputDir != "" {
		c.Archive.OutputDir = other.Archive.OutputDir
	}
	if other.Archive.Exclude != nil {
		c.Archive.Exclude = other.Archive.Exclude
	}
	if other.Archive.Patterns != nil {
		c.Archive.Patterns = other.Archive.Patterns
	}
	if other.Archive.Reproducible != nil {
		c.Archive.Reproducible = other.Archive.Reproducible
	}

	if other.Registry.Enabled != nil {
		c.Registry.Enabled = other.Registry.Enabled
	}
	if other.Registry.URL != "" {
		c.Registry.URL = other.Registry.URL
	}
	if other.Registry.Path != "" {
		c.Registry.Path = other.Registry.Path
	}
	if other.Registry.CheckoutDir != "" {
		c.Registry.CheckoutDir = other.Registry.CheckoutDir
	}
	if other.Registry.Marker != "" {
		c.Registry.Marker = other.Registry.Marker
	}
	if other.Registry.Push != nil {
		c.Registry.Push = other.Registry.Push
	}
	if other.Registry.CommitMessage != "" {
		c.Registry.CommitMessage = other.Registry.CommitMessage
	}

	if other.Release.RequireClean != nil {
		c.Release.RequireClean = other.Release.RequireClean
	}
	if other.Release.Tag != nil {
		c.Release.Tag = other.Release.Tag
	}

	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.NoColor != nil {
		c.Output.NoColor = other.Output.NoColor
	}
}
