// Package report prints human progress lines and the final artifact
// descriptor.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/manifest"
	"github.com/albertocavalcante/relpack/pkg/archive"
	"github.com/albertocavalcante/relpack/pkg/registry"
)

// Output formats for the artifact descriptor.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type status int

const (
	statusOK status = iota
	statusWarn
	statusFail
)

// Printer writes progress and results.
type Printer struct {
	writer  io.Writer
	isTTY   bool
	noColor bool
	format  string
}

// Config configures a Printer.
type Config struct {
	Writer  io.Writer
	NoColor bool
	Format  string
}

// New creates a Printer. Colour is only used when writing to a terminal.
func New(cfg Config) *Printer {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	format := cfg.Format
	if format == "" {
		format = FormatText
	}

	return &Printer{
		writer:  writer,
		isTTY:   isTTY,
		noColor: cfg.NoColor,
		format:  format,
	}
}

// ValidFormat reports whether f is a supported descriptor format.
func ValidFormat(f string) bool {
	return f == FormatText || f == FormatJSON || f == FormatYAML
}

// Step prints a progress line. Suppressed for machine-readable formats.
func (p *Printer) Step(format string, args ...any) {
	if p.format != FormatText {
		return
	}
	p.printf("relpack: "+format+"\n", args...)
}

// RegistryChange prints what happened to the registry file.
func (p *Printer) RegistryChange(res *registry.Result) {
	if res == nil {
		return
	}
	mark := p.colorize("✓", statusOK)
	verb := res.Change.Action.String()
	if !res.Written {
		mark = p.colorize("~", statusWarn)
		verb = "would be " + verb
	}
	p.Step("%s registry entry %s at line %d of %s", mark, verb, res.Change.Index+1, res.Path)
}

// Diff prints a unified diff verbatim.
func (p *Printer) Diff(diff string) {
	if p.format != FormatText || diff == "" {
		return
	}
	p.printf("%s", diff)
}

// Failure prints an error line.
func (p *Printer) Failure(err error) {
	p.Step("%s %v", p.colorize("✗", statusFail), err)
}

// Descriptor is the final result of a run.
type Descriptor struct {
	Artifact *archive.Artifact `json:"artifact" yaml:"artifact"`
	Registry *registry.Change  `json:"registry,omitempty" yaml:"registry,omitempty"`
}

// Artifact prints the descriptor: the (path, version, hash) triple in text
// mode, otherwise a JSON or YAML document.
func (p *Printer) Artifact(d Descriptor) error {
	switch p.format {
	case FormatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode descriptor: %w", err)
		}
		p.printf("%s\n", data)
	case FormatYAML:
		data, err := yaml.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to encode descriptor: %w", err)
		}
		p.printf("%s", data)
	default:
		p.printf("%s\n", d.Artifact.String())
	}
	return nil
}

// Status prints the changes since the last release.
func (p *Printer) Status(st *manifest.Status, current string) error {
	if p.format == FormatJSON {
		data, err := json.MarshalIndent(struct {
			Current string `json:"current_version"`
			*manifest.Status
		}{current, st}, "", "  ")
		if err != nil {
			return err
		}
		p.printf("%s\n", data)
		return nil
	}

	if st.Last == nil {
		p.printf("no release recorded; current version %s\n", current)
	} else {
		p.printf("last release %s (%s) at %s\n", st.Last.Version, st.Last.SHA256, st.Last.CreatedAt.Format("2006-01-02 15:04:05"))
		if st.Last.Version == current {
			p.printf("current version %s %s\n", current, p.colorize("(unchanged; republishing replaces its registry hash)", statusWarn))
		} else {
			p.printf("current version %s\n", current)
		}
	}

	if st.Changes.IsEmpty() {
		p.printf("no source changes since last release\n")
		return nil
	}
	for _, f := range st.Changes.Added {
		p.printf("  %s %s\n", p.colorize("+", statusOK), f)
	}
	for _, f := range st.Changes.Modified {
		p.printf("  %s %s\n", p.colorize("~", statusWarn), f)
	}
	for _, f := range st.Changes.Deleted {
		p.printf("  %s %s\n", p.colorize("-", statusFail), f)
	}
	p.printf("%d file(s) changed in %s\n", st.Changes.TotalChanges(), strings.Join(st.Changes.AffectedDirs(), ", "))
	return nil
}

// Entries prints registered versions, newest first as they appear.
func (p *Printer) Entries(entries []registry.Entry) error {
	switch p.format {
	case FormatJSON:
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		p.printf("%s\n", data)
	case FormatYAML:
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		p.printf("%s", data)
	default:
		for _, e := range entries {
			p.printf("%s\t%s\n", e.Version, e.Hash)
		}
	}
	return nil
}

func (p *Printer) colorize(s string, st status) string {
	if p.noColor || !p.isTTY {
		return s
	}

	var color string
	switch st {
	case statusOK:
		color = "\033[32m" // green
	case statusWarn:
		color = "\033[33m" // yellow
	case statusFail:
		color = "\033[31m" // red
	default:
		return s
	}
	return color + s + "\033[0m"
}

// printf writes to the output, ignoring errors; console output is
// informational.
func (p *Printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.writer, format, args...)
}
