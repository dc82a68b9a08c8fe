package cli

import (
	"errors"
	"fmt"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/report"
	"github.com/albertocavalcante/relpack/pkg/registry"
	"github.com/spf13/cobra"
)

var publishFlags struct {
	registry     bool
	push         bool
	tag          bool
	requireClean bool
	dryRun       bool
	output       string
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Build the release archive and optionally update the registry",
	Long: `Reads the version, stages and zips the source tree, and prints the
artifact as (path, version, sha256).

The registry update is opt-in: pass --registry (or set registry.enabled)
to clone the registry repository and add or replace the version entry in
the package file. --push commits and pushes that change; --tag tags the
project with the version.

--dry-run still builds the archive but only shows the registry diff.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishFlags.registry, "registry", false,
		"Update the package registry")
	publishCmd.Flags().BoolVar(&publishFlags.push, "push", false,
		"Commit and push the registry change")
	publishCmd.Flags().BoolVar(&publishFlags.tag, "tag", false,
		"Create and push a tag named after the version")
	publishCmd.Flags().BoolVar(&publishFlags.requireClean, "require-clean", false,
		"Refuse to publish with uncommitted changes")
	publishCmd.Flags().BoolVarP(&publishFlags.dryRun, "dry-run", "n", false,
		"Show the registry change without writing it")
	addOutputFlag(publishCmd, &publishFlags.output)

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if err := p.applyOutputFlag(publishFlags.output); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("registry") {
		p.cfg.Registry.Enabled = &publishFlags.registry
	}
	if flags.Changed("push") {
		p.cfg.Registry.Push = &publishFlags.push
		if publishFlags.push && !flags.Changed("registry") {
			enabled := true
			p.cfg.Registry.Enabled = &enabled
		}
	}
	if flags.Changed("tag") {
		p.cfg.Release.Tag = &publishFlags.tag
	}
	if flags.Changed("require-clean") {
		p.cfg.Release.RequireClean = &publishFlags.requireClean
	}
	if err := p.validate(); err != nil {
		return err
	}

	b, err := p.builder()
	if err != nil {
		return err
	}
	printer := p.printer(cmd)

	opts := p.publishOptions()
	opts.DryRun = publishFlags.dryRun

	res, err := p.publisher(b, printer).Run(cmd.Context(), opts)
	if err != nil {
		if res != nil && res.Artifact != nil {
			// The archive exists even though a later step failed.
			if perr := printer.Artifact(report.Descriptor{Artifact: res.Artifact}); perr != nil {
				return errors.Join(err, perr)
			}
		}
		return err
	}

	var change *registry.Change
	if res.Registry != nil {
		change = &res.Registry.Change
		printer.RegistryChange(res.Registry)
		if !res.Registry.Written {
			diff, err := registry.Diff(res.Registry.Before, res.Registry.After, p.cfg.Registry.Path)
			if err != nil {
				return fmt.Errorf("failed to render diff: %w", err)
			}
			printer.Diff(diff)
		}
	}
	if res.Pushed {
		printer.Step("pushed registry update")
	}

	return printer.Artifact(report.Descriptor{Artifact: res.Artifact, Registry: change})
}
