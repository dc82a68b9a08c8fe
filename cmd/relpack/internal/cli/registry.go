package cli

import (
	"fmt"
	"os"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/gitrunner"
	"github.com/albertocavalcante/relpack/internal/log"
	"github.com/albertocavalcante/relpack/pkg/registry"
	"github.com/spf13/cobra"
)

var registryFlags struct {
	file   string
	clone  bool
	dryRun bool
	output string
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect or edit the registry package file",
}

var registryUpdateCmd = &cobra.Command{
	Use:   "update <version> <sha256>",
	Short: "Add or replace a version entry in the registry file",
	Long: `Registers <version> with <sha256> in the package file of the registry
checkout. An existing entry for the version is replaced in place; otherwise
the entry is inserted above the first existing one. A file without any
entry is rejected and left unchanged.

By default the existing checkout is edited; --clone fetches a fresh copy
first.`,
	Args: cobra.ExactArgs(2),
	RunE: runRegistryUpdate,
}

var registryListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List the versions registered in the registry file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRegistryList,
}

var registryShowCmd = &cobra.Command{
	Use:   "show <version> [file]",
	Short: "Print the hash registered for a version",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRegistryShow,
}

func init() {
	registryUpdateCmd.Flags().StringVarP(&registryFlags.file, "file", "f", "",
		"Registry file to edit (default: <checkout_dir>/<registry.path>)")
	registryUpdateCmd.Flags().BoolVar(&registryFlags.clone, "clone", false,
		"Clone the registry repository before editing")
	registryUpdateCmd.Flags().BoolVarP(&registryFlags.dryRun, "dry-run", "n", false,
		"Show the change without writing it")
	addOutputFlag(registryListCmd, &registryFlags.output)
	addOutputFlag(registryShowCmd, &registryFlags.output)

	registryCmd.AddCommand(registryUpdateCmd)
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryShowCmd)
	rootCmd.AddCommand(registryCmd)
}

func runRegistryUpdate(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	printer := p.printer(cmd)

	file := registryFlags.file
	if file == "" {
		if registryFlags.clone {
			git := gitrunner.New(gitrunner.WithOutput(os.Stderr, os.Stderr))
			if err := git.Clone(p.cfg.Registry.URL, p.path(p.cfg.RegistryCheckoutDir())); err != nil {
				return err
			}
		}
		file = p.registryFile()
	}

	res, err := registry.UpdateFile(file, args[0], args[1],
		registry.WithMarker(p.cfg.Registry.Marker),
		registry.WithDryRun(registryFlags.dryRun),
	)
	if err != nil {
		return err
	}

	printer.RegistryChange(res)
	if !res.Written {
		diff, err := registry.Diff(res.Before, res.After, file)
		if err != nil {
			return fmt.Errorf("failed to render diff: %w", err)
		}
		printer.Diff(diff)
	}
	return nil
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	p, doc, err := readRegistry(args)
	if err != nil {
		return err
	}
	entries := doc.Entries()
	if len(entries) == 0 {
		log.Warn("registry file has no entries", "marker", doc.Marker())
	}
	return p.printer(cmd).Entries(entries)
}

func runRegistryShow(cmd *cobra.Command, args []string) error {
	p, doc, err := readRegistry(args[1:])
	if err != nil {
		return err
	}
	e, ok := doc.Lookup(args[0])
	if !ok {
		return fmt.Errorf("version %s is not registered", args[0])
	}
	return p.printer(cmd).Entries([]registry.Entry{e})
}

// readRegistry parses the file named in args, or the configured registry
// file when args is empty.
func readRegistry(args []string) (*project, *registry.Document, error) {
	p, err := loadProject()
	if err != nil {
		return nil, nil, err
	}
	if err := p.applyOutputFlag(registryFlags.output); err != nil {
		return nil, nil, err
	}

	file := p.registryFile()
	if len(args) == 1 {
		file = args[0]
	}
	doc, err := registry.ReadFile(file, p.cfg.Registry.Marker)
	if err != nil {
		return nil, nil, err
	}
	return p, doc, nil
}
