package cli

import (
	"fmt"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/manifest"
	"github.com/spf13/cobra"
)

var statusFlags struct {
	json  bool
	reset bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what changed since the last archive",
	Long: `Compares the project tree against the snapshot recorded by the last
'relpack archive' or 'relpack publish' and lists added, modified and
deleted files, using the same exclusions as the archive.

The --json flag outputs the result as JSON for scripting. --reset forgets
the recorded release.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")
	statusCmd.Flags().BoolVar(&statusFlags.reset, "reset", false,
		"Forget the recorded release")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if statusFlags.json {
		p.cfg.Output.Format = "json"
	}

	current, err := p.currentVersion()
	if err != nil {
		return err
	}

	b, err := p.builder()
	if err != nil {
		return err
	}
	tracker := manifest.NewTracker(p.dir, b.Filter())
	printer := p.printer(cmd)

	if statusFlags.reset {
		if err := tracker.Reset(); err != nil {
			return fmt.Errorf("failed to reset release state: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Release state cleared.")
		return err
	}

	if !tracker.HasState() {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "No release recorded. Run 'relpack archive' to create one (current version %s).\n", current)
		return err
	}

	st, err := tracker.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compare with last release: %w", err)
	}
	return printer.Status(st, current)
}
