package cli

import (
	"github.com/albertocavalcante/relpack/cmd/relpack/internal/report"
	"github.com/spf13/cobra"
)

var archiveFlags struct {
	reproducible bool
	output       string
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Build the release archive only",
	Long: `Reads the version, stages the filtered source tree and writes
<output_dir>/<product>-<version>.zip. Never touches the registry.`,
	Args: cobra.NoArgs,
	RunE: runArchive,
}

func init() {
	archiveCmd.Flags().BoolVar(&archiveFlags.reproducible, "reproducible", false,
		"Use fixed timestamps so identical trees give identical archives")
	addOutputFlag(archiveCmd, &archiveFlags.output)

	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	if err := p.applyOutputFlag(archiveFlags.output); err != nil {
		return err
	}
	if cmd.Flags().Changed("reproducible") {
		p.cfg.Archive.Reproducible = &archiveFlags.reproducible
	}
	disabled := false
	p.cfg.Registry.Enabled = &disabled
	p.cfg.Release.Tag = &disabled
	if err := p.validate(); err != nil {
		return err
	}

	b, err := p.builder()
	if err != nil {
		return err
	}
	printer := p.printer(cmd)

	res, err := p.publisher(b, printer).Run(cmd.Context(), p.publishOptions())
	if err != nil {
		return err
	}
	return printer.Artifact(report.Descriptor{Artifact: res.Artifact})
}
