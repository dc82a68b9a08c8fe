// Package cli implements the relpack command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/albertocavalcante/relpack/cmd/relpack/internal/report"
	"github.com/albertocavalcante/relpack/internal/log"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	dir       string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relpack",
	Short: "Package a source tree and register it in a package registry",
	Long: `Relpack releases a C++ source package.

It reads the version from the project's build configuration, stages a
filtered copy of the source tree, zips it as <product>-<version>.zip and
prints its SHA-256. Optionally it records the version and hash in a
package registry repository (for example an xmake-repo fork).

Settings come from relpack.toml or .relpack/config.toml, RELPACK_*
environment variables and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "relpack %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.dir, "dir", "C", "",
		"Project directory (default: current directory)")

	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger.
// This runs after flags are parsed but before command execution.
func initLogging() {
	log.Setup(log.Options{
		Verbosity: globalFlags.verbosity,
		Format:    globalFlags.logFormat,
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		report.New(report.Config{Writer: rootCmd.ErrOrStderr()}).Failure(err)
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
