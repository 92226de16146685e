// Package cmd implements the gobiome command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/3leaps/gobiome/internal/observability"
)

// versionInfo holds build-time version metadata injected via ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command and the
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gobiome",
	Short: "Multi-tenant scientific-data platform service",
	Long: `gobiome is the metadata and job-lifecycle service of a multi-omics data
platform. It tracks plugin software, processing jobs, artifacts, reference
databases, and archived feature values, and serves the REST API that
external plugin runners drive jobs through.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.InitCLILogger("gobiome", verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (overrides $GOBIOME_CONFIG_FP)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
