package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opalrun",
	Short: "Distributed map/aggregate harness for OPAL algorithms",
	Long:  "Dispatches an analyst-supplied map snippet across a directory of subject CDR files, scales each result by its subject's weight, and streams the scaled partials to a remote aggregation service.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
