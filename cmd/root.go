package cmd

import (
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/spf13/cobra"
)

// rootCmd represents the root CLI command.
var rootCmd = &cobra.Command{
	Use:   "fuzzhead",
	Short: "A property-based smart contract fuzzing harness",
	Long:  "fuzzhead discovers contract entry points, synthesizes typed random arguments, and classifies each invocation as passed, failed, or skipped",
}

// cmdLogger is the logger the command layer reports through. It is rebound once global logging is configured.
var cmdLogger = logging.GlobalLogger.NewSubLogger("component", logging.CLIComponent)

// Execute provides an exportable function to invoke the CLI.
// Returns an error if one was encountered.
func Execute() error {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd.Execute()
}
