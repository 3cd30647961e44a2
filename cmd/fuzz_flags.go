package cmd

import (
	"fmt"

	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/spf13/cobra"
)

// addFuzzFlags adds the various flags for the fuzz command.
func addFuzzFlags() {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	fuzzCmd.Flags().SortFlags = false

	// Config file
	fuzzCmd.Flags().String("config", "", "path to config file")

	// Iterations
	fuzzCmd.Flags().Int("iterations", 0,
		fmt.Sprintf("number of fuzz trials per entry point (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Iterations))

	// Sequence element count
	fuzzCmd.Flags().Int("seq-len", 0,
		fmt.Sprintf("element count generated for unsized sequence types (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.SequenceLength))

	// RPC url
	fuzzCmd.Flags().String("rpc-url", "",
		"JSON-RPC url of a development node; when set, trials run as transactions against it")

	// Skip init
	fuzzCmd.Flags().Bool("skip-init", false,
		fmt.Sprintf("skip the lifecycle/init invocation before fuzzing (unless a config file is provided, default is %t)", defaultConfig.Fuzzing.SkipInit))

	// Reset between methods
	fuzzCmd.Flags().Bool("reset-between-methods", false,
		fmt.Sprintf("revert to the post-initialization state between entry points (unless a config file is provided, default is %t)", defaultConfig.Fuzzing.ResetBetweenMethods))

	// Verbosity
	fuzzCmd.Flags().Int("verbosity", 0,
		fmt.Sprintf("per-trial reporting: 0 quiet, 1 failures, 2 every trial (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Verbosity))

	// No color
	fuzzCmd.Flags().Bool("no-color", false, "disable colored console output")
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to
// the fuzz command.
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	if cmd.Flags().Changed("iterations") {
		if projectConfig.Fuzzing.Iterations, err = cmd.Flags().GetInt("iterations"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("seq-len") {
		if projectConfig.Fuzzing.SequenceLength, err = cmd.Flags().GetInt("seq-len"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("rpc-url") {
		if projectConfig.Fuzzing.RPCUrl, err = cmd.Flags().GetString("rpc-url"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("skip-init") {
		if projectConfig.Fuzzing.SkipInit, err = cmd.Flags().GetBool("skip-init"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("reset-between-methods") {
		if projectConfig.Fuzzing.ResetBetweenMethods, err = cmd.Flags().GetBool("reset-between-methods"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("verbosity") {
		if projectConfig.Fuzzing.Verbosity, err = cmd.Flags().GetInt("verbosity"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("no-color") {
		if projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color"); err != nil {
			return err
		}
	}
	return nil
}
