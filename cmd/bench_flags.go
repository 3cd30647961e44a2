package cmd

import (
	"fmt"

	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/spf13/cobra"
)

// addBenchFlags adds the various flags for the bench command.
func addBenchFlags() {
	defaultConfig := config.GetDefaultProjectConfig()

	benchCmd.Flags().SortFlags = false

	// Config file
	benchCmd.Flags().String("config", "", "path to config file")

	// Iterations
	benchCmd.Flags().Int("iterations", 0,
		fmt.Sprintf("number of fuzz trials per entry point (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Iterations))

	// RPC url
	benchCmd.Flags().String("rpc-url", "",
		"JSON-RPC url of a development node; when set, trials run as transactions against it")

	// Store
	benchCmd.Flags().String("store", "",
		"path to a benchmark store database; when set, the run is persisted for later comparison")
}

// updateProjectConfigWithBenchFlags will update the given projectConfig with any CLI arguments that were provided
// to the bench command.
func updateProjectConfigWithBenchFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	if cmd.Flags().Changed("iterations") {
		if projectConfig.Fuzzing.Iterations, err = cmd.Flags().GetInt("iterations"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("rpc-url") {
		if projectConfig.Fuzzing.RPCUrl, err = cmd.Flags().GetString("rpc-url"); err != nil {
			return err
		}
	}
	// Benchmark sweeps report per-unit totals; per-trial output would drown them out.
	projectConfig.Fuzzing.Verbosity = 0
	return nil
}
