package cmd

import (
	"context"

	"github.com/fuzzhead/fuzzhead/bench"
	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/chain/nodechain"
	"github.com/fuzzhead/fuzzhead/chain/testchain"
	"github.com/fuzzhead/fuzzhead/cmd/exitcodes"
	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/spf13/cobra"
)

// benchCmd represents the command provider for benchmark sweeps.
var benchCmd = &cobra.Command{
	Use:           "bench <directory>",
	Short:         "Fuzzes every source unit in a directory and reports the detection rate",
	Long:          "Fuzzes every structural view file in the provided directory, records which units produced failing trials, and optionally persists the run for later comparison.",
	Args:          cobra.ExactArgs(1),
	RunE:          cmdRunBench,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addBenchFlags()
	rootCmd.AddCommand(benchCmd)
}

// cmdRunBench executes the CLI bench command.
func cmdRunBench(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the bench command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = updateProjectConfigWithBenchFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the bench command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = setupGlobalLogging(projectConfig.Logging); err != nil {
		cmdLogger.Error("Failed to run the bench command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = projectConfig.Validate(); err != nil {
		cmdLogger.Error("Invalid project configuration", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
	}

	ctx := context.Background()
	runner := bench.NewRunner(projectConfig, benchAdapterFactory(projectConfig), nil)
	summary, err := runner.Run(ctx, args[0])
	if err != nil {
		cmdLogger.Error("The benchmark sweep failed", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
	}

	storePath, err := cmd.Flags().GetString("store")
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}
	if storePath != "" {
		store, err := bench.OpenStore(storePath)
		if err != nil {
			cmdLogger.Error("Failed to open the benchmark store", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
		}
		defer store.Close()
		if err = store.SaveSummary(summary); err != nil {
			cmdLogger.Error("Failed to persist the benchmark run", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
		}
		cmdLogger.Info("Persisted benchmark run ", summary.RunID, " to ", storePath)
	}
	return nil
}

// benchAdapterFactory builds the per-unit adapter factory matching the configured backend.
func benchAdapterFactory(projectConfig *config.ProjectConfig) bench.AdapterFactory {
	return func(ctx context.Context) (chain.Adapter, error) {
		if projectConfig.Fuzzing.RPCUrl != "" {
			compiled, err := projectConfig.Compilation.LoadContracts()
			if err != nil {
				return nil, err
			}
			return nodechain.NewNodeChain(ctx, projectConfig.Fuzzing.RPCUrl, compiled, nil)
		}
		return testchain.NewTestChain(nil), nil
	}
}
