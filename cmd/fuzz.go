package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/chain/nodechain"
	"github.com/fuzzhead/fuzzhead/chain/testchain"
	"github.com/fuzzhead/fuzzhead/cmd/exitcodes"
	"github.com/fuzzhead/fuzzhead/fuzzing"
	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fuzzCmd represents the command provider for fuzzing.
var fuzzCmd = &cobra.Command{
	Use:               "fuzz [source unit]",
	Short:             "Starts a fuzzing session",
	Long:              "Starts a fuzzing session over the contracts declared in the provided structural view file. When fuzzing against a node backend, the source unit may be omitted and is then derived from the compiled artifacts' ABIs.",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunFuzz,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addFuzzFlags()
	rootCmd.AddCommand(fuzzCmd)
}

// cmdValidFuzzArgs will return which flags are valid for dynamic completion for the fuzz command.
func cmdValidFuzzArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Suggest any flags that have not been set on the current command line.
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveDefault
}

// cmdRunFuzz executes the CLI fuzz command: it resolves configuration, builds the execution adapter and source
// unit, runs the session, and exits zero whenever the session completed, regardless of how many trials failed.
func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = updateProjectConfigWithFuzzFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = setupGlobalLogging(projectConfig.Logging); err != nil {
		cmdLogger.Error("Failed to run the fuzz command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = projectConfig.Validate(); err != nil {
		cmdLogger.Error("Invalid project configuration", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
	}

	ctx := context.Background()
	adapter, unit, err := buildSession(ctx, projectConfig, args)
	if err != nil {
		cmdLogger.Error("Failed to set up the fuzzing session", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
	}
	if closer, ok := adapter.(interface{ Close() }); ok {
		defer closer.Close()
	}

	fuzzer, err := fuzzing.NewFuzzer(projectConfig, adapter, nil)
	if err != nil {
		cmdLogger.Error("Failed to create the fuzzer", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
	}

	// Stop fuzzing on keyboard interrupts; the session reports the trials classified so far.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fuzzer.Terminate()
	}()

	if _, err = fuzzer.FuzzSourceUnit(ctx, unit); err != nil {
		cmdLogger.Error("The fuzzing session was aborted", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeSetupError)
	}

	// Failing trials are expected fuzzing output, not tool errors: a completed session exits zero.
	return nil
}

// buildSession selects the execution adapter and resolves the source unit. With an RPC url configured, compiled
// artifacts are loaded and the node backend is used; the source unit is then either the provided structural view or
// one projected from the artifacts' ABIs. Without an RPC url, the in-process backend is used and a structural view
// path is required.
func buildSession(ctx context.Context, projectConfig *config.ProjectConfig, args []string) (chain.Adapter, *contracts.SourceUnit, error) {
	if projectConfig.Fuzzing.RPCUrl != "" {
		compiled, err := projectConfig.Compilation.LoadContracts()
		if err != nil {
			return nil, nil, err
		}
		adapter, err := nodechain.NewNodeChain(ctx, projectConfig.Fuzzing.RPCUrl, compiled, nil)
		if err != nil {
			return nil, nil, err
		}

		if len(args) == 1 {
			unit, err := contracts.ParseSourceUnitFile(args[0])
			return adapter, unit, err
		}

		// No structural view was provided, so project one from the compiled ABIs.
		unit := &contracts.SourceUnit{Path: projectConfig.Compilation.Target}
		for _, contract := range compiled {
			projected := contracts.SourceUnitFromABI(contract.Name, contract.Abi,
				projectConfig.Fuzzing.ContractMarker, projectConfig.Fuzzing.MethodMarker, projectConfig.Fuzzing.InitMethodName)
			unit.Declarations = append(unit.Declarations, projected.Declarations...)
		}
		return adapter, unit, nil
	}

	if len(args) != 1 {
		return nil, nil, errors.New("the in-process backend requires a source unit path")
	}
	unit, err := contracts.ParseSourceUnitFile(args[0])
	if err != nil {
		return nil, nil, err
	}
	return testchain.NewTestChain(nil), unit, nil
}
