// Package fuzzing drives property-based fuzzing sessions over discovered contracts: it deploys each contract
// through an execution adapter, invokes its lifecycle method once, and then runs a configured number of randomized
// trials against every fuzzable entry point, classifying each trial as passed, failed or skipped.
package fuzzing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/fuzzing/reporting"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/pkg/errors"
)

// contractState tracks a contract's progress through the per-contract setup pipeline.
type contractState int

const (
	stateDeployed contractState = iota
	stateInitialized
	stateFuzzing
	stateDone
	// stateFailed is absorbing: a contract that enters it is excluded from further processing.
	stateFailed
)

// String returns the name of the contract state, for session logs.
func (s contractState) String() string {
	switch s {
	case stateDeployed:
		return "deployed"
	case stateInitialized:
		return "initialized"
	case stateFuzzing:
		return "fuzzing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "not started"
	}
}

// FuzzerHooks wires optional collaborator behavior into the session.
type FuzzerHooks struct {
	// NewValueGeneratorFunc constructs the value generator the session uses. When nil, a uniform random generator
	// seeded from the clock is used.
	NewValueGeneratorFunc func(generatorConfig *valuegeneration.RandomValueGeneratorConfig) valuegeneration.ValueGenerator

	// ConstructorArgsFunc supplies deployment arguments for a contract. When nil, contracts deploy without
	// arguments.
	ConstructorArgsFunc func(descriptor *contracts.ContractDescriptor) []valuegeneration.Value
}

// Fuzzer runs fuzzing sessions over source units against one execution adapter.
type Fuzzer struct {
	// config describes the project configuration the session runs with.
	config *config.ProjectConfig

	// logger describes the Fuzzer's log output channel.
	logger *logging.Logger

	// catalog resolves declared type text into descriptors.
	catalog *valuegeneration.Catalog

	// introspector discovers fuzzable contracts in source units.
	introspector *contracts.Introspector

	// adapter is the execution backend trials run against.
	adapter chain.Adapter

	// generator synthesizes argument values for recognized types.
	generator valuegeneration.ValueGenerator

	// reporter renders trial outcomes and the session summary.
	reporter *reporting.Reporter

	// Hooks describes the optional collaborator behavior wired into the session.
	Hooks FuzzerHooks

	// cancel stops an in-flight session when Terminate is called.
	cancel context.CancelFunc
}

// NewFuzzer creates a Fuzzer from a validated project config and an execution adapter. If the adapter can answer
// instance-level ancestry questions, it is attached to the introspector.
func NewFuzzer(projectConfig *config.ProjectConfig, adapter chain.Adapter, logger *logging.Logger) (*Fuzzer, error) {
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("component", logging.FuzzingComponent)
	}

	catalog := valuegeneration.NewCatalog(projectConfig.Fuzzing.SequenceLength)
	introspector := contracts.NewIntrospector(catalog, logger,
		projectConfig.Fuzzing.ContractMarker, projectConfig.Fuzzing.MethodMarker, projectConfig.Fuzzing.InitMethodName)
	if resolver, ok := adapter.(contracts.InstanceResolver); ok {
		introspector.SetInstanceResolver(resolver)
	}

	return &Fuzzer{
		config:       projectConfig,
		logger:       logger,
		catalog:      catalog,
		introspector: introspector,
		adapter:      adapter,
		reporter:     reporting.NewReporter(logger, reporting.Verbosity(projectConfig.Fuzzing.Verbosity)),
	}, nil
}

// SetValueGenerator replaces the session's value generator, for collaborators that supply their own sampling
// strategy or a seeded source.
func (f *Fuzzer) SetValueGenerator(generator valuegeneration.ValueGenerator) {
	f.generator = generator
}

// Terminate stops an in-flight session. The session reports the trials classified up to that point.
func (f *Fuzzer) Terminate() {
	if f.cancel != nil {
		f.cancel()
	}
}

// FuzzSourceUnit discovers every fuzzable contract in the source unit and fuzzes each in discovery order. Setup
// failures exclude the affected contract only; a returned error means the backend failed mid-run and the session
// was aborted.
func (f *Fuzzer) FuzzSourceUnit(ctx context.Context, unit *contracts.SourceUnit) (*reporting.SessionSummary, error) {
	ctx, f.cancel = context.WithCancel(ctx)
	defer f.cancel()

	// Build the value generator on session start, so hooks attached after construction take effect.
	if f.generator == nil {
		generatorConfig := &valuegeneration.RandomValueGeneratorConfig{
			GenerateRandomStringLength:   f.config.Fuzzing.StringLength,
			GenerateRandomBytesMaxLength: f.config.Fuzzing.BytesMaxLength,
		}
		if f.Hooks.NewValueGeneratorFunc != nil {
			f.generator = f.Hooks.NewValueGeneratorFunc(generatorConfig)
		} else {
			f.generator = valuegeneration.NewRandomValueGenerator(generatorConfig, nil)
		}
	}

	descriptors := f.introspector.Discover(unit)
	f.logger.Info("Discovered ", len(descriptors), " fuzzable contract(s) in ", unit.Path)

	summary := reporting.NewSessionSummary(f.config.Fuzzing.Iterations)
	for _, descriptor := range descriptors {
		if err := f.fuzzContract(ctx, descriptor, summary); err != nil {
			return summary, err
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary.EndTime = time.Now()
	f.reporter.ReportSessionSummary(summary)
	return summary, nil
}

// fuzzContract walks one contract through the setup pipeline and its fuzzing loop. Deployment or initialization
// failure moves the contract to the failed state and records it as skipped; only a backend failure propagates.
func (f *Fuzzer) fuzzContract(ctx context.Context, descriptor *contracts.ContractDescriptor, summary *reporting.SessionSummary) error {
	var constructorArgs []valuegeneration.Value
	if f.Hooks.ConstructorArgsFunc != nil {
		constructorArgs = f.Hooks.ConstructorArgsFunc(descriptor)
	}
	handle, err := f.adapter.Deploy(ctx, descriptor, constructorArgs)
	if err != nil {
		f.setContractState(descriptor, stateFailed)
		f.reporter.ReportContractSkipped(descriptor.Name, fmt.Sprintf("deployment failed: %v", err))
		summary.SkippedContracts = append(summary.SkippedContracts, descriptor.Name)
		return nil
	}
	f.setContractState(descriptor, stateDeployed)

	if err = f.initializeContract(ctx, descriptor, handle); err != nil {
		if errors.Is(err, errSetupFailed) {
			f.setContractState(descriptor, stateFailed)
			f.reporter.ReportContractSkipped(descriptor.Name, fmt.Sprintf("initialization failed: %v", errors.Unwrap(err)))
			summary.SkippedContracts = append(summary.SkippedContracts, descriptor.Name)
			return nil
		}
		return err
	}
	f.setContractState(descriptor, stateInitialized)

	// Snapshot the post-initialization state when the reset-between-methods variant is enabled, so every entry
	// point's loop starts from the same baseline.
	var snapshotID string
	if f.config.Fuzzing.ResetBetweenMethods {
		if snapshotID, err = f.adapter.Snapshot(ctx); err != nil {
			return errors.Wrap(err, "could not snapshot post-initialization state")
		}
	}

	f.setContractState(descriptor, stateFuzzing)
	for _, entryPoint := range descriptor.EntryPoints {
		if !entryPoint.Fuzzable() {
			summary.NotFuzzed = append(summary.NotFuzzed, entryPoint)
			continue
		}

		methodSummary, err := f.fuzzEntryPoint(ctx, handle, entryPoint)
		summary.Methods = append(summary.Methods, methodSummary)
		if err != nil {
			return err
		}

		if f.config.Fuzzing.ResetBetweenMethods {
			if err = f.adapter.Revert(ctx, snapshotID); err != nil {
				return errors.Wrap(err, "could not revert to post-initialization state")
			}
			// Development nodes invalidate a snapshot once reverted to, so take a fresh one.
			if snapshotID, err = f.adapter.Snapshot(ctx); err != nil {
				return errors.Wrap(err, "could not re-snapshot post-initialization state")
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	f.setContractState(descriptor, stateDone)
	return nil
}

// setContractState logs a contract's transition through the setup pipeline.
func (f *Fuzzer) setContractState(descriptor *contracts.ContractDescriptor, state contractState) {
	f.logger.Debug("Contract ", descriptor.Name, " is now ", state.String())
}

// errSetupFailed marks initialization failures that are fatal for the contract but not for the run.
var errSetupFailed = errors.New("setup failed")

// initializeContract invokes the contract's lifecycle method exactly once, unless it is absent, configured off, or
// takes a parameter of an unrecognized type (in which case initialization is skipped and the contract keeps its
// structural default state).
func (f *Fuzzer) initializeContract(ctx context.Context, descriptor *contracts.ContractDescriptor, handle *chain.ContractHandle) error {
	initEntryPoint := descriptor.Init
	if initEntryPoint == nil || f.config.Fuzzing.SkipInit {
		return nil
	}
	if !initEntryPoint.Recognized() {
		f.logger.Warn("Skipping initialization of ", descriptor.Name, ": unrecognized parameter type(s) ",
			strings.Join(initEntryPoint.UnrecognizedTypeTexts(), ", "))
		return nil
	}

	args := f.generateArgs(initEntryPoint)
	result, err := f.adapter.Invoke(ctx, handle, initEntryPoint, args)
	if err != nil {
		return errors.Wrapf(err, "backend failed invoking %v.%v", descriptor.Name, initEntryPoint.Name)
	}
	if !result.Success {
		return errors.Wrap(errSetupFailed, result.ErrorMessage)
	}
	return nil
}

// fuzzEntryPoint runs the configured number of trials against one entry point, strictly sequentially. Trials with
// any unrecognized argument type are recorded as skipped without touching the adapter.
func (f *Fuzzer) fuzzEntryPoint(ctx context.Context, handle *chain.ContractHandle, entryPoint *contracts.EntryPoint) (*reporting.MethodSummary, error) {
	methodSummary := reporting.NewMethodSummary(entryPoint)

	recognized := entryPoint.Recognized()
	skipMessage := ""
	if !recognized {
		skipMessage = "unrecognized parameter type(s): " + strings.Join(entryPoint.UnrecognizedTypeTexts(), ", ")
	}

	for iteration := 1; iteration <= f.config.Fuzzing.Iterations; iteration++ {
		if ctx.Err() != nil {
			return methodSummary, nil
		}

		if !recognized {
			outcome := reporting.Outcome{Kind: reporting.Skipped, Iteration: iteration, Message: skipMessage}
			methodSummary.Record(outcome)
			f.reporter.ReportOutcome(entryPoint, outcome)
			continue
		}

		args := f.generateArgs(entryPoint)
		result, err := f.adapter.Invoke(ctx, handle, entryPoint, args)
		if err != nil {
			return methodSummary, errors.Wrapf(err, "backend failed invoking %v.%v", entryPoint.ContractName, entryPoint.Name)
		}

		outcome := reporting.Outcome{Iteration: iteration, Arguments: renderArgs(args)}
		if result.Success {
			outcome.Kind = reporting.Passed
		} else {
			outcome.Kind = reporting.Failed
			outcome.Message = result.ErrorMessage
		}
		methodSummary.Record(outcome)
		f.reporter.ReportOutcome(entryPoint, outcome)
	}
	return methodSummary, nil
}

// generateArgs synthesizes one argument vector for an entry point whose parameter types are all recognized.
func (f *Fuzzer) generateArgs(entryPoint *contracts.EntryPoint) []valuegeneration.Value {
	args := make([]valuegeneration.Value, len(entryPoint.Parameters))
	for i, parameter := range entryPoint.Parameters {
		args[i] = f.generator.Generate(parameter)
	}
	return args
}

// renderArgs formats argument values for failure reporting.
func renderArgs(args []valuegeneration.Value) []string {
	rendered := make([]string, len(args))
	for i, arg := range args {
		rendered[i] = arg.String()
	}
	return rendered
}
