package fuzzing

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/fuzzing/reporting"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdapter is a scriptable chain.Adapter recording every call the fuzzer makes.
type mockAdapter struct {
	deployCount   int
	invokeCount   int
	initCount     int
	snapshotCount int
	revertCount   int

	// invokeFunc classifies each non-init invocation; when nil, every invocation passes.
	invokeFunc func(entryPoint *contracts.EntryPoint, args []valuegeneration.Value, priorInvokes int) *chain.InvocationResult

	// initResult overrides the classification of init invocations; nil means success.
	initResult *chain.InvocationResult

	// invokeErr, when set, is returned from every invocation as a backend failure.
	invokeErr error
}

func (m *mockAdapter) Deploy(_ context.Context, descriptor *contracts.ContractDescriptor, _ []valuegeneration.Value) (*chain.ContractHandle, error) {
	m.deployCount++
	return &chain.ContractHandle{ContractName: descriptor.Name, Address: common.BytesToAddress([]byte(descriptor.Name))}, nil
}

func (m *mockAdapter) Invoke(_ context.Context, _ *chain.ContractHandle, entryPoint *contracts.EntryPoint, args []valuegeneration.Value) (*chain.InvocationResult, error) {
	if m.invokeErr != nil {
		return nil, m.invokeErr
	}
	if entryPoint.IsInit {
		m.initCount++
		if m.initResult != nil {
			return m.initResult, nil
		}
		return &chain.InvocationResult{Success: true}, nil
	}

	prior := m.invokeCount
	m.invokeCount++
	if m.invokeFunc != nil {
		return m.invokeFunc(entryPoint, args, prior), nil
	}
	return &chain.InvocationResult{Success: true}, nil
}

func (m *mockAdapter) Snapshot(_ context.Context) (string, error) {
	m.snapshotCount++
	return "0x1", nil
}

func (m *mockAdapter) Revert(_ context.Context, _ string) error {
	m.revertCount++
	return nil
}

// newTestConfig builds a validated config with a small iteration count.
func newTestConfig(iterations int) *config.ProjectConfig {
	projectConfig := config.GetDefaultProjectConfig()
	projectConfig.Fuzzing.Iterations = iterations
	projectConfig.Fuzzing.Verbosity = 0
	return projectConfig
}

// singleMethodUnit builds a source unit holding one qualifying contract with the provided members.
func singleMethodUnit(contractName string, members ...contracts.MemberDeclaration) *contracts.SourceUnit {
	return &contracts.SourceUnit{
		Path: "test",
		Declarations: []*contracts.ContractDeclaration{
			{Name: contractName, Heritage: []string{"SmartContract"}, Members: members},
		},
	}
}

// fuzzUnit runs a session over a unit with the provided adapter and returns its summary.
func fuzzUnit(t *testing.T, projectConfig *config.ProjectConfig, adapter chain.Adapter, unit *contracts.SourceUnit) *reporting.SessionSummary {
	fuzzer, err := NewFuzzer(projectConfig, adapter, nil)
	require.NoError(t, err)
	summary, err := fuzzer.FuzzSourceUnit(context.Background(), unit)
	require.NoError(t, err)
	return summary
}

// TestTrialConservation will test that a fuzzed entry point records exactly the configured number of trials, all
// passing when the adapter always succeeds.
func TestTrialConservation(t *testing.T) {
	adapter := &mockAdapter{}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "transfer", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "UInt32"},
		}})

	summary := fuzzUnit(t, newTestConfig(10), adapter, unit)
	require.Equal(t, 1, len(summary.Methods))
	method := summary.Methods[0]
	assert.Equal(t, 10, method.Passed)
	assert.Equal(t, 0, method.Failed)
	assert.Equal(t, 0, method.Skipped)
	assert.Equal(t, 10, method.Trials())
	assert.Equal(t, 10, adapter.invokeCount)
}

// TestUnrecognizedNeverInvoked will test that an entry point with an unrecognized parameter type records every
// trial as skipped and the adapter is never invoked for it.
func TestUnrecognizedNeverInvoked(t *testing.T) {
	adapter := &mockAdapter{}
	unit := singleMethodUnit("Exchange",
		contracts.MemberDeclaration{Name: "settle", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "order", TypeText: "struct Order"},
			{Name: "amount", TypeText: "uint256"},
		}})

	summary := fuzzUnit(t, newTestConfig(25), adapter, unit)
	require.Equal(t, 1, len(summary.Methods))
	method := summary.Methods[0]
	assert.Equal(t, 25, method.Skipped)
	assert.Equal(t, 0, method.Passed+method.Failed)
	assert.Equal(t, 0, adapter.invokeCount)
}

// TestZeroParamNotFuzzed will test that an entry point without parameters contributes zero trials and appears under
// the separate not-fuzzed tally.
func TestZeroParamNotFuzzed(t *testing.T) {
	adapter := &mockAdapter{}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "pause", Decorators: []string{"method"}},
		contracts.MemberDeclaration{Name: "mint", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "uint256"},
		}})

	summary := fuzzUnit(t, newTestConfig(5), adapter, unit)
	require.Equal(t, 1, len(summary.Methods))
	assert.Equal(t, "mint", summary.Methods[0].EntryPoint.Name)
	require.Equal(t, 1, len(summary.NotFuzzed))
	assert.Equal(t, "pause", summary.NotFuzzed[0].Name)
	assert.Equal(t, 5, adapter.invokeCount)
}

// TestSequentialStateDependency will test that trials execute strictly in order: the k-th invocation observes
// exactly k-1 prior invocations.
func TestSequentialStateDependency(t *testing.T) {
	observed := make([]int, 0, 50)
	adapter := &mockAdapter{
		invokeFunc: func(_ *contracts.EntryPoint, _ []valuegeneration.Value, priorInvokes int) *chain.InvocationResult {
			observed = append(observed, priorInvokes)
			return &chain.InvocationResult{Success: true}
		},
	}
	unit := singleMethodUnit("Ledger",
		contracts.MemberDeclaration{Name: "record", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "entry", TypeText: "Field"},
		}})

	fuzzUnit(t, newTestConfig(50), adapter, unit)
	require.Equal(t, 50, len(observed))
	for k, prior := range observed {
		assert.Equal(t, k, prior, "trial %d observed out-of-order state", k+1)
	}
}

// TestSkipInit will test that with skip-init configured, the lifecycle method is never invoked while regular entry
// points still fuzz normally.
func TestSkipInit(t *testing.T) {
	adapter := &mockAdapter{}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "init", Parameters: []contracts.ParameterDeclaration{
			{Name: "supply", TypeText: "UInt64"},
		}},
		contracts.MemberDeclaration{Name: "transfer", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "UInt64"},
		}})

	projectConfig := newTestConfig(10)
	projectConfig.Fuzzing.SkipInit = true
	summary := fuzzUnit(t, projectConfig, adapter, unit)

	assert.Equal(t, 0, adapter.initCount)
	require.Equal(t, 1, len(summary.Methods))
	assert.Equal(t, 10, summary.Methods[0].Passed)
}

// TestInitInvokedOnce will test that the lifecycle method is invoked exactly once per session regardless of the
// configured iteration count, including when it takes no parameters.
func TestInitInvokedOnce(t *testing.T) {
	adapter := &mockAdapter{}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "init"},
		contracts.MemberDeclaration{Name: "transfer", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "UInt64"},
		}})

	fuzzUnit(t, newTestConfig(20), adapter, unit)
	assert.Equal(t, 1, adapter.initCount)
	assert.Equal(t, 20, adapter.invokeCount)
}

// TestInitFailureSkipsContract will test that a rejected initialization excludes the contract from fuzzing without
// aborting the session.
func TestInitFailureSkipsContract(t *testing.T) {
	adapter := &mockAdapter{
		initResult: &chain.InvocationResult{Success: false, ErrorMessage: "bad supply"},
	}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "init", Parameters: []contracts.ParameterDeclaration{
			{Name: "supply", TypeText: "UInt64"},
		}},
		contracts.MemberDeclaration{Name: "transfer", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "UInt64"},
		}})

	summary := fuzzUnit(t, newTestConfig(10), adapter, unit)
	assert.Equal(t, []string{"Token"}, summary.SkippedContracts)
	assert.Equal(t, 0, len(summary.Methods))
	assert.Equal(t, 0, adapter.invokeCount)
}

// TestBackendFailureAbortsRun will test that a backend error during invocation aborts the whole session with an
// error, unlike contract-level rejections.
func TestBackendFailureAbortsRun(t *testing.T) {
	adapter := &mockAdapter{invokeErr: errors.New("connection refused")}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "transfer", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "UInt64"},
		}})

	fuzzer, err := NewFuzzer(newTestConfig(10), adapter, nil)
	require.NoError(t, err)
	_, err = fuzzer.FuzzSourceUnit(context.Background(), unit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// TestResetBetweenMethods will test that the reset variant snapshots after initialization and reverts after each
// entry point's loop.
func TestResetBetweenMethods(t *testing.T) {
	adapter := &mockAdapter{}
	unit := singleMethodUnit("Token",
		contracts.MemberDeclaration{Name: "mint", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "uint256"},
		}},
		contracts.MemberDeclaration{Name: "burn", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "uint256"},
		}})

	projectConfig := newTestConfig(3)
	projectConfig.Fuzzing.ResetBetweenMethods = true
	fuzzUnit(t, projectConfig, adapter, unit)

	assert.Equal(t, 2, adapter.revertCount)
	assert.Equal(t, 3, adapter.snapshotCount)
}

// TestFailureRateApproximatesThreshold will test generator uniformity indirectly: an adapter rejecting values above
// the midpoint of the uint32 range should fail close to half of a large sample.
func TestFailureRateApproximatesThreshold(t *testing.T) {
	threshold := uint256.NewInt(1 << 31)
	adapter := &mockAdapter{
		invokeFunc: func(_ *contracts.EntryPoint, args []valuegeneration.Value, _ int) *chain.InvocationResult {
			generated := args[0].Data.(*uint256.Int)
			if generated.Cmp(threshold) > 0 {
				return &chain.InvocationResult{Success: false, ErrorMessage: "over limit"}
			}
			return &chain.InvocationResult{Success: true}
		},
	}
	unit := singleMethodUnit("Limiter",
		contracts.MemberDeclaration{Name: "spend", Decorators: []string{"method"}, Parameters: []contracts.ParameterDeclaration{
			{Name: "amount", TypeText: "uint32"},
		}})

	projectConfig := newTestConfig(1000)
	fuzzer, err := NewFuzzer(projectConfig, adapter, nil)
	require.NoError(t, err)
	fuzzer.SetValueGenerator(valuegeneration.NewRandomValueGenerator(&valuegeneration.RandomValueGeneratorConfig{
		GenerateRandomStringLength:   5,
		GenerateRandomBytesMaxLength: 100,
	}, rand.New(rand.NewSource(42))))

	summary, err := fuzzer.FuzzSourceUnit(context.Background(), unit)
	require.NoError(t, err)
	require.Equal(t, 1, len(summary.Methods))

	failedFraction := float64(summary.Methods[0].Failed) / 1000.0
	assert.InDelta(t, 0.5, failedFraction, 0.06, "failure rate %v diverges from the rejection threshold", failedFraction)
}
