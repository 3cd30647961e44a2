package testchain

import (
	"context"
	"testing"

	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCounterProgram builds a program with a "bump" method that rejects once an internal counter passes the limit.
func newCounterProgram(name string, limit int) *ProgramDefinition {
	return &ProgramDefinition{
		Name:    name,
		Extends: []string{"SmartContract"},
		Methods: map[string]MethodFunc{
			"bump": func(state *State, _ []valuegeneration.Value) error {
				count, _ := state.Storage["count"].(int)
				count++
				state.Storage["count"] = count
				if count > limit {
					return errors.Errorf("counter overflow at %d", count)
				}
				return nil
			},
		},
	}
}

// TestDeployAndInvoke will test the classified invocation outcomes: successes below the program's limit, rejections
// above it, and that rejections never surface as backend errors.
func TestDeployAndInvoke(t *testing.T) {
	backend := NewTestChain(nil)
	backend.RegisterProgram(newCounterProgram("Counter", 2))

	descriptor := &contracts.ContractDescriptor{Name: "Counter"}
	handle, err := backend.Deploy(context.Background(), descriptor, nil)
	require.NoError(t, err)

	entryPoint := &contracts.EntryPoint{ContractName: "Counter", Name: "bump"}
	for i := 0; i < 2; i++ {
		result, err := backend.Invoke(context.Background(), handle, entryPoint, nil)
		require.NoError(t, err)
		assert.True(t, result.Success)
	}
	result, err := backend.Invoke(context.Background(), handle, entryPoint, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "counter overflow")
}

// TestDeployMissingProgram will test that deploying a contract without a registered program errors, since the
// engine needs to distinguish this from a contract-level rejection.
func TestDeployMissingProgram(t *testing.T) {
	backend := NewTestChain(nil)
	_, err := backend.Deploy(context.Background(), &contracts.ContractDescriptor{Name: "Ghost"}, nil)
	assert.Error(t, err)
}

// TestInvokeUndefinedMethod will test that invoking a method the program does not define is classified as a
// rejection rather than aborting the run.
func TestInvokeUndefinedMethod(t *testing.T) {
	backend := NewTestChain(nil)
	backend.RegisterProgram(newCounterProgram("Counter", 10))
	handle, err := backend.Deploy(context.Background(), &contracts.ContractDescriptor{Name: "Counter"}, nil)
	require.NoError(t, err)

	result, err := backend.Invoke(context.Background(), handle, &contracts.EntryPoint{Name: "missing"}, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "not defined")
}

// TestConstructorRuns will test that a registered constructor observes deployment arguments and can reject the
// deployment entirely.
func TestConstructorRuns(t *testing.T) {
	backend := NewTestChain(nil)
	backend.RegisterProgram(&ProgramDefinition{
		Name: "Vault",
		Methods: map[string]MethodFunc{
			ConstructorMethodName: func(state *State, args []valuegeneration.Value) error {
				if len(args) == 0 {
					return errors.New("missing initial balance")
				}
				state.Storage["balance"] = args[0].Data
				return nil
			},
		},
	})

	// Deployment without arguments is rejected by the constructor.
	_, err := backend.Deploy(context.Background(), &contracts.ContractDescriptor{Name: "Vault"}, nil)
	assert.Error(t, err)

	// Deployment with an argument succeeds and seeds storage.
	balance := valuegeneration.Value{Data: uint256.NewInt(100)}
	handle, err := backend.Deploy(context.Background(), &contracts.ContractDescriptor{Name: "Vault"}, []valuegeneration.Value{balance})
	require.NoError(t, err)
	assert.NotEqual(t, handle.Address.Hex(), "0x0000000000000000000000000000000000000000")
}

// TestSnapshotRevert will test that reverting restores instance storage to the captured state and removes instances
// deployed after the snapshot.
func TestSnapshotRevert(t *testing.T) {
	backend := NewTestChain(nil)
	backend.RegisterProgram(newCounterProgram("Counter", 100))

	handle, err := backend.Deploy(context.Background(), &contracts.ContractDescriptor{Name: "Counter"}, nil)
	require.NoError(t, err)
	entryPoint := &contracts.EntryPoint{Name: "bump"}

	_, err = backend.Invoke(context.Background(), handle, entryPoint, nil)
	require.NoError(t, err)

	snapshotID, err := backend.Snapshot(context.Background())
	require.NoError(t, err)

	// Mutate after the snapshot, plus deploy a second instance.
	for i := 0; i < 5; i++ {
		_, err = backend.Invoke(context.Background(), handle, entryPoint, nil)
		require.NoError(t, err)
	}
	extra, err := backend.Deploy(context.Background(), &contracts.ContractDescriptor{Name: "Counter"}, nil)
	require.NoError(t, err)

	require.NoError(t, backend.Revert(context.Background(), snapshotID))

	// The first instance's counter is back to the snapshot's value.
	assert.Equal(t, 1, backend.instances[handle.Address].state.Storage["count"])
	// The post-snapshot instance is gone.
	_, stillDeployed := backend.instances[extra.Address]
	assert.False(t, stillDeployed)

	// Reverting to an unknown snapshot errors.
	assert.Error(t, backend.Revert(context.Background(), "0xdead"))
}

// TestInstanceResolver will test the three-way ancestry answer: extends, does not extend, and unknown.
func TestInstanceResolver(t *testing.T) {
	backend := NewTestChain(nil)
	backend.RegisterProgram(newCounterProgram("Counter", 1))

	extends, known := backend.Extends("Counter", "SmartContract")
	assert.True(t, known)
	assert.True(t, extends)

	extends, known = backend.Extends("Counter", "Token")
	assert.True(t, known)
	assert.False(t, extends)

	_, known = backend.Extends("Ghost", "SmartContract")
	assert.False(t, known)
}
