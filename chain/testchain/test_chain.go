// Package testchain provides an in-process execution backend. Contract behavior is supplied as registered Go
// programs, so engine semantics can be exercised without compiling anything or talking to a node.
package testchain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/pkg/errors"
)

// MethodFunc implements one contract method over the instance's state. Returning an error marks the invocation as a
// contract-level rejection; it never aborts the run.
type MethodFunc func(state *State, args []valuegeneration.Value) error

// ConstructorMethodName is the reserved method name invoked during Deploy when a program defines it.
const ConstructorMethodName = "constructor"

// ProgramDefinition binds a contract name to its in-process implementation.
type ProgramDefinition struct {
	// Name describes the contract name the program implements.
	Name string

	// Extends lists the marker types the program's implementation extends, answered through the instance resolver.
	Extends []string

	// Methods maps method names to their implementations. A method named ConstructorMethodName runs at deployment.
	Methods map[string]MethodFunc
}

// State is the mutable per-instance state a MethodFunc operates on.
type State struct {
	// Storage holds arbitrary named slots.
	Storage map[string]any

	// InvocationCount counts completed invocations on the instance, successful or rejected.
	InvocationCount int
}

// copyState deep-copies the storage map so snapshots are isolated from later mutation.
func (s *State) copyState() *State {
	storage := make(map[string]any, len(s.Storage))
	for k, v := range s.Storage {
		storage[k] = v
	}
	return &State{Storage: storage, InvocationCount: s.InvocationCount}
}

// instance binds a deployed program to its state.
type instance struct {
	program *ProgramDefinition
	state   *State
}

// TestChain is an in-process chain.Adapter backed by registered ProgramDefinitions. It also implements
// contracts.InstanceResolver, answering ancestry questions from the registered programs.
type TestChain struct {
	// logger describes the TestChain's log output channel.
	logger *logging.Logger

	// programs maps contract names to their registered implementations.
	programs map[string]*ProgramDefinition

	// instances maps deployed addresses to live instances.
	instances map[common.Address]*instance

	// snapshots maps snapshot identifiers to copied instance states.
	snapshots map[string]map[common.Address]*State

	// deployCounter and snapshotCounter provide deterministic addresses and snapshot identifiers.
	deployCounter   uint64
	snapshotCounter uint64

	lock sync.Mutex
}

// NewTestChain creates an empty in-process backend.
func NewTestChain(logger *logging.Logger) *TestChain {
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("component", logging.ChainComponent)
	}
	return &TestChain{
		logger:    logger,
		programs:  make(map[string]*ProgramDefinition),
		instances: make(map[common.Address]*instance),
		snapshots: make(map[string]map[common.Address]*State),
	}
}

// RegisterProgram registers an in-process implementation for a contract name, replacing any previous registration
// under the same name.
func (t *TestChain) RegisterProgram(program *ProgramDefinition) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.programs[program.Name] = program
}

// Extends implements contracts.InstanceResolver over the registered programs.
func (t *TestChain) Extends(contractName string, marker string) (bool, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	program, ok := t.programs[contractName]
	if !ok {
		return false, false
	}
	for _, ancestor := range program.Extends {
		if ancestor == marker {
			return true, true
		}
	}
	return false, true
}

// Deploy creates an instance of the named program. Addresses are derived deterministically from the contract name
// and a deployment counter so runs are reproducible. A missing program registration is a deployment error, which
// the engine treats as fatal for the contract only.
func (t *TestChain) Deploy(_ context.Context, descriptor *contracts.ContractDescriptor, constructorArgs []valuegeneration.Value) (*chain.ContractHandle, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	program, ok := t.programs[descriptor.Name]
	if !ok {
		return nil, errors.Errorf("no program registered for contract %v", descriptor.Name)
	}

	t.deployCounter++
	address := t.deriveAddress(descriptor.Name, t.deployCounter)
	inst := &instance{
		program: program,
		state:   &State{Storage: make(map[string]any)},
	}

	if constructor, ok := program.Methods[ConstructorMethodName]; ok {
		if err := constructor(inst.state, constructorArgs); err != nil {
			return nil, errors.Wrapf(err, "constructor of %v rejected deployment", descriptor.Name)
		}
	}

	t.instances[address] = inst
	t.logger.Debug("Deployed ", descriptor.Name, " at ", address.Hex())
	return &chain.ContractHandle{ContractName: descriptor.Name, Address: address}, nil
}

// Invoke runs the named method against the instance's state. A method returning an error, or a method missing from
// the instance's program, is reported as a classified rejection rather than a backend failure.
func (t *TestChain) Invoke(_ context.Context, handle *chain.ContractHandle, entryPoint *contracts.EntryPoint, args []valuegeneration.Value) (*chain.InvocationResult, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	inst, ok := t.instances[handle.Address]
	if !ok {
		return nil, errors.Errorf("no instance deployed at %v", handle.Address.Hex())
	}

	method, ok := inst.program.Methods[entryPoint.Name]
	if !ok {
		return &chain.InvocationResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("method %v is not defined by program %v", entryPoint.Name, inst.program.Name),
		}, nil
	}

	inst.state.InvocationCount++
	if err := method(inst.state, args); err != nil {
		return &chain.InvocationResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	return &chain.InvocationResult{Success: true}, nil
}

// Snapshot copies the state of every live instance under a fresh identifier.
func (t *TestChain) Snapshot(_ context.Context) (string, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.snapshotCounter++
	snapshotID := fmt.Sprintf("0x%x", t.snapshotCounter)
	states := make(map[common.Address]*State, len(t.instances))
	for address, inst := range t.instances {
		states[address] = inst.state.copyState()
	}
	t.snapshots[snapshotID] = states
	return snapshotID, nil
}

// Revert restores every instance captured by the snapshot. Instances deployed after the snapshot are removed.
func (t *TestChain) Revert(_ context.Context, snapshotID string) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	states, ok := t.snapshots[snapshotID]
	if !ok {
		return errors.Errorf("unknown snapshot %v", snapshotID)
	}
	for address, inst := range t.instances {
		if state, captured := states[address]; captured {
			inst.state = state.copyState()
		} else {
			delete(t.instances, address)
		}
	}
	return nil
}

// deriveAddress hashes the contract name and deployment counter into a deterministic address.
func (t *TestChain) deriveAddress(name string, counter uint64) common.Address {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)
	return common.BytesToAddress(crypto.Keccak256([]byte(name), counterBytes[:])[12:])
}
