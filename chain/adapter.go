// Package chain defines the execution boundary between the fuzzing engine and the backend that actually runs
// contract code. The engine talks only to the Adapter interface; in-process and remote-node backends live in
// subpackages.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
)

// ContractHandle references one deployed contract instance on a backend.
type ContractHandle struct {
	// ContractName describes the name of the deployed contract.
	ContractName string

	// Address describes the backend-assigned address of the instance.
	Address common.Address
}

// InvocationResult describes the classified outcome of a single entry point invocation. A contract-level rejection
// (a revert, a failed proof, an assertion) is carried here with Success unset; it is a normal fuzzing outcome, not
// an error. Adapter methods return a Go error only for transport or backend failures that make further execution
// meaningless.
type InvocationResult struct {
	// Success indicates the invocation completed without the contract rejecting it.
	Success bool

	// ErrorMessage carries the backend's rejection message when Success is unset, trimmed of transport framing.
	ErrorMessage string

	// GasUsed reports the execution cost when the backend meters it, zero otherwise.
	GasUsed uint64

	// ReturnData carries raw returned data when the backend exposes it.
	ReturnData []byte
}

// Adapter is the execution backend boundary. Implementations must treat every contract-level rejection as a
// classified InvocationResult and reserve returned errors for failures of the backend itself, which abort the run.
type Adapter interface {
	// Deploy creates an instance of the described contract on the backend and returns a handle to it. Constructor
	// arguments are provided when the contract's deployment takes parameters. A returned error is fatal for the
	// contract (the engine skips it and moves on).
	Deploy(ctx context.Context, descriptor *contracts.ContractDescriptor, constructorArgs []valuegeneration.Value) (*ContractHandle, error)

	// Invoke calls the entry point on the deployed instance with the provided argument values, returning the
	// classified result. A returned error indicates a backend failure and is fatal for the whole run.
	Invoke(ctx context.Context, handle *ContractHandle, entryPoint *contracts.EntryPoint, args []valuegeneration.Value) (*InvocationResult, error)

	// Snapshot records the backend's current state and returns an opaque identifier for it.
	Snapshot(ctx context.Context) (string, error)

	// Revert restores the backend to a previously recorded snapshot.
	Revert(ctx context.Context, snapshotID string) error
}
