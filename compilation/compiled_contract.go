// Package compilation loads compiled contract artifacts (Foundry build output or solc combined JSON) into the form
// the node-backed execution adapter deploys from.
package compilation

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// CompiledContract represents a single contract unit from a smart contract compilation.
type CompiledContract struct {
	// Name describes the contract's name.
	Name string

	// Abi describes the contract's application binary interface, used to encode deployment and method call data.
	Abi abi.ABI

	// InitBytecode describes the bytecode used to deploy the contract.
	InitBytecode []byte

	// RuntimeBytecode represents the bytecode expected once the contract has been deployed. It may differ at
	// runtime based on constructor arguments and immutables.
	RuntimeBytecode []byte
}

// MetadataHash returns the compiler-embedded bytecode hash from the runtime bytecode's trailing metadata, or nil if
// no metadata could be located. Artifact loading uses it to drop duplicate build outputs of the same contract.
func (c *CompiledContract) MetadataHash() []byte {
	metadata := ExtractContractMetadata(c.RuntimeBytecode)
	if metadata == nil {
		return nil
	}
	return metadata.ExtractBytecodeHash()
}

// GetDeploymentMessageData returns the transaction data deploying this contract: the init bytecode with ABI-encoded
// constructor arguments appended, when the constructor takes any.
func (c *CompiledContract) GetDeploymentMessageData(args []any) ([]byte, error) {
	data := slices.Clone(c.InitBytecode)
	if len(c.Abi.Constructor.Inputs) > 0 {
		packed, err := c.Abi.Pack("", args...)
		if err != nil {
			return nil, errors.Wrapf(err, "could not encode constructor arguments for %v", c.Name)
		}
		data = append(data, packed...)
	}
	return data, nil
}

// ParseABIFromInterface parses a generic object into an abi.ABI and returns it, or an error if one occurs. Artifact
// formats carry the ABI either as an embedded JSON string or as an already-decoded structure.
func ParseABIFromInterface(i any) (*abi.ABI, error) {
	var (
		result abi.ABI
		err    error
	)
	if s, ok := i.(string); ok {
		result, err = abi.JSON(strings.NewReader(s))
		if err != nil {
			return nil, errors.WithStack(err)
		}
	} else {
		var b []byte
		b, err = json.Marshal(i)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result, err = abi.JSON(strings.NewReader(string(b)))
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return &result, nil
}

// decodeBytecodeString decodes a "0x"-prefixed hex bytecode string from an artifact.
func decodeBytecodeString(bytecode string) ([]byte, error) {
	trimmed := strings.TrimPrefix(bytecode, "0x")
	if trimmed == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode artifact bytecode")
	}
	return decoded, nil
}
