package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SourceUnitFromABI projects a compiled contract ABI into the structural declaration view consumed by discovery.
// Every non-view method is exposed as a member carrying the designated method marker, and the constructor (when
// declared) is exposed under the provided init method name so the engine treats deployment initialization uniformly
// with source-level init methods.
func SourceUnitFromABI(contractName string, contractAbi abi.ABI, contractMarker string, methodMarker string, initMethodName string) *SourceUnit {
	declaration := &ContractDeclaration{
		Name:     contractName,
		Heritage: []string{contractMarker},
		Members:  make([]MemberDeclaration, 0, len(contractAbi.Methods)+1),
	}

	if len(contractAbi.Constructor.Inputs) > 0 {
		declaration.Members = append(declaration.Members, memberFromABIArguments(initMethodName, nil, contractAbi.Constructor.Inputs))
	}

	// ABI methods live in a map, so sort names to keep discovery order stable across runs.
	methodNames := maps.Keys(contractAbi.Methods)
	slices.Sort(methodNames)
	for _, methodName := range methodNames {
		method := contractAbi.Methods[methodName]
		// Read-only methods cannot change state, so fuzzing them proves nothing.
		if method.IsConstant() {
			continue
		}
		declaration.Members = append(declaration.Members, memberFromABIArguments(method.Name, []string{methodMarker}, method.Inputs))
	}

	return &SourceUnit{
		Path:         contractName,
		Declarations: []*ContractDeclaration{declaration},
	}
}

// memberFromABIArguments builds one member declaration from an ABI argument list.
func memberFromABIArguments(name string, decorators []string, inputs abi.Arguments) MemberDeclaration {
	member := MemberDeclaration{
		Name:       name,
		Decorators: decorators,
		Parameters: make([]ParameterDeclaration, 0, len(inputs)),
	}
	for _, input := range inputs {
		member.Parameters = append(member.Parameters, ParameterDeclaration{
			Name:     input.Name,
			TypeText: input.Type.String(),
		})
	}
	return member
}
