package contracts

import (
	"encoding/hex"
	"strings"

	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"golang.org/x/crypto/sha3"
)

// ContractDescriptors describes a list of discovered contract descriptors.
type ContractDescriptors []*ContractDescriptor

// EntryPoint identifies one fuzzable callable on a contract: its owning contract, its name, and the resolved type
// descriptors of its formal parameters in declaration order.
type EntryPoint struct {
	// ContractName describes the name of the owning contract.
	ContractName string

	// Name describes the method name.
	Name string

	// Parameters holds one resolved TypeDescriptor per formal parameter, in declaration order. Unrecognized
	// parameter types are retained here (not discarded) so skipped trials can report why they were skipped.
	Parameters []valuegeneration.TypeDescriptor

	// ParameterNames holds the declared parameter names, aligned with Parameters.
	ParameterNames []string

	// IsInit indicates this is the lifecycle/init method, invoked at most once per session rather than per
	// iteration.
	IsInit bool
}

// Fuzzable indicates whether the entry point is eligible for fuzz iteration. Entry points without parameters have
// nothing to randomize and are reported under a separate "not fuzzed" tally instead.
func (e *EntryPoint) Fuzzable() bool {
	return len(e.Parameters) > 0
}

// Recognized indicates whether every parameter type of the entry point can be synthesized. A call to an entry point
// with any unrecognized parameter is always skipped before reaching the execution backend.
func (e *EntryPoint) Recognized() bool {
	for _, parameter := range e.Parameters {
		if !parameter.Recognized() {
			return false
		}
	}
	return true
}

// UnrecognizedTypeTexts returns the declared type texts of the parameters that cannot be synthesized, for skip
// reporting.
func (e *EntryPoint) UnrecognizedTypeTexts() []string {
	var typeTexts []string
	for _, parameter := range e.Parameters {
		if !parameter.Recognized() {
			typeTexts = append(typeTexts, parameter.TypeText())
		}
	}
	return typeTexts
}

// Signature returns a canonical signature string for the entry point, e.g. "transfer(address,uint256)".
func (e *EntryPoint) Signature() string {
	parameterNames := make([]string, len(e.Parameters))
	for i, parameter := range e.Parameters {
		parameterNames[i] = parameter.String()
	}
	return e.Name + "(" + strings.Join(parameterNames, ",") + ")"
}

// ID returns a stable identifier for the entry point, derived by hashing its qualified signature. It is used to key
// per-method summaries across a session.
func (e *EntryPoint) ID() string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(e.ContractName + "." + e.Signature()))
	return hex.EncodeToString(hash.Sum(nil)[:8])
}

// ContractDescriptor describes one discovered fuzzable contract: its qualifying name, its fuzzable entry points in
// discovery order, and an optional reference to its lifecycle/init entry point (which is tracked separately and
// never fuzz-iterated). Descriptors are built once per declaration and immutable afterward.
type ContractDescriptor struct {
	// Name describes the contract's qualifying name.
	Name string

	// EntryPoints lists the contract's fuzzable entry points in discovery order, excluding the init method.
	EntryPoints []*EntryPoint

	// Init references the lifecycle/init entry point, or nil if the contract declares none.
	Init *EntryPoint

	// declaration references the structural declaration the descriptor was built from, keeping declaration
	// identity available for deduplication.
	declaration *ContractDeclaration
}

// Declaration returns the structural declaration the descriptor was built from.
func (c *ContractDescriptor) Declaration() *ContractDeclaration {
	return c.declaration
}
