package contracts

import (
	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/fuzzhead/fuzzhead/logging"
)

// InstanceResolver answers ancestry questions about concrete, instantiable contract implementations (e.g. programs
// bound on an in-process backend). It complements the declaration-level heritage view: syntactic export or aliasing
// can make the two views disagree, in which case the instance-level answer wins.
type InstanceResolver interface {
	// Extends reports whether the named contract's concrete implementation extends the provided marker type. The
	// second return value indicates whether an implementation was available to check at all.
	Extends(contractName string, marker string) (extends bool, known bool)
}

// Introspector discovers fuzzable contracts and entry points from a structural declaration view. Qualification is
// resolved once per declaration into explicit descriptor data; nothing downstream re-checks heritage or decorators.
type Introspector struct {
	// catalog resolves declared parameter type text into type descriptors.
	catalog *valuegeneration.Catalog

	// logger describes the Introspector's log output channel.
	logger *logging.Logger

	// contractMarker describes the base type a declaration must extend (directly or transitively) to qualify as a
	// fuzzable contract.
	contractMarker string

	// methodMarker describes the decorator a member must carry to qualify as a fuzzable entry point.
	methodMarker string

	// initMethodName describes the name of the lifecycle/init method, tracked separately from regular entry points.
	initMethodName string

	// instanceResolver optionally answers ancestry questions at the instance level; nil disables the check.
	instanceResolver InstanceResolver
}

// NewIntrospector creates an Introspector using the provided catalog and markers.
func NewIntrospector(catalog *valuegeneration.Catalog, logger *logging.Logger, contractMarker string, methodMarker string, initMethodName string) *Introspector {
	return &Introspector{
		catalog:        catalog,
		logger:         logger,
		contractMarker: contractMarker,
		methodMarker:   methodMarker,
		initMethodName: initMethodName,
	}
}

// SetInstanceResolver attaches a resolver used to double-check contract ancestry against concrete implementations.
func (in *Introspector) SetInstanceResolver(resolver InstanceResolver) {
	in.instanceResolver = resolver
}

// Discover statically analyzes a source unit's declaration view and returns a descriptor for every qualifying
// contract, in declaration order. A declaration reachable via multiple export paths is processed exactly once,
// keyed by declaration identity rather than name, so two distinct contracts sharing a name are not merged.
func (in *Introspector) Discover(unit *SourceUnit) ContractDescriptors {
	descriptors := make(ContractDescriptors, 0)
	seen := make(map[*ContractDeclaration]struct{})

	for _, declaration := range unit.Declarations {
		if _, alreadyProcessed := seen[declaration]; alreadyProcessed {
			continue
		}
		seen[declaration] = struct{}{}

		if !in.qualifies(declaration) {
			continue
		}
		descriptors = append(descriptors, in.describe(declaration))
	}
	return descriptors
}

// qualifies resolves whether a declaration is a fuzzable contract. The declaration-level heritage check and the
// instance-level check (when an implementation is available) can disagree; the instance-level answer is preferred
// and the discrepancy is logged rather than failing the discovery pass.
func (in *Introspector) qualifies(declaration *ContractDeclaration) bool {
	declared := false
	for _, ancestor := range declaration.Heritage {
		if ancestor == in.contractMarker {
			declared = true
			break
		}
	}

	if in.instanceResolver != nil {
		if instanceExtends, known := in.instanceResolver.Extends(declaration.Name, in.contractMarker); known {
			if instanceExtends != declared {
				in.logger.Warn("Declaration and instance views disagree on whether ", declaration.Name,
					" extends ", in.contractMarker, "; trusting the instance view")
			}
			return instanceExtends
		}
	}
	return declared
}

// describe builds the immutable descriptor for one qualifying declaration.
func (in *Introspector) describe(declaration *ContractDeclaration) *ContractDescriptor {
	descriptor := &ContractDescriptor{
		Name:        declaration.Name,
		EntryPoints: make([]*EntryPoint, 0),
		declaration: declaration,
	}

	for _, member := range declaration.Members {
		isInit := member.Name == in.initMethodName
		if !isInit && !in.carriesMethodMarker(member) {
			continue
		}

		entryPoint := &EntryPoint{
			ContractName:   declaration.Name,
			Name:           member.Name,
			Parameters:     make([]valuegeneration.TypeDescriptor, 0, len(member.Parameters)),
			ParameterNames: make([]string, 0, len(member.Parameters)),
			IsInit:         isInit,
		}

		// Resolve every parameter type through the catalog immediately. Unrecognized descriptors are retained so
		// the fuzz loop can report why a call was skipped.
		for _, parameter := range member.Parameters {
			entryPoint.Parameters = append(entryPoint.Parameters, in.catalog.Recognize(parameter.TypeText))
			entryPoint.ParameterNames = append(entryPoint.ParameterNames, parameter.Name)
		}

		if isInit {
			descriptor.Init = entryPoint
		} else {
			descriptor.EntryPoints = append(descriptor.EntryPoints, entryPoint)
		}
	}
	return descriptor
}

// carriesMethodMarker reports whether a member carries the designated entry point decorator.
func (in *Introspector) carriesMethodMarker(member MemberDeclaration) bool {
	for _, decorator := range member.Decorators {
		if decorator == in.methodMarker {
			return true
		}
	}
	return false
}
