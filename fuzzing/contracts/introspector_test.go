package contracts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fuzzhead/fuzzhead/fuzzing/valuegeneration"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestIntrospector creates an Introspector with the default markers used throughout these tests.
func newTestIntrospector() *Introspector {
	return NewIntrospector(valuegeneration.NewCatalog(3), logging.NewLogger(logging.GlobalLogger.Level()), "SmartContract", "method", "init")
}

// fakeResolver implements InstanceResolver over a fixed answer table.
type fakeResolver struct {
	answers map[string]bool
}

func (r *fakeResolver) Extends(contractName string, marker string) (bool, bool) {
	extends, known := r.answers[contractName]
	return extends, known
}

// TestDiscoverQualifyingContracts will test that discovery selects declarations extending the contract marker and
// members carrying the method marker, resolving parameter types on the spot.
func TestDiscoverQualifyingContracts(t *testing.T) {
	unit := &SourceUnit{
		Declarations: []*ContractDeclaration{
			{
				Name:     "Token",
				Heritage: []string{"SmartContract"},
				Members: []MemberDeclaration{
					{Name: "init", Parameters: []ParameterDeclaration{{Name: "supply", TypeText: "UInt64"}}},
					{Name: "transfer", Decorators: []string{"method"}, Parameters: []ParameterDeclaration{
						{Name: "to", TypeText: "PublicKey"},
						{Name: "amount", TypeText: "UInt64"},
					}},
					{Name: "helper", Parameters: []ParameterDeclaration{{Name: "x", TypeText: "Field"}}},
				},
			},
			{
				Name:     "Plain",
				Heritage: []string{"Object"},
				Members: []MemberDeclaration{
					{Name: "run", Decorators: []string{"method"}},
				},
			},
		},
	}

	descriptors := newTestIntrospector().Discover(unit)
	require.Equal(t, 1, len(descriptors))

	descriptor := descriptors[0]
	assert.Equal(t, "Token", descriptor.Name)

	// The undecorated helper must not appear; init is tracked separately.
	require.Equal(t, 1, len(descriptor.EntryPoints))
	assert.Equal(t, "transfer", descriptor.EntryPoints[0].Name)
	assert.True(t, descriptor.EntryPoints[0].Recognized())
	assert.Equal(t, "transfer(publickey,uint64)", descriptor.EntryPoints[0].Signature())

	require.NotNil(t, descriptor.Init)
	assert.True(t, descriptor.Init.IsInit)
	assert.Equal(t, 1, len(descriptor.Init.Parameters))
}

// TestDiscoverDeduplicatesByIdentity will test that a declaration reachable via multiple export paths yields one
// descriptor, while two distinct declarations sharing a name yield two.
func TestDiscoverDeduplicatesByIdentity(t *testing.T) {
	shared := &ContractDeclaration{
		Name:     "Vault",
		Heritage: []string{"SmartContract"},
		Members: []MemberDeclaration{
			{Name: "deposit", Decorators: []string{"method"}, Parameters: []ParameterDeclaration{{Name: "amount", TypeText: "UInt64"}}},
		},
	}
	twin := &ContractDeclaration{
		Name:     "Vault",
		Heritage: []string{"SmartContract"},
		Members: []MemberDeclaration{
			{Name: "withdraw", Decorators: []string{"method"}, Parameters: []ParameterDeclaration{{Name: "amount", TypeText: "UInt64"}}},
		},
	}

	// The shared declaration appears twice (a default and a named export); the twin is a different declaration
	// that happens to reuse the name.
	unit := &SourceUnit{Declarations: []*ContractDeclaration{shared, shared, twin}}

	descriptors := newTestIntrospector().Discover(unit)
	require.Equal(t, 2, len(descriptors))
	assert.Same(t, shared, descriptors[0].Declaration())
	assert.Same(t, twin, descriptors[1].Declaration())
	assert.Equal(t, "deposit", descriptors[0].EntryPoints[0].Name)
	assert.Equal(t, "withdraw", descriptors[1].EntryPoints[0].Name)
}

// TestDiscoverUnreadableParameters will test that parameters whose type annotation could not be read resolve to
// unrecognized descriptors, keeping the entry point discoverable but never invocable.
func TestDiscoverUnreadableParameters(t *testing.T) {
	unit := &SourceUnit{
		Declarations: []*ContractDeclaration{
			{
				Name:     "Oracle",
				Heritage: []string{"SmartContract"},
				Members: []MemberDeclaration{
					{Name: "submit", Decorators: []string{"method"}, Parameters: []ParameterDeclaration{
						{Name: "price", TypeText: "UInt64"},
						{Name: "proof", TypeText: ""},
					}},
				},
			},
		},
	}

	descriptors := newTestIntrospector().Discover(unit)
	require.Equal(t, 1, len(descriptors))
	entryPoint := descriptors[0].EntryPoints[0]
	assert.False(t, entryPoint.Recognized())
	assert.Equal(t, []string{""}, entryPoint.UnrecognizedTypeTexts())
}

// TestDiscoverInstanceViewPreferred will test that when declaration and instance views disagree on ancestry, the
// instance view decides qualification without failing the discovery pass.
func TestDiscoverInstanceViewPreferred(t *testing.T) {
	unit := &SourceUnit{
		Declarations: []*ContractDeclaration{
			{Name: "Declared", Heritage: []string{"SmartContract"}},
			{Name: "Hidden", Heritage: []string{"Mixin"}, Members: []MemberDeclaration{
				{Name: "poke", Decorators: []string{"method"}, Parameters: []ParameterDeclaration{{Name: "x", TypeText: "Field"}}},
			}},
			{Name: "Unknown", Heritage: []string{"SmartContract"}},
		},
	}

	introspector := newTestIntrospector()
	introspector.SetInstanceResolver(&fakeResolver{answers: map[string]bool{
		// The instance view contradicts the declaration for both contracts it knows about.
		"Declared": false,
		"Hidden":   true,
	}})

	descriptors := introspector.Discover(unit)
	require.Equal(t, 2, len(descriptors))
	assert.Equal(t, "Hidden", descriptors[0].Name)
	// No instance available for "Unknown", so the declaration view stands.
	assert.Equal(t, "Unknown", descriptors[1].Name)
}

// TestParseSourceUnitFile will test loading a structural view from disk, including aliased exports collapsing to a
// single declaration identity.
func TestParseSourceUnitFile(t *testing.T) {
	file := sourceUnitFile{
		Declarations: []*ContractDeclaration{
			{Name: "Token", Heritage: []string{"SmartContract"}},
			{Name: "Helper"},
		},
		Exports: []sourceUnitExport{
			{Name: "default", Declaration: 0},
			{Name: "Token", Declaration: 0},
			{Name: "Helper", Declaration: 1},
		},
	}
	b, err := json.Marshal(file)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "token.view.json")
	require.NoError(t, os.WriteFile(path, b, 0644))

	unit, err := ParseSourceUnitFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, len(unit.Declarations))
	assert.Same(t, unit.Declarations[0], unit.Declarations[1])

	// Discovery over the aliased unit still yields one descriptor for the shared declaration.
	descriptors := newTestIntrospector().Discover(unit)
	assert.Equal(t, 1, len(descriptors))
}

// TestParseSourceUnitFileBadExport will test that an export referencing a declaration index out of range is
// rejected.
func TestParseSourceUnitFileBadExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.view.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"declarations":[],"exports":[{"name":"X","declaration":2}]}`), 0644))

	_, err := ParseSourceUnitFile(path)
	assert.Error(t, err)
}
