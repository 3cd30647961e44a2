package contracts

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// SourceUnit is the structural declaration view of one contract source file, as provided by the front-end
// introspection collaborator. The engine never parses raw source text itself; it consumes this view.
type SourceUnit struct {
	// Path describes where the source unit was loaded from.
	Path string `json:"path"`

	// Declarations lists the top-level class-like declarations in the unit, in source order. The same underlying
	// declaration may appear more than once when it is reachable via multiple export paths (e.g. a default and a
	// named export); discovery deduplicates by declaration identity, not by name.
	Declarations []*ContractDeclaration `json:"declarations"`
}

// ContractDeclaration describes one class-like declaration: its name, its ancestry references and its members.
type ContractDeclaration struct {
	// Name describes the declared contract name.
	Name string `json:"name"`

	// Heritage lists the ancestry references the declaration extends, direct and transitive, as reported by the
	// front end.
	Heritage []string `json:"heritage"`

	// Members lists the declaration's members in source order.
	Members []MemberDeclaration `json:"members"`
}

// MemberDeclaration describes one member of a contract declaration.
type MemberDeclaration struct {
	// Name describes the member name.
	Name string `json:"name"`

	// Decorators lists the annotation names attached to the member.
	Decorators []string `json:"decorators"`

	// Parameters lists the member's formal parameters in declaration order.
	Parameters []ParameterDeclaration `json:"parameters"`
}

// ParameterDeclaration describes one formal parameter as a (name, type-text) pair.
type ParameterDeclaration struct {
	// Name describes the parameter name.
	Name string `json:"name"`

	// TypeText describes the declared type annotation, verbatim. An empty type text means the front end could not
	// read the annotation; such parameters resolve to unrecognized descriptors.
	TypeText string `json:"type"`
}

// sourceUnitFile mirrors the on-disk JSON layout of a structural view. Exports reference declarations by index so
// aliased exports share one declaration identity after loading.
type sourceUnitFile struct {
	Declarations []*ContractDeclaration `json:"declarations"`
	Exports      []sourceUnitExport     `json:"exports"`
}

// sourceUnitExport describes one export path in a structural view file.
type sourceUnitExport struct {
	// Name describes the exported name.
	Name string `json:"name"`
	// Declaration indexes into the file's declarations array.
	Declaration int `json:"declaration"`
}

// ParseSourceUnitFile reads a JSON-serialized structural view from the provided file path. If the file declares
// explicit exports, the returned unit lists one entry per export path, re-using the same declaration pointer for
// aliased exports; otherwise every declaration is listed once.
// Returns the parsed SourceUnit, or an error if the file cannot be read or decoded.
func ParseSourceUnitFile(path string) (*SourceUnit, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var file sourceUnitFile
	if err = json.Unmarshal(b, &file); err != nil {
		return nil, errors.Wrapf(err, "could not decode structural view at %v", path)
	}

	unit := &SourceUnit{Path: path}
	if len(file.Exports) == 0 {
		unit.Declarations = file.Declarations
		return unit, nil
	}

	for _, export := range file.Exports {
		if export.Declaration < 0 || export.Declaration >= len(file.Declarations) {
			return nil, errors.Errorf("structural view at %v exports %q with out-of-range declaration index %d", path, export.Name, export.Declaration)
		}
		unit.Declarations = append(unit.Declarations, file.Declarations[export.Declaration])
	}
	return unit, nil
}
