package compilation

import (
	"github.com/pkg/errors"
)

// These constants name the supported artifact platforms.
const (
	// PlatformFoundry loads build artifacts from a Foundry output directory.
	PlatformFoundry = "foundry"
	// PlatformSolc loads a solc combined-JSON file.
	PlatformSolc = "solc"
)

// CompilationConfig describes where compiled contract artifacts come from.
type CompilationConfig struct {
	// Platform selects the artifact format, one of PlatformFoundry or PlatformSolc.
	Platform string `json:"platform"`

	// Target is the platform-dependent artifact location: an output directory for foundry, a combined-JSON file
	// for solc.
	Target string `json:"target"`

	// SolcVersionConstraint optionally restricts the installed solc release, as a comma-separated semver
	// constraint such as ">=0.8.0, <0.9.0". An empty constraint disables the check.
	SolcVersionConstraint string `json:"solcVersionConstraint,omitempty"`
}

// Validate validates that the CompilationConfig meets expected requirements.
func (c *CompilationConfig) Validate() error {
	if c.Platform != PlatformFoundry && c.Platform != PlatformSolc {
		return errors.Errorf("compilation platform must be %q or %q, got %q", PlatformFoundry, PlatformSolc, c.Platform)
	}
	if c.Target == "" {
		return errors.New("compilation target must not be empty")
	}
	if c.SolcVersionConstraint != "" {
		version, err := GetSolcVersion()
		if err != nil {
			return err
		}
		if err = CheckSolcVersionConstraint(version, c.SolcVersionConstraint); err != nil {
			return err
		}
	}
	return nil
}

// LoadContracts loads every deployable compiled contract the config points at.
func (c *CompilationConfig) LoadContracts() ([]*CompiledContract, error) {
	switch c.Platform {
	case PlatformFoundry:
		return LoadFoundryArtifactsDir(c.Target)
	case PlatformSolc:
		return LoadSolcCombinedJSON(c.Target)
	default:
		return nil, errors.Errorf("unsupported compilation platform %q", c.Platform)
	}
}
