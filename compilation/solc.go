package compilation

import (
	"encoding/json"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// solcVersionPattern matches the release version inside `solc --version` output, e.g.
// "Version: 0.8.19+commit.7dd6d404.Linux.g++".
var solcVersionPattern = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// solcCombinedJSON mirrors the layout of `solc --combined-json abi,bin,bin-runtime` output.
type solcCombinedJSON struct {
	Contracts map[string]struct {
		Abi        any    `json:"abi"`
		Bin        string `json:"bin"`
		BinRuntime string `json:"bin-runtime"`
	} `json:"contracts"`
	Version string `json:"version"`
}

// LoadSolcCombinedJSON reads a solc combined-JSON file into compiled contracts. Contract keys in the file follow
// the "sourcePath:ContractName" convention; only the contract name is retained.
func LoadSolcCombinedJSON(path string) ([]*CompiledContract, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var combined solcCombinedJSON
	if err = json.Unmarshal(b, &combined); err != nil {
		return nil, errors.Wrapf(err, "could not decode solc combined JSON at %v", path)
	}
	if len(combined.Contracts) == 0 {
		return nil, errors.Errorf("solc combined JSON at %v contains no contracts", path)
	}

	var compiled []*CompiledContract
	for key, entry := range combined.Contracts {
		contractAbi, abiErr := ParseABIFromInterface(entry.Abi)
		if abiErr != nil {
			return nil, errors.Wrapf(abiErr, "could not parse ABI for %v", key)
		}
		initBytecode, decodeErr := decodeBytecodeString(entry.Bin)
		if decodeErr != nil {
			return nil, decodeErr
		}
		runtimeBytecode, decodeErr := decodeBytecodeString(entry.BinRuntime)
		if decodeErr != nil {
			return nil, decodeErr
		}
		if len(initBytecode) == 0 {
			continue
		}

		name := key
		if idx := strings.LastIndex(key, ":"); idx != -1 {
			name = key[idx+1:]
		}
		compiled = append(compiled, &CompiledContract{
			Name:            name,
			Abi:             *contractAbi,
			InitBytecode:    initBytecode,
			RuntimeBytecode: runtimeBytecode,
		})
	}
	return compiled, nil
}

// GetSolcVersion invokes the installed solc binary and parses its release version.
func GetSolcVersion() (*semver.Version, error) {
	out, err := exec.Command("solc", "--version").CombinedOutput()
	if err != nil {
		return nil, errors.Wrap(err, "could not invoke solc")
	}
	return ParseSolcVersion(string(out))
}

// ParseSolcVersion extracts the release version from `solc --version` output.
func ParseSolcVersion(output string) (*semver.Version, error) {
	match := solcVersionPattern.FindString(output)
	if match == "" {
		return nil, errors.Errorf("could not find a version in solc output: %v", strings.TrimSpace(output))
	}
	version, err := semver.NewVersion(match)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse solc version %v", match)
	}
	return version, nil
}

// CheckSolcVersionConstraint verifies a parsed solc version against a semver constraint string, e.g. ">=0.8.0" or
// the comma-separated range ">=0.8.0, <0.9.0".
func CheckSolcVersionConstraint(version *semver.Version, constraintText string) error {
	constraint, err := semver.NewConstraint(constraintText)
	if err != nil {
		return errors.Wrapf(err, "invalid solc version constraint %q", constraintText)
	}
	if !constraint.Check(version) {
		return errors.Errorf("solc version %v does not satisfy constraint %q", version, constraintText)
	}
	return nil
}
