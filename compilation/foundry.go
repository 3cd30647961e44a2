package compilation

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// foundryArtifact mirrors the relevant parts of a Foundry build artifact (out/<Source>.sol/<Contract>.json).
type foundryArtifact struct {
	Abi      any `json:"abi"`
	Bytecode struct {
		Object string `json:"object"`
	} `json:"bytecode"`
	DeployedBytecode struct {
		Object string `json:"object"`
	} `json:"deployedBytecode"`
}

// LoadFoundryArtifact reads one Foundry build artifact into a CompiledContract. The contract name is taken from the
// artifact file name, matching Foundry's layout.
func LoadFoundryArtifact(path string) (*CompiledContract, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var artifact foundryArtifact
	if err = json.Unmarshal(b, &artifact); err != nil {
		return nil, errors.Wrapf(err, "could not decode foundry artifact at %v", path)
	}

	contractAbi, err := ParseABIFromInterface(artifact.Abi)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse ABI in foundry artifact at %v", path)
	}
	initBytecode, err := decodeBytecodeString(artifact.Bytecode.Object)
	if err != nil {
		return nil, err
	}
	runtimeBytecode, err := decodeBytecodeString(artifact.DeployedBytecode.Object)
	if err != nil {
		return nil, err
	}

	return &CompiledContract{
		Name:            strings.TrimSuffix(filepath.Base(path), ".json"),
		Abi:             *contractAbi,
		InitBytecode:    initBytecode,
		RuntimeBytecode: runtimeBytecode,
	}, nil
}

// LoadFoundryArtifactsDir walks a Foundry output directory (typically out/) and loads every contract artifact with
// deployable bytecode. Duplicate build outputs of the same contract are dropped by comparing the metadata hash
// embedded in their runtime bytecode.
func LoadFoundryArtifactsDir(dir string) ([]*CompiledContract, error) {
	var compiled []*CompiledContract
	seenHashes := make([][]byte, 0)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		contract, loadErr := LoadFoundryArtifact(path)
		if loadErr != nil {
			// Foundry directories mix build-info and cache JSON with artifacts; skip files that do not decode.
			return nil
		}
		// Interfaces and abstract contracts have no init bytecode and cannot be deployed.
		if len(contract.InitBytecode) == 0 {
			return nil
		}

		if metadataHash := contract.MetadataHash(); metadataHash != nil {
			for _, seen := range seenHashes {
				if bytes.Equal(seen, metadataHash) {
					return nil
				}
			}
			seenHashes = append(seenHashes, metadataHash)
		}

		compiled = append(compiled, contract)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not walk foundry output directory %v", dir)
	}
	if len(compiled) == 0 {
		return nil, errors.Errorf("no deployable artifacts found under %v", dir)
	}
	return compiled, nil
}
