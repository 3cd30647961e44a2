package compilation

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleFoundryArtifact is a minimal Foundry build artifact for a contract with a constructor and one method.
const sampleFoundryArtifact = `{
	"abi": [
		{"type": "constructor", "inputs": [{"name": "supply", "type": "uint256"}]},
		{"type": "function", "name": "transfer", "stateMutability": "nonpayable",
		 "inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}], "outputs": []}
	],
	"bytecode": {"object": "0x6080604052"},
	"deployedBytecode": {"object": "0x6001600155"}
}`

// sampleSolcCombined is a minimal solc combined-JSON output with one deployable contract and one interface.
const sampleSolcCombined = `{
	"contracts": {
		"src/Token.sol:Token": {
			"abi": [{"type": "function", "name": "mint", "stateMutability": "nonpayable",
			         "inputs": [{"name": "amount", "type": "uint256"}], "outputs": []}],
			"bin": "6080604052",
			"bin-runtime": "6001600155"
		},
		"src/IToken.sol:IToken": {
			"abi": [],
			"bin": "",
			"bin-runtime": ""
		}
	},
	"version": "0.8.19+commit.7dd6d404.Linux.g++"
}`

// TestLoadFoundryArtifact will test loading a single Foundry artifact: name from the file name, parsed ABI and
// decoded bytecodes.
func TestLoadFoundryArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Token.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFoundryArtifact), 0644))

	contract, err := LoadFoundryArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "Token", contract.Name)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, contract.InitBytecode)
	assert.Equal(t, 1, len(contract.Abi.Constructor.Inputs))
	_, hasTransfer := contract.Abi.Methods["transfer"]
	assert.True(t, hasTransfer)
}

// TestLoadFoundryArtifactsDir will test directory loading: non-artifact JSON is skipped and artifacts without init
// bytecode are dropped.
func TestLoadFoundryArtifactsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Token.sol"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Token.sol", "Token.json"), []byte(sampleFoundryArtifact), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build-info.json"), []byte(`{"solcVersion": "0.8.19"}`), 0644))

	compiled, err := LoadFoundryArtifactsDir(dir)
	require.NoError(t, err)
	require.Equal(t, 1, len(compiled))
	assert.Equal(t, "Token", compiled[0].Name)

	// An empty directory yields an error, not an empty result.
	_, err = LoadFoundryArtifactsDir(t.TempDir())
	assert.Error(t, err)
}

// ipfsMetadataTrailer builds the CBOR metadata trailer solc appends to runtime bytecode, as hex:
// {"ipfs": <0x1220 || 32-byte digest>, "solc": <3-byte version>}.
func ipfsMetadataTrailer(digestByte byte) string {
	return "a2646970667358221220" + strings.Repeat(fmt.Sprintf("%02x", digestByte), 32) + "64736f6c6343000813"
}

// foundryArtifactWithRuntime builds a minimal deployable artifact carrying the provided runtime bytecode hex.
func foundryArtifactWithRuntime(runtimeHex string) string {
	return `{"abi": [], "bytecode": {"object": "0x6080604052"}, "deployedBytecode": {"object": "` + runtimeHex + `"}}`
}

// TestExtractContractMetadata will test locating the CBOR metadata trailer in runtime bytecode and pulling the
// embedded bytecode hash out of it.
func TestExtractContractMetadata(t *testing.T) {
	bytecode, err := hex.DecodeString("6001600155" + ipfsMetadataTrailer(0xaa))
	require.NoError(t, err)

	metadata := ExtractContractMetadata(bytecode)
	require.NotNil(t, metadata)
	hash := metadata.ExtractBytecodeHash()
	require.Equal(t, 34, len(hash))
	assert.Equal(t, []byte{0x12, 0x20}, hash[:2])

	// Bytecode without a trailer yields no metadata and no hash.
	assert.Nil(t, ExtractContractMetadata([]byte{0x60, 0x01, 0x60, 0x01, 0x55}))
}

// TestLoadFoundryArtifactsDirDedup will test that duplicate build outputs sharing a metadata hash collapse to one
// contract while artifacts with distinct hashes are all kept.
func TestLoadFoundryArtifactsDirDedup(t *testing.T) {
	dir := t.TempDir()
	tokenArtifact := foundryArtifactWithRuntime("0x6001600155" + ipfsMetadataTrailer(0xaa))
	otherArtifact := foundryArtifactWithRuntime("0x6002600255" + ipfsMetadataTrailer(0xbb))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Token.json"), []byte(tokenArtifact), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TokenCopy.json"), []byte(tokenArtifact), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Other.json"), []byte(otherArtifact), 0644))

	compiled, err := LoadFoundryArtifactsDir(dir)
	require.NoError(t, err)
	require.Equal(t, 2, len(compiled))

	names := []string{compiled[0].Name, compiled[1].Name}
	assert.Contains(t, names, "Token")
	assert.Contains(t, names, "Other")
}

// TestLoadSolcCombinedJSON will test loading solc combined-JSON output: names are stripped of their source path and
// undeployable entries are skipped.
func TestLoadSolcCombinedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleSolcCombined), 0644))

	compiled, err := LoadSolcCombinedJSON(path)
	require.NoError(t, err)
	require.Equal(t, 1, len(compiled))
	assert.Equal(t, "Token", compiled[0].Name)
	_, hasMint := compiled[0].Abi.Methods["mint"]
	assert.True(t, hasMint)
}

// TestParseSolcVersion will test extracting the release version from solc's --version output and checking it
// against constraints.
func TestParseSolcVersion(t *testing.T) {
	version, err := ParseSolcVersion("solc, the solidity compiler commandline interface\nVersion: 0.8.19+commit.7dd6d404.Linux.g++\n")
	require.NoError(t, err)
	assert.Equal(t, "0.8.19", version.String())

	assert.NoError(t, CheckSolcVersionConstraint(version, ">=0.8.0, <0.9.0"))
	assert.NoError(t, CheckSolcVersionConstraint(version, ">=0.8.0"))
	assert.Error(t, CheckSolcVersionConstraint(version, ">=0.9.0"))
	assert.Error(t, CheckSolcVersionConstraint(version, "not-a-constraint"))

	_, err = ParseSolcVersion("no version here")
	assert.Error(t, err)
}

// TestCompilationConfigValidate will test platform and target validation.
func TestCompilationConfigValidate(t *testing.T) {
	config := &CompilationConfig{Platform: "hardhat", Target: "out"}
	assert.Error(t, config.Validate())

	config = &CompilationConfig{Platform: PlatformFoundry, Target: ""}
	assert.Error(t, config.Validate())

	config = &CompilationConfig{Platform: PlatformFoundry, Target: "out"}
	assert.NoError(t, config.Validate())
}
