package config

import (
	"path/filepath"
	"testing"

	"github.com/fuzzhead/fuzzhead/compilation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfigValidates will test that the default project config passes validation as-is.
func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, GetDefaultProjectConfig().Validate())
}

// TestConfigRoundTrip will test writing a config to disk and reading it back, with file values layered over the
// defaults.
func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzhead.json")

	projectConfig := GetDefaultProjectConfig()
	projectConfig.Fuzzing.Iterations = 50
	projectConfig.Fuzzing.ResetBetweenMethods = true
	require.NoError(t, projectConfig.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 50, read.Fuzzing.Iterations)
	assert.True(t, read.Fuzzing.ResetBetweenMethods)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "SmartContract", read.Fuzzing.ContractMarker)
}

// TestConfigValidation will test the rejection paths of Validate.
func TestConfigValidation(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	projectConfig.Fuzzing.Iterations = 0
	assert.Error(t, projectConfig.Validate())

	projectConfig = GetDefaultProjectConfig()
	projectConfig.Fuzzing.ContractMarker = ""
	assert.Error(t, projectConfig.Validate())

	projectConfig = GetDefaultProjectConfig()
	projectConfig.Fuzzing.SequenceLength = -1
	assert.Error(t, projectConfig.Validate())

	// A node backend without a compilation section cannot deploy anything.
	projectConfig = GetDefaultProjectConfig()
	projectConfig.Fuzzing.RPCUrl = "http://127.0.0.1:8545"
	assert.Error(t, projectConfig.Validate())

	projectConfig.Compilation = &compilation.CompilationConfig{Platform: compilation.PlatformFoundry, Target: "out"}
	assert.NoError(t, projectConfig.Validate())
}

// TestReadMissingConfig will test that reading a nonexistent file errors.
func TestReadMissingConfig(t *testing.T) {
	_, err := ReadProjectConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
