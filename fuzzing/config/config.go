package config

import (
	"encoding/json"
	"os"

	"github.com/fuzzhead/fuzzhead/compilation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the configuration of one fuzzing project.
type ProjectConfig struct {
	// Fuzzing describes the configuration of the fuzzing session.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Compilation describes where compiled artifacts come from when fuzzing against a node backend. It is unused
	// (and may be zero) for the in-process backend.
	Compilation *compilation.CompilationConfig `json:"compilation,omitempty"`

	// Logging describes the configuration of log output.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig describes the configuration of the fuzzing session loop and value generation.
type FuzzingConfig struct {
	// Iterations is the number of fuzz trials run per fuzzable entry point.
	Iterations int `json:"iterations"`

	// SequenceLength is the element count generated for sequence types without a declared size.
	SequenceLength int `json:"sequenceLength"`

	// StringLength is the length of generated string values.
	StringLength int `json:"stringLength"`

	// BytesMaxLength bounds the length of generated dynamic byte values.
	BytesMaxLength int `json:"bytesMaxLength"`

	// SkipInit disables invocation of the lifecycle/init method before fuzzing a contract.
	SkipInit bool `json:"skipInit"`

	// ResetBetweenMethods snapshots the backend before each entry point's loop and reverts afterwards, so every
	// method fuzzes from the post-initialization state. When unset, state accumulates across methods.
	ResetBetweenMethods bool `json:"resetBetweenMethods"`

	// RPCUrl selects the node backend when non-empty; the in-process backend is used otherwise.
	RPCUrl string `json:"rpcUrl,omitempty"`

	// ContractMarker is the base type a declaration must extend to qualify as a fuzzable contract.
	ContractMarker string `json:"contractMarker"`

	// MethodMarker is the decorator a member must carry to qualify as a fuzzable entry point.
	MethodMarker string `json:"methodMarker"`

	// InitMethodName is the name of the lifecycle/init method.
	InitMethodName string `json:"initMethodName"`

	// Verbosity gates per-trial reporting: 0 is quiet, 1 reports failures, 2 reports every trial.
	Verbosity int `json:"verbosity"`
}

// LoggingConfig describes the configuration of log output.
type LoggingConfig struct {
	// Level is the minimum level emitted on all log channels.
	Level zerolog.Level `json:"level"`

	// NoColor strips ANSI color sequences from console output.
	NoColor bool `json:"noColor"`

	// LogDirectory, when non-empty, receives a structured JSON log file per session.
	LogDirectory string `json:"logDirectory,omitempty"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	projectConfig := GetDefaultProjectConfig()
	if err = json.Unmarshal(b, projectConfig); err != nil {
		return nil, errors.Wrapf(err, "could not decode project config at %v", path)
	}
	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(path, b, 0644))
}

// Validate validates that the ProjectConfig meets expected requirements for the session to run.
func (p *ProjectConfig) Validate() error {
	if p.Fuzzing.Iterations < 1 {
		return errors.New("project config must specify at least one iteration per entry point")
	}
	if p.Fuzzing.SequenceLength < 1 {
		return errors.New("project config must specify a positive sequence length")
	}
	if p.Fuzzing.StringLength < 1 {
		return errors.New("project config must specify a positive string length")
	}
	if p.Fuzzing.BytesMaxLength < 1 {
		return errors.New("project config must specify a positive bytes max length")
	}
	if p.Fuzzing.ContractMarker == "" || p.Fuzzing.MethodMarker == "" {
		return errors.New("project config must specify contract and method markers")
	}
	if p.Fuzzing.InitMethodName == "" {
		return errors.New("project config must specify an init method name")
	}
	if p.Fuzzing.RPCUrl != "" {
		if p.Compilation == nil {
			return errors.New("fuzzing against a node backend requires a compilation section")
		}
		if err := p.Compilation.Validate(); err != nil {
			return err
		}
	}
	return nil
}
