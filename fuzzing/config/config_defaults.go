package config

import (
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Iterations:          200,
			SequenceLength:      3,
			StringLength:        5,
			BytesMaxLength:      100,
			SkipInit:            false,
			ResetBetweenMethods: false,
			ContractMarker:      "SmartContract",
			MethodMarker:        "method",
			InitMethodName:      "init",
			Verbosity:           1,
		},
		Logging: LoggingConfig{
			Level:   zerolog.InfoLevel,
			NoColor: false,
		},
	}
}
