package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// loadProjectConfig resolves the project configuration for a command: an explicit --config path must exist; the
// default fuzzhead.json is used when present; otherwise the built-in defaults apply.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	_, existenceError := os.Stat(configPath)
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at ", configPath)
		return config.ReadProjectConfigFromFile(configPath)
	}
	if configFlagUsed {
		return nil, errors.Wrapf(existenceError, "could not find the config file at %v", configPath)
	}

	cmdLogger.Debug("No config file at ", configPath, ", using the default project configuration")
	return config.GetDefaultProjectConfig(), nil
}

// setupGlobalLogging replaces the global logger per the project's logging configuration: colorized console output,
// plus a structured JSON log file per session when a log directory is configured. The command logger is rebound to
// the new global logger.
func setupGlobalLogging(loggingConfig config.LoggingConfig) error {
	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level)
	logging.GlobalLogger.EnableConsole(loggingConfig.NoColor)

	if loggingConfig.LogDirectory != "" {
		if err := os.MkdirAll(loggingConfig.LogDirectory, 0755); err != nil {
			return errors.Wrapf(err, "could not create log directory %v", loggingConfig.LogDirectory)
		}
		logPath := filepath.Join(loggingConfig.LogDirectory, time.Now().Format("20060102-150405")+".log")
		logFile, err := os.Create(logPath)
		if err != nil {
			return errors.Wrapf(err, "could not create log file %v", logPath)
		}
		logging.GlobalLogger.AddWriter(logFile)
	}

	cmdLogger = logging.GlobalLogger.NewSubLogger("component", logging.CLIComponent)
	return nil
}
