package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fuzzhead/fuzzhead/logging/colors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// GlobalLogger describes a Logger that is disabled by default and is replaced when the CLI or a fuzzing session
// boots. Each package should derive its own sub-logger from it so log lines stay grep-able by component.
var GlobalLogger = NewLogger(zerolog.Disabled)

// These constants identify the components that attach sub-loggers to the GlobalLogger.
const (
	// FuzzingComponent identifies logs emitted by the fuzzing session loop.
	FuzzingComponent = "fuzzing"
	// ChainComponent identifies logs emitted by an execution backend adapter.
	ChainComponent = "chain"
	// CompilationComponent identifies logs emitted during compilation/artifact loading.
	CompilationComponent = "compilation"
	// BenchComponent identifies logs emitted by the benchmark runner.
	BenchComponent = "bench"
	// CLIComponent identifies logs emitted by the command-line layer.
	CLIComponent = "cli"
)

// Logger wraps a pair of zerolog loggers: one colorized console logger and one structured logger that fans out to
// any number of attached writers (e.g. log files).
type Logger struct {
	// level describes the log level both underlying loggers filter at.
	level zerolog.Level

	// consoleLogger emits human-readable, colorized output to stdout when console logging is enabled.
	consoleLogger zerolog.Logger

	// structuredLogger emits JSON output to every writer attached via AddWriter.
	structuredLogger zerolog.Logger

	// structuredWriters tracks the writers backing structuredLogger so they can be added and removed.
	structuredWriters []io.Writer
}

// init sets up zerolog globals: stack trace marshalling for pkg/errors wrapped errors and UNIX timestamps for
// structured output.
func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// NewLogger creates a Logger with the provided log level. Console output is disabled until EnableConsole is called
// and no structured writers are attached.
func NewLogger(level zerolog.Level) *Logger {
	return &Logger{
		level:             level,
		consoleLogger:     zerolog.New(os.Stdout).Level(zerolog.Disabled),
		structuredLogger:  zerolog.New(os.Stdout).Level(zerolog.Disabled),
		structuredWriters: make([]io.Writer, 0),
	}
}

// EnableConsole turns on colorized, unstructured console output on stdout. If noColor is set, ANSI sequences are
// stripped by zerolog's console writer.
func (l *Logger) EnableConsole(noColor bool) {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
	// Drop the timestamp for console output; it is noise during an interactive fuzzing run.
	consoleWriter.FormatTimestamp = func(i any) string { return "" }
	l.consoleLogger = zerolog.New(consoleWriter).Level(l.level)
}

// AddWriter attaches a writer receiving structured JSON output. Adding the same writer twice is a no-op.
func (l *Logger) AddWriter(writer io.Writer) {
	for _, w := range l.structuredWriters {
		if w == writer {
			return
		}
	}
	l.structuredWriters = append(l.structuredWriters, writer)
	l.structuredLogger = zerolog.New(zerolog.MultiLevelWriter(l.structuredWriters...)).Level(l.level).With().Timestamp().Logger()
}

// RemoveWriter detaches a previously added structured writer. If the writer was never added, this is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer) {
	for i, w := range l.structuredWriters {
		if w == writer {
			l.structuredWriters = append(l.structuredWriters[:i], l.structuredWriters[i+1:]...)
			l.structuredLogger = zerolog.New(zerolog.MultiLevelWriter(l.structuredWriters...)).Level(l.level).With().Timestamp().Logger()
			return
		}
	}
}

// NewSubLogger creates a child Logger carrying a key-value pair on every line it emits. Each package attaches its
// component name so logs can be filtered per component.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	return &Logger{
		level:             l.level,
		consoleLogger:     l.consoleLogger.With().Str(key, value).Logger(),
		structuredLogger:  l.structuredLogger.With().Str(key, value).Logger(),
		structuredWriters: l.structuredWriters,
	}
}

// Level returns the log level of the Logger.
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel updates the log level of the Logger and its underlying zerolog loggers.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.consoleLogger = l.consoleLogger.Level(level)
	l.structuredLogger = l.structuredLogger.Level(level)
}

// Trace logs a trace event. Arguments are handled as described in log.
func (l *Logger) Trace(args ...any) {
	l.log(l.consoleLogger.Trace(), l.structuredLogger.Trace(), args...)
}

// Debug logs a debug event. Arguments are handled as described in log.
func (l *Logger) Debug(args ...any) {
	l.log(l.consoleLogger.Debug(), l.structuredLogger.Debug(), args...)
}

// Info logs an info event. Arguments are handled as described in log.
func (l *Logger) Info(args ...any) {
	l.log(l.consoleLogger.Info(), l.structuredLogger.Info(), args...)
}

// Warn logs a warning event. Arguments are handled as described in log.
func (l *Logger) Warn(args ...any) {
	l.log(l.consoleLogger.Warn(), l.structuredLogger.Warn(), args...)
}

// Error logs an error event. Arguments are handled as described in log.
func (l *Logger) Error(args ...any) {
	l.log(l.consoleLogger.Error(), l.structuredLogger.Error(), args...)
}

// Panic logs a panic event and then panics with the built message.
func (l *Logger) Panic(args ...any) {
	l.log(l.consoleLogger.Panic(), l.structuredLogger.Panic(), args...)
}

// log builds the console and structured messages out of the variadic argument list and sends both events. Arguments
// are interpreted by type: a colors.ColorFunc switches the color context for subsequent arguments on console output,
// an error is chained onto both events (with a stack trace at debug level and below), and anything else is appended
// to the message.
func (l *Logger) log(consoleEvent *zerolog.Event, structuredEvent *zerolog.Event, args ...any) {
	colorCtx := colors.Reset
	consoleParts := make([]string, 0, len(args))
	structuredParts := make([]string, 0, len(args))
	var chainedErr error
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case error:
			// Only one error can be chained per log line; the last one wins.
			chainedErr = t
		default:
			consoleParts = append(consoleParts, colorCtx(t))
			structuredParts = append(structuredParts, fmt.Sprintf("%v", t))
		}
	}

	consoleEvent.Err(chainedErr)
	structuredEvent.Err(chainedErr)
	if l.level <= zerolog.DebugLevel {
		consoleEvent.Stack()
		structuredEvent.Stack()
	}

	// The structured message is deferred so both channels receive the line even if the event panics (Panic level).
	defer structuredEvent.Msg(strings.Join(structuredParts, ""))
	consoleEvent.Msg(strings.Join(consoleParts, ""))
}
