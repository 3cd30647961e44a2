package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/fuzzhead/fuzzhead/logging/colors"
	"github.com/shopspring/decimal"
)

// timeRounding trims session durations for display.
const timeRounding = 10 * time.Millisecond

// hundred converts pass rate fractions to percentages.
var hundred = decimal.NewFromInt(100)

// Verbosity controls how much per-trial detail the reporter emits.
type Verbosity int

const (
	// Quiet emits only the end-of-session summary.
	Quiet Verbosity = iota
	// Normal additionally reports each failure as it happens.
	Normal
	// Verbose reports every trial, including passes and skips.
	Verbose
)

// Reporter renders trial outcomes and session summaries onto a logger.
type Reporter struct {
	// logger describes the Reporter's log output channel.
	logger *logging.Logger

	// verbosity gates per-trial output.
	verbosity Verbosity
}

// NewReporter creates a Reporter at the provided verbosity.
func NewReporter(logger *logging.Logger, verbosity Verbosity) *Reporter {
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("component", logging.FuzzingComponent)
	}
	return &Reporter{logger: logger, verbosity: verbosity}
}

// ReportOutcome logs one classified trial, subject to verbosity: failures at Normal and above, everything at
// Verbose.
func (r *Reporter) ReportOutcome(entryPoint *contracts.EntryPoint, outcome Outcome) {
	switch outcome.Kind {
	case Failed:
		if r.verbosity >= Normal {
			r.logger.Info(colors.RedBold, "FAIL ", colors.Reset, entryPoint.ContractName, ".", entryPoint.Name,
				" [", outcome.Iteration, "]: ", outcome.Message)
			if r.verbosity >= Verbose && len(outcome.Arguments) > 0 {
				r.logger.Info("  args: ", strings.Join(outcome.Arguments, ", "))
			}
		}
	case Passed:
		if r.verbosity >= Verbose {
			r.logger.Info(colors.GreenBold, "PASS ", colors.Reset, entryPoint.ContractName, ".", entryPoint.Name,
				" [", outcome.Iteration, "]")
		}
	case Skipped:
		if r.verbosity >= Verbose {
			r.logger.Info(colors.YellowBold, "SKIP ", colors.Reset, entryPoint.ContractName, ".", entryPoint.Name,
				" [", outcome.Iteration, "]: ", outcome.Message)
		}
	}
}

// ReportContractSkipped logs a contract dropped before fuzzing, with the reason.
func (r *Reporter) ReportContractSkipped(contractName string, reason string) {
	r.logger.Warn(colors.YellowBold, "Skipping contract ", contractName, colors.Reset, ": ", reason)
}

// ReportSessionSummary renders the end-of-session rollup: one line per fuzzed entry point, the not-fuzzed tally,
// skipped contracts and session totals. A session that recorded no trials at all is called out with a warning,
// since it usually means the markers or the source unit are wrong.
func (r *Reporter) ReportSessionSummary(summary *SessionSummary) {
	r.logger.Info("Fuzzing session ", summary.RunID.String(), " finished in ", summary.Duration().Round(timeRounding))

	for _, method := range summary.Methods {
		line := fmt.Sprintf("%v.%v: %d passed, %d failed, %d skipped",
			method.EntryPoint.ContractName, method.EntryPoint.Name, method.Passed, method.Failed, method.Skipped)
		if method.Failed > 0 {
			r.logger.Info(colors.RedBold, line)
		} else {
			r.logger.Info(colors.GreenBold, line)
		}
		for _, failure := range method.Failures {
			r.logger.Info("  iteration ", failure.Iteration, ": ", failure.Message)
			if r.verbosity >= Verbose && len(failure.Arguments) > 0 {
				r.logger.Info("    args: ", strings.Join(failure.Arguments, ", "))
			}
		}
	}

	for _, entryPoint := range summary.NotFuzzed {
		r.logger.Info(colors.DarkGray, entryPoint.ContractName, ".", entryPoint.Name,
			": not fuzzed (no parameters)")
	}
	for _, contractName := range summary.SkippedContracts {
		r.logger.Info(colors.DarkGray, contractName, ": skipped before fuzzing")
	}

	if summary.TrialsExecuted() == 0 {
		r.logger.Warn("No trials were executed; check the contract and method markers against the source unit")
		return
	}

	r.logger.Info("Totals: ",
		colors.GreenBold, summary.TotalPassed(), " passed", colors.Reset, ", ",
		colors.RedBold, summary.TotalFailed(), " failed", colors.Reset, ", ",
		colors.YellowBold, summary.TotalSkipped(), " skipped", colors.Reset,
		" (pass rate ", summary.PassRate().Mul(hundred).StringFixed(1), "%)")
}
