// Package bench sweeps a directory of contract source units, fuzzes each one, and records whether the session
// surfaced any failing trials. It exists to measure detection rates over known-vulnerable contract corpora.
package bench

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fuzzhead/fuzzhead/chain"
	"github.com/fuzzhead/fuzzhead/fuzzing"
	"github.com/fuzzhead/fuzzhead/fuzzing/config"
	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/fuzzhead/fuzzhead/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Result records the benchmark outcome for one source unit.
type Result struct {
	// Name is the source unit's file name.
	Name string `cbor:"name"`

	// Detected indicates the session recorded at least one failing trial.
	Detected bool `cbor:"detected"`

	// Passed, Failed and Skipped carry the session's trial totals.
	Passed  int `cbor:"passed"`
	Failed  int `cbor:"failed"`
	Skipped int `cbor:"skipped"`

	// DurationMillis is the wall-clock duration of the session in milliseconds.
	DurationMillis int64 `cbor:"durationMillis"`

	// Error carries a setup or discovery failure message; such units count as not detected.
	Error string `cbor:"error,omitempty"`
}

// Summary aggregates one benchmark run across every swept source unit.
type Summary struct {
	// RunID uniquely identifies the benchmark run.
	RunID string `cbor:"runId"`

	// StartedAt stamps when the sweep began.
	StartedAt time.Time `cbor:"startedAt"`

	// Iterations is the per-entry-point trial count the sweep ran with.
	Iterations int `cbor:"iterations"`

	// Results lists one entry per swept source unit, in sweep order.
	Results []Result `cbor:"results"`
}

// DetectionRate returns detected units over swept units as a fraction between 0 and 1.
func (s *Summary) DetectionRate() decimal.Decimal {
	if len(s.Results) == 0 {
		return decimal.Zero
	}
	detected := 0
	for _, result := range s.Results {
		if result.Detected {
			detected++
		}
	}
	return decimal.NewFromInt(int64(detected)).Div(decimal.NewFromInt(int64(len(s.Results))))
}

// AdapterFactory builds a fresh execution adapter per source unit, so one unit's state never leaks into the next.
type AdapterFactory func(ctx context.Context) (chain.Adapter, error)

// Runner sweeps source units and accumulates benchmark results.
type Runner struct {
	// projectConfig is the configuration every session in the sweep runs with.
	projectConfig *config.ProjectConfig

	// newAdapter builds the execution adapter for each source unit.
	newAdapter AdapterFactory

	// logger describes the Runner's log output channel.
	logger *logging.Logger
}

// NewRunner creates a benchmark Runner.
func NewRunner(projectConfig *config.ProjectConfig, newAdapter AdapterFactory, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.GlobalLogger.NewSubLogger("component", logging.BenchComponent)
	}
	return &Runner{projectConfig: projectConfig, newAdapter: newAdapter, logger: logger}
}

// Run sweeps every structural view file (*.json) under dir, fuzzing each in lexical order. Per-unit failures are
// recorded and the sweep continues; only an empty directory or a walk failure is an error.
func (r *Runner) Run(ctx context.Context, dir string) (*Summary, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not walk benchmark directory %v", dir)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no source unit files found under %v", dir)
	}

	summary := &Summary{
		RunID:      uuid.New().String(),
		StartedAt:  time.Now(),
		Iterations: r.projectConfig.Fuzzing.Iterations,
	}
	for _, path := range paths {
		summary.Results = append(summary.Results, r.runUnit(ctx, path))
		if ctx.Err() != nil {
			break
		}
	}

	r.logger.Info("Benchmark run ", summary.RunID, ": detection rate ",
		summary.DetectionRate().Mul(decimal.NewFromInt(100)).StringFixed(1), "% over ", len(summary.Results), " unit(s)")
	return summary, nil
}

// runUnit fuzzes one source unit and classifies its benchmark result.
func (r *Runner) runUnit(ctx context.Context, path string) Result {
	result := Result{Name: filepath.Base(path)}
	started := time.Now()

	unit, err := contracts.ParseSourceUnitFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	adapter, err := r.newAdapter(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	// Node-backed adapters hold an RPC connection each, and the sweep creates one adapter per unit.
	if closer, ok := adapter.(interface{ Close() }); ok {
		defer closer.Close()
	}

	fuzzer, err := fuzzing.NewFuzzer(r.projectConfig, adapter, r.logger)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	session, err := fuzzer.FuzzSourceUnit(ctx, unit)
	result.DurationMillis = time.Since(started).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Detected = session.AnyFailures()
	result.Passed = session.TotalPassed()
	result.Failed = session.TotalFailed()
	result.Skipped = session.TotalSkipped()
	return result
}
