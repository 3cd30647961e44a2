package reporting

import (
	"time"

	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MethodSummary accumulates the classified outcomes of one fuzzed entry point. Every recorded trial lands in
// exactly one counter, so Passed+Failed+Skipped always equals the number of trials recorded.
type MethodSummary struct {
	// EntryPoint references the entry point the summary describes.
	EntryPoint *contracts.EntryPoint

	// Passed, Failed and Skipped count the trials per classification.
	Passed  int
	Failed  int
	Skipped int

	// Failures retains the failing outcomes for end-of-session reporting.
	Failures []Outcome
}

// NewMethodSummary creates an empty summary for an entry point.
func NewMethodSummary(entryPoint *contracts.EntryPoint) *MethodSummary {
	return &MethodSummary{EntryPoint: entryPoint}
}

// Record tallies one classified outcome.
func (m *MethodSummary) Record(outcome Outcome) {
	switch outcome.Kind {
	case Passed:
		m.Passed++
	case Failed:
		m.Failed++
		m.Failures = append(m.Failures, outcome)
	case Skipped:
		m.Skipped++
	}
}

// Trials returns the total number of recorded trials.
func (m *MethodSummary) Trials() int {
	return m.Passed + m.Failed + m.Skipped
}

// SessionSummary aggregates an entire fuzzing session: every fuzzed entry point's summary, the entry points set
// aside as not fuzzable, and the contracts dropped before fuzzing.
type SessionSummary struct {
	// RunID uniquely identifies the session.
	RunID uuid.UUID

	// StartTime and EndTime bound the session.
	StartTime time.Time
	EndTime   time.Time

	// IterationsConfigured is the per-entry-point trial count the session ran with.
	IterationsConfigured int

	// Methods lists one summary per fuzzed entry point, in fuzzing order.
	Methods []*MethodSummary

	// NotFuzzed lists discovered entry points that take no parameters and therefore were tallied instead of
	// fuzzed.
	NotFuzzed []*contracts.EntryPoint

	// SkippedContracts names contracts discovered but dropped before fuzzing (failed deployment or
	// initialization).
	SkippedContracts []string
}

// NewSessionSummary creates a summary stamped with a fresh run identifier.
func NewSessionSummary(iterationsConfigured int) *SessionSummary {
	return &SessionSummary{
		RunID:                uuid.New(),
		StartTime:            time.Now(),
		IterationsConfigured: iterationsConfigured,
	}
}

// TotalPassed sums passed trials across all methods.
func (s *SessionSummary) TotalPassed() int {
	total := 0
	for _, method := range s.Methods {
		total += method.Passed
	}
	return total
}

// TotalFailed sums failed trials across all methods.
func (s *SessionSummary) TotalFailed() int {
	total := 0
	for _, method := range s.Methods {
		total += method.Failed
	}
	return total
}

// TotalSkipped sums skipped trials across all methods.
func (s *SessionSummary) TotalSkipped() int {
	total := 0
	for _, method := range s.Methods {
		total += method.Skipped
	}
	return total
}

// TrialsExecuted returns the total number of trials recorded across the session, skipped trials included.
func (s *SessionSummary) TrialsExecuted() int {
	return s.TotalPassed() + s.TotalFailed() + s.TotalSkipped()
}

// AnyFailures indicates whether any trial in the session failed.
func (s *SessionSummary) AnyFailures() bool {
	return s.TotalFailed() > 0
}

// PassRate returns passed trials over invoked trials (skips excluded) as a fraction between 0 and 1. A session
// that invoked nothing has a pass rate of zero.
func (s *SessionSummary) PassRate() decimal.Decimal {
	invoked := s.TotalPassed() + s.TotalFailed()
	if invoked == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.TotalPassed())).Div(decimal.NewFromInt(int64(invoked)))
}

// Duration returns the wall-clock duration of the session.
func (s *SessionSummary) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
