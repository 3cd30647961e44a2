// Package reporting classifies and aggregates trial outcomes across a fuzzing session and renders them for the
// console and for structured logs.
package reporting

// OutcomeKind classifies one fuzz trial.
type OutcomeKind int

const (
	// Passed indicates the invocation completed without the contract rejecting it.
	Passed OutcomeKind = iota
	// Failed indicates the contract rejected the invocation (a revert, a failed proof, an assertion).
	Failed
	// Skipped indicates the trial was counted but never invoked, decided before reaching the execution backend.
	Skipped
)

// String returns the lowercase name of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome describes one classified fuzz trial.
type Outcome struct {
	// Kind classifies the trial.
	Kind OutcomeKind

	// Iteration is the 1-based trial index within the entry point's fuzzing loop.
	Iteration int

	// Message carries the rejection or skip reason when Kind is not Passed.
	Message string

	// Arguments holds the rendered argument values the trial was invoked with, for failure reporting.
	Arguments []string
}
