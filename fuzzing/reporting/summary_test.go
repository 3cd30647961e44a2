package reporting

import (
	"testing"
	"time"

	"github.com/fuzzhead/fuzzhead/fuzzing/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMethodSummaryConservation will test that every recorded outcome lands in exactly one counter, so the three
// tallies always sum to the number of recorded trials.
func TestMethodSummaryConservation(t *testing.T) {
	summary := NewMethodSummary(&contracts.EntryPoint{ContractName: "Token", Name: "transfer"})

	outcomes := []Outcome{
		{Kind: Passed, Iteration: 1},
		{Kind: Failed, Iteration: 2, Message: "assertion failed"},
		{Kind: Passed, Iteration: 3},
		{Kind: Skipped, Iteration: 4, Message: "unrecognized parameter type"},
		{Kind: Failed, Iteration: 5, Message: "balance underflow"},
	}
	for _, outcome := range outcomes {
		summary.Record(outcome)
	}

	assert.Equal(t, 2, summary.Passed)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, len(outcomes), summary.Trials())
	require.Equal(t, 2, len(summary.Failures))
	assert.Equal(t, "assertion failed", summary.Failures[0].Message)
}

// TestSessionSummaryRollups will test the session-wide totals, failure detection and pass rate.
func TestSessionSummaryRollups(t *testing.T) {
	session := NewSessionSummary(10)
	assert.NotEqual(t, session.RunID.String(), "00000000-0000-0000-0000-000000000000")

	transfer := NewMethodSummary(&contracts.EntryPoint{ContractName: "Token", Name: "transfer"})
	for i := 0; i < 7; i++ {
		transfer.Record(Outcome{Kind: Passed, Iteration: i + 1})
	}
	for i := 7; i < 10; i++ {
		transfer.Record(Outcome{Kind: Failed, Iteration: i + 1, Message: "reverted"})
	}

	mint := NewMethodSummary(&contracts.EntryPoint{ContractName: "Token", Name: "mint"})
	for i := 0; i < 10; i++ {
		mint.Record(Outcome{Kind: Skipped, Iteration: i + 1, Message: "unrecognized parameter type"})
	}

	session.Methods = append(session.Methods, transfer, mint)
	session.NotFuzzed = append(session.NotFuzzed, &contracts.EntryPoint{ContractName: "Token", Name: "pause"})
	session.EndTime = session.StartTime.Add(2 * time.Second)

	assert.Equal(t, 7, session.TotalPassed())
	assert.Equal(t, 3, session.TotalFailed())
	assert.Equal(t, 10, session.TotalSkipped())
	assert.Equal(t, 20, session.TrialsExecuted())
	assert.True(t, session.AnyFailures())
	assert.Equal(t, 2*time.Second, session.Duration())

	// Pass rate counts invoked trials only, so the all-skipped method does not dilute it.
	assert.Equal(t, "70.0", session.PassRate().Mul(hundred).StringFixed(1))
}

// TestSessionSummaryEmptyPassRate will test that a session with no invoked trials reports a zero pass rate instead
// of dividing by zero.
func TestSessionSummaryEmptyPassRate(t *testing.T) {
	session := NewSessionSummary(10)
	assert.True(t, session.PassRate().IsZero())
	assert.Equal(t, 0, session.TrialsExecuted())
	assert.False(t, session.AnyFailures())
}

// TestReporterHandlesEmptySession will test that reporting a session with zero executed trials does not panic and
// takes the warning path.
func TestReporterHandlesEmptySession(t *testing.T) {
	reporter := NewReporter(nil, Normal)
	session := NewSessionSummary(10)
	session.EndTime = session.StartTime
	reporter.ReportSessionSummary(session)
}
