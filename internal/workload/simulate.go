package workload

import (
	"context"
	"time"
)

// QueryResult summarises a simulated slow query.
type QueryResult struct {
	Expected    time.Duration
	Actual      time.Duration
	ResultCount int
	// Interrupted is set when the context ended before the delay elapsed.
	Interrupted bool
}

// SimulateQuery blocks the calling goroutine for delay, then fabricates a
// result count in [1, 100). The reported duration is measured, not assumed.
func SimulateQuery(ctx context.Context, delay time.Duration, rng Rand) QueryResult {
	start := time.Now()
	interrupted := false

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			interrupted = true
		case <-timer.C:
		}
	}

	return QueryResult{
		Expected:    delay,
		Actual:      time.Since(start),
		ResultCount: 1 + rng.IntN(99),
		Interrupted: interrupted,
	}
}

// ErrorOutcome is one branch of error injection.
type ErrorOutcome int

const (
	// OutcomeRuntimeFault raises the generic simulated fault.
	OutcomeRuntimeFault ErrorOutcome = iota
	// OutcomeStateFault raises the state-conflict simulated fault.
	OutcomeStateFault
	// OutcomeSoftError returns a normal envelope carrying an error field.
	OutcomeSoftError
)

func (o ErrorOutcome) String() string {
	switch o {
	case OutcomeRuntimeFault:
		return "runtime_fault"
	case OutcomeStateFault:
		return "state_fault"
	default:
		return "soft_error"
	}
}

// PickErrorOutcome selects uniformly among the three outcomes.
func PickErrorOutcome(rng Rand) ErrorOutcome {
	return ErrorOutcome(rng.IntN(3))
}
