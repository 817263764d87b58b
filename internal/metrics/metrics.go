// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory for tests.
type Recorder interface {
	// Inbound HTTP metrics; route is the matched pattern, not the raw path.
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Forwarding metrics
	IncDownstreamRequest(target, status string) // status: HTTP code or "error"

	// Workload generator metrics
	ObserveWorkload(operation string, duration time.Duration)

	// Business event metrics (data_fetch, forward, error_test, ...)
	IncBusinessEvent(eventType, status string)

	// Event bus metrics
	IncEventPublished(status string) // status: "success" or "dropped"
	IncEventConsumed(status string)  // status: "success", "failed", "invalid"
}
