package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncDownstreamRequest is a no-op.
func (n *NoopRecorder) IncDownstreamRequest(target, status string) {}

// ObserveWorkload is a no-op.
func (n *NoopRecorder) ObserveWorkload(operation string, duration time.Duration) {}

// IncBusinessEvent is a no-op.
func (n *NoopRecorder) IncBusinessEvent(eventType, status string) {}

// IncEventPublished is a no-op.
func (n *NoopRecorder) IncEventPublished(status string) {}

// IncEventConsumed is a no-op.
func (n *NoopRecorder) IncEventConsumed(status string) {}
