package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
// Labelled counters are keyed by their label values joined with a space.
type Snapshot struct {
	HTTPRequests        map[string]uint64 // "GET /api/hello 200"
	HTTPDurationTotalNs int64
	DownstreamRequests  map[string]uint64 // "service-b 200"
	WorkloadRuns        map[string]uint64 // "prime-calculation"
	WorkloadDurationNs  int64
	BusinessEvents      map[string]uint64 // "data_fetch success"
	EventsPublished     map[string]uint64
	EventsConsumed      map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	httpRequests       map[string]uint64
	downstreamRequests map[string]uint64
	workloadRuns       map[string]uint64
	businessEvents     map[string]uint64
	eventsPublished    map[string]uint64
	eventsConsumed     map[string]uint64

	httpDurationTotalNs int64
	workloadDurationNs  int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		httpRequests:       make(map[string]uint64),
		downstreamRequests: make(map[string]uint64),
		workloadRuns:       make(map[string]uint64),
		businessEvents:     make(map[string]uint64),
		eventsPublished:    make(map[string]uint64),
		eventsConsumed:     make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		HTTPRequests:        copyCounts(m.httpRequests),
		HTTPDurationTotalNs: atomic.LoadInt64(&m.httpDurationTotalNs),
		DownstreamRequests:  copyCounts(m.downstreamRequests),
		WorkloadRuns:        copyCounts(m.workloadRuns),
		WorkloadDurationNs:  atomic.LoadInt64(&m.workloadDurationNs),
		BusinessEvents:      copyCounts(m.businessEvents),
		EventsPublished:     copyCounts(m.eventsPublished),
		EventsConsumed:      copyCounts(m.eventsConsumed),
	}
}

// ObserveHTTPRequest counts a served request and its duration.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.inc(m.httpRequests, method+" "+route+" "+strconv.Itoa(status))
	atomic.AddInt64(&m.httpDurationTotalNs, duration.Nanoseconds())
}

// IncDownstreamRequest counts a forwarding call.
func (m *InMemoryRecorder) IncDownstreamRequest(target, status string) {
	m.inc(m.downstreamRequests, target+" "+status)
}

// ObserveWorkload counts a generator run and its duration.
func (m *InMemoryRecorder) ObserveWorkload(operation string, duration time.Duration) {
	m.inc(m.workloadRuns, operation)
	atomic.AddInt64(&m.workloadDurationNs, duration.Nanoseconds())
}

// IncBusinessEvent counts a business event.
func (m *InMemoryRecorder) IncBusinessEvent(eventType, status string) {
	m.inc(m.businessEvents, eventType+" "+status)
}

// IncEventPublished counts a publish attempt.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	m.inc(m.eventsPublished, status)
}

// IncEventConsumed counts a consumed message.
func (m *InMemoryRecorder) IncEventConsumed(status string) {
	m.inc(m.eventsConsumed, status)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
