package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exposes metrics as Prometheus collectors.
type PrometheusRecorder struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	downstreamRequests *prometheus.CounterVec
	workloadDuration   *prometheus.HistogramVec
	businessEvents     *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	eventsConsumed     *prometheus.CounterVec
}

// NewPrometheus registers the collectors on reg and returns a Recorder.
// Every series carries a constant service label.
func NewPrometheus(reg prometheus.Registerer, service string) (*PrometheusRecorder, error) {
	constLabels := prometheus.Labels{"service": service}

	p := &PrometheusRecorder{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests served.",
			ConstLabels: constLabels,
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		downstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "downstream_requests_total",
			Help:        "Calls made to the next tier.",
			ConstLabels: constLabels,
		}, []string{"target", "status"}),
		workloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "workload_duration_seconds",
			Help:        "Execution time of synthetic workload generators.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"operation"}),
		businessEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "business_events_total",
			Help:        "Business events by type and outcome.",
			ConstLabels: constLabels,
		}, []string{"event_type", "status"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_published_total",
			Help:        "Events published to the event stream.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		eventsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "events_consumed_total",
			Help:        "Events read from the event stream.",
			ConstLabels: constLabels,
		}, []string{"status"}),
	}

	collectors := []prometheus.Collector{
		p.httpRequests,
		p.httpDuration,
		p.downstreamRequests,
		p.workloadDuration,
		p.businessEvents,
		p.eventsPublished,
		p.eventsConsumed,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ObserveHTTPRequest records a served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncDownstreamRequest records a forwarding call.
func (p *PrometheusRecorder) IncDownstreamRequest(target, status string) {
	p.downstreamRequests.WithLabelValues(target, status).Inc()
}

// ObserveWorkload records a generator run.
func (p *PrometheusRecorder) ObserveWorkload(operation string, duration time.Duration) {
	p.workloadDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncBusinessEvent records a business event.
func (p *PrometheusRecorder) IncBusinessEvent(eventType, status string) {
	p.businessEvents.WithLabelValues(eventType, status).Inc()
}

// IncEventPublished records a publish attempt.
func (p *PrometheusRecorder) IncEventPublished(status string) {
	p.eventsPublished.WithLabelValues(status).Inc()
}

// IncEventConsumed records a consumed message.
func (p *PrometheusRecorder) IncEventConsumed(status string) {
	p.eventsConsumed.WithLabelValues(status).Inc()
}
