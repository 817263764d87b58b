package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracechain/tracechain/internal/metrics"
)

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name          string
		maxBytes      int64
		contentLength int64
		body          string
		wantStatus    int
	}{
		{
			name:          "small body allowed",
			maxBytes:      1024,
			contentLength: 10,
			body:          "small body",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "content-length exceeds limit",
			maxBytes:      10,
			contentLength: 100,
			body:          "this is a much longer body that exceeds the limit",
			wantStatus:    http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MaxBodySize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("expected generated request id")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected header %q, got %q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	tracer, spans := newTestTracer()

	handler := Recoverer("service-b", logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	ctx, span := tracer.Start(context.Background(), "GET /api/user/{id}")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/user/1", nil).WithContext(ctx))
	span.End()

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body, got %s", rec.Body.String())
	}
	if body["service"] != "service-b" || body["code"] != "INTERNAL_ERROR" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["timestamp"]; !ok {
		t.Fatal("expected timestamp in error envelope")
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}
	if ended := spans.Ended(); len(ended) != 1 || ended[0].Status().Code != codes.Error {
		t.Fatal("expected request span marked as failed")
	}
}

func TestRequestID_IncomingValidated(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{"uuid reused", "6f1c2a9e-1d2b-4c3d-8e9f-0a1b2c3d4e5f", true},
		{"dotted id reused", "front.req:42_a", true},
		{"max length reused", strings.Repeat("a", MaxRequestIDLength), true},
		{"too long replaced", strings.Repeat("a", MaxRequestIDLength+1), false},
		{"spaces replaced", "req 1", false},
		{"log injection replaced", "req-1\nlevel=ERROR", false},
		{"non ascii replaced", "req-\u00e9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := seen == tt.incoming; got != tt.reused {
				t.Fatalf("reused = %v, want %v (seen %q)", got, tt.reused, seen)
			}
			if !validRequestID(seen) {
				t.Fatalf("handler saw invalid id %q", seen)
			}
			if rec.Header().Get(RequestIDHeader) != seen {
				t.Fatalf("response header %q does not match %q", rec.Header().Get(RequestIDHeader), seen)
			}
		})
	}
}

func newTestTracer() (trace.Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return tp.Tracer("test"), recorder
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	tracer, recorder := newTestTracer()
	propagator := propagation.TraceContext{}

	var traceID string
	r := chi.NewRouter()
	r.Use(Tracing(tracer, propagator))
	r.Get("/api/user/{id}", func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r.Context())
		w.WriteHeader(http.StatusBadGateway)
	})

	req := httptest.NewRequest("GET", "/api/user/42", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if traceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected incoming trace id, got %q", traceID)
	}
	if rec.Header().Get(TraceIDHeader) != traceID {
		t.Fatalf("expected trace id header, got %q", rec.Header().Get(TraceIDHeader))
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /api/user/{id}" {
		t.Fatalf("expected span renamed to route, got %q", span.Name())
	}
	if span.SpanKind() != trace.SpanKindServer {
		t.Fatalf("expected server span, got %v", span.SpanKind())
	}
	if span.Parent().SpanID().String() != "00f067aa0ba902b7" {
		t.Fatalf("expected remote parent, got %s", span.Parent().SpanID())
	}
	if span.Status().Code.String() != "Error" {
		t.Fatalf("expected error status for 502, got %v", span.Status().Code)
	}
}

func TestTracing_NewRootWithoutHeader(t *testing.T) {
	tracer, recorder := newTestTracer()

	handler := Tracing(tracer, propagation.TraceContext{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetTraceID(r.Context()) == "" {
			t.Error("expected trace id in context")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Parent().IsValid() {
		t.Fatalf("expected a single root span, got %d", len(spans))
	}
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	rec := metrics.NewInMemory()

	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/api/compute/primes/{limit}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/api/compute/primes/10", "/api/compute/primes/20", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil).WithContext(context.Background()))
	}

	snap := rec.Snapshot()
	if snap.HTTPRequests["GET /api/compute/primes/{limit} 200"] != 2 {
		t.Fatalf("unexpected counts %v", snap.HTTPRequests)
	}
	if snap.HTTPRequests["GET unmatched 404"] != 1 {
		t.Fatalf("expected unmatched request to be grouped, got %v", snap.HTTPRequests)
	}
}
