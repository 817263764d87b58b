package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/repository"
	"github.com/tracechain/tracechain/internal/service"
	"github.com/tracechain/tracechain/internal/workload"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedRand int

func (r fixedRand) IntN(n int) int { return int(r) % n }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func newWorkloadRouter(rng workload.Rand) http.Handler {
	svc := service.NewWorkloadService(service.WorkloadConfig{
		Service:     "service-c",
		DisplayName: "Service C",
		SeedPrefix:  "ServiceC",
		Digest:      workload.DigestSHA256,
		Limits:      service.WorkloadLimits{MaxAllocateMB: 8},
	}, rng, noop.NewTracerProvider().Tracer("test"), nil, discardLogger())
	h := NewWorkloadHandler(svc, "service-c", discardLogger())

	r := chi.NewRouter()
	r.Get("/api/hello", h.Hello)
	r.Get("/api/compute/primes/{limit}", h.Primes)
	r.Get("/api/compute/hash/{iterations}", h.Hash)
	r.Get("/api/memory/allocate/{sizeMb}", h.Allocate)
	r.Get("/api/memory/process/{itemCount}", h.Process)
	r.Get("/api/slow/database/{delayMs}", h.SlowQuery)
	r.Get("/api/simulate/error", h.SimulateError)
	return r
}

func TestHandler_Health(t *testing.T) {
	h := New("service-b")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	body := decode(t, rec)
	if body["status"] != "UP" || body["service"] != "service-b" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHandler_NotFound(t *testing.T) {
	h := New("service-a")

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}

	body := decode(t, rec)
	if body["error"] != "resource not found" || body["service"] != "service-a" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := New("service-a")

	req := httptest.NewRequest(http.MethodPost, "/api/hello", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}

	if body := decode(t, rec); body["error"] != "method not allowed" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestWriteFault_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fault.Validation("bad id"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fault.NotFound("User not found"), http.StatusNotFound, "NOT_FOUND"},
		{fault.New(fault.KindDownstream, "service-b unavailable"), http.StatusBadGateway, "DOWNSTREAM_ERROR"},
		{fault.New(fault.KindSimulatedRuntime, "boom"), http.StatusInternalServerError, "SIMULATED_RUNTIME_ERROR"},
		{fault.New(fault.KindSimulatedState, "state"), http.StatusConflict, "SIMULATED_STATE_ERROR"},
		{errors.New("plain"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		writeFault(rec, req, discardLogger(), "service-a", tc.err)

		if rec.Code != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}
		body := decode(t, rec)
		if body["code"] != tc.code || body["service"] != "service-a" || body["timestamp"] == nil {
			t.Errorf("%v: unexpected body %v", tc.err, body)
		}
	}
}

func TestWriteFault_DownstreamBodyNested(t *testing.T) {
	f := fault.New(fault.KindDownstream, "service-c request failed").
		With("downstreamStatus", 404).
		With("downstream", json.RawMessage(`{"service":"service-c","error":"User not found"}`))

	rec := httptest.NewRecorder()
	writeFault(rec, httptest.NewRequest(http.MethodGet, "/", nil), discardLogger(), "service-b", f)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["downstreamStatus"] != float64(404) {
		t.Fatalf("unexpected downstreamStatus %v", body["downstreamStatus"])
	}
	inner, ok := body["downstream"].(map[string]any)
	if !ok || inner["service"] != "service-c" || body["service"] != "service-b" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWorkloadHandler_Endpoints(t *testing.T) {
	router := newWorkloadRouter(fixedRand(2))

	cases := []struct {
		path   string
		status int
		check  func(map[string]any) bool
	}{
		{"/api/hello", 200, func(b map[string]any) bool { return b["message"] == "Hello from Service C" }},
		{"/api/compute/primes/10", 200, func(b map[string]any) bool { return b["primesFound"] == float64(4) }},
		{"/api/compute/primes/abc", 400, func(b map[string]any) bool { return b["limit"] == "abc" }},
		{"/api/compute/primes/-1", 400, nil},
		{"/api/compute/hash/0", 200, func(b map[string]any) bool { return len(b["finalHash"].(string)) == 32 }},
		{"/api/memory/allocate/2", 200, func(b map[string]any) bool { return b["chunksCreated"] == float64(2) }},
		{"/api/memory/allocate/9", 400, nil},
		{"/api/memory/process/100", 200, func(b map[string]any) bool { return b["matchedItems"] == float64(100) }},
		{"/api/slow/database/5", 200, func(b map[string]any) bool { return b["resultCount"] == float64(3) }},
		{"/api/simulate/error", 200, func(b map[string]any) bool { return b["error"] == service.SoftErrorMessage }},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Errorf("%s: expected status %d, got %d (%s)", tc.path, tc.status, rec.Code, rec.Body.String())
			continue
		}
		body := decode(t, rec)
		if body["service"] != "service-c" {
			t.Errorf("%s: expected service-c, got %v", tc.path, body["service"])
		}
		if tc.check != nil && !tc.check(body) {
			t.Errorf("%s: unexpected body %v", tc.path, body)
		}
	}
}

func TestWorkloadHandler_SimulatedFaults(t *testing.T) {
	for roll, status := range map[int]int{0: http.StatusInternalServerError, 1: http.StatusConflict} {
		router := newWorkloadRouter(fixedRand(roll))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/simulate/error", nil))

		if rec.Code != status {
			t.Errorf("roll %d: expected %d, got %d", roll, status, rec.Code)
		}
	}
}

func newDataRouter() http.Handler {
	svc := service.NewDataService("service-c", repository.NewMemory(), nil, metrics.NewNoop(), discardLogger())
	h := NewDataHandler(svc, "service-c", discardLogger())

	r := chi.NewRouter()
	r.Get("/api/data/user/{id}", h.GetUser)
	r.Get("/api/data/user/{id}/orders", h.ListUserOrders)
	r.Get("/api/data/order/{id}", h.GetOrder)
	r.Post("/api/data/user", h.CreateUser)
	r.Post("/api/data/order", h.CreateOrder)
	r.Get("/api/data/users", h.ListUsers)
	r.Get("/api/data/orders", h.ListOrders)
	return r
}

func TestDataHandler_CreateAndRead(t *testing.T) {
	router := newDataRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data/user",
		strings.NewReader(`{"username":"ada","email":"ada@example.com"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)
	if created["userId"] != float64(1) || created["status"] != "active" {
		t.Fatalf("unexpected body %v", created)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data/order",
		strings.NewReader(`{"orderNumber":"ORD-1","userId":1,"amount":"10.50"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data/order/1", nil))
	order := decode(t, rec)
	if rec.Code != http.StatusOK || order["amount"] != "10.5" || order["items"] != float64(1) {
		t.Fatalf("unexpected order %d %v", rec.Code, order)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data/user/1/orders", nil))
	if body := decode(t, rec); body["count"] != float64(1) {
		t.Fatalf("unexpected list %v", body)
	}

	for _, path := range []string{"/api/data/users", "/api/data/orders"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if body := decode(t, rec); rec.Code != http.StatusOK || body["count"] != float64(1) {
			t.Fatalf("%s: unexpected %d %v", path, rec.Code, body)
		}
	}
}

func TestDataHandler_Faults(t *testing.T) {
	router := newDataRouter()

	cases := []struct {
		method string
		path   string
		body   string
		status int
		errMsg string
	}{
		{http.MethodGet, "/api/data/user/abc", "", 400, "Invalid userId format"},
		{http.MethodGet, "/api/data/user/999999", "", 404, "User not found"},
		{http.MethodGet, "/api/data/order/999999", "", 404, "Order not found"},
		{http.MethodPost, "/api/data/user", `{"username":"ada"}`, 400, "Username and email are required"},
		{http.MethodPost, "/api/data/order", `{"orderNumber":"A"}`, 400, "orderNumber, userId, and amount are required"},
		{http.MethodPost, "/api/data/user", `[1,2]`, 400, "Request body must be a JSON object"},
		{http.MethodPost, "/api/data/user", `{`, 400, "Request body must be a JSON object"},
	}

	for _, tc := range cases {
		var body io.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, body))

		if rec.Code != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
			continue
		}
		if got := decode(t, rec); got["error"] != tc.errMsg || got["service"] != "service-c" {
			t.Errorf("%s %s: unexpected body %v", tc.method, tc.path, got)
		}
	}
}

func TestForwardHandler_PropagatesDownstreamFault(t *testing.T) {
	next := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"service":"service-c","error":"User not found","userId":"5"}`))
	}))
	defer next.Close()

	svc := service.NewForwardService(service.ForwardProfile{
		Service:    "service-b",
		BaseURL:    next.URL,
		PathPrefix: "/api/data",
		NestField:  "dataFromServiceC",
		Processed:  true,
	}, getterFunc(func(url string) (json.RawMessage, error) {
		resp, err := http.Get(url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			return nil, fault.New(fault.KindDownstream, "service-c request failed").
				With("downstreamStatus", resp.StatusCode).
				With("downstream", json.RawMessage(raw))
		}
		return raw, nil
	}), nil, discardLogger())

	h := NewForwardHandler(svc, "service-b", discardLogger())
	r := chi.NewRouter()
	r.Get("/api/user/{id}", h.User)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/5", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["service"] != "service-b" || body["downstreamStatus"] != float64(404) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(reg, "service-a")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec.ObserveWorkload(service.OpPrimes, 10*time.Millisecond)

	out := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if out.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", out.Code)
	}
	if !strings.Contains(out.Body.String(), `workload_duration_seconds_count{operation="prime-calculation",service="service-a"} 1`) {
		t.Fatalf("expected workload series, got:\n%s", out.Body.String())
	}
}

type getterFunc func(url string) (json.RawMessage, error)

func (f getterFunc) Get(_ context.Context, url string) (json.RawMessage, error) {
	return f(url)
}
