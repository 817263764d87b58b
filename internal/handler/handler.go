// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/middleware"
	"github.com/tracechain/tracechain/internal/model"
)

// Handler serves the routes shared by every tier outside the workload set.
type Handler struct {
	service string
}

// New creates a new Handler instance.
func New(service string) *Handler {
	return &Handler{service: service}
}

// Health reports the tier as up without checking dependencies.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "UP",
		"service": h.service,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, model.NewEnvelope(h.service).
		Set("error", "resource not found").
		Set("code", fault.KindNotFound.Code()).
		Stamp())
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, model.NewEnvelope(h.service).
		Set("error", "method not allowed").
		Set("code", "METHOD_NOT_ALLOWED").
		Stamp())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeFault converts err to its status and error envelope.
// The body carries the fault's extra fields next to service, error and code.
func writeFault(w http.ResponseWriter, r *http.Request, logger *slog.Logger, service string, err error) {
	f := fault.As(err)
	status := fault.HTTPStatus(f.Kind)

	attrs := []any{
		"request_id", middleware.GetRequestID(r.Context()),
		"trace_id", middleware.GetTraceID(r.Context()),
		"kind", f.Kind.String(),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		logger.WarnContext(r.Context(), "request rejected", attrs...)
	}

	env := model.NewEnvelope(service).Merge(f.Fields)
	env.Set("service", service).
		Set("error", f.Message).
		Set("code", f.Kind.Code())
	writeJSON(w, status, env.Stamp())
}

// intParam reads an integer path parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fault.Validation(name+" must be an integer").With(name, raw)
	}
	return n, nil
}
