package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tracechain/tracechain/internal/model"
	"github.com/tracechain/tracechain/internal/service"
)

// WorkloadHandler serves the load generator endpoints present on every tier.
type WorkloadHandler struct {
	svc     *service.WorkloadService
	service string
	logger  *slog.Logger
}

// NewWorkloadHandler creates a new WorkloadHandler.
func NewWorkloadHandler(svc *service.WorkloadService, serviceName string, logger *slog.Logger) *WorkloadHandler {
	return &WorkloadHandler{svc: svc, service: serviceName, logger: logger}
}

// Hello returns the tier greeting.
// GET /api/hello
func (h *WorkloadHandler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Hello())
}

// Primes handles GET /api/compute/primes/{limit}.
func (h *WorkloadHandler) Primes(w http.ResponseWriter, r *http.Request) {
	h.withInt(w, r, "limit", h.svc.Primes)
}

// Hash handles GET /api/compute/hash/{iterations}.
func (h *WorkloadHandler) Hash(w http.ResponseWriter, r *http.Request) {
	h.withInt(w, r, "iterations", h.svc.Hash)
}

// Allocate handles GET /api/memory/allocate/{sizeMb}.
func (h *WorkloadHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	h.withInt(w, r, "sizeMb", h.svc.Allocate)
}

// Process handles GET /api/memory/process/{itemCount}.
func (h *WorkloadHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.withInt(w, r, "itemCount", h.svc.Process)
}

// SlowQuery handles GET /api/slow/database/{delayMs}.
func (h *WorkloadHandler) SlowQuery(w http.ResponseWriter, r *http.Request) {
	h.withInt(w, r, "delayMs", h.svc.SlowQuery)
}

// SimulateError handles GET /api/simulate/error.
// The soft branch is a 200 whose body carries an error field.
func (h *WorkloadHandler) SimulateError(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.SimulateError(r.Context())
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *WorkloadHandler) withInt(w http.ResponseWriter, r *http.Request, param string, op func(context.Context, int) (model.Envelope, error)) {
	n, err := intParam(r, param)
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}

	env, err := op(r.Context(), n)
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
