package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tracechain/tracechain/internal/model"
	"github.com/tracechain/tracechain/internal/service"
)

// ForwardHandler serves record lookups on tiers that relay to the next tier.
type ForwardHandler struct {
	svc     *service.ForwardService
	service string
	logger  *slog.Logger
}

// NewForwardHandler creates a new ForwardHandler.
func NewForwardHandler(svc *service.ForwardService, serviceName string, logger *slog.Logger) *ForwardHandler {
	return &ForwardHandler{svc: svc, service: serviceName, logger: logger}
}

// User handles GET /api/user/{id}.
func (h *ForwardHandler) User(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, model.KindUser)
}

// Order handles GET /api/order/{id}.
func (h *ForwardHandler) Order(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, model.KindOrder)
}

func (h *ForwardHandler) forward(w http.ResponseWriter, r *http.Request, kind model.ResourceKind) {
	env, err := h.svc.Forward(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}
