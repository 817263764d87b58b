package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tracechain/tracechain/internal/fault"
	"github.com/tracechain/tracechain/internal/model"
	"github.com/tracechain/tracechain/internal/service"
)

// DataHandler serves the record endpoints of the data tier.
type DataHandler struct {
	svc     *service.DataService
	service string
	logger  *slog.Logger
}

// NewDataHandler creates a new DataHandler.
func NewDataHandler(svc *service.DataService, serviceName string, logger *slog.Logger) *DataHandler {
	return &DataHandler{svc: svc, service: serviceName, logger: logger}
}

// GetUser handles GET /api/data/user/{id}.
func (h *DataHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, env, err)
}

// GetOrder handles GET /api/data/order/{id}.
func (h *DataHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, env, err)
}

// CreateUser handles POST /api/data/user.
func (h *DataHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}
	env, err := h.svc.CreateUser(r.Context(), fields)
	h.respond(w, r, http.StatusCreated, env, err)
}

// CreateOrder handles POST /api/data/order.
func (h *DataHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(r)
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}
	env, err := h.svc.CreateOrder(r.Context(), fields)
	h.respond(w, r, http.StatusCreated, env, err)
}

// ListUsers handles GET /api/data/users.
func (h *DataHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.ListUsers(r.Context())
	h.respond(w, r, http.StatusOK, env, err)
}

// ListOrders handles GET /api/data/orders.
func (h *DataHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.ListOrders(r.Context())
	h.respond(w, r, http.StatusOK, env, err)
}

// ListUserOrders handles GET /api/data/user/{id}/orders.
func (h *DataHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	env, err := h.svc.ListOrdersByUser(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, env, err)
}

func (h *DataHandler) respond(w http.ResponseWriter, r *http.Request, status int, env model.Envelope, err error) {
	if err != nil {
		writeFault(w, r, h.logger, h.service, err)
		return
	}
	writeJSON(w, status, env)
}

// decodeFields reads a JSON object body, keeping numbers as json.Number.
func decodeFields(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fault.Validation("Request body too large")
		}
		return nil, fault.Validation("Request body must be a JSON object")
	}
	if fields == nil {
		return nil, fault.Validation("Request body must be a JSON object")
	}
	return fields, nil
}
