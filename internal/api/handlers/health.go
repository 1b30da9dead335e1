package handlers

import (
	"net/http"

	"github.com/eshaffer321/settlement-reconciler/internal/api/dto"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

// HealthHandler reports whether the run store answers, along with the
// archive and read-only modes.
type HealthHandler struct {
	*Base
	service *service.ReconcileService
}

// NewHealthHandler creates a new health handler. svc is nil on a
// read-only server.
func NewHealthHandler(repo storage.Repository, svc *service.ReconcileService) *HealthHandler {
	return &HealthHandler{
		Base:    NewBase(repo),
		service: svc,
	}
}

// ServeHTTP handles GET /health. A store that cannot be read answers 503 so
// load balancers take the instance out of rotation.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := dto.NewHealthResponse(dto.HealthOK)
	resp.Storage = "ok"
	resp.Archive = "disabled"
	resp.ReadOnly = h.service == nil
	if h.service != nil && h.service.Archiving() {
		resp.Archive = "enabled"
	}

	if _, err := h.repo.ListRuns(1); err != nil {
		resp.Status = dto.HealthDegraded
		resp.Storage = "unavailable"
		resp.Error = err.Error()
		h.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
