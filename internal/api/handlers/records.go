package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/settlement-reconciler/internal/api/dto"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

// RecordsHandler handles imports and record counts per category.
type RecordsHandler struct {
	*Base
	service *service.ReconcileService
}

// NewRecordsHandler creates a new records handler.
// If svc is nil, imports are unavailable.
func NewRecordsHandler(repo storage.Repository, svc *service.ReconcileService) *RecordsHandler {
	return &RecordsHandler{
		Base:    NewBase(repo),
		service: svc,
	}
}

// Counts handles GET /api/records/{category}.
func (h *RecordsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if err := service.ValidateCategory(category); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	counts, err := h.repo.CountRecords(category)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewRecordCountsResponse(*counts))
}

// ImportSources handles POST /api/records/{category}/sources. Records that
// cannot be read are skipped and listed in the response.
func (h *RecordsHandler) ImportSources(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var req dto.ImportSourcesRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	sources, rejected := dto.ToSources(req.Sources)
	if err := service.ValidateCategory(category); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	if len(sources) > 0 {
		if err := h.service.ImportSources(category, sources); err != nil {
			h.WriteServiceError(w, err)
			return
		}
	}

	h.WriteJSON(w, http.StatusOK, dto.NewImportResponse(category, len(sources), rejected))
}

// ImportTargets handles POST /api/records/{category}/targets.
func (h *RecordsHandler) ImportTargets(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var req dto.ImportTargetsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	targets, rejected := dto.ToTargets(req.Targets)
	if err := service.ValidateCategory(category); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	if len(targets) > 0 {
		if err := h.service.ImportTargets(category, targets); err != nil {
			h.WriteServiceError(w, err)
			return
		}
	}

	h.WriteJSON(w, http.StatusOK, dto.NewImportResponse(category, len(targets), rejected))
}
