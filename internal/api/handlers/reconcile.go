package handlers

import (
	"net/http"

	"github.com/eshaffer321/settlement-reconciler/internal/api/dto"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
)

// ReconcileHandler runs reconciliations over records posted in the request.
type ReconcileHandler struct {
	*Base
	service *service.ReconcileService
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(svc *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{
		Base:    &Base{},
		service: svc,
	}
}

// Preview handles POST /api/reconcile/preview - returns the report for the
// posted records without storing anything. Records with an unreadable amount
// or date are listed among the report's invalid records.
func (h *ReconcileHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req dto.PreviewRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	sources, badSources := dto.ToSources(req.Sources)
	targets, badTargets := dto.ToTargets(req.Targets)

	opts := req.Options.Apply(h.service.Defaults())
	report, err := h.service.Preview(sources, targets, &opts)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	report.AddInvalid(badSources...)
	report.AddInvalid(badTargets...)

	h.WriteJSON(w, http.StatusOK, report)
}
