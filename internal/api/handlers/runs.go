package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/settlement-reconciler/internal/api/dto"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

// RunsHandler handles reconciliation run HTTP requests.
type RunsHandler struct {
	*Base
	service *service.ReconcileService
}

// NewRunsHandler creates a new runs handler.
// If svc is nil, Create is unavailable and the handler is read-only.
func NewRunsHandler(repo storage.Repository, svc *service.ReconcileService) *RunsHandler {
	return &RunsHandler{
		Base:    NewBase(repo),
		service: svc,
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", dto.DefaultRunListParams().Limit)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, dto.NewRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a run with its report and
// committed associations.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	associations, err := h.repo.ListAssociations(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.NewRunResponse(*run)
	response.Associations = associations
	h.WriteJSON(w, http.StatusOK, response)
}

// Create handles POST /api/runs - reconciles a category's stored records.
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.RunRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	if req.Category == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("category is required"))
		return
	}

	opts := req.Options.Apply(h.service.Defaults())
	result, err := h.service.Reconcile(r.Context(), service.RunRequest{
		Category: req.Category,
		Commit:   req.Commit,
		Options:  &opts,
	})
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, dto.RunResultResponse{
		RunID:     result.RunID,
		Category:  result.Category,
		Committed: result.Committed,
		Report:    result.Report,
	})
}
