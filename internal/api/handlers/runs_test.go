package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/settlement-reconciler/internal/api/dto"
	"github.com/eshaffer321/settlement-reconciler/internal/api/handlers"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

func seedRepo(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	require.NoError(t, repo.SaveSources("checks", []records.Source{
		{ID: "A1", Counterparty: "Acme", Amount: money.New(10000, "EUR"), State: records.StateIssued},
		{ID: "A2", Counterparty: "Rossi", Amount: money.New(5000, "EUR"), State: records.StateIssued},
	}))
	require.NoError(t, repo.SaveTargets("checks", []records.Target{
		{ID: "F1", Counterparty: "ACME S.p.A.", Amount: money.New(10000, "EUR")},
		{ID: "F2", Counterparty: "Verdi", Amount: money.New(700, "EUR")},
	}))
}

func TestRunsHandler_List(t *testing.T) {
	t.Run("returns empty list when no runs", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Empty(t, response.Runs)
		assert.Equal(t, 0, response.Count)
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		repo := storage.NewMockRepository()
		for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
			require.NoError(t, repo.StartRun(id, "checks", reconcile.DefaultOptions()))
		}
		handler := handlers.NewRunsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=3", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		require.Len(t, response.Runs, 3)
		assert.Equal(t, "r5", response.Runs[0].ID)
		assert.Equal(t, storage.RunStatusRunning, response.Runs[0].Status)
	})
}

func TestRunsHandler_Get(t *testing.T) {
	t.Run("returns run with report and associations", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedRepo(t, repo)
		svc := newService(repo)

		result, err := svc.Reconcile(context.Background(), service.RunRequest{Category: "checks", Commit: true})
		require.NoError(t, err)

		handler := handlers.NewRunsHandler(repo, svc)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+result.RunID, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", result.RunID))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunResponse
		err = json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, result.RunID, response.ID)
		assert.Equal(t, "checks", response.Category)
		assert.Equal(t, storage.RunStatusCompleted, response.Status)
		assert.True(t, response.Committed)
		assert.Equal(t, 1, response.ExactCount)
		assert.Equal(t, "100.00 EUR", response.MatchedAmount)
		require.Len(t, response.Associations, 1)
		assert.Equal(t, "F1", response.Associations[0].TargetID)
		require.NotNil(t, response.Report)
		assert.Equal(t, []string{"F2"}, response.Report.UnmatchedTargets)
	})

	t.Run("returns 404 for non-existent run", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "missing"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var response dto.APIError
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.Equal(t, dto.ErrCodeNotFound, response.Code)
	})
}

func TestRunsHandler_Create(t *testing.T) {
	t.Run("runs and commits", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedRepo(t, repo)
		handler := handlers.NewRunsHandler(repo, newService(repo))

		rec := httptest.NewRecorder()
		handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/runs", dto.RunRequest{Category: "checks", Commit: true}))

		assert.Equal(t, http.StatusCreated, rec.Code)

		var response dto.RunResultResponse
		err := json.NewDecoder(rec.Body).Decode(&response)
		require.NoError(t, err)

		assert.NotEmpty(t, response.RunID)
		assert.True(t, response.Committed)
		require.Len(t, response.Report.Associations, 1)

		counts, err := repo.CountRecords("checks")
		require.NoError(t, err)
		assert.Equal(t, 1, counts.SettledTargets)
	})

	t.Run("applies option overrides", func(t *testing.T) {
		repo := storage.NewMockRepository()
		require.NoError(t, repo.SaveSources("checks", []records.Source{
			{ID: "A1", Counterparty: "Acme", Amount: money.New(9990, "EUR"), State: records.StateIssued},
		}))
		require.NoError(t, repo.SaveTargets("checks", []records.Target{
			{ID: "F1", Counterparty: "Acme", Amount: money.New(10000, "EUR")},
		}))
		handler := handlers.NewRunsHandler(repo, newService(repo))

		tolerance := int64(10)
		body := dto.RunRequest{Category: "checks", Options: &dto.OptionsRequest{ToleranceMinorUnits: &tolerance}}
		rec := httptest.NewRecorder()
		handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/runs", body))

		require.Equal(t, http.StatusCreated, rec.Code)

		var response dto.RunResultResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.False(t, response.Committed)
		assert.Len(t, response.Report.Associations, 1)
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo, newService(repo))

		negative := int64(-1)
		body := dto.RunRequest{Category: "checks", Options: &dto.OptionsRequest{ToleranceMinorUnits: &negative}}
		rec := httptest.NewRecorder()
		handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/runs", body))

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var response dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, dto.ErrCodeValidation, response.Code)
	})

	t.Run("rejects missing and malformed categories", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo, newService(repo))

		for _, category := range []string{"", "Bad Category"} {
			rec := httptest.NewRecorder()
			handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/runs", dto.RunRequest{Category: category}))
			assert.Equal(t, http.StatusBadRequest, rec.Code, category)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo, newService(repo))

		req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{"category":"checks","dry_run":true}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps commit conflicts to 409", func(t *testing.T) {
		repo := storage.NewMockRepository()
		seedRepo(t, repo)
		repo.CommitReportErr = storage.ErrCommitConflict
		handler := handlers.NewRunsHandler(repo, newService(repo))

		rec := httptest.NewRecorder()
		handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/runs", dto.RunRequest{Category: "checks", Commit: true}))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("hides storage failures", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.ListSourcesErr = assert.AnError
		handler := handlers.NewRunsHandler(repo, newService(repo))

		rec := httptest.NewRecorder()
		handler.Create(rec, jsonRequest(t, http.MethodPost, "/api/runs", dto.RunRequest{Category: "checks"}))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})
}
