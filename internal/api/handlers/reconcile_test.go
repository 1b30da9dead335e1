package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/settlement-reconciler/internal/api/dto"
	"github.com/eshaffer321/settlement-reconciler/internal/api/handlers"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

func TestReconcileHandler_Preview(t *testing.T) {
	t.Run("returns report for posted records", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewReconcileHandler(newService(repo))

		body := dto.PreviewRequest{
			Sources: []dto.SourceRecord{
				{ID: "s1", Counterparty: "Rossi", Amount: "500", Currency: "EUR"},
				{ID: "s2", Counterparty: "Rossi", Amount: "1000", Currency: "EUR"},
				{ID: "s3", Counterparty: "Rossi", Amount: "20", Currency: "EUR", State: "void"},
			},
			Targets: []dto.TargetRecord{
				{ID: "t1", Counterparty: "rossi", Amount: "1500.00", Currency: "EUR", DueDate: "2024-06-30"},
			},
		}
		rec := httptest.NewRecorder()
		handler.Preview(rec, jsonRequest(t, http.MethodPost, "/api/reconcile/preview", body))

		require.Equal(t, http.StatusOK, rec.Code)

		var report reconcile.Report
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))

		require.Len(t, report.Associations, 1)
		assert.Equal(t, records.KindCombined, report.Associations[0].Kind)
		assert.Equal(t, []string{"s1", "s2"}, report.Associations[0].SourceIDs)
		assert.Equal(t, []string{"s3"}, report.Stats.SkippedVoid)
		assert.False(t, repo.StartRunCalled, "preview must not touch storage")
	})

	t.Run("unknown state is reported, not rejected", func(t *testing.T) {
		handler := handlers.NewReconcileHandler(newService(storage.NewMockRepository()))

		body := dto.PreviewRequest{
			Sources: []dto.SourceRecord{{ID: "s1", Counterparty: "Rossi", Amount: "5", Currency: "EUR", State: "stolen"}},
		}
		rec := httptest.NewRecorder()
		handler.Preview(rec, jsonRequest(t, http.MethodPost, "/api/reconcile/preview", body))

		require.Equal(t, http.StatusOK, rec.Code)

		var report reconcile.Report
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		require.Len(t, report.Stats.InvalidRecords, 1)
		assert.Equal(t, reconcile.ReasonUnknownState, report.Stats.InvalidRecords[0].Reason)
	})

	t.Run("unparseable records are reported, the rest still matched", func(t *testing.T) {
		handler := handlers.NewReconcileHandler(newService(storage.NewMockRepository()))

		body := dto.PreviewRequest{
			Sources: []dto.SourceRecord{
				{ID: "s1", Counterparty: "Rossi", Amount: "150", Currency: "EUR"},
				{ID: "s2", Counterparty: "Rossi", Amount: "1O0", Currency: "EUR"},
				{ID: "s3", Counterparty: "Rossi", Amount: "75", Currency: "EUR", IssuedDate: "01/02/2024"},
			},
			Targets: []dto.TargetRecord{
				{ID: "t1", Counterparty: "Rossi", Amount: "150", Currency: "EUR"},
				{ID: "t2", Counterparty: "Rossi", Amount: "12.345", Currency: "EUR"},
			},
		}
		rec := httptest.NewRecorder()
		handler.Preview(rec, jsonRequest(t, http.MethodPost, "/api/reconcile/preview", body))

		require.Equal(t, http.StatusOK, rec.Code)

		var report reconcile.Report
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))

		require.Len(t, report.Associations, 1)
		assert.Equal(t, "t1", report.Associations[0].TargetID)
		assert.Equal(t, []string{"s1"}, report.Associations[0].SourceIDs)
		assert.Empty(t, report.UnmatchedSources)
		assert.Empty(t, report.UnmatchedTargets)

		require.Len(t, report.Stats.InvalidRecords, 3)
		got := make([]string, 0, 3)
		for _, inv := range report.Stats.InvalidRecords {
			assert.Equal(t, reconcile.ReasonUnparseable, inv.Reason)
			got = append(got, string(inv.Side)+":"+inv.ID)
		}
		assert.Equal(t, []string{"source:s2", "source:s3", "target:t2"}, got)
		assert.Contains(t, report.Stats.InvalidRecords[1].Detail, "sources[2]")
		assert.Contains(t, report.Stats.InvalidRecords[2].Detail, "targets[1]")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		handler := handlers.NewReconcileHandler(newService(storage.NewMockRepository()))

		req := httptest.NewRequest(http.MethodPost, "/api/reconcile/preview", nil)
		rec := httptest.NewRecorder()
		handler.Preview(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
