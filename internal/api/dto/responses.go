package dto

import (
	"time"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

// Health statuses
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthResponse is returned by the health check endpoint. Status is
// "degraded" when the run store cannot be read.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Storage   string `json:"storage"`
	Archive   string `json:"archive"`
	ReadOnly  bool   `json:"read_only"`
	Error     string `json:"error,omitempty"`
}

// RunResponse represents a reconciliation run in API responses.
type RunResponse struct {
	ID               string            `json:"id"`
	Category         string            `json:"category"`
	Status           string            `json:"status"`
	Options          reconcile.Options `json:"options"`
	StartedAt        string            `json:"started_at"`
	CompletedAt      string            `json:"completed_at,omitempty"`
	Committed        bool              `json:"committed"`
	ExactCount       int               `json:"exact_count"`
	CombinedCount    int               `json:"combined_count"`
	MatchedAmount    string            `json:"matched_amount,omitempty"`
	UnmatchedSources int               `json:"unmatched_sources"`
	UnmatchedTargets int               `json:"unmatched_targets"`
	SkippedCount     int               `json:"skipped_count"`
	InvalidCount     int               `json:"invalid_count"`
	FlaggedCount     int               `json:"flagged_count"`
	ErrorMessage     string            `json:"error_message,omitempty"`

	// Only set for single-run lookups
	Report       *reconcile.Report     `json:"report,omitempty"`
	Associations []records.Association `json:"associations,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// RunResultResponse is returned when a run is executed.
type RunResultResponse struct {
	RunID     string            `json:"run_id"`
	Category  string            `json:"category"`
	Committed bool              `json:"committed"`
	Report    *reconcile.Report `json:"report"`
}

// ImportResponse is returned after records are imported.
type ImportResponse struct {
	Category string `json:"category"`
	Imported int    `json:"imported"`

	// InvalidRecords lists posted records that were not stored
	InvalidRecords []reconcile.InvalidRecord `json:"invalid_records"`
}

// RecordCountsResponse reports the state of a category's records.
type RecordCountsResponse struct {
	Category        string `json:"category"`
	OpenSources     int    `json:"open_sources"`
	ConsumedSources int    `json:"consumed_sources"`
	VoidSources     int    `json:"void_sources"`
	OpenTargets     int    `json:"open_targets"`
	SettledTargets  int    `json:"settled_targets"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewImportResponse reports an import. rejected may be nil.
func NewImportResponse(category string, imported int, rejected []reconcile.InvalidRecord) ImportResponse {
	if rejected == nil {
		rejected = make([]reconcile.InvalidRecord, 0)
	}
	return ImportResponse{
		Category:       category,
		Imported:       imported,
		InvalidRecords: rejected,
	}
}

// NewRunResponse converts a stored run.
func NewRunResponse(run storage.Run) RunResponse {
	resp := RunResponse{
		ID:               run.ID,
		Category:         run.Category,
		Status:           run.Status,
		Options:          run.Options,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
		Committed:        run.Committed,
		ExactCount:       run.ExactCount,
		CombinedCount:    run.CombinedCount,
		UnmatchedSources: run.UnmatchedSources,
		UnmatchedTargets: run.UnmatchedTargets,
		SkippedCount:     run.SkippedCount,
		InvalidCount:     run.InvalidCount,
		FlaggedCount:     run.FlaggedCount,
		ErrorMessage:     run.ErrorMessage,
		Report:           run.Report,
	}
	if run.Currency != "" {
		resp.MatchedAmount = money.New(run.MatchedMinor, run.Currency).String()
	}
	return resp
}

// NewRecordCountsResponse converts stored counts.
func NewRecordCountsResponse(c storage.RecordCounts) RecordCountsResponse {
	return RecordCountsResponse{
		Category:        c.Category,
		OpenSources:     c.OpenSources,
		ConsumedSources: c.ConsumedSources,
		VoidSources:     c.VoidSources,
		OpenTargets:     c.OpenTargets,
		SettledTargets:  c.SettledTargets,
	}
}
