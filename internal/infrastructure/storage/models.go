package storage

import (
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a reconciliation run record
type Run struct {
	ID               string            `json:"id"`
	Category         string            `json:"category"`
	Status           string            `json:"status"`
	Options          reconcile.Options `json:"options"`
	StartedAt        string            `json:"started_at"`
	CompletedAt      string            `json:"completed_at,omitempty"`
	Committed        bool              `json:"committed"`
	ExactCount       int               `json:"exact_count"`
	CombinedCount    int               `json:"combined_count"`
	MatchedMinor     int64             `json:"matched_minor"`
	Currency         string            `json:"currency,omitempty"`
	UnmatchedSources int               `json:"unmatched_sources"`
	UnmatchedTargets int               `json:"unmatched_targets"`
	SkippedCount     int               `json:"skipped_count"`
	InvalidCount     int               `json:"invalid_count"`
	FlaggedCount     int               `json:"flagged_count"`
	ErrorMessage     string            `json:"error_message,omitempty"`

	// Report is only loaded by GetRun
	Report *reconcile.Report `json:"report,omitempty"`
}

// RecordCounts contains per-category record counts
type RecordCounts struct {
	Category        string `json:"category"`
	OpenSources     int    `json:"open_sources"`
	ConsumedSources int    `json:"consumed_sources"`
	VoidSources     int    `json:"void_sources"`
	OpenTargets     int    `json:"open_targets"`
	SettledTargets  int    `json:"settled_targets"`
}
