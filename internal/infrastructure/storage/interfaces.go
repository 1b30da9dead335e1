package storage

import (
	"errors"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCommitConflict is returned when a report touches a record that was
	// consumed or settled after the run read it. Nothing is written.
	ErrCommitConflict = errors.New("commit conflict: record already consumed or settled")
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	RecordRepository
	RunRepository
	Close() error
}

// RecordRepository stores the Sources and Targets of each category
// ("checks", "f24", ...).
type RecordRepository interface {
	// SaveSources inserts or updates sources. A stored consumed source stays consumed.
	SaveSources(category string, sources []records.Source) error

	// SaveTargets inserts or updates targets. A stored settled target stays settled.
	SaveTargets(category string, targets []records.Target) error

	// ListSources returns every source of a category ordered by id
	ListSources(category string) ([]records.Source, error)

	// ListTargets returns every target of a category ordered by id
	ListTargets(category string) ([]records.Target, error)

	// CountRecords returns open and closed record counts for a category
	CountRecords(category string) (*RecordCounts, error)
}

// RunRepository tracks reconciliation runs and commits their results.
type RunRepository interface {
	// StartRun records the start of a run
	StartRun(runID, category string, opts reconcile.Options) error

	// CompleteRun stores the report of a finished run
	CompleteRun(runID string, report *reconcile.Report, committed bool) error

	// FailRun marks a run as failed
	FailRun(runID string, message string) error

	// ListRuns returns recent runs, newest first, without their reports
	ListRuns(limit int) ([]Run, error)

	// GetRun retrieves a run and its report by ID
	GetRun(runID string) (*Run, error)

	// CommitReport applies a report's associations in a single transaction:
	// it stores them, consumes their sources and settles their targets.
	CommitReport(runID, category string, report *reconcile.Report) error

	// ListAssociations returns the associations committed by a run
	ListAssociations(runID string) ([]records.Association, error)
}
