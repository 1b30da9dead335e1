package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// StartRun records the start of a run
func (s *Storage) StartRun(runID, category string, opts reconcile.Options) error {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reconciliation_runs (id, category, status, options_json, started_at)
		VALUES (?, ?, 'running', ?, ?)
	`

	_, err = s.db.Exec(query, runID, category, string(optsJSON), now())
	return err
}

// CompleteRun stores the report of a finished run
func (s *Storage) CompleteRun(runID string, report *reconcile.Report, committed bool) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}

	query := `
		UPDATE reconciliation_runs
		SET status = 'completed',
		    completed_at = ?,
		    committed = ?,
		    exact_count = ?,
		    combined_count = ?,
		    matched_minor = ?,
		    currency = ?,
		    unmatched_sources = ?,
		    unmatched_targets = ?,
		    skipped_count = ?,
		    invalid_count = ?,
		    flagged_count = ?,
		    report_json = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		now(),
		committed,
		report.Stats.ExactCount,
		report.Stats.CombinedCount,
		report.Stats.TotalMatchedAmount.Minor,
		report.Stats.TotalMatchedAmount.Currency,
		len(report.UnmatchedSources),
		len(report.UnmatchedTargets),
		report.SkippedCount(),
		len(report.Stats.InvalidRecords),
		len(report.Stats.Flags),
		string(reportJSON),
		runID,
	)
	if err != nil {
		return err
	}
	return expectOne(result, runID)
}

// FailRun marks a run as failed
func (s *Storage) FailRun(runID string, message string) error {
	query := `
		UPDATE reconciliation_runs
		SET status = 'failed', completed_at = ?, error_message = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query, now(), message, runID)
	if err != nil {
		return err
	}
	return expectOne(result, runID)
}

const runColumns = `
	id, category, status, options_json, started_at, COALESCE(completed_at, ''), committed,
	exact_count, combined_count, matched_minor, currency, unmatched_sources,
	unmatched_targets, skipped_count, invalid_count, flagged_count, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		optsJSON string
	)
	err := row.Scan(
		&run.ID,
		&run.Category,
		&run.Status,
		&optsJSON,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Committed,
		&run.ExactCount,
		&run.CombinedCount,
		&run.MatchedMinor,
		&run.Currency,
		&run.UnmatchedSources,
		&run.UnmatchedTargets,
		&run.SkippedCount,
		&run.InvalidCount,
		&run.FlaggedCount,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(optsJSON), &run.Options); err != nil {
		return nil, fmt.Errorf("run %s has unreadable options: %w", run.ID, err)
	}
	return &run, nil
}

// ListRuns returns recent runs, newest first
func (s *Storage) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + `
		FROM reconciliation_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun retrieves a run and its report by ID
func (s *Storage) GetRun(runID string) (*Run, error) {
	query := `SELECT ` + runColumns + `, report_json
		FROM reconciliation_runs
		WHERE id = ?
	`

	var reportJSON sql.NullString
	row := s.db.QueryRow(query, runID)
	run, err := scanRun(scanFunc(func(dest ...any) error {
		return row.Scan(append(dest, &reportJSON)...)
	}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if reportJSON.Valid && reportJSON.String != "" {
		var report reconcile.Report
		if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
			return nil, fmt.Errorf("run %s has unreadable report: %w", runID, err)
		}
		run.Report = &report
	}
	return run, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error {
	return f(dest...)
}

// CommitReport applies a report in a single transaction. Every target must
// still be open and every source still spendable; otherwise the whole commit
// is rolled back with ErrCommitConflict.
func (s *Storage) CommitReport(runID, category string, report *reconcile.Report) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, a := range report.Associations {
			result, err := tx.Exec(`
				UPDATE targets SET settled = 1, updated_at = ?
				WHERE category = ? AND id = ? AND settled = 0
			`, now(), category, a.TargetID)
			if err != nil {
				return err
			}
			if n, _ := result.RowsAffected(); n != 1 {
				return fmt.Errorf("%w: target %s", ErrCommitConflict, a.TargetID)
			}

			result, err = tx.Exec(`
				INSERT INTO associations (run_id, category, target_id, matched_minor, currency, kind, confidence)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, runID, category, a.TargetID, a.MatchedAmount.Minor, a.MatchedAmount.Currency, string(a.Kind), string(a.Confidence))
			if err != nil {
				return fmt.Errorf("failed to store association for target %s: %w", a.TargetID, err)
			}
			assocID, err := result.LastInsertId()
			if err != nil {
				return err
			}

			for i, sourceID := range a.SourceIDs {
				result, err := tx.Exec(`
					UPDATE sources SET state = 'consumed', updated_at = ?
					WHERE category = ? AND id = ? AND state NOT IN ('consumed', 'void')
				`, now(), category, sourceID)
				if err != nil {
					return err
				}
				if n, _ := result.RowsAffected(); n != 1 {
					return fmt.Errorf("%w: source %s", ErrCommitConflict, sourceID)
				}

				_, err = tx.Exec(`
					INSERT INTO association_sources (association_id, category, source_id, position)
					VALUES (?, ?, ?, ?)
				`, assocID, category, sourceID, i)
				if err != nil {
					return fmt.Errorf("failed to link source %s: %w", sourceID, err)
				}
			}
		}
		return nil
	})
}

// ListAssociations returns the associations committed by a run
func (s *Storage) ListAssociations(runID string) ([]records.Association, error) {
	query := `
		SELECT a.id, a.target_id, a.matched_minor, a.currency, a.kind, a.confidence, s.source_id
		FROM associations a
		JOIN association_sources s ON s.association_id = a.id
		WHERE a.run_id = ?
		ORDER BY a.id, s.position
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]records.Association, 0)
	lastID := int64(-1)
	for rows.Next() {
		var (
			id                           int64
			targetID, currency, sourceID string
			kind, confidence             string
			minor                        int64
		)
		if err := rows.Scan(&id, &targetID, &minor, &currency, &kind, &confidence, &sourceID); err != nil {
			return nil, err
		}
		if id != lastID {
			out = append(out, records.Association{
				TargetID:      targetID,
				MatchedAmount: money.New(minor, currency),
				Kind:          records.Kind(kind),
				Confidence:    records.Confidence(confidence),
			})
			lastID = id
		}
		last := &out[len(out)-1]
		last.SourceIDs = append(last.SourceIDs, sourceID)
	}

	return out, rows.Err()
}

func expectOne(result sql.Result, runID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}
