package snapshot

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
)

const (
	associationsSheet = "Associations"
	unmatchedSheet    = "Unmatched"
	issuesSheet       = "Issues"
)

// WriteReportXLSX writes a report as a workbook with one sheet for the
// associations, one for unmatched records and one for skipped, invalid and
// flagged records.
func WriteReportXLSX(path string, report *reconcile.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), associationsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{unmatchedSheet, issuesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	assoc := [][]any{{"target_id", "source_ids", "matched_amount", "currency", "kind", "confidence"}}
	for _, a := range report.Associations {
		assoc = append(assoc, []any{
			a.TargetID,
			strings.Join(a.SourceIDs, ";"),
			a.MatchedAmount.Decimal().StringFixed(2),
			a.MatchedAmount.Currency,
			string(a.Kind),
			string(a.Confidence),
		})
	}

	unmatched := [][]any{{"side", "id"}}
	for _, id := range report.UnmatchedSources {
		unmatched = append(unmatched, []any{"source", id})
	}
	for _, id := range report.UnmatchedTargets {
		unmatched = append(unmatched, []any{"target", id})
	}

	issues := [][]any{{"side", "id", "issue"}}
	for _, s := range report.Stats.SkippedAlreadySettled {
		issues = append(issues, []any{string(s.Side), s.ID, "skipped_already_settled"})
	}
	for _, id := range report.Stats.SkippedVoid {
		issues = append(issues, []any{"source", id, "skipped_void"})
	}
	for _, r := range report.Stats.InvalidRecords {
		issues = append(issues, []any{string(r.Side), r.ID, string(r.Reason)})
	}
	for _, fl := range report.Stats.Flags {
		issues = append(issues, []any{"target", fl.TargetID, string(fl.Reason)})
	}

	for sheet, rows := range map[string][][]any{
		associationsSheet: assoc,
		unmatchedSheet:    unmatched,
		issuesSheet:       issues,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
