package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/settlement-reconciler/internal/adapters/checks"
	"github.com/eshaffer321/settlement-reconciler/internal/adapters/f24"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintRunSummary prints a human-readable run result.
func PrintRunSummary(w io.Writer, result *service.RunResult) {
	mode := "DRY-RUN"
	if result.Committed {
		mode = "COMMITTED"
	}
	fmt.Fprintf(w, "reconciler: %s run %s (%s)\n", result.Category, result.RunID, mode)
	PrintReportSummary(w, result.Report)
}

// PrintReportSummary prints report totals and the associations found.
func PrintReportSummary(w io.Writer, report *reconcile.Report) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Exact=%d Combined=%d Matched=%s\n",
		report.Stats.ExactCount,
		report.Stats.CombinedCount,
		report.Stats.TotalMatchedAmount)
	fmt.Fprintf(w, "Unmatched: Sources=%d Targets=%d | Skipped=%d Invalid=%d\n",
		len(report.UnmatchedSources),
		len(report.UnmatchedTargets),
		report.SkippedCount(),
		len(report.Stats.InvalidRecords))

	if len(report.Associations) > 0 {
		fmt.Fprintln(w, "\nAssociations:")
		for _, a := range report.Associations {
			fmt.Fprintf(w, "  %s <- %s  %s (%s)\n", a.TargetID, strings.Join(a.SourceIDs, ", "), a.MatchedAmount, a.Kind)
		}
	}

	if len(report.Stats.Flags) > 0 {
		fmt.Fprintln(w, "\nFlagged targets:")
		for _, f := range report.Stats.Flags {
			fmt.Fprintf(w, "  %s: %s\n", f.TargetID, f.Reason)
		}
	}

	if len(report.Stats.InvalidRecords) > 0 {
		fmt.Fprintln(w, "\nInvalid records:")
		for _, r := range report.Stats.InvalidRecords {
			fmt.Fprintf(w, "  %s %q: %s\n", r.Side, r.ID, r.Reason)
		}
	}
}

// PrintImportSummary prints the outcome of an import.
func PrintImportSummary(w io.Writer, result *service.ImportResult, counts *storage.RecordCounts) {
	fmt.Fprintf(w, "Imported into %s: Sources=%d Targets=%d Skipped rows=%d\n",
		result.Category, result.Sources, result.Targets, len(result.RowErrors))
	for _, re := range result.RowErrors {
		fmt.Fprintf(w, "  - %v\n", re)
	}
	if counts != nil {
		fmt.Fprintf(w, "Now open: Sources=%d Targets=%d | Closed: Consumed=%d Void=%d Settled=%d\n",
			counts.OpenSources, counts.OpenTargets,
			counts.ConsumedSources, counts.VoidSources, counts.SettledTargets)
	}
}

// PrintChecksSummary prints the check register view of a run.
func PrintChecksSummary(w io.Writer, summary checks.Summary) {
	fmt.Fprintf(w, "Assegni aggiornati: %d\n", summary.UpdatedChecks)
	for _, p := range summary.Payments {
		fmt.Fprintf(w, "  Fattura %s pagata con %s  %s\n", p.InvoiceID, strings.Join(p.CheckIDs, ", "), p.Amount)
	}
	if len(summary.UnpaidInvoices) > 0 {
		fmt.Fprintf(w, "Fatture da pagare: %s\n", strings.Join(summary.UnpaidInvoices, ", "))
	}
	if len(summary.UnusedChecks) > 0 {
		fmt.Fprintf(w, "Assegni non utilizzati: %s\n", strings.Join(summary.UnusedChecks, ", "))
	}
}

// PrintF24Summary prints the F24 view of a run.
func PrintF24Summary(w io.Writer, summary f24.Summary) {
	fmt.Fprintf(w, "Ricevute collegate: %d\n", summary.LinkedReceipts)
	if len(summary.ReconciledFilings) > 0 {
		fmt.Fprintf(w, "F24 riconciliati: %s\n", strings.Join(summary.ReconciledFilings, ", "))
	}
	if len(summary.OpenFilings) > 0 {
		fmt.Fprintf(w, "F24 aperti: %s\n", strings.Join(summary.OpenFilings, ", "))
	}
	if len(summary.UnusedReceipts) > 0 {
		fmt.Fprintf(w, "Ricevute non collegate: %s\n", strings.Join(summary.UnusedReceipts, ", "))
	}
}
