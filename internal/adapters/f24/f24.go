// Package f24 adapts F24 tax payments to the reconciliation engine.
// Bank receipts are the Sources and filed tax amounts are the Targets.
// Records are grouped by tax code.
package f24

import (
	"time"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// Category is the storage and run category used for F24 payments.
const Category = "f24"

// Receipt is a bank receipt for an F24 payment.
type Receipt struct {
	ID          string      `json:"id"`
	TaxCode     string      `json:"tax_code"`
	AmountPaid  money.Money `json:"amount_paid"`
	PaymentDate *time.Time  `json:"payment_date,omitempty"`
	Linked      bool        `json:"linked"`
	Cancelled   bool        `json:"cancelled"`
}

// Filing is an amount due on a filed F24 form.
type Filing struct {
	ID         string      `json:"id"`
	TaxCode    string      `json:"tax_code"`
	TotalDue   money.Money `json:"total_due"`
	DueDate    *time.Time  `json:"due_date,omitempty"`
	Reconciled bool        `json:"reconciled"`
}

// State returns the engine state of a receipt.
func (r Receipt) State() records.SourceState {
	switch {
	case r.Cancelled:
		return records.StateVoid
	case r.Linked:
		return records.StateConsumed
	default:
		return records.StateIssued
	}
}

// ToSources converts receipts to engine Sources.
func ToSources(receipts []Receipt) []records.Source {
	out := make([]records.Source, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, records.Source{
			ID:           r.ID,
			Counterparty: r.TaxCode,
			Amount:       r.AmountPaid,
			IssuedDate:   r.PaymentDate,
			State:        r.State(),
		})
	}
	return out
}

// ToTargets converts filings to engine Targets.
func ToTargets(filings []Filing) []records.Target {
	out := make([]records.Target, 0, len(filings))
	for _, f := range filings {
		out = append(out, records.Target{
			ID:           f.ID,
			Counterparty: f.TaxCode,
			Amount:       f.TotalDue,
			DueDate:      f.DueDate,
			Settled:      f.Reconciled,
		})
	}
	return out
}

// Apply returns copies with the report applied: matched receipts are linked
// and their filings reconciled.
func Apply(receipts []Receipt, filings []Filing, report *reconcile.Report) ([]Receipt, []Filing) {
	linked := make(map[string]bool)
	done := make(map[string]bool, len(report.Associations))
	for _, a := range report.Associations {
		done[a.TargetID] = true
		for _, id := range a.SourceIDs {
			linked[id] = true
		}
	}

	outReceipts := make([]Receipt, len(receipts))
	for i, r := range receipts {
		if linked[r.ID] {
			r.Linked = true
		}
		outReceipts[i] = r
	}
	outFilings := make([]Filing, len(filings))
	for i, f := range filings {
		if done[f.ID] {
			f.Reconciled = true
		}
		outFilings[i] = f
	}
	return outReceipts, outFilings
}

// Summary is what the F24 view shows after a run.
type Summary struct {
	LinkedReceipts    int      `json:"linked_receipts"`
	ReconciledFilings []string `json:"reconciled_filings"`
	OpenFilings       []string `json:"open_filings"`
	UnusedReceipts    []string `json:"unused_receipts"`
}

// Summarize turns a run report into an F24 summary.
func Summarize(report *reconcile.Report) Summary {
	s := Summary{
		ReconciledFilings: make([]string, 0, len(report.Associations)),
		OpenFilings:       append([]string(nil), report.UnmatchedTargets...),
		UnusedReceipts:    append([]string(nil), report.UnmatchedSources...),
	}
	for _, a := range report.Associations {
		s.LinkedReceipts += len(a.SourceIDs)
		s.ReconciledFilings = append(s.ReconciledFilings, a.TargetID)
	}
	return s
}
