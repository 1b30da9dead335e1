// Package checks adapts the check register to the reconciliation engine.
// Checks are the Sources and supplier invoices are the Targets they pay.
package checks

import (
	"time"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// Category is the storage and run category used for checks.
const Category = "checks"

// Status is the lifecycle state of a check as kept in the register.
type Status string

const (
	StatusBlank     Status = "bianco"
	StatusFilled    Status = "compilato"
	StatusIssued    Status = "emesso"
	StatusUsed      Status = "utilizzato"
	StatusCancelled Status = "annullato"
)

var statusToState = map[Status]records.SourceState{
	StatusBlank:     records.StateBlank,
	StatusFilled:    records.StateFilled,
	StatusIssued:    records.StateIssued,
	StatusUsed:      records.StateConsumed,
	StatusCancelled: records.StateVoid,
}

// SourceState maps a register status to the engine state. Unknown statuses
// are passed through so the run reports them as invalid.
func (s Status) SourceState() records.SourceState {
	if state, ok := statusToState[s]; ok {
		return state
	}
	return records.SourceState(s)
}

// Check is one check in the register.
type Check struct {
	ID          string      `json:"id"`
	Beneficiary string      `json:"beneficiary"`
	Amount      money.Money `json:"amount"`
	IssueDate   *time.Time  `json:"issue_date,omitempty"`
	Status      Status      `json:"status"`
}

// Invoice is a supplier invoice waiting to be paid by check.
type Invoice struct {
	ID       string      `json:"id"`
	Supplier string      `json:"supplier"`
	Total    money.Money `json:"total"`
	DueDate  *time.Time  `json:"due_date,omitempty"`
	Paid     bool        `json:"paid"`
}

// ToSources converts checks to engine Sources.
func ToSources(checks []Check) []records.Source {
	out := make([]records.Source, 0, len(checks))
	for _, c := range checks {
		out = append(out, records.Source{
			ID:           c.ID,
			Counterparty: c.Beneficiary,
			Amount:       c.Amount,
			IssuedDate:   c.IssueDate,
			State:        c.Status.SourceState(),
		})
	}
	return out
}

// ToTargets converts invoices to engine Targets.
func ToTargets(invoices []Invoice) []records.Target {
	out := make([]records.Target, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, records.Target{
			ID:           inv.ID,
			Counterparty: inv.Supplier,
			Amount:       inv.Total,
			DueDate:      inv.DueDate,
			Settled:      inv.Paid,
		})
	}
	return out
}

// Payment describes an invoice paid by one or more checks.
type Payment struct {
	InvoiceID string       `json:"invoice_id"`
	CheckIDs  []string     `json:"check_ids"`
	Amount    money.Money  `json:"amount"`
	Kind      records.Kind `json:"kind"`
}

// Summary is what the register shows the user after a run.
type Summary struct {
	// UpdatedChecks is the number of checks that become "utilizzato".
	UpdatedChecks  int       `json:"updated_checks"`
	Payments       []Payment `json:"payments"`
	UnpaidInvoices []string  `json:"unpaid_invoices"`
	UnusedChecks   []string  `json:"unused_checks"`
}

// Summarize turns a run report into a register summary.
func Summarize(report *reconcile.Report) Summary {
	s := Summary{
		Payments:       make([]Payment, 0, len(report.Associations)),
		UnpaidInvoices: append([]string(nil), report.UnmatchedTargets...),
		UnusedChecks:   append([]string(nil), report.UnmatchedSources...),
	}
	for _, a := range report.Associations {
		s.UpdatedChecks += len(a.SourceIDs)
		s.Payments = append(s.Payments, Payment{
			InvoiceID: a.TargetID,
			CheckIDs:  append([]string(nil), a.SourceIDs...),
			Amount:    a.MatchedAmount,
			Kind:      a.Kind,
		})
	}
	return s
}

// Apply returns copies of checks and invoices with the report's
// associations applied: used checks become "utilizzato" and their invoices paid.
func Apply(checks []Check, invoices []Invoice, report *reconcile.Report) ([]Check, []Invoice) {
	used := make(map[string]bool)
	paid := make(map[string]bool, len(report.Associations))
	for _, a := range report.Associations {
		paid[a.TargetID] = true
		for _, id := range a.SourceIDs {
			used[id] = true
		}
	}

	outChecks := make([]Check, len(checks))
	for i, c := range checks {
		if used[c.ID] {
			c.Status = StatusUsed
		}
		outChecks[i] = c
	}
	outInvoices := make([]Invoice, len(invoices))
	for i, inv := range invoices {
		if paid[inv.ID] {
			inv.Paid = true
		}
		outInvoices[i] = inv
	}
	return outChecks, outInvoices
}
