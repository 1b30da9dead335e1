package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/adapters/checks"
	"github.com/eshaffer321/settlement-reconciler/internal/adapters/f24"
	"github.com/eshaffer321/settlement-reconciler/internal/adapters/snapshot"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// Values of --kind
const (
	kindRecords = "records"
	kindChecks  = "checks"
	kindF24     = "f24"
)

// registerSet is a pair of input files converted to engine records.
type registerSet struct {
	sources   []records.Source
	targets   []records.Target
	rowErrors []snapshot.RowError

	// present is nil for plain record snapshots
	present func(report *reconcile.Report) *registerView
}

// registerView is a report shown in the shape of the register it came from.
type registerView struct {
	Report  *reconcile.Report `json:"report"`
	Summary interface{}       `json:"summary"`
	Updated interface{}       `json:"updated"`

	print func(w io.Writer)
}

type checkRegister struct {
	Checks   []checks.Check   `json:"checks"`
	Invoices []checks.Invoice `json:"invoices"`
}

type f24Register struct {
	Receipts []f24.Receipt `json:"receipts"`
	Filings  []f24.Filing  `json:"filings"`
}

func addKindFlag(cmd *cobra.Command, kind *string) {
	cmd.Flags().StringVar(kind, "kind", kindRecords,
		"Input file layout: records (generic snapshot), checks (check register and invoices) or f24 (receipts and filings)")
}

// defaultCategory is the category a register kind is stored under.
func defaultCategory(kind string) string {
	switch kind {
	case kindChecks:
		return checks.Category
	case kindF24:
		return f24.Category
	}
	return ""
}

// loadRegister reads the files of a kind. Either path may be empty.
func loadRegister(kind, sourcesPath, targetsPath string) (*registerSet, error) {
	switch kind {
	case kindRecords, "":
		return loadRecords(sourcesPath, targetsPath)
	case kindChecks:
		return loadChecks(sourcesPath, targetsPath)
	case kindF24:
		return loadF24(sourcesPath, targetsPath)
	}
	return nil, fmt.Errorf("unknown --kind %q: want %s, %s or %s", kind, kindRecords, kindChecks, kindF24)
}

func loadRecords(sourcesPath, targetsPath string) (*registerSet, error) {
	set := &registerSet{}
	if sourcesPath != "" {
		sources, rowErrors, err := snapshot.LoadSources(sourcesPath)
		if err != nil {
			return nil, err
		}
		set.sources = sources
		set.rowErrors = append(set.rowErrors, rowErrors...)
	}
	if targetsPath != "" {
		targets, rowErrors, err := snapshot.LoadTargets(targetsPath)
		if err != nil {
			return nil, err
		}
		set.targets = targets
		set.rowErrors = append(set.rowErrors, rowErrors...)
	}
	return set, nil
}

func loadChecks(checksPath, invoicesPath string) (*registerSet, error) {
	var (
		register []checks.Check
		invoices []checks.Invoice
		set      = &registerSet{}
	)
	if checksPath != "" {
		loaded, rowErrors, err := checks.LoadChecks(checksPath)
		if err != nil {
			return nil, err
		}
		register = loaded
		set.rowErrors = append(set.rowErrors, rowErrors...)
	}
	if invoicesPath != "" {
		loaded, rowErrors, err := checks.LoadInvoices(invoicesPath)
		if err != nil {
			return nil, err
		}
		invoices = loaded
		set.rowErrors = append(set.rowErrors, rowErrors...)
	}

	set.sources = checks.ToSources(register)
	set.targets = checks.ToTargets(invoices)
	set.present = func(report *reconcile.Report) *registerView {
		summary := checks.Summarize(report)
		updatedChecks, updatedInvoices := checks.Apply(register, invoices, report)
		return &registerView{
			Report:  report,
			Summary: summary,
			Updated: checkRegister{Checks: updatedChecks, Invoices: updatedInvoices},
			print:   func(w io.Writer) { PrintChecksSummary(w, summary) },
		}
	}
	return set, nil
}

func loadF24(receiptsPath, filingsPath string) (*registerSet, error) {
	var (
		receipts []f24.Receipt
		filings  []f24.Filing
		set      = &registerSet{}
	)
	if receiptsPath != "" {
		loaded, rowErrors, err := f24.LoadReceipts(receiptsPath)
		if err != nil {
			return nil, err
		}
		receipts = loaded
		set.rowErrors = append(set.rowErrors, rowErrors...)
	}
	if filingsPath != "" {
		loaded, rowErrors, err := f24.LoadFilings(filingsPath)
		if err != nil {
			return nil, err
		}
		filings = loaded
		set.rowErrors = append(set.rowErrors, rowErrors...)
	}

	set.sources = f24.ToSources(receipts)
	set.targets = f24.ToTargets(filings)
	set.present = func(report *reconcile.Report) *registerView {
		summary := f24.Summarize(report)
		updatedReceipts, updatedFilings := f24.Apply(receipts, filings, report)
		return &registerView{
			Report:  report,
			Summary: summary,
			Updated: f24Register{Receipts: updatedReceipts, Filings: updatedFilings},
			print:   func(w io.Writer) { PrintF24Summary(w, summary) },
		}
	}
	return set, nil
}
