package checks

import (
	"strings"

	"github.com/eshaffer321/settlement-reconciler/internal/adapters/snapshot"
)

// DefaultCurrency is used for register rows without a valuta column.
const DefaultCurrency = "EUR"

// Register export columns. valuta is optional.
var (
	checkColumns   = []string{"numero", "beneficiario", "importo", "data_emissione", "stato"}
	invoiceColumns = []string{"numero", "fornitore", "totale", "scadenza", "pagata"}
)

// LoadChecks reads the check register from a .csv or .xlsx export.
func LoadChecks(path string) ([]Check, []snapshot.RowError, error) {
	var out []Check
	rowErrors, err := snapshot.LoadRows(path, checkColumns, "numero", func(r snapshot.Row) error {
		amount, err := r.Money("importo", "valuta", DefaultCurrency)
		if err != nil {
			return err
		}
		issued, err := r.Date("data_emissione")
		if err != nil {
			return err
		}
		status := Status(strings.ToLower(r.Get("stato")))
		if status == "" {
			status = StatusIssued
		}
		out = append(out, Check{
			ID:          r.Get("numero"),
			Beneficiary: r.Get("beneficiario"),
			Amount:      amount,
			IssueDate:   issued,
			Status:      status,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, rowErrors, nil
}

// LoadInvoices reads supplier invoices from a .csv or .xlsx export.
func LoadInvoices(path string) ([]Invoice, []snapshot.RowError, error) {
	var out []Invoice
	rowErrors, err := snapshot.LoadRows(path, invoiceColumns, "numero", func(r snapshot.Row) error {
		total, err := r.Money("totale", "valuta", DefaultCurrency)
		if err != nil {
			return err
		}
		due, err := r.Date("scadenza")
		if err != nil {
			return err
		}
		paid, err := r.Bool("pagata")
		if err != nil {
			return err
		}
		out = append(out, Invoice{
			ID:       r.Get("numero"),
			Supplier: r.Get("fornitore"),
			Total:    total,
			DueDate:  due,
			Paid:     paid,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, rowErrors, nil
}
