package f24

import (
	"github.com/eshaffer321/settlement-reconciler/internal/adapters/snapshot"
)

// DefaultCurrency is the currency of F24 payments.
const DefaultCurrency = "EUR"

var (
	receiptColumns = []string{"id", "codice_tributo", "importo_versato", "data_pagamento", "collegata", "annullata"}
	filingColumns  = []string{"id", "codice_tributo", "totale_dovuto", "scadenza", "riconciliato"}
)

// LoadReceipts reads bank receipts from a .csv or .xlsx export.
func LoadReceipts(path string) ([]Receipt, []snapshot.RowError, error) {
	var out []Receipt
	rowErrors, err := snapshot.LoadRows(path, receiptColumns, "id", func(r snapshot.Row) error {
		amount, err := r.Money("importo_versato", "valuta", DefaultCurrency)
		if err != nil {
			return err
		}
		paidOn, err := r.Date("data_pagamento")
		if err != nil {
			return err
		}
		linked, err := r.Bool("collegata")
		if err != nil {
			return err
		}
		cancelled, err := r.Bool("annullata")
		if err != nil {
			return err
		}
		out = append(out, Receipt{
			ID:          r.Get("id"),
			TaxCode:     r.Get("codice_tributo"),
			AmountPaid:  amount,
			PaymentDate: paidOn,
			Linked:      linked,
			Cancelled:   cancelled,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, rowErrors, nil
}

// LoadFilings reads filed F24 amounts from a .csv or .xlsx export.
func LoadFilings(path string) ([]Filing, []snapshot.RowError, error) {
	var out []Filing
	rowErrors, err := snapshot.LoadRows(path, filingColumns, "id", func(r snapshot.Row) error {
		due, err := r.Money("totale_dovuto", "valuta", DefaultCurrency)
		if err != nil {
			return err
		}
		dueDate, err := r.Date("scadenza")
		if err != nil {
			return err
		}
		reconciled, err := r.Bool("riconciliato")
		if err != nil {
			return err
		}
		out = append(out, Filing{
			ID:         r.Get("id"),
			TaxCode:    r.Get("codice_tributo"),
			TotalDue:   due,
			DueDate:    dueDate,
			Reconciled: reconciled,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, rowErrors, nil
}
