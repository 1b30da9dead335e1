// Command reconciler matches payment instruments (checks, tax receipts) to
// the obligations (invoices, tax filings) they settle.
//
// Usage:
//
//	reconciler run --sources checks.csv --targets invoices.csv
//	reconciler import --category checks --sources checks.xlsx --targets invoices.xlsx
//	reconciler reconcile --category checks --commit
//	reconciler serve --port 8085
package main

import "github.com/eshaffer321/settlement-reconciler/internal/cli"

func main() {
	cli.Execute()
}
