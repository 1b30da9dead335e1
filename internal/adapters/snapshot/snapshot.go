// Package snapshot loads Sources and Targets from CSV or XLSX exports.
//
// Source columns: id, counterparty, amount, currency, issued_date, state.
// Target columns: id, counterparty, amount, currency, due_date, settled.
// Column order is free; headers are matched case-insensitively. Dates use
// YYYY-MM-DD and may be empty.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// DateLayout is the layout of date columns.
const DateLayout = "2006-01-02"

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")

	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing column")
)

var (
	sourceColumns = []string{"id", "counterparty", "amount", "currency", "issued_date", "state"}
	targetColumns = []string{"id", "counterparty", "amount", "currency", "due_date", "settled"}
)

// RowError is a data row that could not be converted. Rows are numbered from
// 1 with the header as row 1, as a spreadsheet shows them.
type RowError struct {
	Row int
	ID  string
	Err error
}

func (e RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (%s): %v", e.Row, e.ID, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// LoadSources reads Sources from a .csv or .xlsx file.
func LoadSources(path string) ([]records.Source, []RowError, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	return parseSources(rows)
}

// LoadTargets reads Targets from a .csv or .xlsx file.
func LoadTargets(path string) ([]records.Target, []RowError, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	return parseTargets(rows)
}

// ReadSources reads Sources from CSV.
func ReadSources(r io.Reader) ([]records.Source, []RowError, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}
	return parseSources(rows)
}

// ReadTargets reads Targets from CSV.
func ReadTargets(r io.Reader) ([]records.Target, []RowError, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}
	return parseTargets(rows)
}

func readTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return readCSV(f)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Row gives access to a data row by lower-case column name.
type Row struct {
	cells []string
	index map[string]int
}

// Get returns the trimmed cell of a column, or "" when the column or cell is absent.
func (r Row) Get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// Money parses an amount column. The currency column may be absent or empty,
// in which case fallback is used.
func (r Row) Money(amountCol, currencyCol, fallback string) (money.Money, error) {
	currency := r.Get(currencyCol)
	if currency == "" {
		currency = fallback
	}
	return money.Parse(r.Get(amountCol), currency)
}

// Date parses a YYYY-MM-DD column. An empty cell is no date.
func (r Row) Date(col string) (*time.Time, error) {
	return parseDate(r.Get(col))
}

// Bool parses a flag column. Besides the strconv forms it accepts the
// register spellings si, sì, x and no. An empty cell is false.
func (r Row) Bool(col string) (bool, error) {
	v := strings.ToLower(r.Get(col))
	switch v {
	case "":
		return false, nil
	case "si", "sì", "x":
		return true, nil
	case "no":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", col, r.Get(col))
	}
	return b, nil
}

// LoadRows reads a .csv or .xlsx table whose header holds the required
// columns and calls fn for every non-empty data row. Rows rejected by fn are
// returned as RowErrors identified by idCol.
func LoadRows(path string, required []string, idCol string, fn func(r Row) error) ([]RowError, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	var rowErrors []RowError
	err = dataRows(rows, required, func(n int, r Row) {
		if err := fn(r); err != nil {
			rowErrors = append(rowErrors, RowError{Row: n, ID: r.Get(idCol), Err: err})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rowErrors, nil
}

func headerIndex(header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

// dataRows yields non-empty rows after the header with their spreadsheet row number.
func dataRows(rows [][]string, required []string, fn func(n int, r Row)) error {
	if len(rows) == 0 {
		return nil
	}
	index, err := headerIndex(rows[0], required)
	if err != nil {
		return err
	}
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		fn(i+2, Row{cells: cells, index: index})
	}
	return nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseSources(rows [][]string) ([]records.Source, []RowError, error) {
	var (
		out       []records.Source
		rowErrors []RowError
	)
	err := dataRows(rows, sourceColumns, func(n int, r Row) {
		s, err := parseSource(r)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: n, ID: r.Get("id"), Err: err})
			return
		}
		out = append(out, s)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, rowErrors, nil
}

func parseTargets(rows [][]string) ([]records.Target, []RowError, error) {
	var (
		out       []records.Target
		rowErrors []RowError
	)
	err := dataRows(rows, targetColumns, func(n int, r Row) {
		t, err := parseTarget(r)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: n, ID: r.Get("id"), Err: err})
			return
		}
		out = append(out, t)
	})
	if err != nil {
		return nil, nil, err
	}
	return out, rowErrors, nil
}

// parseSource converts one row. An empty state means issued; any other
// unknown value is kept so the run reports it as invalid.
func parseSource(r Row) (records.Source, error) {
	amount, err := money.Parse(r.Get("amount"), r.Get("currency"))
	if err != nil {
		return records.Source{}, err
	}
	issued, err := r.Date("issued_date")
	if err != nil {
		return records.Source{}, err
	}
	state := records.SourceState(strings.ToLower(r.Get("state")))
	if state == "" {
		state = records.StateIssued
	}
	return records.Source{
		ID:           r.Get("id"),
		Counterparty: r.Get("counterparty"),
		Amount:       amount,
		IssuedDate:   issued,
		State:        state,
	}, nil
}

func parseTarget(r Row) (records.Target, error) {
	amount, err := money.Parse(r.Get("amount"), r.Get("currency"))
	if err != nil {
		return records.Target{}, err
	}
	due, err := r.Date("due_date")
	if err != nil {
		return records.Target{}, err
	}
	settled, err := r.Bool("settled")
	if err != nil {
		return records.Target{}, err
	}
	return records.Target{
		ID:           r.Get("id"),
		Counterparty: r.Get("counterparty"),
		Amount:       amount,
		DueDate:      due,
		Settled:      settled,
	}, nil
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", v)
	}
	return &d, nil
}
