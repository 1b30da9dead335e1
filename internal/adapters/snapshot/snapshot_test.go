package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, writeRows(f, f.GetSheetName(0), rows))
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadSources_CSV(t *testing.T) {
	path := writeFile(t, "sources.csv", strings.Join([]string{
		"ID,Counterparty,Amount,Currency,Issued_Date,State",
		"s1,Acme S.r.l.,1000.00,EUR,2024-01-15,issued",
		"s2,Acme,500,eur,,",
		"s3,Acme,12.345,EUR,,issued",
		"s4,Acme,10,EUR,15/01/2024,issued",
		"s5,Acme,10,EUR,,lost",
	}, "\n"))

	sources, rowErrors, err := LoadSources(path)
	require.NoError(t, err)

	require.Len(t, sources, 3)
	assert.Equal(t, "s1", sources[0].ID)
	assert.Equal(t, money.New(100000, "EUR"), sources[0].Amount)
	assert.Equal(t, records.Date(2024, 1, 15), sources[0].IssuedDate)
	assert.Equal(t, records.StateIssued, sources[1].State, "empty state defaults to issued")
	assert.Nil(t, sources[1].IssuedDate)
	assert.Equal(t, "EUR", sources[1].Amount.Currency)
	assert.Equal(t, records.SourceState("lost"), sources[2].State)

	require.Len(t, rowErrors, 2)
	assert.Equal(t, 4, rowErrors[0].Row)
	assert.Equal(t, "s3", rowErrors[0].ID)
	assert.ErrorIs(t, rowErrors[0], money.ErrInvalidAmount)
	assert.Equal(t, 5, rowErrors[1].Row)
	assert.Contains(t, rowErrors[1].Error(), "invalid date")
}

func TestLoadTargets_XLSX(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"id", "counterparty", "amount", "currency", "due_date", "settled"},
		{"t1", "Acme", "1000", "EUR", "2024-02-01", "false"},
		{"t2", "Rossi", "250.50", "EUR", "", "true"},
		{"t3", "Rossi", "250.50", "EUR", "", "maybe"},
	})

	targets, rowErrors, err := LoadTargets(path)
	require.NoError(t, err)

	require.Len(t, targets, 2)
	assert.Equal(t, "t1", targets[0].ID)
	assert.Equal(t, records.Date(2024, 2, 1), targets[0].DueDate)
	assert.False(t, targets[0].Settled)
	assert.Equal(t, money.New(25050, "EUR"), targets[1].Amount)
	assert.True(t, targets[1].Settled)

	require.Len(t, rowErrors, 1)
	assert.Equal(t, 4, rowErrors[0].Row)
}

func TestLoad_MissingColumn(t *testing.T) {
	path := writeFile(t, "targets.csv", "id,counterparty,amount\nt1,Acme,10\n")

	_, _, err := LoadTargets(path)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "currency")
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, "targets.json", "[]")

	_, _, err := LoadTargets(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadSources_EmptyInput(t *testing.T) {
	sources, rowErrors, err := ReadSources(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, sources)
	assert.Empty(t, rowErrors)
}

func TestWriteReportXLSX(t *testing.T) {
	report, err := reconcile.Run(
		[]records.Source{
			{ID: "s1", Counterparty: "Acme", Amount: money.New(500, "EUR"), State: records.StateIssued},
			{ID: "s2", Counterparty: "Acme", Amount: money.New(500, "EUR"), State: records.StateIssued},
			{ID: "s3", Counterparty: "Acme", Amount: money.New(700, "EUR"), State: records.StateVoid},
		},
		[]records.Target{
			{ID: "t1", Counterparty: "Acme", Amount: money.New(1000, "EUR")},
			{ID: "t2", Counterparty: "Rossi", Amount: money.New(10, "EUR")},
		},
		reconcile.DefaultOptions(),
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReportXLSX(path, report))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{associationsSheet, unmatchedSheet, issuesSheet}, f.GetSheetList())

	rows, err := f.GetRows(associationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"t1", "s1;s2", "10.00", "EUR", "combined", "low"}, rows[1])

	rows, err = f.GetRows(unmatchedSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"side", "id"}, {"target", "t2"}}, rows)

	rows, err = f.GetRows(issuesSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "s3", "skipped_void"}, rows[1])
}
