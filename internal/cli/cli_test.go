package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/settlement-reconciler/internal/adapters/f24"
	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

const sourcesCSV = `id,counterparty,amount,currency,issued_date,state
A1,Acme SRL,300.00,EUR,2024-01-10,issued
A2,Acme,200.00,EUR,2024-01-11,filled
A3,Rossi,99.99,EUR,,issued
`

const checkRegisterCSV = `numero,beneficiario,importo,data_emissione,stato
A001,Ferramenta Rossi S.r.l.,300,2024-01-10,Emesso
A002,FERRAMENTA ROSSI SRL,200,2024-01-11,compilato
A003,Edil Verdi,150,,annullato
A004,Edil Verdi,90,,emesso
`

const invoicesCSV = `numero,fornitore,totale,scadenza,pagata
F-10,Ferramenta Rossi,500,2024-03-01,no
F-11,Edil Verdi,150,,
`

const targetsCSV = `id,counterparty,amount,currency,due_date,settled
F1,ACME S.R.L.,500,EUR,2024-02-28,false
F2,Rossi,100,EUR,2024-03-31,false
`

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testConfig(t *testing.T, dir string) string {
	t.Helper()
	return writeTemp(t, dir, "config.yaml", `
storage:
  database_path: `+filepath.Join(dir, "test.db")+`
reconciliation:
  currency: eur
  tolerance_minor_units: 1
observability:
  logging:
    level: error
`)
}

func TestRunCommand_PrintsReport(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	sources := writeTemp(t, dir, "sources.csv", sourcesCSV)
	targets := writeTemp(t, dir, "targets.csv", targetsCSV)

	out, err := execute(t, "run", "--config", cfg, "--sources", sources, "--targets", targets)
	require.NoError(t, err)

	var report reconcile.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	require.Len(t, report.Associations, 2)
	assert.Equal(t, "F1", report.Associations[0].TargetID)
	assert.Equal(t, records.KindCombined, report.Associations[0].Kind)
	assert.Equal(t, "F2", report.Associations[1].TargetID)
	assert.Equal(t, records.KindExact, report.Associations[1].Kind)
}

func TestRunCommand_ToleranceFlag(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	sources := writeTemp(t, dir, "sources.csv", sourcesCSV)
	targets := writeTemp(t, dir, "targets.csv", targetsCSV)

	out, err := execute(t, "run", "--config", cfg, "--sources", sources, "--targets", targets, "--tolerance", "0")
	require.NoError(t, err)

	var report reconcile.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Associations, 1)
	assert.Equal(t, []string{"F2"}, report.UnmatchedTargets)
}

func TestRunCommand_SummaryAndWorkbook(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	sources := writeTemp(t, dir, "sources.csv", sourcesCSV)
	targets := writeTemp(t, dir, "targets.csv", targetsCSV)
	xlsx := filepath.Join(dir, "report.xlsx")

	out, err := execute(t, "run", "--config", cfg, "--sources", sources, "--targets", targets, "--summary", "--xlsx", xlsx)
	require.NoError(t, err)

	assert.Contains(t, out, "Summary: Exact=1 Combined=1 Matched=599.99 EUR")
	assert.Contains(t, out, "F1 <- A1, A2")
	assert.FileExists(t, xlsx)
}

func TestRunCommand_RequiresFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "run", "--config", testConfig(t, dir))
	assert.Error(t, err)
}

func TestRunCommand_BadConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to load config")
}

func TestImportAndReconcileCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	sources := writeTemp(t, dir, "sources.csv", sourcesCSV)
	targets := writeTemp(t, dir, "targets.csv", targetsCSV)

	out, err := execute(t, "import", "--config", cfg, "--category", "checks", "--sources", sources, "--targets", targets)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported into checks: Sources=3 Targets=2 Skipped rows=0")

	out, err = execute(t, "reconcile", "--config", cfg, "--category", "checks", "--commit", "--json")
	require.NoError(t, err)

	var result service.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Committed)
	assert.Len(t, result.Report.Associations, 2)

	// re-importing the same snapshot does not reopen closed records
	_, err = execute(t, "import", "--config", cfg, "--category", "checks", "--sources", sources, "--targets", targets)
	require.NoError(t, err)

	out, err = execute(t, "reconcile", "--config", cfg, "--category", "checks")
	require.NoError(t, err)
	assert.Contains(t, out, "DRY-RUN")
	assert.Contains(t, out, "Summary: Exact=0 Combined=0")
}

func TestImportCommand_RequiresCategory(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "import", "--config", testConfig(t, dir), "--sources", "x.csv")
	assert.Error(t, err)
}

func TestReconcileCommand_InvalidCategory(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "reconcile", "--config", testConfig(t, dir), "--category", "Not Valid")
	assert.ErrorIs(t, err, service.ErrInvalidCategory)
}

func TestRunCommand_CheckRegisterSummary(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	register := writeTemp(t, dir, "assegni.csv", checkRegisterCSV)
	invoices := writeTemp(t, dir, "fatture.csv", invoicesCSV)

	out, err := execute(t, "run", "--config", cfg, "--kind", "checks", "--sources", register, "--targets", invoices, "--summary")
	require.NoError(t, err)

	assert.Contains(t, out, "Assegni aggiornati: 2")
	assert.Contains(t, out, "Fattura F-10 pagata con A001, A002  500.00 EUR")
	assert.Contains(t, out, "Fatture da pagare: F-11")
	assert.Contains(t, out, "Assegni non utilizzati: A004")
	assert.Contains(t, out, "Summary: Exact=0 Combined=1")
}

func TestRunCommand_F24JSON(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	receipts := writeTemp(t, dir, "ricevute.csv", `id,codice_tributo,importo_versato,data_pagamento,collegata,annullata
R1,1040,812.40,2024-07-16,no,no
R2,1001,1200.00,2024-07-16,,
R3,1001,300.00,,sì,
`)
	filings := writeTemp(t, dir, "f24.csv", `id,codice_tributo,totale_dovuto,scadenza,riconciliato
F1,1001,1200.00,2024-07-16,
F2,1040,812.40,2024-07-16,no
F3,6099,50.00,,
`)

	out, err := execute(t, "run", "--config", cfg, "--kind", "f24", "--sources", receipts, "--targets", filings)
	require.NoError(t, err)

	var view struct {
		Report  reconcile.Report `json:"report"`
		Summary f24.Summary      `json:"summary"`
		Updated struct {
			Receipts []f24.Receipt `json:"receipts"`
			Filings  []f24.Filing  `json:"filings"`
		} `json:"updated"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))

	assert.Len(t, view.Report.Associations, 2)
	assert.Equal(t, 2, view.Summary.LinkedReceipts)
	assert.Equal(t, []string{"F1", "F2"}, view.Summary.ReconciledFilings)
	assert.Equal(t, []string{"F3"}, view.Summary.OpenFilings)

	require.Len(t, view.Updated.Receipts, 3)
	assert.True(t, view.Updated.Receipts[0].Linked)
	assert.True(t, view.Updated.Receipts[1].Linked)
	require.Len(t, view.Updated.Filings, 3)
	assert.True(t, view.Updated.Filings[0].Reconciled)
	assert.True(t, view.Updated.Filings[1].Reconciled)
	assert.False(t, view.Updated.Filings[2].Reconciled)
}

func TestRunCommand_UnknownKind(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	sources := writeTemp(t, dir, "sources.csv", sourcesCSV)
	targets := writeTemp(t, dir, "targets.csv", targetsCSV)

	_, err := execute(t, "run", "--config", cfg, "--kind", "bonifici", "--sources", sources, "--targets", targets)
	assert.ErrorContains(t, err, "unknown --kind")
}

func TestImportCommand_CheckRegisterDefaultsCategory(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	register := writeTemp(t, dir, "assegni.csv", checkRegisterCSV)
	invoices := writeTemp(t, dir, "fatture.csv", invoicesCSV)

	out, err := execute(t, "import", "--config", cfg, "--kind", "checks", "--sources", register, "--targets", invoices)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported into checks: Sources=4 Targets=2 Skipped rows=0")

	out, err = execute(t, "reconcile", "--config", cfg, "--category", "checks", "--json")
	require.NoError(t, err)

	var result service.RunResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Report.Associations, 1)
	assert.Equal(t, "F-10", result.Report.Associations[0].TargetID)
	assert.Equal(t, []string{"A001", "A002"}, result.Report.Associations[0].SourceIDs)
	assert.Equal(t, []string{"A003"}, result.Report.Stats.SkippedVoid)
}
