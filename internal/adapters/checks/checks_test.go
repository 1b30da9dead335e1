package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

func TestStatus_SourceState(t *testing.T) {
	tests := []struct {
		status Status
		want   records.SourceState
	}{
		{StatusBlank, records.StateBlank},
		{StatusFilled, records.StateFilled},
		{StatusIssued, records.StateIssued},
		{StatusUsed, records.StateConsumed},
		{StatusCancelled, records.StateVoid},
		{"smarrito", records.SourceState("smarrito")},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.SourceState())
		})
	}
}

func TestReconcileChecks_EndToEnd(t *testing.T) {
	register := []Check{
		{ID: "A001", Beneficiary: "Ferramenta Rossi S.r.l.", Amount: money.MustParse("300", "EUR"), Status: StatusIssued},
		{ID: "A002", Beneficiary: "FERRAMENTA ROSSI SRL", Amount: money.MustParse("200", "EUR"), Status: StatusFilled},
		{ID: "A003", Beneficiary: "Edil Verdi", Amount: money.MustParse("150", "EUR"), Status: StatusCancelled},
		{ID: "A004", Beneficiary: "Edil Verdi", Amount: money.MustParse("90", "EUR"), Status: StatusIssued},
	}
	invoices := []Invoice{
		{ID: "F-10", Supplier: "Ferramenta Rossi", Total: money.MustParse("500", "EUR"), DueDate: records.Date(2024, 3, 1)},
		{ID: "F-11", Supplier: "Edil Verdi", Total: money.MustParse("150", "EUR")},
	}

	report, err := reconcile.Run(ToSources(register), ToTargets(invoices), reconcile.DefaultOptions())
	require.NoError(t, err)

	summary := Summarize(report)
	assert.Equal(t, 2, summary.UpdatedChecks)
	require.Len(t, summary.Payments, 1)
	assert.Equal(t, "F-10", summary.Payments[0].InvoiceID)
	assert.Equal(t, []string{"A001", "A002"}, summary.Payments[0].CheckIDs)
	assert.Equal(t, records.KindCombined, summary.Payments[0].Kind)
	assert.Equal(t, []string{"F-11"}, summary.UnpaidInvoices)
	assert.Equal(t, []string{"A004"}, summary.UnusedChecks)
	assert.Equal(t, []string{"A003"}, report.Stats.SkippedVoid)

	updatedChecks, updatedInvoices := Apply(register, invoices, report)
	assert.Equal(t, StatusUsed, updatedChecks[0].Status)
	assert.Equal(t, StatusUsed, updatedChecks[1].Status)
	assert.Equal(t, StatusCancelled, updatedChecks[2].Status)
	assert.Equal(t, StatusIssued, updatedChecks[3].Status)
	assert.True(t, updatedInvoices[0].Paid)
	assert.False(t, updatedInvoices[1].Paid)

	// the input register is untouched
	assert.Equal(t, StatusIssued, register[0].Status)

	again, err := reconcile.Run(ToSources(updatedChecks), ToTargets(updatedInvoices), reconcile.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, again.Associations)
	assert.Equal(t, 0, Summarize(again).UpdatedChecks)
}
