package statement

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `"Datum";"Buchungstext";"Belastung CHF";"Gutschrift CHF";"Zahlungszweck";"Details";"ZKB-Referenz"
"29.08.2025";"Gutschrift Auftraggeber";"";"50.00";"Mitgliederbeitrag";"Max Mustermann, Musterstrasse 1";"SL250829579C9948"
"30.08.2025";"Belastung e-banking";"120.00";"";"Miete";"Hallenmiete September";"SL250830579C0001"
"31.08.2025";"Gutschrift Auftraggeber";"";"1'250.00";"Einführungskurs";"Anna Schmidt";"SL250831579C0002"
`

func TestParse_CreditRowsOnly(t *testing.T) {
	// Act
	batch, err := Parse(strings.NewReader(sampleExport), "august.csv")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "august.csv", batch.Source)
	assert.NotEmpty(t, batch.ID)
	assert.Empty(t, batch.Diagnostics)
	require.Len(t, batch.Transactions, 2, "the debit row must be skipped")

	first := batch.Transactions[0]
	assert.Equal(t, time.Date(2025, time.August, 29, 0, 0, 0, 0, time.UTC), first.Date)
	assert.True(t, first.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "Max Mustermann, Musterstrasse 1", first.Details)
	assert.Equal(t, "Mitgliederbeitrag", first.Purpose)
	assert.Equal(t, "SL250829579C9948", first.Reference)

	second := batch.Transactions[1]
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("1250.00")),
		"apostrophe thousands separator must be stripped")
}

func TestParse_BadRowsYieldDiagnosticsNotAbort(t *testing.T) {
	// Arrange: row 2 has a bad date, row 3 a bad amount, row 4 is fine.
	input := strings.Join([]string{
		`Datum;Gutschrift CHF;Zahlungszweck;Details;ZKB-Referenz`,
		`2025-08-29;50.00;Mitgliederbeitrag;Max Mustermann;R1`,
		`29.08.2025;fifty;Mitgliederbeitrag;Max Mustermann;R2`,
		`29.08.2025;50.00;Mitgliederbeitrag;Max Mustermann;R3`,
	}, "\n")

	// Act
	batch, err := Parse(strings.NewReader(input), "broken.csv")

	// Assert
	require.NoError(t, err)
	require.Len(t, batch.Transactions, 1)
	assert.Equal(t, "R3", batch.Transactions[0].Reference)

	require.Len(t, batch.Diagnostics, 2)
	assert.Equal(t, 2, batch.Diagnostics[0].Line)
	assert.Contains(t, batch.Diagnostics[0].Reason, "date")
	assert.Equal(t, 3, batch.Diagnostics[1].Line)
	assert.Contains(t, batch.Diagnostics[1].Reason, "amount")
}

func TestParse_NegativeCreditIsDiagnostic(t *testing.T) {
	input := "Datum;Gutschrift CHF;Details\n29.08.2025;-50.00;Max Mustermann\n"

	batch, err := Parse(strings.NewReader(input), "neg.csv")

	require.NoError(t, err)
	assert.Empty(t, batch.Transactions)
	require.Len(t, batch.Diagnostics, 1)
	assert.Contains(t, batch.Diagnostics[0].Reason, "not positive")
}

func TestParse_MissingRequiredColumnIsFatal(t *testing.T) {
	input := "Buchungstext;Gutschrift CHF;Details\nGutschrift;50.00;Max\n"

	_, err := Parse(strings.NewReader(input), "bad-header.csv")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Datum")
}

func TestParse_MissingOptionalColumnsTolerated(t *testing.T) {
	// Export without purpose and reference columns.
	input := "Datum;Gutschrift CHF;Details\n29.08.2025;25.00;Anna Schmidt\n"

	batch, err := Parse(strings.NewReader(input), "minimal.csv")

	require.NoError(t, err)
	require.Len(t, batch.Transactions, 1)
	tx := batch.Transactions[0]
	assert.Empty(t, tx.Purpose)
	assert.Empty(t, tx.Reference)
	assert.Equal(t, "Anna Schmidt", tx.ReferenceKey(), "details stand in for a missing bank reference")
}

func TestParse_ShortRecordsAreSafe(t *testing.T) {
	// A truncated row must not panic; the missing credit cell reads empty.
	input := "Datum;Buchungstext;Gutschrift CHF;Details\n29.08.2025;Gutschrift\n"

	batch, err := Parse(strings.NewReader(input), "short.csv")

	require.NoError(t, err)
	assert.Empty(t, batch.Transactions)
	assert.Empty(t, batch.Diagnostics)
}
