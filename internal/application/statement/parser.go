// Package statement parses ZKB bank-statement CSV exports into the
// transaction feed the reconciliation engine consumes.
//
// The export is semicolon-separated with a header row. Only credit rows
// (non-empty "Gutschrift CHF") are relevant; debits are skipped silently.
// A malformed row yields a per-row diagnostic and never aborts the batch.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/recon"
)

// Column names of the ZKB CSV export.
const (
	colDate      = "Datum"
	colCredit    = "Gutschrift CHF"
	colDetails   = "Details"
	colPurpose   = "Zahlungszweck"
	colReference = "ZKB-Referenz"
)

// requiredColumns must all be present in the header. Their total absence is
// the only fatal parse condition.
var requiredColumns = []string{colDate, colCredit, colDetails}

const dateLayout = "02.01.2006"

// Parse reads a statement export and returns the batch of credit
// transactions plus per-row diagnostics for rows that failed to parse.
func Parse(r io.Reader, source string) (*recon.Batch, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading statement header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	batch := &recon.Batch{
		ID:         uuid.NewString(),
		Source:     source,
		ImportedAt: time.Now(),
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			batch.Diagnostics = append(batch.Diagnostics, recon.RowError{Line: line, Reason: err.Error()})
			continue
		}

		credit := strings.TrimSpace(field(record, cols[colCredit]))
		if credit == "" {
			continue // debit or balance row
		}

		tx, err := parseRow(record, cols, credit)
		if err != nil {
			batch.Diagnostics = append(batch.Diagnostics, recon.RowError{Line: line, Reason: err.Error()})
			continue
		}
		batch.Transactions = append(batch.Transactions, tx)
	}

	return batch, nil
}

func parseRow(record []string, cols map[string]int, credit string) (recon.Transaction, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(field(record, cols[colDate])))
	if err != nil {
		return recon.Transaction{}, fmt.Errorf("unparseable date %q", field(record, cols[colDate]))
	}

	// ZKB formats thousands with apostrophes ("1'250.00").
	amount, err := decimal.NewFromString(strings.ReplaceAll(credit, "'", ""))
	if err != nil {
		return recon.Transaction{}, fmt.Errorf("unparseable amount %q", credit)
	}
	if amount.Sign() <= 0 {
		return recon.Transaction{}, fmt.Errorf("credit amount %s is not positive", amount)
	}

	return recon.Transaction{
		Date:      date,
		Amount:    amount,
		Details:   strings.TrimSpace(field(record, cols[colDetails])),
		Purpose:   strings.TrimSpace(field(record, cols[colPurpose])),
		Reference: strings.TrimSpace(field(record, cols[colReference])),
	}, nil
}

// indexColumns maps column names to field positions. Quotes and padding
// around header cells are tolerated.
func indexColumns(header []string) (map[string]int, error) {
	cols := map[string]int{colPurpose: -1, colReference: -1}
	for i, name := range header {
		cols[strings.Trim(strings.TrimSpace(name), `"`)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("statement is missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
