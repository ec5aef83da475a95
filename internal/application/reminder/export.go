package reminder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ExportCSV writes the reminder entries as a CSV report, the fallback for
// members that cannot be reached via Telegram.
func ExportCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Mitglied", "Telefon", "Email", "Mitgliedsform",
		"Ausstehende_Monate", "Monatlicher_Beitrag", "Gesamtbetrag_CHF", "Nachricht",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, e := range entries {
		months := make([]string, 0, len(e.Outstanding))
		for _, m := range e.Outstanding {
			months = append(months, fmt.Sprintf("%s %d", GermanMonthName(m.Month), m.Year))
		}
		row := []string{
			e.Member.Name,
			e.Member.Phone,
			e.Member.Email,
			string(e.Member.Category),
			strings.Join(months, ", "),
			e.Member.Category.MonthlyDue().StringFixed(2) + " CHF",
			e.Total.StringFixed(2),
			strings.ReplaceAll(e.Message, "\n", " | "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
