// Package reminder computes outstanding dues per member and delivers
// payment reminders, either through the Telegram Bot API or as a CSV export.
package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/member"
)

var germanMonths = [...]string{
	time.January:   "Januar",
	time.February:  "Februar",
	time.March:     "März",
	time.April:     "April",
	time.May:       "Mai",
	time.June:      "Juni",
	time.July:      "Juli",
	time.August:    "August",
	time.September: "September",
	time.October:   "Oktober",
	time.November:  "November",
	time.December:  "Dezember",
}

// GermanMonthName returns the German name of the month.
func GermanMonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return germanMonths[m]
}

// BuildMessage formats the German reminder text for a member with the given
// outstanding months.
func BuildMessage(clubName string, m member.Member, outstanding []member.Month, total decimal.Decimal) string {
	if len(outstanding) == 0 {
		return fmt.Sprintf("Hallo %s,\n\nAlle Beiträge für %d sind bereits bezahlt!", m.Name, time.Now().Year())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Zahlungserinnerung - %s\n\n", clubName)
	fmt.Fprintf(&b, "Hallo %s,\n\n", m.Name)
	b.WriteString("Es fehlen noch Beiträge für folgende Monate:\n")
	for _, month := range outstanding {
		fmt.Fprintf(&b, "- %s %d\n", GermanMonthName(month.Month), month.Year)
	}
	fmt.Fprintf(&b, "\nMitgliedsform: %s\n", m.Category)
	fmt.Fprintf(&b, "Monatlicher Beitrag: %s CHF\n", m.Category.MonthlyDue().StringFixed(2))
	fmt.Fprintf(&b, "Gesamtbetrag ausstehend: %s CHF\n\n", total.StringFixed(2))
	b.WriteString("Bitte überweise den Betrag auf unser Konto.\n\n")
	fmt.Fprintf(&b, "Vielen Dank!\n%s Team", clubName)
	return b.String()
}
