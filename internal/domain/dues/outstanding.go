// Package dues computes outstanding monthly contributions for a member.
package dues

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/member"
)

// Outstanding returns the unpaid months of the current year up to and
// including the month of now, plus the total amount owed. Inactive members
// have no obligation and always come back empty.
func Outstanding(m member.Member, paid map[member.Month]bool, now time.Time) ([]member.Month, decimal.Decimal) {
	due := m.Category.MonthlyDue()
	if !m.Obligated() || due.IsZero() {
		return nil, decimal.Zero
	}

	var months []member.Month
	cursor := member.Month{Year: now.Year(), Month: time.January}
	last := member.MonthOf(now)
	for !last.Before(cursor) {
		if !paid[cursor] {
			months = append(months, cursor)
		}
		cursor = cursor.Next()
	}

	total := due.Mul(decimal.NewFromInt(int64(len(months))))
	return months, total
}
