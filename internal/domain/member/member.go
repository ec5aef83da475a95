// Package member defines the club roster domain model: members, their
// membership category and the monthly dues derived from it.
package member

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category is the membership form. It determines the monthly due amount.
type Category string

const (
	CategoryActive   Category = "Aktiv"
	CategoryPassive  Category = "Passiv"
	CategoryInactive Category = "Inaktiv"
)

var (
	dueActive  = decimal.NewFromInt(50)
	duePassive = decimal.NewFromInt(25)
)

// Valid reports whether c is one of the known membership forms.
func (c Category) Valid() bool {
	switch c {
	case CategoryActive, CategoryPassive, CategoryInactive:
		return true
	}
	return false
}

// MonthlyDue returns the monthly contribution in CHF for the category.
// Inactive members are exempt.
func (c Category) MonthlyDue() decimal.Decimal {
	switch c {
	case CategoryActive:
		return dueActive
	case CategoryPassive:
		return duePassive
	default:
		return decimal.Zero
	}
}

// Member is a club member. Members are never hard-deleted; retiring a
// member means setting the category to Inaktiv.
type Member struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Phone           string   `json:"phone,omitempty"`
	Email           string   `json:"email,omitempty"`
	Category        Category `json:"category"`
	IntroCourseDone bool     `json:"intro_course_done"`
	TelegramChatID  string   `json:"telegram_chat_id,omitempty"`
}

// Obligated reports whether the member owes monthly dues at all.
func (m Member) Obligated() bool {
	return m.Category != CategoryInactive
}

// Validate checks the fields required before a member can be stored.
func (m Member) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("member name is required")
	}
	if !m.Category.Valid() {
		return fmt.Errorf("unknown membership category %q", m.Category)
	}
	return nil
}
