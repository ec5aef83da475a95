// Package recon implements bank-statement reconciliation: matching imported
// credit transactions to members and dues months, learning assignment rules
// from confirmed matches, and blocking duplicate payment postings.
//
// The flow is a two-phase protocol. Propose turns a parsed statement batch
// into review candidates without touching any store; Confirm and Reject
// resolve individual candidates and are the only stateful operations.
package recon

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/member"
)

// Payment purposes carried over from the bank statement review.
const (
	PurposeDues        = "Mitgliederbeitrag"
	PurposeIntroCourse = "Einführungskurs"
)

// Transaction is one raw credit row from a bank statement. It exists only
// for the duration of an import batch.
type Transaction struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Details   string          `json:"details"`
	Purpose   string          `json:"purpose"`
	Reference string          `json:"reference"`
}

// ReferenceKey returns the string used as the duplicate-detection reference:
// the bank reference when present, otherwise the free-text details.
func (t Transaction) ReferenceKey() string {
	if ref := strings.TrimSpace(t.Reference); ref != "" {
		return ref
	}
	return strings.TrimSpace(t.Details)
}

// RowError is a per-row diagnostic for a statement row that could not be
// parsed. Bad rows never abort the batch.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Batch is the set of transactions from one statement import.
type Batch struct {
	ID           string        `json:"id"`
	Source       string        `json:"source"`
	ImportedAt   time.Time     `json:"imported_at"`
	Transactions []Transaction `json:"transactions"`
	Diagnostics  []RowError    `json:"diagnostics,omitempty"`
}

// Status is the review state of a candidate.
type Status string

const (
	// StatusMatched means a member and month suggestion exists.
	StatusMatched Status = "matched"
	// StatusUnmatched means no rule or name heuristic applied, or the
	// heuristics disagreed; a human must assign the member.
	StatusUnmatched Status = "unmatched"
	// StatusDuplicate means the transaction collides with an existing
	// payment record and cannot be confirmed.
	StatusDuplicate Status = "duplicate"
	// StatusConflict means two rows in the batch share a fallback dedupe
	// key; a human must resolve which (if any) to confirm.
	StatusConflict Status = "conflict"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Resolved reports whether the status is terminal.
func (s Status) Resolved() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// MatchSource says which heuristic produced a suggestion.
type MatchSource string

const (
	MatchedByRule MatchSource = "rule"
	MatchedByName MatchSource = "name"
)

// Candidate is one transaction under review.
type Candidate struct {
	ID          string       `json:"id"`
	BatchID     string       `json:"batch_id"`
	Transaction Transaction  `json:"transaction"`
	Status      Status       `json:"status"`
	MemberID    string       `json:"member_id,omitempty"`
	Month       member.Month `json:"month,omitempty"`
	MatchedBy   MatchSource  `json:"matched_by,omitempty"`
	Note        string       `json:"note,omitempty"`
}

// Assignment is the human decision applied on confirmation. It may correct
// the suggested member or month.
type Assignment struct {
	MemberID string       `json:"member_id"`
	Month    member.Month `json:"month"`
	Purpose  string       `json:"purpose,omitempty"`
}

// Proposal is the pure output of Propose: every transaction of the batch as
// a candidate, plus the parse diagnostics carried through for the report.
type Proposal struct {
	BatchID     string       `json:"batch_id"`
	Source      string       `json:"source"`
	Candidates  []*Candidate `json:"candidates"`
	Diagnostics []RowError   `json:"diagnostics,omitempty"`
}

// PaymentRecord is the durable outcome of one confirmed transaction.
type PaymentRecord struct {
	MemberID  string          `json:"member_id"`
	Month     member.Month    `json:"month"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Reference string          `json:"reference"`
	Purpose   string          `json:"purpose"`
	Source    string          `json:"source"`
}

// Rule maps a normalized payment-reference fragment to a member.
type Rule struct {
	Fragment string `json:"fragment"`
	MemberID string `json:"member_id"`
}

// RuleStore is the learning assignment-rule table. Learn must persist
// immediately so later imports see the rule.
type RuleStore interface {
	Rules(ctx context.Context) ([]Rule, error)
	Learn(ctx context.Context, fragment, memberID string) error
}

// Roster is read-only access to the member store. The engine never mutates
// members directly; payment-status changes flow through the PaymentSink.
type Roster interface {
	Member(ctx context.Context, id string) (member.Member, error)
	ActiveMembers(ctx context.Context) ([]member.Member, error)
	PaidMonths(ctx context.Context, memberID string) (map[member.Month]bool, error)
}

// PaymentSink is the source of truth for recorded payments. Append must be
// atomic with respect to the (member, month, reference) uniqueness key and
// return ErrDuplicatePayment on collision.
//
// ExistsReference ignores the month: a bank reference identifies one
// physical transaction, so a second sighting is a duplicate no matter which
// month it would be booked under.
type PaymentSink interface {
	Append(ctx context.Context, rec PaymentRecord) error
	Exists(ctx context.Context, memberID string, month member.Month, reference string) (bool, error)
	ExistsReference(ctx context.Context, memberID, reference string) (bool, error)
	ExistsByAmount(ctx context.Context, memberID string, date time.Time, amount decimal.Decimal) (bool, error)
}
