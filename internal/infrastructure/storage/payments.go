package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/member"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
)

// Append inserts a payment record. The UNIQUE(member_id, month, reference)
// constraint makes the duplicate-key invariant atomic at the database level;
// a collision comes back as recon.ErrDuplicatePayment.
//
// Confirming an Einführungskurs payment also marks the member's intro
// course as completed. The roster change happens here, inside the sink, so
// the engine itself never mutates the member store.
func (s *Storage) Append(ctx context.Context, rec recon.PaymentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (member_id, month, amount, paid_on, reference, purpose, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.MemberID, rec.Month.String(), rec.Amount.String(), rec.Date, rec.Reference, rec.Purpose, rec.Source)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s %s %q", recon.ErrDuplicatePayment, rec.MemberID, rec.Month, rec.Reference)
		}
		return fmt.Errorf("inserting payment: %w", err)
	}

	if rec.Purpose == recon.PurposeIntroCourse {
		if _, err := tx.ExecContext(ctx,
			`UPDATE members SET intro_course_done = 1 WHERE id = ?`, rec.MemberID); err != nil {
			return fmt.Errorf("marking intro course done: %w", err)
		}
	}

	return tx.Commit()
}

// Exists checks the primary duplicate-detection key.
func (s *Storage) Exists(ctx context.Context, memberID string, month member.Month, reference string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payments WHERE member_id = ? AND month = ? AND reference = ?
	`, memberID, month.String(), reference).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking payment key: %w", err)
	}
	return n > 0, nil
}

// ExistsReference checks whether a bank reference was already recorded for
// the member, regardless of the booked month.
func (s *Storage) ExistsReference(ctx context.Context, memberID, reference string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payments WHERE member_id = ? AND reference = ?
	`, memberID, reference).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking payment reference: %w", err)
	}
	return n > 0, nil
}

// ExistsByAmount checks the conservative fallback key for statements that
// omit reference text: same member, same day, same amount.
func (s *Storage) ExistsByAmount(ctx context.Context, memberID string, date time.Time, amount decimal.Decimal) (bool, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payments
		WHERE member_id = ? AND amount = ? AND paid_on >= ? AND paid_on < ?
	`, memberID, amount.String(), dayStart, dayStart.AddDate(0, 0, 1)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking payment fallback key: %w", err)
	}
	return n > 0, nil
}

// PaidMonths returns the set of months a member has already paid for.
func (s *Storage) PaidMonths(ctx context.Context, memberID string) (map[member.Month]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT month FROM payments WHERE member_id = ?`, memberID)
	if err != nil {
		return nil, fmt.Errorf("querying paid months: %w", err)
	}
	defer rows.Close()

	paid := make(map[member.Month]bool)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		m, err := member.ParseMonth(raw)
		if err != nil {
			return nil, err
		}
		paid[m] = true
	}
	return paid, rows.Err()
}

// Payments lists a member's recorded payments, newest first.
func (s *Storage) Payments(ctx context.Context, memberID string) ([]recon.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, month, amount, paid_on, reference, purpose, source
		FROM payments WHERE member_id = ? ORDER BY paid_on DESC
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	var records []recon.PaymentRecord
	for rows.Next() {
		var (
			rec        recon.PaymentRecord
			rawMonth   string
			rawAmount  string
		)
		if err := rows.Scan(&rec.MemberID, &rawMonth, &rawAmount, &rec.Date, &rec.Reference, &rec.Purpose, &rec.Source); err != nil {
			return nil, err
		}
		if rec.Month, err = member.ParseMonth(rawMonth); err != nil {
			return nil, err
		}
		if rec.Amount, err = parseAmount(rawAmount); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", raw, err)
	}
	return d, nil
}
