package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/klab-verein/kassenwart/internal/domain/member"
)

// ErrMemberNotFound is returned when looking up an unknown member id.
var ErrMemberNotFound = errors.New("member not found")

// CreateMember stores a new member. When m.ID is empty the next sequential
// id (M001, M002, …) is assigned.
func (s *Storage) CreateMember(ctx context.Context, m member.Member) (member.Member, error) {
	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return member.Member{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if m.ID == "" {
		m.ID, err = nextMemberID(tx)
		if err != nil {
			return member.Member{}, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (id, name, phone, email, category, intro_course_done, telegram_chat_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Phone, m.Email, string(m.Category), m.IntroCourseDone, m.TelegramChatID)
	if err != nil {
		return member.Member{}, fmt.Errorf("inserting member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return member.Member{}, err
	}
	return m, nil
}

// nextMemberID finds the highest numeric M-id and returns the one after it.
func nextMemberID(tx *sql.Tx) (string, error) {
	var max sql.NullInt64
	err := tx.QueryRow(`
		SELECT MAX(CAST(SUBSTR(id, 2) AS INTEGER)) FROM members WHERE id LIKE 'M%'
	`).Scan(&max)
	if err != nil {
		return "", fmt.Errorf("finding next member id: %w", err)
	}
	return fmt.Sprintf("M%03d", max.Int64+1), nil
}

// UpdateMember rewrites the mutable fields of a member.
func (s *Storage) UpdateMember(ctx context.Context, m member.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET name = ?, phone = ?, email = ?, category = ?, intro_course_done = ?, telegram_chat_id = ?
		WHERE id = ?
	`, m.Name, m.Phone, m.Email, string(m.Category), m.IntroCourseDone, m.TelegramChatID, m.ID)
	if err != nil {
		return fmt.Errorf("updating member %s: %w", m.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, m.ID)
	}
	return nil
}

// Deactivate retires a member without deleting history.
func (s *Storage) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET category = ? WHERE id = ?`, string(member.CategoryInactive), id)
	if err != nil {
		return fmt.Errorf("deactivating member %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return nil
}

// Member returns a single member by id.
func (s *Storage) Member(ctx context.Context, id string) (member.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, category, intro_course_done, telegram_chat_id
		FROM members WHERE id = ?
	`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return member.Member{}, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return m, err
}

// ListMembers returns the full roster ordered by id.
func (s *Storage) ListMembers(ctx context.Context) ([]member.Member, error) {
	return s.queryMembers(ctx, `
		SELECT id, name, phone, email, category, intro_course_done, telegram_chat_id
		FROM members ORDER BY id
	`)
}

// ActiveMembers returns all members with a dues obligation, i.e. everyone
// except Inaktiv. These are the only matching targets for reconciliation.
func (s *Storage) ActiveMembers(ctx context.Context) ([]member.Member, error) {
	return s.queryMembers(ctx, `
		SELECT id, name, phone, email, category, intro_course_done, telegram_chat_id
		FROM members WHERE category != ? ORDER BY id
	`, string(member.CategoryInactive))
}

func (s *Storage) queryMembers(ctx context.Context, query string, args ...any) ([]member.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (member.Member, error) {
	var m member.Member
	var category string
	err := row.Scan(&m.ID, &m.Name, &m.Phone, &m.Email, &category, &m.IntroCourseDone, &m.TelegramChatID)
	if err != nil {
		return member.Member{}, err
	}
	m.Category = member.Category(category)
	return m, nil
}

// Stats returns roster-level aggregates.
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN category = 'Aktiv' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN category = 'Passiv' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN category = 'Inaktiv' THEN 1 ELSE 0 END), 0)
		FROM members
	`).Scan(&stats.TotalMembers, &stats.ActiveMembers, &stats.PassiveMembers, &stats.InactiveMembers)
	if err != nil {
		return nil, fmt.Errorf("aggregating members: %w", err)
	}

	var total sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CAST(amount AS REAL)), 0) FROM payments`,
	).Scan(&stats.PaymentCount, &total)
	if err != nil {
		return nil, fmt.Errorf("aggregating payments: %w", err)
	}
	if total.Valid {
		if d, err := parseAmount(total.String); err == nil {
			stats.PaymentTotal = d
		}
	}
	return stats, nil
}
