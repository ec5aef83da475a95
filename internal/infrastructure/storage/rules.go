package storage

import (
	"context"
	"fmt"

	"github.com/klab-verein/kassenwart/internal/domain/recon"
)

// Rules returns the full assignment-rule table.
func (s *Storage) Rules(ctx context.Context) ([]recon.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fragment, member_id FROM rules`)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []recon.Rule
	for rows.Next() {
		var r recon.Rule
		if err := rows.Scan(&r.Fragment, &r.MemberID); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// Learn stores or overwrites a fragment -> member mapping. The fragment is
// normalized before storage; an empty fragment is a no-op. The write is
// durable immediately so the next import benefits.
func (s *Storage) Learn(ctx context.Context, fragment, memberID string) error {
	fragment = recon.Normalize(fragment)
	if fragment == "" || memberID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (fragment, member_id) VALUES (?, ?)
		ON CONFLICT(fragment) DO UPDATE SET member_id = excluded.member_id, learned_at = CURRENT_TIMESTAMP
	`, fragment, memberID)
	if err != nil {
		return fmt.Errorf("storing rule: %w", err)
	}
	return nil
}
