package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klab-verein/kassenwart/internal/domain/member"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
)

// ErrCandidateNotFound is returned when looking up an unknown candidate id.
var ErrCandidateNotFound = errors.New("candidate not found")

// SaveProposal persists a batch and its candidates so the review can be
// resumed later. Candidate rows are rewritten on re-save.
func (s *Storage) SaveProposal(ctx context.Context, p *recon.Proposal, importedAt time.Time) error {
	diagJSON, err := json.Marshal(p.Diagnostics)
	if err != nil {
		return fmt.Errorf("encoding diagnostics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO import_batches (id, source, imported_at, row_count, diagnostics_json)
		VALUES (?, ?, ?, ?, ?)
	`, p.BatchID, p.Source, importedAt, len(p.Candidates), string(diagJSON))
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}

	for _, c := range p.Candidates {
		if err := upsertCandidate(ctx, tx, c); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertCandidate(ctx context.Context, tx *sql.Tx, c *recon.Candidate) error {
	month := ""
	if !c.Month.IsZero() {
		month = c.Month.String()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO candidates
		(id, batch_id, tx_date, tx_amount, details, purpose, reference, status, member_id, month, matched_by, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.BatchID, c.Transaction.Date, c.Transaction.Amount.String(),
		c.Transaction.Details, c.Transaction.Purpose, c.Transaction.Reference,
		string(c.Status), c.MemberID, month, string(c.MatchedBy), c.Note)
	if err != nil {
		return fmt.Errorf("inserting candidate %s: %w", c.ID, err)
	}
	return nil
}

// UpdateCandidate rewrites the persisted state of a candidate after a
// confirm or reject.
func (s *Storage) UpdateCandidate(ctx context.Context, c *recon.Candidate) error {
	month := ""
	if !c.Month.IsZero() {
		month = c.Month.String()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE candidates SET status = ?, member_id = ?, month = ?, note = ? WHERE id = ?
	`, string(c.Status), c.MemberID, month, c.Note, c.ID)
	if err != nil {
		return fmt.Errorf("updating candidate %s: %w", c.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, c.ID)
	}
	return nil
}

// GetCandidate loads a single persisted candidate.
func (s *Storage) GetCandidate(ctx context.Context, id string) (*recon.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, batch_id, tx_date, tx_amount, details, purpose, reference, status, member_id, month, matched_by, note
		FROM candidates WHERE id = ?
	`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	return c, err
}

// CandidatesByBatch returns all candidates of one import batch.
func (s *Storage) CandidatesByBatch(ctx context.Context, batchID string) ([]*recon.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, tx_date, tx_amount, details, purpose, reference, status, member_id, month, matched_by, note
		FROM candidates WHERE batch_id = ? ORDER BY tx_date, id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*recon.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func scanCandidate(row rowScanner) (*recon.Candidate, error) {
	var (
		c         recon.Candidate
		rawAmount string
		rawStatus string
		rawMonth  string
		matchedBy string
	)
	err := row.Scan(&c.ID, &c.BatchID, &c.Transaction.Date, &rawAmount,
		&c.Transaction.Details, &c.Transaction.Purpose, &c.Transaction.Reference,
		&rawStatus, &c.MemberID, &rawMonth, &matchedBy, &c.Note)
	if err != nil {
		return nil, err
	}
	if c.Transaction.Amount, err = parseAmount(rawAmount); err != nil {
		return nil, err
	}
	if rawMonth != "" {
		if c.Month, err = member.ParseMonth(rawMonth); err != nil {
			return nil, err
		}
	}
	c.Status = recon.Status(rawStatus)
	c.MatchedBy = recon.MatchSource(matchedBy)
	return &c, nil
}

// ListBatches returns recent import batches with review-progress counts.
func (s *Storage) ListBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.source, b.imported_at, b.row_count, b.diagnostics_json,
		       COALESCE(SUM(CASE WHEN c.status = 'confirmed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN c.status = 'rejected' THEN 1 ELSE 0 END), 0)
		FROM import_batches b
		LEFT JOIN candidates c ON c.batch_id = b.id
		GROUP BY b.id
		ORDER BY b.imported_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchSummary
	for rows.Next() {
		var (
			b        BatchSummary
			diagJSON string
		)
		if err := rows.Scan(&b.ID, &b.Source, &b.ImportedAt, &b.RowCount, &diagJSON, &b.Confirmed, &b.Rejected); err != nil {
			return nil, err
		}
		var diags []recon.RowError
		if err := json.Unmarshal([]byte(diagJSON), &diags); err == nil {
			b.Diagnostics = len(diags)
		}
		b.Open = b.RowCount - b.Confirmed - b.Rejected
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
