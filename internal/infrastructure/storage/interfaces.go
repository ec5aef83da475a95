package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/member"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
)

// Repository defines the complete storage interface. It bundles the engine's
// store contracts with the roster and batch persistence used by the API and
// the CLIs.
type Repository interface {
	MemberRepository
	BatchRepository
	recon.RuleStore
	recon.Roster
	recon.PaymentSink
	Close() error
}

// MemberRepository handles roster operations. Members are never deleted;
// Deactivate sets the category to Inaktiv instead.
type MemberRepository interface {
	CreateMember(ctx context.Context, m member.Member) (member.Member, error)
	UpdateMember(ctx context.Context, m member.Member) error
	ListMembers(ctx context.Context) ([]member.Member, error)
	Deactivate(ctx context.Context, id string) error

	// Payments lists the recorded payments of one member, newest first.
	Payments(ctx context.Context, memberID string) ([]recon.PaymentRecord, error)

	// Stats returns roster-level aggregate statistics.
	Stats(ctx context.Context) (*Stats, error)
}

// BatchRepository persists import batches and their review candidates so a
// proposal survives process restarts.
type BatchRepository interface {
	SaveProposal(ctx context.Context, p *recon.Proposal, importedAt time.Time) error
	ListBatches(ctx context.Context, limit int) ([]BatchSummary, error)
	CandidatesByBatch(ctx context.Context, batchID string) ([]*recon.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*recon.Candidate, error)
	UpdateCandidate(ctx context.Context, c *recon.Candidate) error
}

// BatchSummary is one row of the batch listing.
type BatchSummary struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	ImportedAt  time.Time `json:"imported_at"`
	RowCount    int       `json:"row_count"`
	Open        int       `json:"open"`
	Confirmed   int       `json:"confirmed"`
	Rejected    int       `json:"rejected"`
	Diagnostics int       `json:"diagnostics"`
}

// Stats holds roster-level aggregates for the stats endpoint.
type Stats struct {
	TotalMembers    int             `json:"total_members"`
	ActiveMembers   int             `json:"active_members"`
	PassiveMembers  int             `json:"passive_members"`
	InactiveMembers int             `json:"inactive_members"`
	PaymentCount    int             `json:"payment_count"`
	PaymentTotal    decimal.Decimal `json:"payment_total"`
}
