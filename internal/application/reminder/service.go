package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klab-verein/kassenwart/internal/domain/dues"
	"github.com/klab-verein/kassenwart/internal/domain/member"
)

// Roster is the read-only member access the service needs.
type Roster interface {
	ListMembers(ctx context.Context) ([]member.Member, error)
	PaidMonths(ctx context.Context, memberID string) (map[member.Month]bool, error)
}

// Service sends payment reminders to members with outstanding dues.
type Service struct {
	clubName string
	roster   Roster
	sender   Sender
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires a reminder service. sender may be nil when only the CSV
// export is used.
func NewService(clubName string, roster Roster, sender Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		clubName: clubName,
		roster:   roster,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// Entry is one member's outstanding-dues summary.
type Entry struct {
	Member      member.Member   `json:"member"`
	Outstanding []member.Month  `json:"outstanding"`
	Total       decimal.Decimal `json:"total"`
	Message     string          `json:"message"`
}

// Outstanding collects the reminder entries: members who owe at least one
// month. Inactive members are skipped entirely.
func (s *Service) Outstanding(ctx context.Context) ([]Entry, error) {
	members, err := s.roster.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	var entries []Entry
	now := s.now()
	for _, m := range members {
		if !m.Obligated() {
			continue
		}
		paid, err := s.roster.PaidMonths(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("loading paid months for %s: %w", m.ID, err)
		}
		months, total := dues.Outstanding(m, paid, now)
		if len(months) == 0 {
			continue
		}
		entries = append(entries, Entry{
			Member:      m,
			Outstanding: months,
			Total:       total,
			Message:     BuildMessage(s.clubName, m, months, total),
		})
	}
	return entries, nil
}

// SendAll delivers a reminder to every member with outstanding dues and a
// Telegram chat id. The result maps member names to delivery success; a
// failed send never aborts the run.
func (s *Service) SendAll(ctx context.Context) (map[string]bool, error) {
	if s.sender == nil {
		return nil, fmt.Errorf("no message sender configured")
	}

	entries, err := s.Outstanding(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool)
	for _, e := range entries {
		if e.Member.TelegramChatID == "" {
			s.logger.Warn("no telegram chat id", "member", e.Member.Name)
			continue
		}
		if err := s.sender.Send(ctx, e.Member.TelegramChatID, e.Message); err != nil {
			s.logger.Error("reminder delivery failed", "member", e.Member.Name, "error", err)
			results[e.Member.Name] = false
			continue
		}
		s.logger.Info("reminder sent", "member", e.Member.Name, "months", len(e.Outstanding))
		results[e.Member.Name] = true
	}
	return results, nil
}
