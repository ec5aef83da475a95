package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klab-verein/kassenwart/internal/domain/member"
)

// Engine reconciles statement batches against the member roster and the
// payment record set. Propose is pure and re-runnable; Confirm and Reject
// mutate the stores and are serialized per candidate.
type Engine struct {
	rules    RuleStore
	roster   Roster
	payments PaymentSink
	logger   *slog.Logger

	mu         sync.Mutex
	candidates map[string]*Candidate
	locks      map[string]*sync.Mutex
}

// New creates an engine wired to the given stores.
func New(rules RuleStore, roster Roster, payments PaymentSink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:      rules,
		roster:     roster,
		payments:   payments,
		logger:     logger,
		candidates: make(map[string]*Candidate),
		locks:      make(map[string]*sync.Mutex),
	}
}

// Propose classifies every transaction of the batch and registers the
// resulting candidates for later Confirm/Reject calls. It never writes to
// the rule store or the payment sink.
func (e *Engine) Propose(ctx context.Context, batch *Batch) (*Proposal, error) {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}

	rules, err := e.rules.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading assignment rules: %w", err)
	}
	members, err := e.roster.ActiveMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}

	ids := make([]string, 0, len(members))
	names := make(map[string]string, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
		names[m.ID] = m.Name
	}
	nameIdx := buildNameIndex(ids, names)
	paidCache := make(map[string]map[member.Month]bool)

	proposal := &Proposal{
		BatchID:     batch.ID,
		Source:      batch.Source,
		Diagnostics: batch.Diagnostics,
	}

	for _, tx := range batch.Transactions {
		c := &Candidate{
			ID:          uuid.NewString(),
			BatchID:     batch.ID,
			Transaction: tx,
		}
		if err := e.classify(ctx, c, rules, nameIdx, paidCache); err != nil {
			return nil, err
		}
		proposal.Candidates = append(proposal.Candidates, c)
	}

	e.flagInBatchDuplicates(proposal.Candidates)
	e.register(proposal.Candidates)

	e.logger.Info("batch proposed",
		"batch_id", batch.ID,
		"source", batch.Source,
		"candidates", len(proposal.Candidates),
		"diagnostics", len(proposal.Diagnostics))
	return proposal, nil
}

// classify runs the match heuristics and the historical duplicate check for
// a single candidate.
func (e *Engine) classify(ctx context.Context, c *Candidate, rules []Rule, nameIdx *nameIndex, paidCache map[string]map[member.Month]bool) error {
	key := Normalize(c.Transaction.Details + " " + c.Transaction.Purpose)

	memberID, source, note := resolveMatch(rules, nameIdx, key)
	if memberID == "" {
		c.Status = StatusUnmatched
		c.Note = note
		return nil
	}

	paid, ok := paidCache[memberID]
	if !ok {
		var err error
		paid, err = e.roster.PaidMonths(ctx, memberID)
		if err != nil {
			return fmt.Errorf("loading paid months for %s: %w", memberID, err)
		}
		paidCache[memberID] = paid
	}

	c.Status = StatusMatched
	c.MemberID = memberID
	c.MatchedBy = source
	c.Month = suggestMonth(paid, c.Transaction.Date)

	dup, reason, err := e.isRecorded(ctx, memberID, c.Month, c.Transaction)
	if err != nil {
		return err
	}
	if dup {
		c.Status = StatusDuplicate
		c.Note = reason
	}
	return nil
}

// resolveMatch applies the rule table first and the name heuristic second.
// When the two heuristics disagree the row is surfaced as unmatched rather
// than guessed: a wrong auto-assignment is worse than a manual review.
func resolveMatch(rules []Rule, nameIdx *nameIndex, key string) (memberID string, source MatchSource, note string) {
	ruleHit, ruleOK := matchRules(rules, key)
	nameHit, nameOK, nameAmbiguous := nameIdx.match(key)

	switch {
	case ruleOK && nameOK && ruleHit.MemberID != nameHit:
		return "", "", fmt.Sprintf("rule suggests %s but name match suggests %s", ruleHit.MemberID, nameHit)
	case ruleOK:
		return ruleHit.MemberID, MatchedByRule, ""
	case nameAmbiguous:
		return "", "", "free text names more than one member"
	case nameOK:
		return nameHit, MatchedByName, ""
	}
	return "", "", ""
}

// suggestMonth picks the dues month for a matched transaction: the month of
// the transaction date, or the earliest unpaid month when that one is
// already covered.
func suggestMonth(paid map[member.Month]bool, date time.Time) member.Month {
	txMonth := member.MonthOf(date)
	if !paid[txMonth] {
		return txMonth
	}
	m := member.Month{Year: date.Year(), Month: time.January}
	for i := 0; i < 24; i++ {
		if !paid[m] {
			return m
		}
		m = m.Next()
	}
	return txMonth
}

// isRecorded checks the transaction against the historical payment record
// set. A bank reference identifies one physical transaction, so it is
// checked month-independently. Rows without a bank reference fall back to
// the details-derived (member, month, reference) key and the conservative
// (member, date, amount) key, which together catch re-imports while leaving
// recurring transfers with identical details text confirmable.
func (e *Engine) isRecorded(ctx context.Context, memberID string, month member.Month, tx Transaction) (bool, string, error) {
	if ref := strings.TrimSpace(tx.Reference); ref != "" {
		exists, err := e.payments.ExistsReference(ctx, memberID, ref)
		if err != nil {
			return false, "", fmt.Errorf("checking payment records: %w", err)
		}
		if exists {
			return true, fmt.Sprintf("reference %s already recorded for %s", ref, memberID), nil
		}
		return false, "", nil
	}

	if ref := tx.ReferenceKey(); ref != "" {
		exists, err := e.payments.Exists(ctx, memberID, month, ref)
		if err != nil {
			return false, "", fmt.Errorf("checking payment records: %w", err)
		}
		if exists {
			return true, fmt.Sprintf("payment for %s %s with this reference already recorded", memberID, month), nil
		}
	}
	exists, err := e.payments.ExistsByAmount(ctx, memberID, tx.Date, tx.Amount)
	if err != nil {
		return false, "", fmt.Errorf("checking payment records: %w", err)
	}
	if exists {
		return true, fmt.Sprintf("payment of %s on %s already recorded for %s", tx.Amount, tx.Date.Format("2006-01-02"), memberID), nil
	}
	return false, "", nil
}

// flagInBatchDuplicates enforces the within-batch invariants: two rows that
// derive the same (member, month, reference) key cannot both be confirmed,
// and rows without reference text sharing a (date, amount) pair are flagged
// as conflicts instead of auto-picking one.
func (e *Engine) flagInBatchDuplicates(candidates []*Candidate) {
	seen := make(map[string]int) // dedupe key -> line index of first occurrence
	for i, c := range candidates {
		if c.Status != StatusMatched {
			continue
		}
		if ref := c.Transaction.ReferenceKey(); ref != "" {
			key := c.MemberID + "\x00" + c.Month.String() + "\x00" + ref
			if first, ok := seen[key]; ok {
				c.Status = StatusDuplicate
				c.Note = fmt.Sprintf("same payment as row %d of this statement", first+1)
				continue
			}
			seen[key] = i
		}
	}

	byAmount := make(map[string][]*Candidate)
	for _, c := range candidates {
		if c.Transaction.Reference != "" {
			continue
		}
		key := c.Transaction.Date.Format("2006-01-02") + "\x00" + c.Transaction.Amount.String()
		byAmount[key] = append(byAmount[key], c)
	}
	for _, group := range byAmount {
		if len(group) < 2 {
			continue
		}
		for _, c := range group {
			if c.Status == StatusMatched {
				c.Status = StatusConflict
				c.Note = "another row in this statement has the same date and amount and no reference"
			}
		}
	}
}

// register makes candidates addressable by Confirm and Reject.
func (e *Engine) register(candidates []*Candidate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range candidates {
		e.candidates[c.ID] = c
	}
}

// Register adds externally persisted candidates to the engine, e.g. when
// resuming review of a batch proposed before a restart.
func (e *Engine) Register(candidates ...*Candidate) {
	e.register(candidates)
}

// Candidate returns a registered candidate by id.
func (e *Engine) Candidate(id string) (*Candidate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.candidates[id]
	if !ok {
		return nil, ErrUnknownCandidate
	}
	return c, nil
}

// lockFor returns the confirmation lock for a candidate id. Confirmations
// of different candidates are independent; the duplicate check is re-run
// against the sink under the lock.
func (e *Engine) lockFor(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Confirm applies a human decision to a candidate: it re-validates the
// duplicate key against the latest payment record set, appends exactly one
// payment record, and teaches the rule store the fragment when the
// assignment was not already covered by a rule.
func (e *Engine) Confirm(ctx context.Context, candidateID string, a Assignment) (*PaymentRecord, error) {
	c, err := e.Candidate(candidateID)
	if err != nil {
		return nil, err
	}
	lock := e.lockFor(candidateID)
	lock.Lock()
	defer lock.Unlock()

	if c.Status.Resolved() {
		return nil, ErrAlreadyResolved
	}
	if c.Status == StatusDuplicate {
		return nil, fmt.Errorf("%w: %s", ErrCandidateBlocked, c.Note)
	}
	if a.MemberID == "" {
		return nil, fmt.Errorf("confirmation requires a member assignment")
	}
	month := a.Month
	if month.IsZero() {
		month = c.Month
	}
	if month.IsZero() {
		return nil, fmt.Errorf("confirmation requires a dues month")
	}
	purpose := a.Purpose
	if purpose == "" {
		purpose = PurposeDues
	}
	if purpose != PurposeDues && purpose != PurposeIntroCourse {
		return nil, fmt.Errorf("unknown payment purpose %q", purpose)
	}

	m, err := e.roster.Member(ctx, a.MemberID)
	if err != nil {
		return nil, fmt.Errorf("looking up member %s: %w", a.MemberID, err)
	}
	if !m.Obligated() {
		return nil, fmt.Errorf("%w: %s is %s", ErrMemberNotObligated, m.Name, m.Category)
	}

	// Duplicate detection re-runs at confirmation time so records appended
	// since Propose (or by a sibling candidate) are caught.
	dup, reason, err := e.isRecorded(ctx, a.MemberID, month, c.Transaction)
	if err != nil {
		return nil, err
	}
	if dup {
		c.Status = StatusDuplicate
		c.Note = reason
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePayment, reason)
	}

	rec := PaymentRecord{
		MemberID:  a.MemberID,
		Month:     month,
		Amount:    c.Transaction.Amount,
		Date:      c.Transaction.Date,
		Reference: c.Transaction.ReferenceKey(),
		Purpose:   purpose,
		Source:    c.BatchID,
	}
	if err := e.payments.Append(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			c.Status = StatusDuplicate
			c.Note = "payment record already exists"
		}
		return nil, fmt.Errorf("appending payment record: %w", err)
	}

	e.learn(ctx, c, a.MemberID)

	c.Status = StatusConfirmed
	c.MemberID = a.MemberID
	c.Month = month
	e.logger.Info("candidate confirmed",
		"candidate_id", c.ID,
		"member_id", a.MemberID,
		"month", month.String(),
		"amount", rec.Amount.String())
	return &rec, nil
}

// learn stores the normalized details fragment unless an identical rule
// suggestion already produced this assignment. Learn failures do not undo
// the confirmation; the payment record is already durable.
func (e *Engine) learn(ctx context.Context, c *Candidate, memberID string) {
	if c.MatchedBy == MatchedByRule && c.MemberID == memberID {
		return
	}
	fragment := Normalize(c.Transaction.Details)
	if fragment == "" {
		return
	}
	if err := e.rules.Learn(ctx, fragment, memberID); err != nil {
		e.logger.Warn("rule learning failed", "fragment", fragment, "member_id", memberID, "error", err)
	}
}

// Reject discards a candidate. No record is emitted and no rule is learned.
func (e *Engine) Reject(ctx context.Context, candidateID string) error {
	c, err := e.Candidate(candidateID)
	if err != nil {
		return err
	}
	lock := e.lockFor(candidateID)
	lock.Lock()
	defer lock.Unlock()

	if c.Status.Resolved() {
		return ErrAlreadyResolved
	}
	c.Status = StatusRejected
	e.logger.Info("candidate rejected", "candidate_id", c.ID)
	return nil
}
