// Package memory provides an in-process Store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/adscore"
	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/statement"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/types"
)

type Store struct {
	mu sync.RWMutex

	// Tier storage
	tiers map[string]*tier.Tier

	// Ledger storage
	ledgers map[string]*credit.Ledger

	// Transaction logs, keyed by ledger ID, append-only
	txns map[string][]*credit.Transaction

	// Project storage
	projects map[string]*project.Project

	// Promo storage
	promos map[string]*promo.Promo

	// Statement storage
	statements map[string]*statement.Statement
}

func New() *Store {
	return &Store{
		tiers:      make(map[string]*tier.Tier),
		ledgers:    make(map[string]*credit.Ledger),
		txns:       make(map[string][]*credit.Transaction),
		projects:   make(map[string]*project.Project),
		promos:     make(map[string]*promo.Promo),
		statements: make(map[string]*statement.Statement),
	}
}

// Tier Store implementation

func (s *Store) CreateTier(_ context.Context, t *tier.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tiers[t.ID.String()]; exists {
		return adscore.ErrAlreadyExists
	}
	for _, existing := range s.tiers {
		if existing.Key == t.Key && existing.AppID == t.AppID {
			return adscore.ErrAlreadyExists
		}
	}
	s.tiers[t.ID.String()] = t
	return nil
}

func (s *Store) GetTier(_ context.Context, tierID id.TierID) (*tier.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tiers[tierID.String()]; ok {
		return t, nil
	}
	return nil, adscore.ErrTierNotFound
}

func (s *Store) GetTierByKey(_ context.Context, key, appID string) (*tier.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tiers {
		if t.Key == key && t.AppID == appID {
			return t, nil
		}
	}
	return nil, adscore.ErrTierNotFound
}

func (s *Store) ListTiers(_ context.Context, appID string, opts tier.ListOpts) ([]*tier.Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*tier.Tier, 0)
	for _, t := range s.tiers {
		if t.AppID == appID {
			if opts.Status == "" || t.Status == opts.Status {
				result = append(result, t)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateTier(_ context.Context, t *tier.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tiers[t.ID.String()]; !exists {
		return adscore.ErrTierNotFound
	}
	s.tiers[t.ID.String()] = t
	return nil
}

func (s *Store) ArchiveTier(_ context.Context, tierID id.TierID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tiers[tierID.String()]
	if !exists {
		return adscore.ErrTierNotFound
	}
	t.Status = tier.StatusArchived
	t.Touch()
	return nil
}

// Ledger Store implementation

func (s *Store) CreateLedger(_ context.Context, l *credit.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgers[l.ID.String()]; exists {
		return adscore.ErrAlreadyExists
	}
	for _, existing := range s.ledgers {
		if existing.AccountID == l.AccountID && existing.AppID == l.AppID {
			return adscore.ErrLedgerExists
		}
	}
	s.ledgers[l.ID.String()] = l
	return nil
}

func (s *Store) GetLedger(_ context.Context, ledgerID id.LedgerID) (*credit.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.ledgers[ledgerID.String()]; ok {
		return copyLedger(l), nil
	}
	return nil, adscore.ErrLedgerNotFound
}

func (s *Store) GetLedgerByAccount(_ context.Context, accountID, appID string) (*credit.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.findLedgerLocked(accountID, appID)
	if err != nil {
		return nil, err
	}
	return copyLedger(l), nil
}

func (s *Store) findLedgerLocked(accountID, appID string) (*credit.Ledger, error) {
	for _, l := range s.ledgers {
		if l.AccountID == accountID && l.AppID == appID {
			return l, nil
		}
	}
	return nil, adscore.ErrLedgerNotFound
}

func (s *Store) UpdateLedger(_ context.Context, l *credit.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgers[l.ID.String()]; !exists {
		return adscore.ErrLedgerNotFound
	}
	s.ledgers[l.ID.String()] = copyLedger(l)
	return nil
}

// Debit holds the write lock across the funds check and the mutation, so
// two competing debits serialize and the loser sees the drained balance.
func (s *Store) Debit(_ context.Context, ledgerID id.LedgerID, operation string, total types.Credits, description string) (*credit.Transaction, error) {
	if total <= 0 {
		return nil, adscore.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.ledgers[ledgerID.String()]
	if !exists {
		return nil, adscore.ErrLedgerNotFound
	}
	if l.Available() < total {
		return nil, &adscore.InsufficientCreditsError{
			AccountID: l.AccountID,
			Operation: operation,
			Required:  total,
			Available: l.Available(),
		}
	}

	fromBalance, fromBonus := credit.SplitDebit(l.Balance, l.BonusCredits, total)
	l.Balance = l.Balance.Sub(fromBalance)
	l.BonusCredits = l.BonusCredits.Sub(fromBonus)
	l.Touch()

	txn := &credit.Transaction{
		ID:           id.NewTransactionID(),
		LedgerID:     l.ID,
		AccountID:    l.AccountID,
		AppID:        l.AppID,
		Operation:    operation,
		Kind:         credit.KindDebit,
		BalanceDelta: fromBalance.Negate(),
		BonusDelta:   fromBonus.Negate(),
		Description:  description,
		Timestamp:    time.Now().UTC(),
	}
	s.txns[l.ID.String()] = append(s.txns[l.ID.String()], txn)
	return txn, nil
}

func (s *Store) Grant(_ context.Context, ledgerID id.LedgerID, amount types.Credits, description string) (*credit.Transaction, error) {
	if amount <= 0 {
		return nil, adscore.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.ledgers[ledgerID.String()]
	if !exists {
		return nil, adscore.ErrLedgerNotFound
	}
	l.BonusCredits = l.BonusCredits.Add(amount)
	l.Touch()

	txn := &credit.Transaction{
		ID:          id.NewTransactionID(),
		LedgerID:    l.ID,
		AccountID:   l.AccountID,
		AppID:       l.AppID,
		Kind:        credit.KindGrant,
		BonusDelta:  amount,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
	s.txns[l.ID.String()] = append(s.txns[l.ID.String()], txn)
	return txn, nil
}

func (s *Store) Refund(_ context.Context, ledgerID id.LedgerID, operation string, amount types.Credits, description string) (*credit.Transaction, error) {
	if amount <= 0 {
		return nil, adscore.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.ledgers[ledgerID.String()]
	if !exists {
		return nil, adscore.ErrLedgerNotFound
	}
	// Refunds return to the bonus pool so a mid-cycle reset cannot
	// overwrite them.
	l.BonusCredits = l.BonusCredits.Add(amount)
	l.Touch()

	txn := &credit.Transaction{
		ID:          id.NewTransactionID(),
		LedgerID:    l.ID,
		AccountID:   l.AccountID,
		AppID:       l.AppID,
		Operation:   operation,
		Kind:        credit.KindRefund,
		BonusDelta:  amount,
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
	s.txns[l.ID.String()] = append(s.txns[l.ID.String()], txn)
	return txn, nil
}

func (s *Store) Reset(_ context.Context, ledgerID id.LedgerID, allowance types.Credits, nextReset time.Time) (*credit.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.ledgers[ledgerID.String()]
	if !exists {
		return nil, adscore.ErrLedgerNotFound
	}
	delta := allowance.Sub(l.Balance)
	l.Balance = allowance
	l.CycleResetAt = nextReset
	l.Touch()

	txn := &credit.Transaction{
		ID:           id.NewTransactionID(),
		LedgerID:     l.ID,
		AccountID:    l.AccountID,
		AppID:        l.AppID,
		Kind:         credit.KindReset,
		BalanceDelta: delta,
		Description:  "cycle reset",
		Timestamp:    time.Now().UTC(),
	}
	s.txns[l.ID.String()] = append(s.txns[l.ID.String()], txn)
	return txn, nil
}

func (s *Store) AppendTransaction(_ context.Context, txn *credit.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ledgers[txn.LedgerID.String()]; !exists {
		return adscore.ErrLedgerNotFound
	}
	s.txns[txn.LedgerID.String()] = append(s.txns[txn.LedgerID.String()], txn)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, ledgerID id.LedgerID, opts credit.TxnListOpts) ([]*credit.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.ledgers[ledgerID.String()]; !exists {
		return nil, adscore.ErrLedgerNotFound
	}

	result := make([]*credit.Transaction, 0)
	for _, txn := range s.txns[ledgerID.String()] {
		if opts.Kind != "" && txn.Kind != opts.Kind {
			continue
		}
		if !opts.Start.IsZero() && txn.Timestamp.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !txn.Timestamp.Before(opts.End) {
			continue
		}
		result = append(result, txn)
	}
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListDueForReset(_ context.Context, now time.Time, limit int) ([]*credit.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*credit.Ledger, 0)
	for _, l := range s.ledgers {
		if !l.CycleResetAt.IsZero() && !l.CycleResetAt.After(now) {
			result = append(result, copyLedger(l))
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Project Store implementation

func (s *Store) CreateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[p.ID.String()]; exists {
		return adscore.ErrAlreadyExists
	}
	s.projects[p.ID.String()] = copyProject(p)
	return nil
}

func (s *Store) GetProject(_ context.Context, projectID id.ProjectID) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.projects[projectID.String()]; ok {
		return copyProject(p), nil
	}
	return nil, adscore.ErrProjectNotFound
}

func (s *Store) ListProjects(_ context.Context, accountID, appID string, opts project.ListOpts) ([]*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*project.Project, 0)
	for _, p := range s.projects {
		if p.AccountID == accountID && p.AppID == appID {
			if opts.Status == "" || p.Status == opts.Status {
				result = append(result, copyProject(p))
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateProject(_ context.Context, p *project.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[p.ID.String()]; !exists {
		return adscore.ErrProjectNotFound
	}
	s.projects[p.ID.String()] = copyProject(p)
	return nil
}

func (s *Store) DeleteProject(_ context.Context, projectID id.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, projectID.String())
	return nil
}

// BeginAnalysis performs the status check and the transition under one
// lock hold, so two concurrent requests cannot both enter analyzing.
func (s *Store) BeginAnalysis(_ context.Context, projectID id.ProjectID, tools []string, startedAt time.Time) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.projects[projectID.String()]
	if !exists {
		return nil, adscore.ErrProjectNotFound
	}
	if p.Status == project.StatusAnalyzing {
		return nil, adscore.ErrAnalysisInProgress
	}

	p.Status = project.StatusAnalyzing
	p.EnabledTools = append([]string(nil), tools...)
	p.ToolResults = make(map[string]*project.ToolResult, len(tools))
	for _, name := range tools {
		p.ToolResults[name] = &project.ToolResult{
			ID:       id.NewToolRunID(),
			ToolName: name,
			Status:   project.ResultPending,
		}
	}
	p.OverallScore = nil
	p.CompletedAt = nil
	p.LastAnalyzedAt = &startedAt
	p.Touch()
	return copyProject(p), nil
}

func (s *Store) PutToolResult(_ context.Context, projectID id.ProjectID, result *project.ToolResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.projects[projectID.String()]
	if !exists {
		return adscore.ErrProjectNotFound
	}
	if p.ToolResults == nil {
		p.ToolResults = make(map[string]*project.ToolResult)
	}
	p.ToolResults[result.ToolName] = copyToolResult(result)
	p.Touch()
	return nil
}

func (s *Store) FinalizeProject(_ context.Context, projectID id.ProjectID, status project.Status, overallScore *int, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.projects[projectID.String()]
	if !exists {
		return adscore.ErrProjectNotFound
	}
	p.Status = status
	p.OverallScore = overallScore
	p.CompletedAt = &completedAt
	p.Touch()
	return nil
}

// Promo Store implementation

func (s *Store) CreatePromo(_ context.Context, p *promo.Promo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.promos[p.ID.String()]; exists {
		return adscore.ErrAlreadyExists
	}
	for _, existing := range s.promos {
		if existing.Code == p.Code && existing.AppID == p.AppID {
			return adscore.ErrAlreadyExists
		}
	}
	s.promos[p.ID.String()] = p
	return nil
}

func (s *Store) GetPromo(_ context.Context, code, appID string) (*promo.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.promos {
		if p.Code == code && p.AppID == appID {
			return p, nil
		}
	}
	return nil, adscore.ErrPromoNotFound
}

func (s *Store) GetPromoByID(_ context.Context, promoID id.PromoID) (*promo.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.promos[promoID.String()]; ok {
		return p, nil
	}
	return nil, adscore.ErrPromoNotFound
}

func (s *Store) ListPromos(_ context.Context, appID string, opts promo.ListOpts) ([]*promo.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	result := make([]*promo.Promo, 0)
	for _, p := range s.promos {
		if p.AppID != appID {
			continue
		}
		if opts.Active && !p.Redeemable(now) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdatePromo(_ context.Context, p *promo.Promo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.promos[p.ID.String()]; !exists {
		return adscore.ErrPromoNotFound
	}
	s.promos[p.ID.String()] = p
	return nil
}

func (s *Store) DeletePromo(_ context.Context, promoID id.PromoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.promos, promoID.String())
	return nil
}

// RedeemPromo checks the validity window and the cap and increments the
// counter under one lock hold, so a cap of N yields at most N redemptions.
func (s *Store) RedeemPromo(_ context.Context, code, appID string, now time.Time) (*promo.Promo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *promo.Promo
	for _, p := range s.promos {
		if p.Code == code && p.AppID == appID {
			target = p
			break
		}
	}
	if target == nil {
		return nil, adscore.ErrPromoNotFound
	}
	if target.ValidFrom != nil && now.Before(*target.ValidFrom) {
		return nil, adscore.ErrPromoNotStarted
	}
	if target.ValidUntil != nil && now.After(*target.ValidUntil) {
		return nil, adscore.ErrPromoExpired
	}
	if target.MaxRedemptions > 0 && target.TimesRedeemed >= target.MaxRedemptions {
		return nil, adscore.ErrPromoExhausted
	}
	target.TimesRedeemed++
	target.Touch()

	clone := *target
	return &clone, nil
}

// Statement Store implementation

func (s *Store) CreateStatement(_ context.Context, st *statement.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.statements[st.ID.String()]; exists {
		return adscore.ErrAlreadyExists
	}
	s.statements[st.ID.String()] = st
	return nil
}

func (s *Store) GetStatement(_ context.Context, stmtID id.StatementID) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.statements[stmtID.String()]; ok {
		return st, nil
	}
	return nil, adscore.ErrStatementNotFound
}

func (s *Store) ListStatements(_ context.Context, accountID, appID string, opts statement.ListOpts) ([]*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*statement.Statement, 0)
	for _, st := range s.statements {
		if st.AccountID != accountID || st.AppID != appID {
			continue
		}
		if !opts.Start.IsZero() && st.PeriodStart.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && st.PeriodEnd.After(opts.End) {
			continue
		}
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PeriodStart.Before(result[j].PeriodStart)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) GetStatementByPeriod(_ context.Context, accountID, appID string, periodStart, periodEnd time.Time) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.statements {
		if st.AccountID == accountID && st.AppID == appID &&
			st.PeriodStart.Equal(periodStart) && st.PeriodEnd.Equal(periodEnd) {
			return st, nil
		}
	}
	return nil, adscore.ErrStatementNotFound
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// helpers

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func copyLedger(l *credit.Ledger) *credit.Ledger {
	clone := *l
	return &clone
}

// copyProject clones the project deep enough that callers never share the
// tool result map with the stored copy.
func copyProject(p *project.Project) *project.Project {
	clone := *p
	clone.EnabledTools = append([]string(nil), p.EnabledTools...)
	if p.ToolResults != nil {
		clone.ToolResults = make(map[string]*project.ToolResult, len(p.ToolResults))
		for name, r := range p.ToolResults {
			clone.ToolResults[name] = copyToolResult(r)
		}
	}
	return &clone
}

func copyToolResult(r *project.ToolResult) *project.ToolResult {
	clone := *r
	return &clone
}
