package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	adscore "github.com/xraph/adscore"
	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/statement"
	adstore "github.com/xraph/adscore/store"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/types"
)

// compile-time interface check
var _ adstore.Store = (*Store)(nil)

// debitRetries bounds the optimistic-concurrency retry loop on balance
// mutations.
const debitRetries = 5

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("adscore/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("adscore/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Tier Store ====================

func (s *Store) CreateTier(ctx context.Context, t *tier.Tier) error {
	m := toTierModel(t)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetTier(ctx context.Context, tierID id.TierID) (*tier.Tier, error) {
	m := new(tierModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", tierID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrTierNotFound
		}
		return nil, err
	}
	return fromTierModel(m)
}

func (s *Store) GetTierByKey(ctx context.Context, key, appID string) (*tier.Tier, error) {
	m := new(tierModel)
	err := s.sdb.NewSelect(m).
		Where("key = ?", key).
		Where("app_id = ?", appID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrTierNotFound
		}
		return nil, err
	}
	return fromTierModel(m)
}

func (s *Store) ListTiers(ctx context.Context, appID string, opts tier.ListOpts) ([]*tier.Tier, error) {
	var models []tierModel
	q := s.sdb.NewSelect(&models).Where("app_id = ?", appID)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*tier.Tier, len(models))
	for i := range models {
		t, err := fromTierModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) UpdateTier(ctx context.Context, t *tier.Tier) error {
	m := toTierModel(t)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrTierNotFound
	}
	return nil
}

func (s *Store) ArchiveTier(ctx context.Context, tierID id.TierID) error {
	t := now()
	res, err := s.sdb.NewUpdate((*tierModel)(nil)).
		Set("status = ?", string(tier.StatusArchived)).
		Set("updated_at = ?", t).
		Where("id = ?", tierID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrTierNotFound
	}
	return nil
}

// ==================== Ledger Store ====================

func (s *Store) CreateLedger(ctx context.Context, l *credit.Ledger) error {
	m := toLedgerModel(l)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*credit.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", ledgerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) GetLedgerByAccount(ctx context.Context, accountID, appID string) (*credit.Ledger, error) {
	m := new(ledgerModel)
	err := s.sdb.NewSelect(m).
		Where("account_id = ?", accountID).
		Where("app_id = ?", appID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrLedgerNotFound
		}
		return nil, err
	}
	return fromLedgerModel(m)
}

func (s *Store) UpdateLedger(ctx context.Context, l *credit.Ledger) error {
	m := toLedgerModel(l)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrLedgerNotFound
	}
	return nil
}

// Debit spends total against the ledger, allowance balance before bonus.
// The conditional update re-checks the balances just read, so concurrent
// debits cannot both consume the same credits.
func (s *Store) Debit(ctx context.Context, ledgerID id.LedgerID, operation string, total types.Credits, description string) (*credit.Transaction, error) {
	if total <= 0 {
		return nil, adscore.ErrInvalidAmount
	}

	for attempt := 0; attempt < debitRetries; attempt++ {
		l, err := s.GetLedger(ctx, ledgerID)
		if err != nil {
			return nil, err
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

		res, err := s.sdb.NewUpdate((*ledgerModel)(nil)).
			Set("balance = ?", int64(l.Balance.Sub(fromBalance))).
			Set("bonus_credits = ?", int64(l.BonusCredits.Sub(fromBonus))).
			Set("updated_at = ?", now()).
			Where("id = ?", ledgerID.String()).
			Where("balance = ?", int64(l.Balance)).
			Where("bonus_credits = ?", int64(l.BonusCredits)).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			continue
		}

		txn := &credit.Transaction{
			ID:           id.NewTransactionID(),
			LedgerID:     ledgerID,
			AccountID:    l.AccountID,
			AppID:        l.AppID,
			Operation:    operation,
			Kind:         credit.KindDebit,
			BalanceDelta: fromBalance.Negate(),
			BonusDelta:   fromBonus.Negate(),
			Description:  description,
			Timestamp:    now(),
		}
		if err := s.AppendTransaction(ctx, txn); err != nil {
			return nil, err
		}
		return txn, nil
	}
	return nil, adscore.ErrDebitConflict
}

// Grant adds amount to the bonus pool.
func (s *Store) Grant(ctx context.Context, ledgerID id.LedgerID, amount types.Credits, description string) (*credit.Transaction, error) {
	return s.addBonus(ctx, ledgerID, "", credit.KindGrant, amount, description)
}

// Refund returns amount to the bonus pool, so a mid-cycle reset cannot
// overwrite it.
func (s *Store) Refund(ctx context.Context, ledgerID id.LedgerID, operation string, amount types.Credits, description string) (*credit.Transaction, error) {
	return s.addBonus(ctx, ledgerID, operation, credit.KindRefund, amount, description)
}

func (s *Store) addBonus(ctx context.Context, ledgerID id.LedgerID, operation string, kind credit.Kind, amount types.Credits, description string) (*credit.Transaction, error) {
	if amount <= 0 {
		return nil, adscore.ErrInvalidAmount
	}

	l, err := s.GetLedger(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	res, err := s.sdb.NewUpdate((*ledgerModel)(nil)).
		Set("bonus_credits = bonus_credits + ?", int64(amount)).
		Set("updated_at = ?", now()).
		Where("id = ?", ledgerID.String()).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, adscore.ErrLedgerNotFound
	}

	txn := &credit.Transaction{
		ID:          id.NewTransactionID(),
		LedgerID:    ledgerID,
		AccountID:   l.AccountID,
		AppID:       l.AppID,
		Operation:   operation,
		Kind:        kind,
		BonusDelta:  amount,
		Description: description,
		Timestamp:   now(),
	}
	if err := s.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Reset sets the allowance balance back to the tier allowance and advances
// the cycle anchor. Bonus credits are untouched.
func (s *Store) Reset(ctx context.Context, ledgerID id.LedgerID, allowance types.Credits, nextReset time.Time) (*credit.Transaction, error) {
	for attempt := 0; attempt < debitRetries; attempt++ {
		l, err := s.GetLedger(ctx, ledgerID)
		if err != nil {
			return nil, err
		}

		res, err := s.sdb.NewUpdate((*ledgerModel)(nil)).
			Set("balance = ?", int64(allowance)).
			Set("cycle_reset_at = ?", nextReset).
			Set("updated_at = ?", now()).
			Where("id = ?", ledgerID.String()).
			Where("balance = ?", int64(l.Balance)).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			continue
		}

		txn := &credit.Transaction{
			ID:           id.NewTransactionID(),
			LedgerID:     ledgerID,
			AccountID:    l.AccountID,
			AppID:        l.AppID,
			Kind:         credit.KindReset,
			BalanceDelta: allowance.Sub(l.Balance),
			Description:  "cycle reset",
			Timestamp:    now(),
		}
		if err := s.AppendTransaction(ctx, txn); err != nil {
			return nil, err
		}
		return txn, nil
	}
	return nil, adscore.ErrDebitConflict
}

// AppendTransaction appends a caller-built transaction verbatim.
func (s *Store) AppendTransaction(ctx context.Context, txn *credit.Transaction) error {
	m := toTransactionModel(txn)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListTransactions(ctx context.Context, ledgerID id.LedgerID, opts credit.TxnListOpts) ([]*credit.Transaction, error) {
	var models []transactionModel
	q := s.sdb.NewSelect(&models).Where("ledger_id = ?", ledgerID.String())

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if !opts.Start.IsZero() {
		q = q.Where("timestamp >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("timestamp < ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	// Replay order.
	q = q.OrderExpr("timestamp ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*credit.Transaction, len(models))
	for i := range models {
		txn, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = txn
	}
	return result, nil
}

func (s *Store) ListDueForReset(ctx context.Context, now time.Time, limit int) ([]*credit.Ledger, error) {
	var models []ledgerModel
	q := s.sdb.NewSelect(&models).
		Where("cycle_reset_at <= ?", now).
		OrderExpr("cycle_reset_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*credit.Ledger, len(models))
	for i := range models {
		l, err := fromLedgerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Project Store ====================

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	m := new(projectModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", projectID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrProjectNotFound
		}
		return nil, err
	}
	return fromProjectModel(m)
}

func (s *Store) ListProjects(ctx context.Context, accountID, appID string, opts project.ListOpts) ([]*project.Project, error) {
	var models []projectModel
	q := s.sdb.NewSelect(&models).
		Where("account_id = ?", accountID).
		Where("app_id = ?", appID)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*project.Project, len(models))
	for i := range models {
		p, err := fromProjectModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID id.ProjectID) error {
	res, err := s.sdb.NewDelete((*projectModel)(nil)).
		Where("id = ?", projectID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

// BeginAnalysis moves the project into analyzing and seeds a pending result
// slot per tool. The status guard in the WHERE clause makes the transition
// first-winner-only under concurrent requests.
func (s *Store) BeginAnalysis(ctx context.Context, projectID id.ProjectID, tools []string, startedAt time.Time) (*project.Project, error) {
	slots := make(map[string]*project.ToolResult, len(tools))
	for _, name := range tools {
		slots[name] = &project.ToolResult{
			ID:       id.NewToolRunID(),
			ToolName: name,
			Status:   project.ResultPending,
		}
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return nil, err
	}
	toolsJSON, err := json.Marshal(tools)
	if err != nil {
		return nil, err
	}

	res, err := s.sdb.NewUpdate((*projectModel)(nil)).
		Set("status = ?", string(project.StatusAnalyzing)).
		Set("enabled_tools = ?", toolsJSON).
		Set("tool_results = ?", slotsJSON).
		Set("overall_score = NULL").
		Set("completed_at = NULL").
		Set("last_analyzed_at = ?", startedAt).
		Set("updated_at = ?", now()).
		Where("id = ?", projectID.String()).
		Where("status != ?", string(project.StatusAnalyzing)).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := s.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		return nil, adscore.ErrAnalysisInProgress
	}
	return s.GetProject(ctx, projectID)
}

// PutToolResult writes one tool's result slot without touching the others.
func (s *Store) PutToolResult(ctx context.Context, projectID id.ProjectID, result *project.ToolResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	path := `$."` + result.ToolName + `"`
	res, err := s.sdb.NewUpdate((*projectModel)(nil)).
		Set("tool_results = json_set(COALESCE(tool_results, '{}'), ?, json(?))", path, string(data)).
		Set("updated_at = ?", now()).
		Where("id = ?", projectID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

func (s *Store) FinalizeProject(ctx context.Context, projectID id.ProjectID, status project.Status, overallScore *int, completedAt time.Time) error {
	res, err := s.sdb.NewUpdate((*projectModel)(nil)).
		Set("status = ?", string(status)).
		Set("overall_score = ?", overallScore).
		Set("completed_at = ?", completedAt).
		Set("updated_at = ?", now()).
		Where("id = ?", projectID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

// ==================== Promo Store ====================

func (s *Store) CreatePromo(ctx context.Context, p *promo.Promo) error {
	m := toPromoModel(p)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPromo(ctx context.Context, code, appID string) (*promo.Promo, error) {
	m := new(promoModel)
	err := s.sdb.NewSelect(m).
		Where("code = ?", code).
		Where("app_id = ?", appID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrPromoNotFound
		}
		return nil, err
	}
	return fromPromoModel(m)
}

func (s *Store) GetPromoByID(ctx context.Context, promoID id.PromoID) (*promo.Promo, error) {
	m := new(promoModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", promoID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrPromoNotFound
		}
		return nil, err
	}
	return fromPromoModel(m)
}

func (s *Store) ListPromos(ctx context.Context, appID string, opts promo.ListOpts) ([]*promo.Promo, error) {
	var models []promoModel
	q := s.sdb.NewSelect(&models).Where("app_id = ?", appID)

	if opts.Active {
		q = q.Where("(valid_from IS NULL OR valid_from <= ?)", time.Now().UTC()).
			Where("(valid_until IS NULL OR valid_until >= ?)", time.Now().UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*promo.Promo, len(models))
	for i := range models {
		p, err := fromPromoModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePromo(ctx context.Context, p *promo.Promo) error {
	m := toPromoModel(p)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrPromoNotFound
	}
	return nil
}

func (s *Store) DeletePromo(ctx context.Context, promoID id.PromoID) error {
	res, err := s.sdb.NewDelete((*promoModel)(nil)).
		Where("id = ?", promoID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return adscore.ErrPromoNotFound
	}
	return nil
}

// RedeemPromo counts one redemption. Window and cap are checked in the
// WHERE clause of the increment, so the cap holds under concurrency.
func (s *Store) RedeemPromo(ctx context.Context, code, appID string, now time.Time) (*promo.Promo, error) {
	t := time.Now().UTC()
	res, err := s.sdb.NewUpdate((*promoModel)(nil)).
		Set("times_redeemed = times_redeemed + 1").
		Set("updated_at = ?", t).
		Where("code = ?", code).
		Where("app_id = ?", appID).
		Where("(valid_from IS NULL OR valid_from <= ?)", now).
		Where("(valid_until IS NULL OR valid_until >= ?)", now).
		Where("(max_redemptions = 0 OR times_redeemed < max_redemptions)").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		p, err := s.GetPromo(ctx, code, appID)
		if err != nil {
			return nil, err
		}
		switch {
		case p.ValidFrom != nil && now.Before(*p.ValidFrom):
			return nil, adscore.ErrPromoNotStarted
		case p.ValidUntil != nil && now.After(*p.ValidUntil):
			return nil, adscore.ErrPromoExpired
		case p.MaxRedemptions > 0 && p.TimesRedeemed >= p.MaxRedemptions:
			return nil, adscore.ErrPromoExhausted
		default:
			return nil, adscore.ErrPromoInvalid
		}
	}
	return s.GetPromo(ctx, code, appID)
}

// ==================== Statement Store ====================

func (s *Store) CreateStatement(ctx context.Context, stmt *statement.Statement) error {
	m := toStatementModel(stmt)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetStatement(ctx context.Context, stmtID id.StatementID) (*statement.Statement, error) {
	m := new(statementModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", stmtID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrStatementNotFound
		}
		return nil, err
	}
	return fromStatementModel(m)
}

func (s *Store) ListStatements(ctx context.Context, accountID, appID string, opts statement.ListOpts) ([]*statement.Statement, error) {
	var models []statementModel
	q := s.sdb.NewSelect(&models).
		Where("account_id = ?", accountID).
		Where("app_id = ?", appID)

	if !opts.Start.IsZero() {
		q = q.Where("period_start >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("period_end <= ?", opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("period_start DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*statement.Statement, len(models))
	for i := range models {
		stmt, err := fromStatementModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = stmt
	}
	return result, nil
}

func (s *Store) GetStatementByPeriod(ctx context.Context, accountID, appID string, periodStart, periodEnd time.Time) (*statement.Statement, error) {
	m := new(statementModel)
	err := s.sdb.NewSelect(m).
		Where("account_id = ?", accountID).
		Where("app_id = ?", appID).
		Where("period_start = ?", periodStart).
		Where("period_end = ?", periodEnd).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, adscore.ErrStatementNotFound
		}
		return nil, err
	}
	return fromStatementModel(m)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
