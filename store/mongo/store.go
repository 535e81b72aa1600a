package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colTiers        = "adscore_tiers"
	colLedgers      = "adscore_ledgers"
	colTransactions = "adscore_transactions"
	colProjects     = "adscore_projects"
	colPromos       = "adscore_promos"
	colStatements   = "adscore_statements"
)

// compile-time interface check
var _ adstore.Store = (*Store)(nil)

// debitRetries bounds the optimistic-concurrency retry loop on balance
// mutations.
const debitRetries = 5

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all adscore collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("adscore/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return adscore.ErrAlreadyExists
		}
		return fmt.Errorf("adscore/mongo: create tier: %w", err)
	}
	return nil
}

func (s *Store) GetTier(ctx context.Context, tierID id.TierID) (*tier.Tier, error) {
	var m tierModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tierID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrTierNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get tier: %w", err)
	}
	return fromTierModel(&m)
}

func (s *Store) GetTierByKey(ctx context.Context, key, appID string) (*tier.Tier, error) {
	var m tierModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"key": key, "app_id": appID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrTierNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get tier by key: %w", err)
	}
	return fromTierModel(&m)
}

func (s *Store) ListTiers(ctx context.Context, appID string, opts tier.ListOpts) ([]*tier.Tier, error) {
	var models []tierModel

	filter := bson.M{"app_id": appID}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("adscore/mongo: list tiers: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: update tier: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrTierNotFound
	}
	return nil
}

func (s *Store) ArchiveTier(ctx context.Context, tierID id.TierID) error {
	res, err := s.mdb.NewUpdate((*tierModel)(nil)).
		Filter(bson.M{"_id": tierID.String()}).
		SetUpdate(bson.M{"$set": bson.M{
			"status":     string(tier.StatusArchived),
			"updated_at": now(),
		}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: archive tier: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrTierNotFound
	}
	return nil
}

// ==================== Ledger Store ====================

func (s *Store) CreateLedger(ctx context.Context, l *credit.Ledger) error {
	m := toLedgerModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return adscore.ErrLedgerExists
		}
		return fmt.Errorf("adscore/mongo: create ledger: %w", err)
	}
	return nil
}

func (s *Store) GetLedger(ctx context.Context, ledgerID id.LedgerID) (*credit.Ledger, error) {
	var m ledgerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": ledgerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get ledger: %w", err)
	}
	return fromLedgerModel(&m)
}

func (s *Store) GetLedgerByAccount(ctx context.Context, accountID, appID string) (*credit.Ledger, error) {
	var m ledgerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"account_id": accountID, "app_id": appID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get ledger by account: %w", err)
	}
	return fromLedgerModel(&m)
}

func (s *Store) UpdateLedger(ctx context.Context, l *credit.Ledger) error {
	m := toLedgerModel(l)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: update ledger: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrLedgerNotFound
	}
	return nil
}

// Debit spends total against the ledger, allowance balance before bonus.
// The filter re-checks the balances just read, so two competing debits
// cannot both consume the same credits.
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

		res, err := s.mdb.NewUpdate((*ledgerModel)(nil)).
			Filter(bson.M{
				"_id":           ledgerID.String(),
				"balance":       int64(l.Balance),
				"bonus_credits": int64(l.BonusCredits),
			}).
			SetUpdate(bson.M{"$set": bson.M{
				"balance":       int64(l.Balance.Sub(fromBalance)),
				"bonus_credits": int64(l.BonusCredits.Sub(fromBonus)),
				"updated_at":    now(),
			}}).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("adscore/mongo: debit: %w", err)
		}
		if res.MatchedCount() == 0 {
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

	res, err := s.mdb.NewUpdate((*ledgerModel)(nil)).
		Filter(bson.M{"_id": ledgerID.String()}).
		SetUpdate(bson.M{
			"$inc": bson.M{"bonus_credits": int64(amount)},
			"$set": bson.M{"updated_at": now()},
		}).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("adscore/mongo: %s: %w", kind, err)
	}
	if res.MatchedCount() == 0 {
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

		res, err := s.mdb.NewUpdate((*ledgerModel)(nil)).
			Filter(bson.M{
				"_id":     ledgerID.String(),
				"balance": int64(l.Balance),
			}).
			SetUpdate(bson.M{"$set": bson.M{
				"balance":        int64(allowance),
				"cycle_reset_at": nextReset,
				"updated_at":     now(),
			}}).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("adscore/mongo: reset: %w", err)
		}
		if res.MatchedCount() == 0 {
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: append transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, ledgerID id.LedgerID, opts credit.TxnListOpts) ([]*credit.Transaction, error) {
	var models []transactionModel

	filter := bson.M{"ledger_id": ledgerID.String()}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	tsFilter := bson.M{}
	if !opts.Start.IsZero() {
		tsFilter["$gte"] = opts.Start
	}
	if !opts.End.IsZero() {
		tsFilter["$lt"] = opts.End
	}
	if len(tsFilter) > 0 {
		filter["timestamp"] = tsFilter
	}

	// Replay order.
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "timestamp", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("adscore/mongo: list transactions: %w", err)
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

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"cycle_reset_at": bson.M{"$lte": now}}).
		Sort(bson.D{{Key: "cycle_reset_at", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("adscore/mongo: list due for reset: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	var m projectModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": projectID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrProjectNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get project: %w", err)
	}
	return fromProjectModel(&m)
}

func (s *Store) ListProjects(ctx context.Context, accountID, appID string, opts project.ListOpts) ([]*project.Project, error) {
	var models []projectModel

	filter := bson.M{"account_id": accountID, "app_id": appID}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("adscore/mongo: list projects: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: update project: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID id.ProjectID) error {
	res, err := s.mdb.NewDelete((*projectModel)(nil)).
		Filter(bson.M{"_id": projectID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: delete project: %w", err)
	}
	if res.DeletedCount() == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

// BeginAnalysis moves the project into analyzing and seeds a pending result
// slot per tool. The status guard in the filter makes the transition
// first-winner-only under concurrent requests.
func (s *Store) BeginAnalysis(ctx context.Context, projectID id.ProjectID, tools []string, startedAt time.Time) (*project.Project, error) {
	slots := make(map[string]*toolResultModel, len(tools))
	for _, name := range tools {
		slots[name] = &toolResultModel{
			ID:       id.NewToolRunID().String(),
			ToolName: name,
			Status:   string(project.ResultPending),
		}
	}

	res, err := s.mdb.NewUpdate((*projectModel)(nil)).
		Filter(bson.M{
			"_id":    projectID.String(),
			"status": bson.M{"$ne": string(project.StatusAnalyzing)},
		}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"status":           string(project.StatusAnalyzing),
				"enabled_tools":    tools,
				"tool_results":     slots,
				"last_analyzed_at": startedAt,
				"updated_at":       now(),
			},
			"$unset": bson.M{
				"overall_score": "",
				"completed_at":  "",
			},
		}).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("adscore/mongo: begin analysis: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
		return nil, adscore.ErrAnalysisInProgress
	}
	return s.GetProject(ctx, projectID)
}

// PutToolResult writes one tool's result slot without touching the others.
func (s *Store) PutToolResult(ctx context.Context, projectID id.ProjectID, result *project.ToolResult) error {
	res, err := s.mdb.NewUpdate((*projectModel)(nil)).
		Filter(bson.M{"_id": projectID.String()}).
		SetUpdate(bson.M{"$set": bson.M{
			"tool_results." + result.ToolName: toToolResultModel(result),
			"updated_at":                      now(),
		}}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: put tool result: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

func (s *Store) FinalizeProject(ctx context.Context, projectID id.ProjectID, status project.Status, overallScore *int, completedAt time.Time) error {
	set := bson.M{
		"status":       string(status),
		"completed_at": completedAt,
		"updated_at":   now(),
	}
	update := bson.M{"$set": set}
	if overallScore != nil {
		set["overall_score"] = *overallScore
	} else {
		update["$unset"] = bson.M{"overall_score": ""}
	}

	res, err := s.mdb.NewUpdate((*projectModel)(nil)).
		Filter(bson.M{"_id": projectID.String()}).
		SetUpdate(update).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: finalize project: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrProjectNotFound
	}
	return nil
}

// ==================== Promo Store ====================

func (s *Store) CreatePromo(ctx context.Context, p *promo.Promo) error {
	m := toPromoModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return adscore.ErrAlreadyExists
		}
		return fmt.Errorf("adscore/mongo: create promo: %w", err)
	}
	return nil
}

func (s *Store) GetPromo(ctx context.Context, code, appID string) (*promo.Promo, error) {
	var m promoModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"code": code, "app_id": appID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrPromoNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get promo: %w", err)
	}
	return fromPromoModel(&m)
}

func (s *Store) GetPromoByID(ctx context.Context, promoID id.PromoID) (*promo.Promo, error) {
	var m promoModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": promoID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrPromoNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get promo by id: %w", err)
	}
	return fromPromoModel(&m)
}

func (s *Store) ListPromos(ctx context.Context, appID string, opts promo.ListOpts) ([]*promo.Promo, error) {
	var models []promoModel

	filter := bson.M{"app_id": appID}
	if opts.Active {
		t := time.Now().UTC()
		filter["$and"] = bson.A{
			bson.M{"$or": bson.A{
				bson.M{"valid_from": bson.M{"$exists": false}},
				bson.M{"valid_from": bson.M{"$lte": t}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"valid_until": bson.M{"$exists": false}},
				bson.M{"valid_until": bson.M{"$gte": t}},
			}},
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("adscore/mongo: list promos: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: update promo: %w", err)
	}
	if res.MatchedCount() == 0 {
		return adscore.ErrPromoNotFound
	}
	return nil
}

func (s *Store) DeletePromo(ctx context.Context, promoID id.PromoID) error {
	res, err := s.mdb.NewDelete((*promoModel)(nil)).
		Filter(bson.M{"_id": promoID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: delete promo: %w", err)
	}
	if res.DeletedCount() == 0 {
		return adscore.ErrPromoNotFound
	}
	return nil
}

// RedeemPromo counts one redemption. Window and cap live in the filter of
// the increment, so the cap holds under concurrency.
func (s *Store) RedeemPromo(ctx context.Context, code, appID string, now time.Time) (*promo.Promo, error) {
	filter := bson.M{
		"code":   code,
		"app_id": appID,
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"valid_from": bson.M{"$exists": false}},
				bson.M{"valid_from": bson.M{"$lte": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"valid_until": bson.M{"$exists": false}},
				bson.M{"valid_until": bson.M{"$gte": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"max_redemptions": 0},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$times_redeemed", "$max_redemptions"}}},
			}},
		},
	}

	res, err := s.mdb.NewUpdate((*promoModel)(nil)).
		Filter(filter).
		SetUpdate(bson.M{
			"$inc": bson.M{"times_redeemed": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		}).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("adscore/mongo: redeem promo: %w", err)
	}
	if res.MatchedCount() == 0 {
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("adscore/mongo: create statement: %w", err)
	}
	return nil
}

func (s *Store) GetStatement(ctx context.Context, stmtID id.StatementID) (*statement.Statement, error) {
	var m statementModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": stmtID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrStatementNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get statement: %w", err)
	}
	return fromStatementModel(&m)
}

func (s *Store) ListStatements(ctx context.Context, accountID, appID string, opts statement.ListOpts) ([]*statement.Statement, error) {
	var models []statementModel

	filter := bson.M{"account_id": accountID, "app_id": appID}
	if !opts.Start.IsZero() {
		filter["period_start"] = bson.M{"$gte": opts.Start}
	}
	if !opts.End.IsZero() {
		filter["period_end"] = bson.M{"$lte": opts.End}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "period_start", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("adscore/mongo: list statements: %w", err)
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
	var m statementModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"account_id":   accountID,
			"app_id":       appID,
			"period_start": periodStart,
			"period_end":   periodEnd,
		}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, adscore.ErrStatementNotFound
		}
		return nil, fmt.Errorf("adscore/mongo: get statement by period: %w", err)
	}
	return fromStatementModel(&m)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all adscore collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTiers: {
			{
				Keys:    bson.D{{Key: "key", Value: 1}, {Key: "app_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "app_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		colLedgers: {
			{
				Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "app_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "cycle_reset_at", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "ledger_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "timestamp", Value: 1}}},
		},
		colProjects: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "app_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "app_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colPromos: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}, {Key: "app_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "app_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colStatements: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "app_id", Value: 1}, {Key: "period_start", Value: -1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "app_id", Value: 1}, {Key: "period_start", Value: 1}, {Key: "period_end", Value: 1}}},
		},
	}
}
