package store

import (
	"context"
	"time"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/statement"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/types"
)

// Store is the unified storage interface for all adscore entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Tier methods
	CreateTier(ctx context.Context, t *tier.Tier) error
	GetTier(ctx context.Context, tierID id.TierID) (*tier.Tier, error)
	GetTierByKey(ctx context.Context, key string, appID string) (*tier.Tier, error)
	ListTiers(ctx context.Context, appID string, opts tier.ListOpts) ([]*tier.Tier, error)
	UpdateTier(ctx context.Context, t *tier.Tier) error
	ArchiveTier(ctx context.Context, tierID id.TierID) error

	// Ledger methods
	CreateLedger(ctx context.Context, l *credit.Ledger) error
	GetLedger(ctx context.Context, ledgerID id.LedgerID) (*credit.Ledger, error)
	GetLedgerByAccount(ctx context.Context, accountID, appID string) (*credit.Ledger, error)
	UpdateLedger(ctx context.Context, l *credit.Ledger) error
	Debit(ctx context.Context, ledgerID id.LedgerID, operation string, total types.Credits, description string) (*credit.Transaction, error)
	Grant(ctx context.Context, ledgerID id.LedgerID, amount types.Credits, description string) (*credit.Transaction, error)
	Refund(ctx context.Context, ledgerID id.LedgerID, operation string, amount types.Credits, description string) (*credit.Transaction, error)
	Reset(ctx context.Context, ledgerID id.LedgerID, allowance types.Credits, nextReset time.Time) (*credit.Transaction, error)
	AppendTransaction(ctx context.Context, txn *credit.Transaction) error
	ListTransactions(ctx context.Context, ledgerID id.LedgerID, opts credit.TxnListOpts) ([]*credit.Transaction, error)
	ListDueForReset(ctx context.Context, now time.Time, limit int) ([]*credit.Ledger, error)

	// Project methods
	CreateProject(ctx context.Context, p *project.Project) error
	GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error)
	ListProjects(ctx context.Context, accountID, appID string, opts project.ListOpts) ([]*project.Project, error)
	UpdateProject(ctx context.Context, p *project.Project) error
	DeleteProject(ctx context.Context, projectID id.ProjectID) error
	BeginAnalysis(ctx context.Context, projectID id.ProjectID, tools []string, startedAt time.Time) (*project.Project, error)
	PutToolResult(ctx context.Context, projectID id.ProjectID, result *project.ToolResult) error
	FinalizeProject(ctx context.Context, projectID id.ProjectID, status project.Status, overallScore *int, completedAt time.Time) error

	// Promo methods
	CreatePromo(ctx context.Context, p *promo.Promo) error
	GetPromo(ctx context.Context, code string, appID string) (*promo.Promo, error)
	GetPromoByID(ctx context.Context, promoID id.PromoID) (*promo.Promo, error)
	ListPromos(ctx context.Context, appID string, opts promo.ListOpts) ([]*promo.Promo, error)
	UpdatePromo(ctx context.Context, p *promo.Promo) error
	DeletePromo(ctx context.Context, promoID id.PromoID) error
	RedeemPromo(ctx context.Context, code string, appID string, now time.Time) (*promo.Promo, error)

	// Statement methods
	CreateStatement(ctx context.Context, s *statement.Statement) error
	GetStatement(ctx context.Context, stmtID id.StatementID) (*statement.Statement, error)
	ListStatements(ctx context.Context, accountID, appID string, opts statement.ListOpts) ([]*statement.Statement, error)
	GetStatementByPeriod(ctx context.Context, accountID, appID string, periodStart, periodEnd time.Time) (*statement.Statement, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
