package adscore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/entitlement"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/plugin"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/statement"
	"github.com/xraph/adscore/store"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/tool"
	"github.com/xraph/adscore/types"
)

// OperationToolRun is the metered operation debited once per enabled tool
// when an analysis run is accepted.
const OperationToolRun = "tool_run"

// Engine is the main analysis and metering engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	tools   *tool.Registry
	logger  *slog.Logger

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	// In-flight analysis runs
	runs    sync.WaitGroup
	sem     chan struct{}
	mu      sync.Mutex
	pending map[string]chan struct{}

	// Configuration
	toolTimeout        time.Duration
	maxConcurrentTools int
	resetSweepInterval time.Duration
	scoreAggregator    string
	disableMigrate     bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		plugins:            plugin.NewRegistry(),
		tools:              tool.NewRegistry(),
		logger:             slog.Default(),
		stopChan:           make(chan struct{}),
		pending:            make(map[string]chan struct{}),
		toolTimeout:        60 * time.Second,
		maxConcurrentTools: 16,
		resetSweepInterval: time.Hour,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.sem = make(chan struct{}, e.maxConcurrentTools)

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
		e.tools.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTools replaces the engine's tool registry.
func WithTools(r *tool.Registry) Option {
	return func(e *Engine) {
		e.tools = r
	}
}

// WithTool registers a single analysis tool.
func WithTool(inv tool.Invoker) Option {
	return func(e *Engine) {
		_ = e.tools.Register(inv) //nolint:errcheck // best-effort tool registration during init
	}
}

// WithToolTimeout sets the per-tool invocation timeout.
func WithToolTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.toolTimeout = d
	}
}

// WithMaxConcurrentTools bounds tool invocations running at once across
// all projects.
func WithMaxConcurrentTools(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrentTools = n
		}
	}
}

// WithResetSweepInterval sets how often due ledgers are swept for cycle
// resets. Zero disables the sweeper.
func WithResetSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.resetSweepInterval = d
	}
}

// WithScoreAggregator selects a registered ScoreAggregator plugin to
// replace the default mean-of-completed overall score.
func WithScoreAggregator(name string) Option {
	return func(e *Engine) {
		e.scoreAggregator = name
	}
}

// WithDisableMigrate skips store migration on Start. Use when migrations
// are managed out of band.
func WithDisableMigrate() Option {
	return func(e *Engine) {
		e.disableMigrate = true
	}
}

// Start migrates the store and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if !e.disableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return err
		}
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start cycle reset sweeper
	if e.resetSweepInterval > 0 {
		e.wg.Add(1)
		go e.resetSweepWorker(ctx)
	}

	e.logger.Info("adscore started",
		"tools", e.tools.Count(),
		"tool_timeout", e.toolTimeout,
		"max_concurrent_tools", e.maxConcurrentTools,
		"reset_sweep_interval", e.resetSweepInterval,
	)

	return nil
}

// Stop shuts down the Engine, waiting for in-flight analysis runs.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()
	e.runs.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins exposes the plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// Tools exposes the tool registry.
func (e *Engine) Tools() *tool.Registry {
	return e.tools
}

// ──────────────────────────────────────────────────
// Tier Management
// ──────────────────────────────────────────────────

// CreateTier creates a new subscription tier.
func (e *Engine) CreateTier(ctx context.Context, t *tier.Tier) error {
	if t.Key == "" {
		return ValidationError{Field: "key", Message: "must not be empty"}
	}
	if t.MonthlyAllowance.IsNegative() {
		return ErrNegativeAllowance
	}
	seen := make(map[string]bool, len(t.Costs))
	for _, c := range t.Costs {
		if seen[c.Operation] {
			return fmt.Errorf("%w: %s", ErrDuplicateCost, c.Operation)
		}
		seen[c.Operation] = true
	}

	if t.ID == (id.TierID{}) {
		t.ID = id.NewTierID()
	}
	if t.Status == "" {
		t.Status = tier.StatusActive
	}
	t.Entity = types.NewEntity()

	if err := e.store.CreateTier(ctx, t); err != nil {
		return err
	}

	e.plugins.EmitTierCreated(ctx, t)
	return nil
}

// GetTier retrieves a tier by ID.
func (e *Engine) GetTier(ctx context.Context, tierID id.TierID) (*tier.Tier, error) {
	return e.store.GetTier(ctx, tierID)
}

// GetTierByKey retrieves a tier by key.
func (e *Engine) GetTierByKey(ctx context.Context, key, appID string) (*tier.Tier, error) {
	return e.store.GetTierByKey(ctx, key, appID)
}

// ListTiers lists tiers for an app.
func (e *Engine) ListTiers(ctx context.Context, appID string, opts tier.ListOpts) ([]*tier.Tier, error) {
	return e.store.ListTiers(ctx, appID, opts)
}

// UpdateTier updates a tier in place.
func (e *Engine) UpdateTier(ctx context.Context, t *tier.Tier) error {
	old, err := e.store.GetTier(ctx, t.ID)
	if err != nil {
		return err
	}

	t.Touch()
	if err := e.store.UpdateTier(ctx, t); err != nil {
		return err
	}

	e.plugins.EmitTierUpdated(ctx, old, t)
	return nil
}

// ArchiveTier retires a tier from new ledger provisioning. Existing
// ledgers keep resolving against it.
func (e *Engine) ArchiveTier(ctx context.Context, tierID id.TierID) error {
	if err := e.store.ArchiveTier(ctx, tierID); err != nil {
		return err
	}

	e.plugins.EmitTierArchived(ctx, tierID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Credit Ledger
// ──────────────────────────────────────────────────

// ProvisionLedger creates an account's credit ledger on a tier, writing
// the opening grant so the balance replays from the transaction log.
func (e *Engine) ProvisionLedger(ctx context.Context, accountID, appID, tierKey string) (*credit.Ledger, error) {
	t, err := e.store.GetTierByKey(ctx, tierKey, appID)
	if err != nil {
		return nil, err
	}
	if t.Status == tier.StatusArchived {
		return nil, ErrTierArchived
	}

	// The opening grant below is stamped with the same instant so it
	// falls exactly at the statement period start, never before it.
	now := time.Now().UTC()
	l := &credit.Ledger{
		Entity:       types.Entity{CreatedAt: now, UpdatedAt: now},
		ID:           id.NewLedgerID(),
		AccountID:    accountID,
		AppID:        appID,
		TierKey:      tierKey,
		Balance:      t.MonthlyAllowance,
		CycleResetAt: now.AddDate(0, 1, 0),
	}
	if err := e.store.CreateLedger(ctx, l); err != nil {
		return nil, err
	}

	opening := &credit.Transaction{
		ID:           id.NewTransactionID(),
		LedgerID:     l.ID,
		AccountID:    accountID,
		AppID:        appID,
		Kind:         credit.KindGrant,
		BalanceDelta: t.MonthlyAllowance,
		Description:  "opening grant",
		Timestamp:    now,
	}
	if err := e.store.AppendTransaction(ctx, opening); err != nil {
		return nil, err
	}

	e.plugins.EmitLedgerProvisioned(ctx, l)
	e.logger.Info("ledger provisioned",
		"account_id", accountID,
		"tier", tierKey,
		"allowance", t.MonthlyAllowance,
	)
	return l, nil
}

// GetCreditSummary returns the account's current credit position.
func (e *Engine) GetCreditSummary(ctx context.Context, accountID, appID string) (*credit.Summary, error) {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return nil, err
	}
	t, err := e.store.GetTierByKey(ctx, l.TierKey, appID)
	if err != nil {
		return nil, err
	}

	days := 0
	if !t.Unlimited && !l.CycleResetAt.IsZero() {
		if until := time.Until(l.CycleResetAt); until > 0 {
			days = int(until.Hours() / 24)
		}
	}

	return &credit.Summary{
		AccountID:        accountID,
		TierKey:          l.TierKey,
		Balance:          l.Balance,
		BonusCredits:     l.BonusCredits,
		MonthlyAllowance: t.MonthlyAllowance,
		Unlimited:        t.Unlimited,
		CycleResetAt:     l.CycleResetAt,
		DaysUntilReset:   days,
	}, nil
}

// CheckAffordable answers whether the account could pay for qty runs of
// operation right now, without debiting anything.
func (e *Engine) CheckAffordable(ctx context.Context, accountID, appID, operation string, qty int64) (*entitlement.Check, error) {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return nil, err
	}
	t, err := e.store.GetTierByKey(ctx, l.TierKey, appID)
	if err != nil {
		return nil, err
	}

	check := entitlement.Resolve(t).Affordable(operation, qty, l.Balance, l.BonusCredits)
	return &check, nil
}

// GrantCredits adds bonus credits to an account. Grants never expire with
// the cycle and are consumed only after the allowance balance.
func (e *Engine) GrantCredits(ctx context.Context, accountID, appID string, amount types.Credits, reason string) (*credit.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return nil, err
	}

	txn, err := e.store.Grant(ctx, l.ID, amount, reason)
	if err != nil {
		return nil, err
	}

	e.plugins.EmitCreditsGranted(ctx, accountID, amount, reason)
	e.logger.Info("credits granted",
		"account_id", accountID,
		"amount", amount,
		"reason", reason,
	)
	return txn, nil
}

// ResetCycle refreshes the account's allowance balance to the tier's
// monthly allowance. Bonus credits and the transaction log are untouched.
func (e *Engine) ResetCycle(ctx context.Context, accountID, appID string) error {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return err
	}
	t, err := e.store.GetTierByKey(ctx, l.TierKey, appID)
	if err != nil {
		return err
	}
	if t.Unlimited {
		return nil
	}

	now := time.Now().UTC()
	next := l.CycleResetAt.AddDate(0, 1, 0)
	if !next.After(now) {
		next = now.AddDate(0, 1, 0)
	}

	if _, err := e.store.Reset(ctx, l.ID, t.MonthlyAllowance, next); err != nil {
		return err
	}

	e.plugins.EmitCycleReset(ctx, accountID, t.MonthlyAllowance)
	e.logger.Info("cycle reset",
		"account_id", accountID,
		"balance", t.MonthlyAllowance,
		"next_reset", next,
	)
	return nil
}

// VerifyLedger replays the account's transaction log against its cached
// balances. Divergence is returned as an error and emitted to plugins,
// never silently repaired.
func (e *Engine) VerifyLedger(ctx context.Context, accountID, appID string) error {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return err
	}
	txns, err := e.store.ListTransactions(ctx, l.ID, credit.TxnListOpts{})
	if err != nil {
		return err
	}

	balance, bonus, ok := l.Verify(txns)
	if ok {
		return nil
	}

	divergence := &DivergenceError{
		AccountID:     accountID,
		Balance:       l.Balance,
		Bonus:         l.BonusCredits,
		ReplayBalance: balance,
		ReplayBonus:   bonus,
		TxnCount:      len(txns),
	}
	e.plugins.EmitLedgerDiverged(ctx, accountID, divergence)
	e.logger.Error("ledger diverged",
		"account_id", accountID,
		"cached_balance", l.Balance,
		"replay_balance", balance,
	)
	return divergence
}

// ListTransactions lists an account's transaction log.
func (e *Engine) ListTransactions(ctx context.Context, accountID, appID string, opts credit.TxnListOpts) ([]*credit.Transaction, error) {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return nil, err
	}
	return e.store.ListTransactions(ctx, l.ID, opts)
}

// resetSweepWorker periodically refreshes ledgers whose cycle has rolled
// over.
func (e *Engine) resetSweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.resetSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.sweepDueResets(ctx)
		}
	}
}

func (e *Engine) sweepDueResets(ctx context.Context) {
	due, err := e.store.ListDueForReset(ctx, time.Now().UTC(), 100)
	if err != nil {
		e.logger.Error("reset sweep failed", "error", err)
		return
	}
	for _, l := range due {
		if err := e.ResetCycle(ctx, l.AccountID, l.AppID); err != nil {
			e.logger.Error("cycle reset failed",
				"account_id", l.AccountID,
				"error", err,
			)
		}
	}
	if len(due) > 0 {
		e.logger.Debug("reset sweep finished", "ledgers", len(due))
	}
}

// ──────────────────────────────────────────────────
// Promos
// ──────────────────────────────────────────────────

// CreatePromo creates a promotional bonus-credit code.
func (e *Engine) CreatePromo(ctx context.Context, p *promo.Promo) error {
	if p.Code == "" {
		return ValidationError{Field: "code", Message: "must not be empty"}
	}
	if !p.Credits.IsPositive() {
		return ValidationError{Field: "credits", Message: "must be positive"}
	}

	if p.ID == (id.PromoID{}) {
		p.ID = id.NewPromoID()
	}
	p.Entity = types.NewEntity()

	return e.store.CreatePromo(ctx, p)
}

// RedeemPromo redeems a code for an account, granting its bonus credits.
func (e *Engine) RedeemPromo(ctx context.Context, accountID, appID, code string) (*credit.Transaction, error) {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return nil, err
	}

	p, err := e.store.GetPromo(ctx, code, appID)
	if err != nil {
		return nil, err
	}
	for _, v := range e.plugins.GetPromoValidators() {
		if err := v.ValidatePromo(ctx, p, accountID); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrPromoInvalid, err)
		}
	}

	redeemed, err := e.store.RedeemPromo(ctx, code, appID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	txn, err := e.store.Grant(ctx, l.ID, redeemed.Credits, "promo "+code)
	if err != nil {
		return nil, err
	}

	e.plugins.EmitPromoRedeemed(ctx, accountID, code, redeemed.Credits)
	e.logger.Info("promo redeemed",
		"account_id", accountID,
		"code", code,
		"credits", redeemed.Credits,
	)
	return txn, nil
}

// ──────────────────────────────────────────────────
// Projects
// ──────────────────────────────────────────────────

// CreateProject creates an analysis project in draft.
func (e *Engine) CreateProject(ctx context.Context, p *project.Project) error {
	if p.Content.Empty() {
		return ErrEmptyContent
	}

	if p.ID == (id.ProjectID{}) {
		p.ID = id.NewProjectID()
	}
	if p.Status == "" {
		p.Status = project.StatusDraft
	}
	p.Entity = types.NewEntity()

	return e.store.CreateProject(ctx, p)
}

// GetProject retrieves a project by ID.
func (e *Engine) GetProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	return e.store.GetProject(ctx, projectID)
}

// ListProjects lists an account's projects.
func (e *Engine) ListProjects(ctx context.Context, accountID, appID string, opts project.ListOpts) ([]*project.Project, error) {
	return e.store.ListProjects(ctx, accountID, appID, opts)
}

// UpdateProject updates a project's content and settings.
func (e *Engine) UpdateProject(ctx context.Context, p *project.Project) error {
	p.Touch()
	return e.store.UpdateProject(ctx, p)
}

// DeleteProject removes a project.
func (e *Engine) DeleteProject(ctx context.Context, projectID id.ProjectID) error {
	return e.store.DeleteProject(ctx, projectID)
}

// ProjectStatus is the polling view of an analysis round.
type ProjectStatus struct {
	ProjectID    id.ProjectID                   `json:"project_id"`
	Status       project.Status                 `json:"status"`
	ToolResults  map[string]*project.ToolResult `json:"tool_results,omitempty"`
	OverallScore *int                           `json:"overall_score,omitempty"`
}

// GetProjectStatus reports the project's analysis round: its status, the
// per-tool results so far and the overall score once completed.
func (e *Engine) GetProjectStatus(ctx context.Context, projectID id.ProjectID) (*ProjectStatus, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectStatus{
		ProjectID:    p.ID,
		Status:       p.Status,
		ToolResults:  p.ToolResults,
		OverallScore: p.OverallScore,
	}, nil
}

// ──────────────────────────────────────────────────
// Statements
// ──────────────────────────────────────────────────

// GenerateStatement summarizes the account's current cycle from its
// transaction log.
func (e *Engine) GenerateStatement(ctx context.Context, accountID, appID string) (*statement.Statement, error) {
	l, err := e.store.GetLedgerByAccount(ctx, accountID, appID)
	if err != nil {
		return nil, err
	}

	periodEnd := l.CycleResetAt
	if periodEnd.IsZero() {
		periodEnd = time.Now().UTC().AddDate(0, 1, 0)
	}

	txns, err := e.store.ListTransactions(ctx, l.ID, credit.TxnListOpts{})
	if err != nil {
		return nil, err
	}

	// The cycle began when the ledger was provisioned or at the most
	// recent reset, whichever is later. Deriving the start from
	// periodEnd minus a month drifts on month-length boundaries.
	periodStart := l.CreatedAt
	for _, txn := range txns {
		if txn.Kind == credit.KindReset && txn.Timestamp.After(periodStart) {
			periodStart = txn.Timestamp
		}
	}

	var opening types.Credits
	for _, txn := range txns {
		if txn.Timestamp.Before(periodStart) {
			opening = opening.Add(txn.BalanceDelta).Add(txn.BonusDelta)
		}
	}

	stmt := statement.Build(accountID, appID, periodStart, periodEnd, opening, txns)
	if err := e.store.CreateStatement(ctx, stmt); err != nil {
		return nil, err
	}

	e.plugins.EmitStatementGenerated(ctx, stmt)
	return stmt, nil
}

// GetStatement retrieves a statement by ID.
func (e *Engine) GetStatement(ctx context.Context, stmtID id.StatementID) (*statement.Statement, error) {
	return e.store.GetStatement(ctx, stmtID)
}

// ListStatements lists an account's statements.
func (e *Engine) ListStatements(ctx context.Context, accountID, appID string, opts statement.ListOpts) ([]*statement.Statement, error) {
	return e.store.ListStatements(ctx, accountID, appID, opts)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) stopped() bool {
	select {
	case <-e.stopChan:
		return true
	default:
		return false
	}
}
