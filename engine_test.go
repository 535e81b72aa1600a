package adscore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xraph/adscore"
	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/store/memory"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/tool"
	"github.com/xraph/adscore/types"
)

const (
	testAccount = "acct_test"
	testApp     = "app_test"
)

func scoreTool(name string, score int) tool.Invoker {
	return tool.InvokerFunc{
		ToolName: name,
		Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
			return &tool.Output{OverallScore: score, Data: map[string]any{"tool": name}}, nil
		},
	}
}

func failingTool(name, reason string) tool.Invoker {
	return tool.InvokerFunc{
		ToolName: name,
		Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
			return nil, errors.New(reason)
		},
	}
}

func slowTool(name string) tool.Invoker {
	return tool.InvokerFunc{
		ToolName: name,
		Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

// newTestEngine starts an engine on a memory store with a standard tier
// and a provisioned ledger.
func newTestEngine(t *testing.T, allowance types.Credits, unlimited bool, opts ...adscore.Option) *adscore.Engine {
	t.Helper()

	opts = append(opts, adscore.WithResetSweepInterval(0))
	eng := adscore.New(memory.New(), opts...)

	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := eng.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})

	tr := &tier.Tier{
		Key:              "standard",
		Name:             "Standard",
		Status:           tier.StatusActive,
		MonthlyAllowance: allowance,
		Unlimited:        unlimited,
		Costs: []tier.OperationCost{
			{Operation: adscore.OperationToolRun, Cost: 10},
		},
		AppID: testApp,
	}
	if err := eng.CreateTier(ctx, tr); err != nil {
		t.Fatalf("CreateTier: %v", err)
	}
	if _, err := eng.ProvisionLedger(ctx, testAccount, testApp, "standard"); err != nil {
		t.Fatalf("ProvisionLedger: %v", err)
	}
	return eng
}

func newTestProject(t *testing.T, eng *adscore.Engine, tools ...string) *project.Project {
	t.Helper()
	p := &project.Project{
		AccountID: testAccount,
		AppID:     testApp,
		Name:      "test copy",
		Content: project.Content{
			Headline: "Do more with less",
			Body:     "Our platform saves you hours every week.",
		},
		EnabledTools: tools,
	}
	if err := eng.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestAnalyzeAggregatesCompletedOnly(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("clarity", 80)),
		adscore.WithTool(scoreTool("tone", 60)),
		adscore.WithTool(failingTool("hooks", "model unavailable")),
	)
	p := newTestProject(t, eng, "clarity", "tone", "hooks")

	got, err := eng.Analyze(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got.Status != project.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.OverallScore == nil || *got.OverallScore != 70 {
		t.Errorf("OverallScore = %v, want 70", got.OverallScore)
	}
	if r := got.ToolResults["hooks"]; r.Status != project.ResultFailed || r.FailureReason != "model unavailable" {
		t.Errorf("hooks result = %+v", r)
	}

	// Full cost was debited, failure or not: 3 tools x 10.
	summary, err := eng.GetCreditSummary(context.Background(), testAccount, testApp)
	if err != nil {
		t.Fatalf("GetCreditSummary: %v", err)
	}
	if summary.Balance != 70 {
		t.Errorf("balance = %d, want 70", summary.Balance)
	}
}

func TestAnalyzeAllToolsFailedNoRefund(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(failingTool("a", "boom")),
		adscore.WithTool(failingTool("b", "crash")),
	)
	p := newTestProject(t, eng, "a", "b")

	got, err := eng.Analyze(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got.Status != project.StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.OverallScore != nil {
		t.Errorf("OverallScore = %d, want nil", *got.OverallScore)
	}

	// The debit stands even though nothing completed.
	summary, _ := eng.GetCreditSummary(context.Background(), testAccount, testApp)
	if summary.Balance != 80 {
		t.Errorf("balance = %d, want 80 (no refund)", summary.Balance)
	}
}

func TestRequestAnalysisRejectsWhileAnalyzing(t *testing.T) {
	release := make(chan struct{})
	blocking := tool.InvokerFunc{
		ToolName: "slow",
		Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
			select {
			case <-release:
				return &tool.Output{OverallScore: 50}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	eng := newTestEngine(t, 100, false, adscore.WithTool(blocking))
	p := newTestProject(t, eng, "slow")
	ctx := context.Background()

	if _, err := eng.RequestAnalysis(ctx, p.ID, nil); err != nil {
		t.Fatalf("first RequestAnalysis: %v", err)
	}

	_, err := eng.RequestAnalysis(ctx, p.ID, nil)
	if !errors.Is(err, adscore.ErrAnalysisInProgress) {
		t.Errorf("second request err = %v, want ErrAnalysisInProgress", err)
	}

	// Only the accepted round was billed.
	summary, _ := eng.GetCreditSummary(ctx, testAccount, testApp)
	if summary.Balance.Add(summary.BonusCredits) != 90 {
		t.Errorf("available = %d, want 90", summary.Balance.Add(summary.BonusCredits))
	}

	// Stop drains the in-flight run once the tool is released.
	close(release)
}

func TestRequestAnalysisNoToolsSelected(t *testing.T) {
	eng := newTestEngine(t, 100, false, adscore.WithTool(scoreTool("clarity", 80)))
	p := newTestProject(t, eng) // no enabled tools
	ctx := context.Background()

	_, err := eng.RequestAnalysis(ctx, p.ID, nil)
	if !errors.Is(err, adscore.ErrNoToolsSelected) {
		t.Fatalf("err = %v, want ErrNoToolsSelected", err)
	}

	// Rejected before any ledger interaction.
	txns, err := eng.ListTransactions(ctx, testAccount, testApp, credit.TxnListOpts{Kind: credit.KindDebit})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("%d debit transactions, want 0", len(txns))
	}
}

func TestRequestAnalysisUnregisteredTool(t *testing.T) {
	eng := newTestEngine(t, 100, false, adscore.WithTool(scoreTool("clarity", 80)))
	p := newTestProject(t, eng, "clarity", "ghost")

	_, err := eng.RequestAnalysis(context.Background(), p.ID, nil)
	if !errors.Is(err, adscore.ErrToolNotRegistered) {
		t.Fatalf("err = %v, want ErrToolNotRegistered", err)
	}
}

func TestInsufficientCreditsCarriesShortfall(t *testing.T) {
	eng := newTestEngine(t, 25, false,
		adscore.WithTool(scoreTool("a", 80)),
		adscore.WithTool(scoreTool("b", 70)),
		adscore.WithTool(scoreTool("c", 60)),
	)
	// 3 tools x 10 = 30 against 25 available.
	p := newTestProject(t, eng, "a", "b", "c")

	_, err := eng.RequestAnalysis(context.Background(), p.ID, nil)
	var ice *adscore.InsufficientCreditsError
	if !errors.As(err, &ice) {
		t.Fatalf("err = %v, want InsufficientCreditsError", err)
	}
	if ice.Required != 30 || ice.Available != 25 || ice.Shortfall() != 5 {
		t.Errorf("required %d available %d shortfall %d, want 30/25/5",
			ice.Required, ice.Available, ice.Shortfall())
	}

	// Nothing was debited and the project stayed out of analyzing.
	got, _ := eng.GetProject(context.Background(), p.ID)
	if got.Status != project.StatusDraft {
		t.Errorf("status = %s, want draft", got.Status)
	}
}

func TestConcurrentRequestsNeverDoubleSpend(t *testing.T) {
	eng := newTestEngine(t, 15, false, adscore.WithTool(scoreTool("clarity", 80)))
	ctx := context.Background()

	// Funds for one 10-credit run; two projects race for them.
	p1 := newTestProject(t, eng, "clarity")
	p2 := newTestProject(t, eng, "clarity")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []*project.Project{p1, p2} {
		wg.Add(1)
		go func(i int, pid adscore.ID) {
			defer wg.Done()
			_, errs[i] = eng.RequestAnalysis(ctx, pid, nil)
		}(i, p.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !adscore.IsInsufficientCredits(err) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d requests accepted, want exactly 1", succeeded)
	}
}

func TestUnlimitedTierWritesAuditTransaction(t *testing.T) {
	eng := newTestEngine(t, 0, true, adscore.WithTool(scoreTool("clarity", 90)))
	p := newTestProject(t, eng, "clarity")
	ctx := context.Background()

	got, err := eng.Analyze(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Status != project.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}

	// The run is logged with zero deltas; balances never move.
	audits, err := eng.ListTransactions(ctx, testAccount, testApp, credit.TxnListOpts{Kind: credit.KindAudit})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("%d audit transactions, want 1", len(audits))
	}
	if audits[0].BalanceDelta != 0 || audits[0].BonusDelta != 0 {
		t.Errorf("audit deltas = (%d, %d), want zero", audits[0].BalanceDelta, audits[0].BonusDelta)
	}

	summary, _ := eng.GetCreditSummary(ctx, testAccount, testApp)
	if summary.Balance != 0 || summary.BonusCredits != 0 {
		t.Errorf("balances moved on unlimited tier: (%d, %d)", summary.Balance, summary.BonusCredits)
	}
	if !summary.Unlimited {
		t.Error("summary does not report unlimited")
	}
}

func TestBonusConsumedAfterAllowance(t *testing.T) {
	eng := newTestEngine(t, 15, false,
		adscore.WithTool(scoreTool("a", 80)),
		adscore.WithTool(scoreTool("b", 70)),
	)
	ctx := context.Background()

	if _, err := eng.GrantCredits(ctx, testAccount, testApp, 20, "goodwill"); err != nil {
		t.Fatalf("GrantCredits: %v", err)
	}

	// 2 tools x 10 = 20: drains the 15 allowance, then 5 bonus.
	p := newTestProject(t, eng, "a", "b")
	if _, err := eng.Analyze(ctx, p.ID, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	summary, _ := eng.GetCreditSummary(ctx, testAccount, testApp)
	if summary.Balance != 0 || summary.BonusCredits != 15 {
		t.Errorf("balances = (%d, %d), want (0, 15)", summary.Balance, summary.BonusCredits)
	}
}

func TestToolTimeoutFailsThatToolOnly(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("fast", 88)),
		adscore.WithTool(slowTool("stuck")),
		adscore.WithToolTimeout(50*time.Millisecond),
	)
	p := newTestProject(t, eng, "fast", "stuck")

	got, err := eng.Analyze(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if got.Status != project.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.OverallScore == nil || *got.OverallScore != 88 {
		t.Errorf("OverallScore = %v, want 88", got.OverallScore)
	}
	stuck := got.ToolResults["stuck"]
	if stuck.Status != project.ResultFailed {
		t.Errorf("stuck status = %s, want failed", stuck.Status)
	}
	if stuck.FailureReason == "" {
		t.Error("timeout failure carries no reason")
	}
}

func TestToolPanicRecordedAsFailure(t *testing.T) {
	panicky := tool.InvokerFunc{
		ToolName: "panicky",
		Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
			panic("unexpected nil")
		},
	}
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("steady", 75)),
		adscore.WithTool(panicky),
	)
	p := newTestProject(t, eng, "steady", "panicky")

	got, err := eng.Analyze(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Status != project.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if r := got.ToolResults["panicky"]; r.Status != project.ResultFailed {
		t.Errorf("panicky result = %+v, want failed", r)
	}
}

func TestReanalysisFromTerminalReplacesResults(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("clarity", 60)),
		adscore.WithTool(scoreTool("tone", 90)),
	)
	ctx := context.Background()
	p := newTestProject(t, eng, "clarity")

	first, err := eng.Analyze(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if *first.OverallScore != 60 {
		t.Fatalf("first score = %d, want 60", *first.OverallScore)
	}

	// New round with a different tool set replaces the old results.
	second, err := eng.Analyze(ctx, p.ID, []string{"tone"})
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}
	if *second.OverallScore != 90 {
		t.Errorf("second score = %d, want 90", *second.OverallScore)
	}
	if _, stale := second.ToolResults["clarity"]; stale {
		t.Error("first round's clarity result survived the second round")
	}
}

func TestVerifyLedgerDetectsDivergence(t *testing.T) {
	store := memory.New()
	eng := adscore.New(store, adscore.WithResetSweepInterval(0))
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	tr := &tier.Tier{
		Key: "standard", Name: "Standard", Status: tier.StatusActive,
		MonthlyAllowance: 100,
		Costs:            []tier.OperationCost{{Operation: adscore.OperationToolRun, Cost: 10}},
		AppID:            testApp,
	}
	if err := eng.CreateTier(ctx, tr); err != nil {
		t.Fatalf("CreateTier: %v", err)
	}
	l, err := eng.ProvisionLedger(ctx, testAccount, testApp, "standard")
	if err != nil {
		t.Fatalf("ProvisionLedger: %v", err)
	}

	if err := eng.VerifyLedger(ctx, testAccount, testApp); err != nil {
		t.Fatalf("fresh ledger failed verification: %v", err)
	}

	// Corrupt the cached balance behind the engine's back.
	l.Balance = 999
	if err := store.UpdateLedger(ctx, l); err != nil {
		t.Fatalf("UpdateLedger: %v", err)
	}

	err = eng.VerifyLedger(ctx, testAccount, testApp)
	var div *adscore.DivergenceError
	if !errors.As(err, &div) {
		t.Fatalf("err = %v, want DivergenceError", err)
	}
	if !errors.Is(err, adscore.ErrLedgerDiverged) {
		t.Error("DivergenceError does not match ErrLedgerDiverged")
	}
	if div.ReplayBalance != 100 {
		t.Errorf("ReplayBalance = %d, want 100", div.ReplayBalance)
	}
}

func TestResetCyclePreservesBonusAndLog(t *testing.T) {
	eng := newTestEngine(t, 50, false, adscore.WithTool(scoreTool("clarity", 80)))
	ctx := context.Background()

	if _, err := eng.GrantCredits(ctx, testAccount, testApp, 30, "promo"); err != nil {
		t.Fatalf("GrantCredits: %v", err)
	}
	p := newTestProject(t, eng, "clarity")
	if _, err := eng.Analyze(ctx, p.ID, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	before, _ := eng.ListTransactions(ctx, testAccount, testApp, credit.TxnListOpts{})

	if err := eng.ResetCycle(ctx, testAccount, testApp); err != nil {
		t.Fatalf("ResetCycle: %v", err)
	}

	summary, _ := eng.GetCreditSummary(ctx, testAccount, testApp)
	if summary.Balance != 50 {
		t.Errorf("balance = %d, want 50", summary.Balance)
	}
	if summary.BonusCredits != 30 {
		t.Errorf("bonus = %d, want 30 (reset must not touch bonus)", summary.BonusCredits)
	}

	after, _ := eng.ListTransactions(ctx, testAccount, testApp, credit.TxnListOpts{})
	if len(after) != len(before)+1 {
		t.Errorf("log grew by %d entries, want 1 reset entry", len(after)-len(before))
	}

	// Replay still matches after the reset.
	if err := eng.VerifyLedger(ctx, testAccount, testApp); err != nil {
		t.Errorf("VerifyLedger after reset: %v", err)
	}
}

func TestSweeperResetsOnlyDueLedgers(t *testing.T) {
	store := memory.New()
	eng := adscore.New(store, adscore.WithResetSweepInterval(20*time.Millisecond))
	ctx := context.Background()

	tr := &tier.Tier{
		Key: "standard", Name: "Standard", Status: tier.StatusActive,
		MonthlyAllowance: 100,
		Costs:            []tier.OperationCost{{Operation: adscore.OperationToolRun, Cost: 10}},
		AppID:            testApp,
	}
	if err := eng.CreateTier(ctx, tr); err != nil {
		t.Fatalf("CreateTier: %v", err)
	}

	due, err := eng.ProvisionLedger(ctx, "acct_due", testApp, "standard")
	if err != nil {
		t.Fatalf("ProvisionLedger: %v", err)
	}
	if _, err := eng.ProvisionLedger(ctx, "acct_fresh", testApp, "standard"); err != nil {
		t.Fatalf("ProvisionLedger: %v", err)
	}

	// Roll one ledger's cycle boundary into the past before the sweeper
	// starts ticking.
	due.CycleResetAt = time.Now().UTC().Add(-time.Minute)
	if err := store.UpdateLedger(ctx, due); err != nil {
		t.Fatalf("UpdateLedger: %v", err)
	}

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	deadline := time.Now().Add(2 * time.Second)
	var resets []*credit.Transaction
	for time.Now().Before(deadline) {
		resets, _ = eng.ListTransactions(ctx, "acct_due", testApp, credit.TxnListOpts{Kind: credit.KindReset})
		if len(resets) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(resets) == 0 {
		t.Fatal("sweeper never reset the due ledger")
	}

	// Another few ticks must not reset it again, nor touch the fresh ledger.
	time.Sleep(60 * time.Millisecond)
	resets, _ = eng.ListTransactions(ctx, "acct_due", testApp, credit.TxnListOpts{Kind: credit.KindReset})
	if len(resets) != 1 {
		t.Errorf("due ledger reset %d times, want 1", len(resets))
	}
	fresh, _ := eng.ListTransactions(ctx, "acct_fresh", testApp, credit.TxnListOpts{Kind: credit.KindReset})
	if len(fresh) != 0 {
		t.Errorf("fresh ledger reset %d times, want 0", len(fresh))
	}

	swept, err := store.GetLedgerByAccount(ctx, "acct_due", testApp)
	if err != nil {
		t.Fatalf("GetLedgerByAccount: %v", err)
	}
	if !swept.CycleResetAt.After(time.Now()) {
		t.Errorf("CycleResetAt = %v, want advanced past now", swept.CycleResetAt)
	}
}

func TestRedeemPromoGrantsBonus(t *testing.T) {
	eng := newTestEngine(t, 50, false, adscore.WithTool(scoreTool("clarity", 80)))
	ctx := context.Background()

	pr := &promo.Promo{
		Code:           "WELCOME25",
		Name:           "Welcome bonus",
		Credits:        25,
		MaxRedemptions: 1,
		AppID:          testApp,
	}
	if err := eng.CreatePromo(ctx, pr); err != nil {
		t.Fatalf("CreatePromo: %v", err)
	}

	txn, err := eng.RedeemPromo(ctx, testAccount, testApp, "WELCOME25")
	if err != nil {
		t.Fatalf("RedeemPromo: %v", err)
	}
	if txn.Kind != credit.KindGrant || txn.BonusDelta != 25 {
		t.Errorf("txn = %+v, want grant of 25 bonus", txn)
	}

	summary, _ := eng.GetCreditSummary(ctx, testAccount, testApp)
	if summary.BonusCredits != 25 {
		t.Errorf("bonus = %d, want 25", summary.BonusCredits)
	}

	// Cap of one.
	if _, err := eng.RedeemPromo(ctx, testAccount, testApp, "WELCOME25"); !errors.Is(err, adscore.ErrPromoExhausted) {
		t.Errorf("second redemption err = %v, want ErrPromoExhausted", err)
	}
}

func TestGenerateStatement(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("a", 80)),
		adscore.WithTool(scoreTool("b", 60)),
	)
	ctx := context.Background()

	p := newTestProject(t, eng, "a", "b")
	if _, err := eng.Analyze(ctx, p.ID, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := eng.GrantCredits(ctx, testAccount, testApp, 15, "goodwill"); err != nil {
		t.Fatalf("GrantCredits: %v", err)
	}

	stmt, err := eng.GenerateStatement(ctx, testAccount, testApp)
	if err != nil {
		t.Fatalf("GenerateStatement: %v", err)
	}

	if stmt.TotalDebited != 20 {
		t.Errorf("TotalDebited = %d, want 20", stmt.TotalDebited)
	}
	// Opening grant of 100 plus the 15 bonus.
	if stmt.TotalGranted != 115 {
		t.Errorf("TotalGranted = %d, want 115", stmt.TotalGranted)
	}
	if len(stmt.LineItems) != 1 {
		t.Fatalf("LineItems = %d, want 1", len(stmt.LineItems))
	}
	li := stmt.LineItems[0]
	if li.Operation != adscore.OperationToolRun || li.Runs != 1 || li.Credits != 20 {
		t.Errorf("line item = %+v", li)
	}
	if stmt.ClosingBalance != 95 {
		t.Errorf("ClosingBalance = %d, want 95", stmt.ClosingBalance)
	}
}

// The opening grant is stamped with the same instant as the ledger, so a
// statement generated right after provisioning reports it as granted in
// the period rather than folding it into the opening balance.
func TestStatementCountsOpeningGrant(t *testing.T) {
	eng := newTestEngine(t, 100, false)
	ctx := context.Background()

	stmt, err := eng.GenerateStatement(ctx, testAccount, testApp)
	if err != nil {
		t.Fatalf("GenerateStatement: %v", err)
	}
	if stmt.OpeningBalance != 0 {
		t.Errorf("OpeningBalance = %d, want 0", stmt.OpeningBalance)
	}
	if stmt.TotalGranted != 100 {
		t.Errorf("TotalGranted = %d, want 100", stmt.TotalGranted)
	}
	if stmt.ClosingBalance != 100 {
		t.Errorf("ClosingBalance = %d, want 100", stmt.ClosingBalance)
	}
}

// erroringPlugin fails every hook it implements.
type erroringPlugin struct{}

func (erroringPlugin) Name() string { return "erroring" }

func (erroringPlugin) OnCreditsDebited(ctx context.Context, accountID, operation string, amount types.Credits) error {
	return fmt.Errorf("hook exploded")
}

func (erroringPlugin) OnProjectCompleted(ctx context.Context, projectID string, overallScore int) error {
	return fmt.Errorf("hook exploded")
}

func TestPluginFailuresDoNotBreakAnalysis(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("clarity", 80)),
		adscore.WithPlugin(erroringPlugin{}),
	)
	p := newTestProject(t, eng, "clarity")

	got, err := eng.Analyze(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Status != project.StatusCompleted || *got.OverallScore != 80 {
		t.Errorf("got status=%s score=%v, want completed/80", got.Status, got.OverallScore)
	}
}

// meanFloorAggregator is a custom overall-score strategy for tests.
type meanFloorAggregator struct{}

func (meanFloorAggregator) Name() string           { return "mean-floor" }
func (meanFloorAggregator) AggregatorName() string { return "mean-floor" }

func (meanFloorAggregator) Aggregate(results map[string]*project.ToolResult) *int {
	sum, n := 0, 0
	for _, r := range results {
		if r.Status == project.ResultCompleted && r.OverallScore != nil {
			sum += *r.OverallScore
			n++
		}
	}
	if n == 0 {
		return nil
	}
	score := sum / n
	return &score
}

func TestCustomScoreAggregator(t *testing.T) {
	eng := newTestEngine(t, 100, false,
		adscore.WithTool(scoreTool("a", 70)),
		adscore.WithTool(scoreTool("b", 75)),
		adscore.WithPlugin(meanFloorAggregator{}),
		adscore.WithScoreAggregator("mean-floor"),
	)
	p := newTestProject(t, eng, "a", "b")

	got, err := eng.Analyze(context.Background(), p.ID, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// Floor mean is 72; the default round-half-up would give 73.
	if got.OverallScore == nil || *got.OverallScore != 72 {
		t.Errorf("OverallScore = %v, want 72", got.OverallScore)
	}
}

func TestGetProjectStatusTracksRound(t *testing.T) {
	eng := newTestEngine(t, 100, false, adscore.WithTool(scoreTool("clarity", 85)))
	ctx := context.Background()
	p := newTestProject(t, eng, "clarity")

	before, err := eng.GetProjectStatus(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectStatus: %v", err)
	}
	if before.Status != project.StatusDraft || before.OverallScore != nil {
		t.Errorf("before = %+v, want draft with no score", before)
	}

	if _, err := eng.Analyze(ctx, p.ID, nil); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	after, err := eng.GetProjectStatus(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectStatus: %v", err)
	}
	if after.Status != project.StatusCompleted {
		t.Errorf("after status = %s, want completed", after.Status)
	}
	if after.OverallScore == nil || *after.OverallScore != 85 {
		t.Errorf("after score = %v, want 85", after.OverallScore)
	}
}
