package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/adscore"
	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/promo"
	"github.com/xraph/adscore/store/memory"
	"github.com/xraph/adscore/types"
)

func newLedger(t *testing.T, s *memory.Store, balance, bonus types.Credits) *credit.Ledger {
	t.Helper()
	l := &credit.Ledger{
		Entity:       types.NewEntity(),
		ID:           id.NewLedgerID(),
		AccountID:    "acct-1",
		AppID:        "app-1",
		TierKey:      "growth",
		Balance:      balance,
		BonusCredits: bonus,
		CycleResetAt: time.Now().UTC().AddDate(0, 1, 0),
	}
	if err := s.CreateLedger(context.Background(), l); err != nil {
		t.Fatalf("CreateLedger: %v", err)
	}
	return l
}

func TestDebitSplitsAllowanceFirst(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	l := newLedger(t, s, 20, 30)

	txn, err := s.Debit(ctx, l.ID, "tool_run", 35, "analysis")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if txn.BalanceDelta != -20 || txn.BonusDelta != -15 {
		t.Errorf("deltas = (%d, %d), want (-20, -15)", txn.BalanceDelta, txn.BonusDelta)
	}

	got, err := s.GetLedger(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	if got.Balance != 0 || got.BonusCredits != 15 {
		t.Errorf("ledger = (%d, %d), want (0, 15)", got.Balance, got.BonusCredits)
	}
}

func TestDebitInsufficient(t *testing.T) {
	s := memory.New()
	l := newLedger(t, s, 10, 5)

	_, err := s.Debit(context.Background(), l.ID, "tool_run", 20, "analysis")
	var ice *adscore.InsufficientCreditsError
	if !errors.As(err, &ice) {
		t.Fatalf("Debit err = %v, want InsufficientCreditsError", err)
	}
	if ice.Shortfall() != 5 {
		t.Errorf("Shortfall = %d, want 5", ice.Shortfall())
	}

	// Nothing may have changed.
	got, _ := s.GetLedger(context.Background(), l.ID)
	if got.Balance != 10 || got.BonusCredits != 5 {
		t.Errorf("ledger mutated on refused debit: (%d, %d)", got.Balance, got.BonusCredits)
	}
	txns, _ := s.ListTransactions(context.Background(), l.ID, credit.TxnListOpts{})
	if len(txns) != 0 {
		t.Errorf("refused debit appended %d transactions", len(txns))
	}
}

func TestConcurrentDebitsOneSucceeds(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	// Funds for exactly one 30-credit debit.
	l := newLedger(t, s, 30, 0)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Debit(ctx, l.ID, "tool_run", 30, "race")
		}(i)
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
		t.Errorf("%d debits succeeded, want exactly 1", succeeded)
	}

	got, _ := s.GetLedger(ctx, l.ID)
	if got.Balance != 0 {
		t.Errorf("balance = %d, want 0", got.Balance)
	}
}

func TestLedgerReplayMatchesAfterMixedTraffic(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	l := newLedger(t, s, 0, 0)

	if _, err := s.Grant(ctx, l.ID, 100, "opening grant"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := s.Debit(ctx, l.ID, "tool_run", 40, ""); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if _, err := s.Refund(ctx, l.ID, "tool_run", 10, "tool vanished"); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if _, err := s.Reset(ctx, l.ID, 100, time.Now().AddDate(0, 1, 0)); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	got, _ := s.GetLedger(ctx, l.ID)
	txns, _ := s.ListTransactions(ctx, l.ID, credit.TxnListOpts{})
	if _, _, ok := got.Verify(txns); !ok {
		balance, bonus := credit.Replay(txns)
		t.Errorf("ledger (%d, %d) does not match replay (%d, %d)",
			got.Balance, got.BonusCredits, balance, bonus)
	}
}

func TestBeginAnalysisCAS(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	p := &project.Project{
		Entity:    types.NewEntity(),
		ID:        id.NewProjectID(),
		AccountID: "acct-1",
		AppID:     "app-1",
		Name:      "launch copy",
		Content:   project.Content{Headline: "Try it"},
		Status:    project.StatusDraft,
	}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	tools := []string{"clarity", "tone"}
	const attempts = 6
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.BeginAnalysis(ctx, p.ID, tools, time.Now().UTC())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, adscore.ErrAnalysisInProgress) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d transitions succeeded, want exactly 1", succeeded)
	}

	got, _ := s.GetProject(ctx, p.ID)
	if got.Status != project.StatusAnalyzing {
		t.Errorf("status = %s, want analyzing", got.Status)
	}
	if len(got.ToolResults) != 2 {
		t.Errorf("ToolResults = %d slots, want 2", len(got.ToolResults))
	}
	for name, r := range got.ToolResults {
		if r.Status != project.ResultPending {
			t.Errorf("slot %s = %s, want pending", name, r.Status)
		}
	}
}

func TestBeginAnalysisFromTerminalReplacesResults(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	score := 75
	p := &project.Project{
		Entity:    types.NewEntity(),
		ID:        id.NewProjectID(),
		AccountID: "acct-1",
		AppID:     "app-1",
		Content:   project.Content{Headline: "Try it"},
		Status:    project.StatusCompleted,
		ToolResults: map[string]*project.ToolResult{
			"clarity": {ToolName: "clarity", Status: project.ResultCompleted, OverallScore: &score},
		},
		OverallScore: &score,
	}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := s.BeginAnalysis(ctx, p.ID, []string{"tone"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	if got.OverallScore != nil {
		t.Error("OverallScore not cleared on new round")
	}
	if _, stale := got.ToolResults["clarity"]; stale {
		t.Error("previous round's results survived")
	}
	if r, ok := got.ToolResults["tone"]; !ok || r.Status != project.ResultPending {
		t.Errorf("fresh slot missing or wrong: %+v", got.ToolResults)
	}
}

func TestPutToolResultIsolatedSlots(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	p := &project.Project{
		Entity:  types.NewEntity(),
		ID:      id.NewProjectID(),
		Content: project.Content{Headline: "x"},
		Status:  project.StatusDraft,
	}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := s.BeginAnalysis(ctx, p.ID, []string{"a", "b", "c"}, time.Now().UTC()); err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			score := 50
			_ = s.PutToolResult(ctx, p.ID, &project.ToolResult{
				ToolName:     name,
				Status:       project.ResultCompleted,
				OverallScore: &score,
			})
		}(name)
	}
	wg.Wait()

	got, _ := s.GetProject(ctx, p.ID)
	if got.TerminalCount() != 3 {
		t.Errorf("TerminalCount = %d, want 3 (lost write)", got.TerminalCount())
	}
}

func TestRedeemPromoCap(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	p := &promo.Promo{
		Entity:         types.NewEntity(),
		ID:             id.NewPromoID(),
		Code:           "LAUNCH50",
		Credits:        50,
		MaxRedemptions: 3,
		AppID:          "app-1",
	}
	if err := s.CreatePromo(ctx, p); err != nil {
		t.Fatalf("CreatePromo: %v", err)
	}

	now := time.Now().UTC()
	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.RedeemPromo(ctx, "LAUNCH50", "app-1", now)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, adscore.ErrPromoExhausted) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 3 {
		t.Errorf("%d redemptions succeeded, want 3", succeeded)
	}
}

func TestRedeemPromoWindow(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	early := &promo.Promo{Entity: types.NewEntity(), ID: id.NewPromoID(), Code: "SOON", AppID: "app-1", ValidFrom: &future}
	late := &promo.Promo{Entity: types.NewEntity(), ID: id.NewPromoID(), Code: "GONE", AppID: "app-1", ValidUntil: &past}
	for _, p := range []*promo.Promo{early, late} {
		if err := s.CreatePromo(ctx, p); err != nil {
			t.Fatalf("CreatePromo: %v", err)
		}
	}

	if _, err := s.RedeemPromo(ctx, "SOON", "app-1", now); !errors.Is(err, adscore.ErrPromoNotStarted) {
		t.Errorf("SOON err = %v, want ErrPromoNotStarted", err)
	}
	if _, err := s.RedeemPromo(ctx, "GONE", "app-1", now); !errors.Is(err, adscore.ErrPromoExpired) {
		t.Errorf("GONE err = %v, want ErrPromoExpired", err)
	}
}

func TestListDueForReset(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	due := &credit.Ledger{
		Entity: types.NewEntity(), ID: id.NewLedgerID(),
		AccountID: "due", AppID: "app-1", CycleResetAt: now.Add(-time.Minute),
	}
	notDue := &credit.Ledger{
		Entity: types.NewEntity(), ID: id.NewLedgerID(),
		AccountID: "later", AppID: "app-1", CycleResetAt: now.Add(time.Hour),
	}
	for _, l := range []*credit.Ledger{due, notDue} {
		if err := s.CreateLedger(ctx, l); err != nil {
			t.Fatalf("CreateLedger: %v", err)
		}
	}

	got, err := s.ListDueForReset(ctx, now, 0)
	if err != nil {
		t.Fatalf("ListDueForReset: %v", err)
	}
	if len(got) != 1 || got[0].AccountID != "due" {
		t.Errorf("ListDueForReset = %+v, want just the due ledger", got)
	}
}
