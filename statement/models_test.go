package statement_test

import (
	"testing"
	"time"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/statement"
	"github.com/xraph/adscore/types"
)

func TestBuild(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	at := func(day int) time.Time { return start.AddDate(0, 0, day) }

	txns := []*credit.Transaction{
		{Kind: credit.KindDebit, Operation: "tool_run", BalanceDelta: -15, Timestamp: at(1)},
		{Kind: credit.KindDebit, Operation: "tool_run", BalanceDelta: -10, BonusDelta: -5, Timestamp: at(3)},
		{Kind: credit.KindDebit, Operation: "export", BalanceDelta: -2, Timestamp: at(5)},
		{Kind: credit.KindGrant, BonusDelta: 25, Timestamp: at(7)},
		{Kind: credit.KindRefund, Operation: "tool_run", BonusDelta: 5, Timestamp: at(8)},
		// Outside the period, must be ignored.
		{Kind: credit.KindDebit, Operation: "tool_run", BalanceDelta: -100, Timestamp: start.Add(-time.Hour)},
		{Kind: credit.KindDebit, Operation: "tool_run", BalanceDelta: -100, Timestamp: end},
	}

	stmt := statement.Build("acct-1", "app-1", start, end, 100, txns)

	if stmt.OpeningBalance != 100 {
		t.Errorf("OpeningBalance = %d, want 100", stmt.OpeningBalance)
	}
	// 100 - 15 - 15 - 2 + 25 + 5
	if stmt.ClosingBalance != 98 {
		t.Errorf("ClosingBalance = %d, want 98", stmt.ClosingBalance)
	}
	// 32 debited, 5 refunded.
	if stmt.TotalDebited != 27 {
		t.Errorf("TotalDebited = %d, want 27", stmt.TotalDebited)
	}
	if stmt.TotalGranted != 25 {
		t.Errorf("TotalGranted = %d, want 25", stmt.TotalGranted)
	}

	if len(stmt.LineItems) != 2 {
		t.Fatalf("LineItems = %d, want 2", len(stmt.LineItems))
	}
	// Sorted by operation name.
	export, toolRun := stmt.LineItems[0], stmt.LineItems[1]
	if export.Operation != "export" || export.Runs != 1 || export.Credits != 2 {
		t.Errorf("export item = %+v", export)
	}
	if toolRun.Operation != "tool_run" || toolRun.Runs != 2 || toolRun.Credits != 25 {
		t.Errorf("tool_run item = %+v", toolRun)
	}
}

func TestBuildReconcilesWithReplay(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	txns := []*credit.Transaction{
		{Kind: credit.KindGrant, BalanceDelta: 100, Timestamp: start},
		{Kind: credit.KindDebit, Operation: "tool_run", BalanceDelta: -40, Timestamp: start.AddDate(0, 0, 2)},
		{Kind: credit.KindGrant, BonusDelta: 10, Timestamp: start.AddDate(0, 0, 4)},
		{Kind: credit.KindDebit, Operation: "tool_run", BalanceDelta: -30, Timestamp: start.AddDate(0, 0, 6)},
	}

	stmt := statement.Build("acct-1", "app-1", start, end, 0, txns)

	balance, bonus := credit.Replay(txns)
	if want := balance.Add(bonus); stmt.ClosingBalance != want {
		t.Errorf("ClosingBalance = %d, replay total = %d", stmt.ClosingBalance, want)
	}
	var itemTotal types.Credits
	for _, li := range stmt.LineItems {
		itemTotal = itemTotal.Add(li.Credits)
	}
	if itemTotal != stmt.TotalDebited {
		t.Errorf("line items sum %d != TotalDebited %d", itemTotal, stmt.TotalDebited)
	}
}

func TestBuildEmptyPeriod(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	stmt := statement.Build("acct-1", "app-1", start, start.AddDate(0, 1, 0), 50, nil)
	if stmt.ClosingBalance != 50 || stmt.TotalDebited != 0 || len(stmt.LineItems) != 0 {
		t.Errorf("empty statement = %+v", stmt)
	}
}
