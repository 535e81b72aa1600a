package adscore_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/adscore"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/store/memory"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/tool"
	"github.com/xraph/adscore/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the engine with an analysis tool
		clarity := tool.InvokerFunc{
			ToolName: "clarity",
			Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
				return &tool.Output{OverallScore: 82}, nil
			},
		}

		eng := adscore.New(store,
			adscore.WithLogger(slog.Default()),
			adscore.WithTool(clarity),
			adscore.WithToolTimeout(30*time.Second),
			adscore.WithResetSweepInterval(0), // no sweeper in this demo
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Create a tier
		growth := &tier.Tier{
			Key:              "growth",
			Name:             "Growth",
			Status:           tier.StatusActive,
			MonthlyAllowance: 100,
			Costs: []tier.OperationCost{
				{Operation: "tool_run", Cost: 5},
			},
			AppID: "app_456",
		}
		if err := eng.CreateTier(ctx, growth); err != nil {
			t.Fatal(err)
		}

		// Provision the account's credit ledger
		if _, err := eng.ProvisionLedger(ctx, "acct_123", "app_456", "growth"); err != nil {
			t.Fatal(err)
		}

		// Create a project with ad copy
		p := &project.Project{
			AccountID: "acct_123",
			AppID:     "app_456",
			Name:      "Spring launch",
			Content: project.Content{
				Headline: "Ship faster with Acme",
				Body:     "Acme automates the busywork so your team can build.",
				Platform: "linkedin",
			},
			EnabledTools: []string{"clarity"},
		}
		if err := eng.CreateProject(ctx, p); err != nil {
			t.Fatal(err)
		}

		// Check affordability before committing
		check, err := eng.CheckAffordable(ctx, "acct_123", "app_456", "tool_run", 1)
		if err != nil {
			t.Fatal(err)
		}
		if !check.Allowed {
			t.Fatalf("expected run to be affordable: %s", check.Reason)
		}

		// Run the analysis, blocking until it finishes
		analyzed, err := eng.Analyze(ctx, p.ID, nil)
		if err != nil {
			t.Fatal(err)
		}
		if analyzed.Status != project.StatusCompleted {
			t.Fatalf("status = %s, want completed", analyzed.Status)
		}

		log.Printf("overall score: %d\n", *analyzed.OverallScore)

		// Check the remaining balance
		summary, err := eng.GetCreditSummary(ctx, "acct_123", "app_456")
		if err != nil {
			t.Fatal(err)
		}
		if summary.Balance != 95 {
			t.Fatalf("balance = %d, want 95", summary.Balance)
		}
	})

	// Test Credits type examples
	t.Run("CreditsExamples", func(t *testing.T) {
		// Constructors
		_ = types.N(100)
		_ = types.Zero

		// Arithmetic
		c1 := types.N(10)
		c2 := types.N(25)
		_ = c1.Add(c2)      // 35 credits
		_ = c2.Sub(c1)      // 15 credits
		_ = c1.MulQty(3)    // 30 credits
		_ = c1.SubFloor(c2) // 0, never negative

		// Comparison
		if c1 < c2 {
			// c1 is less than c2
		}

		// Formatting
		_ = c1.String() // "10 credits"
	})
}
