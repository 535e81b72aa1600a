// Package adscore provides a credit-metered ad-copy analysis engine for Go applications.
//
// Adscore is designed as a library, not a service. Import it directly into your Go
// application for maximum performance and flexibility. It provides:
//
//   - Per-account credit ledgers with an append-only transaction log
//   - Tier-based entitlements with explicit unlimited tiers
//   - Atomic compare-and-debit so concurrent runs never double-spend
//   - Multi-tool analysis orchestration with per-tool timeouts
//   - Promotional bonus-credit codes and per-cycle usage statements
//   - Pluggable lifecycle hooks for metrics and audit trails
//
// # Quick Start
//
// Create an engine instance with your preferred store:
//
//	import (
//	    "github.com/xraph/adscore"
//	    "github.com/xraph/adscore/store/postgres"
//	)
//
//	// Initialize store (db is your configured *grove.DB)
//	store := postgres.New(db)
//
//	// Create engine with your analysis tools
//	eng := adscore.New(store,
//	    adscore.WithTool(clarityTool),
//	    adscore.WithTool(toneTool),
//	)
//
//	// Start the engine (begins background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Tiers define a monthly credit allowance and what each operation costs:
//
//	tier := &tier.Tier{
//	    Key:              "growth",
//	    MonthlyAllowance: 100,
//	    Costs: []tier.OperationCost{
//	        {Operation: "tool_run", Cost: 5},
//	    },
//	}
//
// Ledgers track an account's allowance balance and bonus credits. The
// balance is always the replay of the transaction log:
//
//	ledger, err := eng.ProvisionLedger(ctx, accountID, appID, "growth")
//
// Projects hold ad content and the tools enabled for it. Requesting an
// analysis debits credits up front and runs every enabled tool:
//
//	receipt, err := eng.RequestAnalysis(ctx, projectID, nil)
//
// # Credit Semantics
//
// Credits are whole integers, never fractions. A run's full cost is
// debited before any tool starts, allowance balance before bonus credits.
// Tool failures after launch are not refunded; the overall score is the
// mean of the tools that completed. All-or-nothing refunds apply only to
// tools that never started.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	tier_01h2xcejqtf2nbrexx3vqjhp41  // Tier ID
//	led_01h2xcejqtf2nbrexx3vqjhp41   // Ledger ID
//	proj_01h455vb4pex5vsknk084sn02q  // Project ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package adscore
