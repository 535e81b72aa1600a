package entitlement_test

import (
	"testing"

	"github.com/xraph/adscore/entitlement"
	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/types"
)

func testTier(key string, allowance types.Credits, unlimited bool, costs ...tier.OperationCost) *tier.Tier {
	return &tier.Tier{
		Key:              key,
		Name:             key,
		Status:           tier.StatusActive,
		MonthlyAllowance: allowance,
		Unlimited:        unlimited,
		Costs:            costs,
	}
}

func TestResolve(t *testing.T) {
	tr := testTier("growth", 100, false,
		tier.OperationCost{Operation: "tool_run", Cost: 5},
		tier.OperationCost{Operation: "export", Cost: 2},
	)

	ent := entitlement.Resolve(tr)

	if ent.TierKey != "growth" {
		t.Errorf("TierKey = %q, want growth", ent.TierKey)
	}
	if ent.MonthlyAllowance != 100 {
		t.Errorf("MonthlyAllowance = %d, want 100", ent.MonthlyAllowance)
	}
	if ent.Unlimited {
		t.Error("Unlimited = true, want false")
	}
	if got, ok := ent.CostOf("tool_run"); !ok || got != 5 {
		t.Errorf("CostOf(tool_run) = %d, %v; want 5, true", got, ok)
	}
	if _, ok := ent.CostOf("missing"); ok {
		t.Error("CostOf(missing) reported ok")
	}
}

func TestResolveUnlimitedFlagIsExplicit(t *testing.T) {
	// A huge allowance must not imply unlimited; only the flag does.
	big := entitlement.Resolve(testTier("whale", 1<<40, false,
		tier.OperationCost{Operation: "tool_run", Cost: 1}))
	if big.Unlimited {
		t.Error("large allowance resolved as unlimited")
	}

	unlim := entitlement.Resolve(testTier("unlimited", 0, true))
	if !unlim.Unlimited {
		t.Error("unlimited tier did not resolve as unlimited")
	}
}

func TestAffordable(t *testing.T) {
	ent := entitlement.Resolve(testTier("standard", 50, false,
		tier.OperationCost{Operation: "tool_run", Cost: 10}))
	unlimited := entitlement.Resolve(testTier("unlimited", 0, true))

	tests := []struct {
		name          string
		ent           entitlement.Entitlement
		operation     string
		qty           int64
		balance       types.Credits
		bonus         types.Credits
		wantAllowed   bool
		wantCost      types.Credits
		wantShortfall types.Credits
	}{
		{
			name:      "exact funds",
			ent:       ent,
			operation: "tool_run", qty: 3, balance: 30,
			wantAllowed: true, wantCost: 30,
		},
		{
			name:      "bonus covers the gap",
			ent:       ent,
			operation: "tool_run", qty: 4, balance: 25, bonus: 15,
			wantAllowed: true, wantCost: 40,
		},
		{
			name:      "insufficient with shortfall",
			ent:       ent,
			operation: "tool_run", qty: 5, balance: 30, bonus: 5,
			wantAllowed: false, wantCost: 50, wantShortfall: 15,
		},
		{
			name:      "zero balance zero bonus",
			ent:       ent,
			operation: "tool_run", qty: 1,
			wantAllowed: false, wantCost: 10, wantShortfall: 10,
		},
		{
			name:      "unknown operation with plenty of credits",
			ent:       ent,
			operation: "nonexistent", qty: 1, balance: 1000,
			wantAllowed: false,
		},
		{
			name:      "unlimited ignores balance",
			ent:       unlimited,
			operation: "tool_run", qty: 100,
			wantAllowed: true,
		},
		{
			name:      "unlimited allows unknown operations",
			ent:       unlimited,
			operation: "nonexistent", qty: 1,
			wantAllowed: true,
		},
		{
			name:      "zero quantity rejected",
			ent:       ent,
			operation: "tool_run", qty: 0, balance: 100,
			wantAllowed: false,
		},
		{
			name:      "negative quantity rejected",
			ent:       ent,
			operation: "tool_run", qty: -2, balance: 100,
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ent.Affordable(tt.operation, tt.qty, tt.balance, tt.bonus)
			if got.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", got.Allowed, tt.wantAllowed, got.Reason)
			}
			if got.Cost != tt.wantCost {
				t.Errorf("Cost = %d, want %d", got.Cost, tt.wantCost)
			}
			if got.Shortfall != tt.wantShortfall {
				t.Errorf("Shortfall = %d, want %d", got.Shortfall, tt.wantShortfall)
			}
			if !got.Allowed && got.Reason == "" {
				t.Error("denied check carries no reason")
			}
		})
	}
}
