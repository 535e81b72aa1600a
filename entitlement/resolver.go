// Package entitlement resolves a subscription tier into the concrete
// metering parameters an account operates under. Resolution is pure: it
// never touches storage and never mutates the tier.
package entitlement

import (
	"fmt"

	"github.com/xraph/adscore/tier"
	"github.com/xraph/adscore/types"
)

// Entitlement is the resolved view of a tier: what the account is allowed
// to spend and what each operation costs.
type Entitlement struct {
	TierKey          string                   `json:"tier_key"`
	MonthlyAllowance types.Credits            `json:"monthly_allowance"`
	Unlimited        bool                     `json:"unlimited"`
	Costs            map[string]types.Credits `json:"costs"`
}

// Check is the outcome of an affordability question.
type Check struct {
	Allowed   bool          `json:"allowed"`
	Operation string        `json:"operation"`
	Quantity  int64         `json:"quantity"`
	Cost      types.Credits `json:"cost"`
	Shortfall types.Credits `json:"shortfall"`
	Reason    string        `json:"reason,omitempty"`
}

// Resolve flattens a tier into an Entitlement.
func Resolve(t *tier.Tier) Entitlement {
	costs := make(map[string]types.Credits, len(t.Costs))
	for _, c := range t.Costs {
		costs[c.Operation] = c.Cost
	}
	return Entitlement{
		TierKey:          t.Key,
		MonthlyAllowance: t.MonthlyAllowance,
		Unlimited:        t.Unlimited,
		Costs:            costs,
	}
}

// CostOf returns the per-run cost of an operation under this entitlement.
func (e Entitlement) CostOf(operation string) (types.Credits, bool) {
	c, ok := e.Costs[operation]
	return c, ok
}

// Affordable decides whether the account can pay for qty runs of operation
// given its current allowance balance and bonus pool. Unlimited tiers are
// always allowed. An operation absent from the cost table is never allowed,
// regardless of balance.
func (e Entitlement) Affordable(operation string, qty int64, balance, bonus types.Credits) Check {
	check := Check{Operation: operation, Quantity: qty}
	if qty <= 0 {
		check.Reason = fmt.Sprintf("quantity must be positive, got %d", qty)
		return check
	}
	if e.Unlimited {
		check.Allowed = true
		return check
	}
	cost, ok := e.Costs[operation]
	if !ok {
		check.Reason = fmt.Sprintf("operation %q is not available on tier %q", operation, e.TierKey)
		return check
	}
	check.Cost = cost.MulQty(qty)
	available := balance.Add(bonus)
	if available < check.Cost {
		check.Shortfall = check.Cost.Sub(available)
		check.Reason = fmt.Sprintf("requires %s, have %s", check.Cost, available)
		return check
	}
	check.Allowed = true
	return check
}
