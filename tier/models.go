// Package tier defines subscription tiers and their credit cost tables.
package tier

import (
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/types"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDraft    Status = "draft"
)

type Tier struct {
	types.Entity
	ID               id.TierID         `json:"id"`
	Key              string            `json:"key"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Status           Status            `json:"status"`
	MonthlyAllowance types.Credits     `json:"monthly_allowance"`
	Unlimited        bool              `json:"unlimited"`
	Costs            []OperationCost   `json:"costs"`
	AppID            string            `json:"app_id"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// OperationCost prices one metered operation for the tier.
type OperationCost struct {
	Operation string        `json:"operation"`
	Cost      types.Credits `json:"cost"`
}

// CostOf returns the per-run cost of an operation. Unknown operations
// report false; callers must treat that as not-entitled rather than free.
func (t *Tier) CostOf(operation string) (types.Credits, bool) {
	for i := range t.Costs {
		if t.Costs[i].Operation == operation {
			return t.Costs[i].Cost, true
		}
	}
	return 0, false
}

// Active reports whether the tier can be attached to new ledgers.
func (t *Tier) Active() bool {
	return t.Status == StatusActive
}
