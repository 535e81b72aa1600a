// Package plugin provides an extensible plugin system for adscore.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated is called when a new tier is created.
type OnTierCreated interface {
	Plugin
	OnTierCreated(ctx context.Context, t interface{}) error
}

// OnTierUpdated is called when a tier is updated.
type OnTierUpdated interface {
	Plugin
	OnTierUpdated(ctx context.Context, oldTier, newTier interface{}) error
}

// OnTierArchived is called when a tier is archived.
type OnTierArchived interface {
	Plugin
	OnTierArchived(ctx context.Context, tierID string) error
}

// ──────────────────────────────────────────────────
// Credit ledger hooks
// ──────────────────────────────────────────────────

// OnLedgerProvisioned is called when an account's ledger is created.
type OnLedgerProvisioned interface {
	Plugin
	OnLedgerProvisioned(ctx context.Context, ledger interface{}) error
}

// OnCreditsDebited is called after a successful debit.
type OnCreditsDebited interface {
	Plugin
	OnCreditsDebited(ctx context.Context, accountID, operation string, amount types.Credits) error
}

// OnCreditsGranted is called after bonus credits are granted.
type OnCreditsGranted interface {
	Plugin
	OnCreditsGranted(ctx context.Context, accountID string, amount types.Credits, reason string) error
}

// OnInsufficientCredits is called when a debit is refused for lack of funds.
type OnInsufficientCredits interface {
	Plugin
	OnInsufficientCredits(ctx context.Context, accountID, operation string, required, available types.Credits) error
}

// OnCycleReset is called when a ledger's allowance is refreshed.
type OnCycleReset interface {
	Plugin
	OnCycleReset(ctx context.Context, accountID string, newBalance types.Credits) error
}

// OnLedgerDiverged is called when replay verification finds a mismatch
// between a ledger's cached balances and its transaction log.
type OnLedgerDiverged interface {
	Plugin
	OnLedgerDiverged(ctx context.Context, accountID string, err error) error
}

// ──────────────────────────────────────────────────
// Analysis hooks
// ──────────────────────────────────────────────────

// OnAnalysisRequested is called when an analysis run is accepted.
type OnAnalysisRequested interface {
	Plugin
	OnAnalysisRequested(ctx context.Context, projectID string, tools []string, debited types.Credits) error
}

// OnToolStarted is called when a tool begins running.
type OnToolStarted interface {
	Plugin
	OnToolStarted(ctx context.Context, projectID, toolName string) error
}

// OnToolCompleted is called when a tool finishes successfully.
type OnToolCompleted interface {
	Plugin
	OnToolCompleted(ctx context.Context, projectID, toolName string, score int, elapsed time.Duration) error
}

// OnToolFailed is called when a tool errors, times out or panics.
type OnToolFailed interface {
	Plugin
	OnToolFailed(ctx context.Context, projectID, toolName, reason string) error
}

// OnProjectCompleted is called when a run ends with at least one
// completed tool.
type OnProjectCompleted interface {
	Plugin
	OnProjectCompleted(ctx context.Context, projectID string, overallScore int) error
}

// OnProjectFailed is called when every tool in a run failed.
type OnProjectFailed interface {
	Plugin
	OnProjectFailed(ctx context.Context, projectID string) error
}

// ──────────────────────────────────────────────────
// Promo and statement hooks
// ──────────────────────────────────────────────────

// OnPromoRedeemed is called after a promo code grants bonus credits.
type OnPromoRedeemed interface {
	Plugin
	OnPromoRedeemed(ctx context.Context, accountID, code string, credits types.Credits) error
}

// OnStatementGenerated is called when a usage statement is produced.
type OnStatementGenerated interface {
	Plugin
	OnStatementGenerated(ctx context.Context, stmt interface{}) error
}

// ──────────────────────────────────────────────────
// Score aggregators
// ──────────────────────────────────────────────────

// ScoreAggregator replaces the default mean-of-completed overall score.
type ScoreAggregator interface {
	Plugin
	AggregatorName() string
	Aggregate(results map[string]*project.ToolResult) *int
}

// ──────────────────────────────────────────────────
// Promo validators
// ──────────────────────────────────────────────────

// PromoValidator provides custom promo validation logic. A non-nil error
// blocks the redemption.
type PromoValidator interface {
	Plugin
	ValidatePromo(ctx context.Context, p interface{}, accountID string) error
}
