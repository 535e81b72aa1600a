// Package audithook bridges adscore lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/adscore/plugin"
	"github.com/xraph/adscore/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnTierCreated         = (*Extension)(nil)
	_ plugin.OnTierUpdated         = (*Extension)(nil)
	_ plugin.OnTierArchived        = (*Extension)(nil)
	_ plugin.OnLedgerProvisioned   = (*Extension)(nil)
	_ plugin.OnCreditsDebited      = (*Extension)(nil)
	_ plugin.OnCreditsGranted      = (*Extension)(nil)
	_ plugin.OnInsufficientCredits = (*Extension)(nil)
	_ plugin.OnCycleReset          = (*Extension)(nil)
	_ plugin.OnLedgerDiverged      = (*Extension)(nil)
	_ plugin.OnAnalysisRequested   = (*Extension)(nil)
	_ plugin.OnToolFailed          = (*Extension)(nil)
	_ plugin.OnProjectCompleted    = (*Extension)(nil)
	_ plugin.OnProjectFailed       = (*Extension)(nil)
	_ plugin.OnPromoRedeemed       = (*Extension)(nil)
	_ plugin.OnStatementGenerated  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges adscore lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated implements plugin.OnTierCreated.
func (e *Extension) OnTierCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTierCreated, SeverityInfo, OutcomeSuccess,
		ResourceTier, "", CategoryMetering, nil,
		"event", "tier_created",
	)
}

// OnTierUpdated implements plugin.OnTierUpdated.
func (e *Extension) OnTierUpdated(ctx context.Context, _, _ interface{}) error {
	return e.record(ctx, ActionTierUpdated, SeverityInfo, OutcomeSuccess,
		ResourceTier, "", CategoryMetering, nil,
		"event", "tier_updated",
	)
}

// OnTierArchived implements plugin.OnTierArchived.
func (e *Extension) OnTierArchived(ctx context.Context, tierID string) error {
	return e.record(ctx, ActionTierArchived, SeverityInfo, OutcomeSuccess,
		ResourceTier, tierID, CategoryMetering, nil,
		"tier_id", tierID,
	)
}

// ──────────────────────────────────────────────────
// Credit ledger hooks
// ──────────────────────────────────────────────────

// OnLedgerProvisioned implements plugin.OnLedgerProvisioned.
func (e *Extension) OnLedgerProvisioned(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionLedgerProvisioned, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "", CategoryCredits, nil,
		"event", "ledger_provisioned",
	)
}

// OnCreditsDebited implements plugin.OnCreditsDebited.
func (e *Extension) OnCreditsDebited(ctx context.Context, accountID, operation string, amount types.Credits) error {
	return e.record(ctx, ActionCreditsDebited, SeverityInfo, OutcomeSuccess,
		ResourceLedger, accountID, CategoryCredits, nil,
		"account_id", accountID,
		"operation", operation,
		"amount", int64(amount),
	)
}

// OnCreditsGranted implements plugin.OnCreditsGranted.
func (e *Extension) OnCreditsGranted(ctx context.Context, accountID string, amount types.Credits, reason string) error {
	return e.record(ctx, ActionCreditsGranted, SeverityInfo, OutcomeSuccess,
		ResourceLedger, accountID, CategoryCredits, nil,
		"account_id", accountID,
		"amount", int64(amount),
		"grant_reason", reason,
	)
}

// OnInsufficientCredits implements plugin.OnInsufficientCredits.
func (e *Extension) OnInsufficientCredits(ctx context.Context, accountID, operation string, required, available types.Credits) error {
	return e.record(ctx, ActionInsufficientCredits, SeverityWarning, OutcomeFailure,
		ResourceLedger, accountID, CategoryCredits, nil,
		"account_id", accountID,
		"operation", operation,
		"required", int64(required),
		"available", int64(available),
	)
}

// OnCycleReset implements plugin.OnCycleReset.
func (e *Extension) OnCycleReset(ctx context.Context, accountID string, newBalance types.Credits) error {
	return e.record(ctx, ActionCycleReset, SeverityInfo, OutcomeSuccess,
		ResourceLedger, accountID, CategoryCredits, nil,
		"account_id", accountID,
		"new_balance", int64(newBalance),
	)
}

// OnLedgerDiverged implements plugin.OnLedgerDiverged.
func (e *Extension) OnLedgerDiverged(ctx context.Context, accountID string, err error) error {
	return e.record(ctx, ActionLedgerDiverged, SeverityCritical, OutcomeFailure,
		ResourceLedger, accountID, CategoryIntegrity, err,
		"account_id", accountID,
	)
}

// ──────────────────────────────────────────────────
// Analysis lifecycle hooks
// ──────────────────────────────────────────────────

// OnAnalysisRequested implements plugin.OnAnalysisRequested.
func (e *Extension) OnAnalysisRequested(ctx context.Context, projectID string, tools []string, debited types.Credits) error {
	return e.record(ctx, ActionAnalysisRequested, SeverityInfo, OutcomeSuccess,
		ResourceProject, projectID, CategoryAnalysis, nil,
		"project_id", projectID,
		"tools", tools,
		"debited", int64(debited),
	)
}

// OnToolFailed implements plugin.OnToolFailed.
func (e *Extension) OnToolFailed(ctx context.Context, projectID, toolName, reason string) error {
	return e.record(ctx, ActionToolFailed, SeverityWarning, OutcomeFailure,
		ResourceTool, toolName, CategoryAnalysis, nil,
		"project_id", projectID,
		"tool", toolName,
		"failure_reason", reason,
	)
}

// OnProjectCompleted implements plugin.OnProjectCompleted.
func (e *Extension) OnProjectCompleted(ctx context.Context, projectID string, overallScore int) error {
	return e.record(ctx, ActionProjectCompleted, SeverityInfo, OutcomeSuccess,
		ResourceProject, projectID, CategoryAnalysis, nil,
		"project_id", projectID,
		"overall_score", overallScore,
	)
}

// OnProjectFailed implements plugin.OnProjectFailed.
func (e *Extension) OnProjectFailed(ctx context.Context, projectID string) error {
	return e.record(ctx, ActionProjectFailed, SeverityError, OutcomeFailure,
		ResourceProject, projectID, CategoryAnalysis, nil,
		"project_id", projectID,
	)
}

// ──────────────────────────────────────────────────
// Promo and statement hooks
// ──────────────────────────────────────────────────

// OnPromoRedeemed implements plugin.OnPromoRedeemed.
func (e *Extension) OnPromoRedeemed(ctx context.Context, accountID, code string, credits types.Credits) error {
	return e.record(ctx, ActionPromoRedeemed, SeverityInfo, OutcomeSuccess,
		ResourcePromo, code, CategoryPromotion, nil,
		"account_id", accountID,
		"code", code,
		"credits", int64(credits),
	)
}

// OnStatementGenerated implements plugin.OnStatementGenerated.
func (e *Extension) OnStatementGenerated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionStatementGenerated, SeverityInfo, OutcomeSuccess,
		ResourceStatement, "", CategoryCredits, nil,
		"event", "statement_generated",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
