package audithook

// Action constants for audit events.
const (
	// Tier actions
	ActionTierCreated  = "tier.created"
	ActionTierUpdated  = "tier.updated"
	ActionTierArchived = "tier.archived"

	// Credit actions
	ActionLedgerProvisioned   = "ledger.provisioned"
	ActionCreditsDebited      = "credits.debited"
	ActionCreditsGranted      = "credits.granted"
	ActionInsufficientCredits = "credits.insufficient"
	ActionCycleReset          = "ledger.cycle_reset"
	ActionLedgerDiverged      = "ledger.diverged"

	// Analysis actions
	ActionAnalysisRequested = "analysis.requested"
	ActionToolStarted       = "tool.started"
	ActionToolCompleted     = "tool.completed"
	ActionToolFailed        = "tool.failed"
	ActionProjectCompleted  = "project.completed"
	ActionProjectFailed     = "project.failed"

	// Promo actions
	ActionPromoRedeemed = "promo.redeemed"

	// Statement actions
	ActionStatementGenerated = "statement.generated"
)

// Resource constants for audit events.
const (
	ResourceTier      = "tier"
	ResourceLedger    = "ledger"
	ResourceProject   = "project"
	ResourceTool      = "tool"
	ResourcePromo     = "promo"
	ResourceStatement = "statement"
)

// Category constants for audit events.
const (
	CategoryMetering  = "metering"
	CategoryCredits   = "credits"
	CategoryAnalysis  = "analysis"
	CategoryPromotion = "promotion"
	CategoryIntegrity = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
