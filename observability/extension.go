// Package observability provides a metrics extension for adscore that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/adscore/plugin"
	"github.com/xraph/adscore/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnTierCreated         = (*MetricsExtension)(nil)
	_ plugin.OnTierUpdated         = (*MetricsExtension)(nil)
	_ plugin.OnTierArchived        = (*MetricsExtension)(nil)
	_ plugin.OnLedgerProvisioned   = (*MetricsExtension)(nil)
	_ plugin.OnCreditsDebited      = (*MetricsExtension)(nil)
	_ plugin.OnCreditsGranted      = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientCredits = (*MetricsExtension)(nil)
	_ plugin.OnCycleReset          = (*MetricsExtension)(nil)
	_ plugin.OnLedgerDiverged      = (*MetricsExtension)(nil)
	_ plugin.OnAnalysisRequested   = (*MetricsExtension)(nil)
	_ plugin.OnToolStarted         = (*MetricsExtension)(nil)
	_ plugin.OnToolCompleted       = (*MetricsExtension)(nil)
	_ plugin.OnToolFailed          = (*MetricsExtension)(nil)
	_ plugin.OnProjectCompleted    = (*MetricsExtension)(nil)
	_ plugin.OnProjectFailed       = (*MetricsExtension)(nil)
	_ plugin.OnPromoRedeemed       = (*MetricsExtension)(nil)
	_ plugin.OnStatementGenerated  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an adscore plugin to automatically track metering
// and analysis metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Tier metrics
	TierCreated  Counter
	TierUpdated  Counter
	TierArchived Counter

	// Credit metrics
	LedgersProvisioned  Counter
	CreditsDebited      Counter
	CreditsDebitedTotal Counter
	CreditsGranted      Counter
	CreditsGrantedTotal Counter
	InsufficientCredits Counter
	CycleResets         Counter
	LedgerDivergences   Counter

	// Analysis metrics
	AnalysesRequested Counter
	AnalysisToolCount Histogram
	ToolsStarted      Counter
	ToolsCompleted    Counter
	ToolsFailed       Counter
	ToolLatency       Histogram
	ToolScore         Histogram
	ProjectsCompleted Counter
	ProjectsFailed    Counter
	OverallScore      Histogram

	// Promo and statement metrics
	PromosRedeemed      Counter
	StatementsGenerated Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Tier metrics
		TierCreated:  factory.Counter("adscore.tier.created"),
		TierUpdated:  factory.Counter("adscore.tier.updated"),
		TierArchived: factory.Counter("adscore.tier.archived"),

		// Credit metrics
		LedgersProvisioned:  factory.Counter("adscore.ledger.provisioned"),
		CreditsDebited:      factory.Counter("adscore.credits.debits"),
		CreditsDebitedTotal: factory.Counter("adscore.credits.debited.total"),
		CreditsGranted:      factory.Counter("adscore.credits.grants"),
		CreditsGrantedTotal: factory.Counter("adscore.credits.granted.total"),
		InsufficientCredits: factory.Counter("adscore.credits.insufficient"),
		CycleResets:         factory.Counter("adscore.ledger.cycle.resets"),
		LedgerDivergences:   factory.Counter("adscore.ledger.divergences"),

		// Analysis metrics
		AnalysesRequested: factory.Counter("adscore.analysis.requested"),
		AnalysisToolCount: factory.Histogram("adscore.analysis.tool.count"),
		ToolsStarted:      factory.Counter("adscore.tool.started"),
		ToolsCompleted:    factory.Counter("adscore.tool.completed"),
		ToolsFailed:       factory.Counter("adscore.tool.failed"),
		ToolLatency:       factory.Histogram("adscore.tool.latency_ms"),
		ToolScore:         factory.Histogram("adscore.tool.score"),
		ProjectsCompleted: factory.Counter("adscore.project.completed"),
		ProjectsFailed:    factory.Counter("adscore.project.failed"),
		OverallScore:      factory.Histogram("adscore.project.overall_score"),

		// Promo and statement metrics
		PromosRedeemed:      factory.Counter("adscore.promo.redeemed"),
		StatementsGenerated: factory.Counter("adscore.statement.generated"),

		// Error metrics
		StoreErrors:  factory.Counter("adscore.store.errors"),
		PluginErrors: factory.Counter("adscore.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated implements plugin.OnTierCreated.
func (m *MetricsExtension) OnTierCreated(_ context.Context, _ interface{}) error {
	m.TierCreated.Inc()
	return nil
}

// OnTierUpdated implements plugin.OnTierUpdated.
func (m *MetricsExtension) OnTierUpdated(_ context.Context, _, _ interface{}) error {
	m.TierUpdated.Inc()
	return nil
}

// OnTierArchived implements plugin.OnTierArchived.
func (m *MetricsExtension) OnTierArchived(_ context.Context, _ string) error {
	m.TierArchived.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Credit ledger hooks
// ──────────────────────────────────────────────────

// OnLedgerProvisioned implements plugin.OnLedgerProvisioned.
func (m *MetricsExtension) OnLedgerProvisioned(_ context.Context, _ interface{}) error {
	m.LedgersProvisioned.Inc()
	return nil
}

// OnCreditsDebited implements plugin.OnCreditsDebited.
func (m *MetricsExtension) OnCreditsDebited(_ context.Context, _, _ string, amount types.Credits) error {
	m.CreditsDebited.Inc()
	m.CreditsDebitedTotal.Add(float64(amount))
	return nil
}

// OnCreditsGranted implements plugin.OnCreditsGranted.
func (m *MetricsExtension) OnCreditsGranted(_ context.Context, _ string, amount types.Credits, _ string) error {
	m.CreditsGranted.Inc()
	m.CreditsGrantedTotal.Add(float64(amount))
	return nil
}

// OnInsufficientCredits implements plugin.OnInsufficientCredits.
func (m *MetricsExtension) OnInsufficientCredits(_ context.Context, _, _ string, _, _ types.Credits) error {
	m.InsufficientCredits.Inc()
	return nil
}

// OnCycleReset implements plugin.OnCycleReset.
func (m *MetricsExtension) OnCycleReset(_ context.Context, _ string, _ types.Credits) error {
	m.CycleResets.Inc()
	return nil
}

// OnLedgerDiverged implements plugin.OnLedgerDiverged.
func (m *MetricsExtension) OnLedgerDiverged(_ context.Context, _ string, _ error) error {
	m.LedgerDivergences.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Analysis lifecycle hooks
// ──────────────────────────────────────────────────

// OnAnalysisRequested implements plugin.OnAnalysisRequested.
func (m *MetricsExtension) OnAnalysisRequested(_ context.Context, _ string, tools []string, _ types.Credits) error {
	m.AnalysesRequested.Inc()
	m.AnalysisToolCount.Observe(float64(len(tools)))
	return nil
}

// OnToolStarted implements plugin.OnToolStarted.
func (m *MetricsExtension) OnToolStarted(_ context.Context, _, _ string) error {
	m.ToolsStarted.Inc()
	return nil
}

// OnToolCompleted implements plugin.OnToolCompleted.
func (m *MetricsExtension) OnToolCompleted(_ context.Context, _, _ string, score int, elapsed time.Duration) error {
	m.ToolsCompleted.Inc()
	m.ToolLatency.Observe(float64(elapsed.Milliseconds()))
	m.ToolScore.Observe(float64(score))
	return nil
}

// OnToolFailed implements plugin.OnToolFailed.
func (m *MetricsExtension) OnToolFailed(_ context.Context, _, _, _ string) error {
	m.ToolsFailed.Inc()
	return nil
}

// OnProjectCompleted implements plugin.OnProjectCompleted.
func (m *MetricsExtension) OnProjectCompleted(_ context.Context, _ string, overallScore int) error {
	m.ProjectsCompleted.Inc()
	m.OverallScore.Observe(float64(overallScore))
	return nil
}

// OnProjectFailed implements plugin.OnProjectFailed.
func (m *MetricsExtension) OnProjectFailed(_ context.Context, _ string) error {
	m.ProjectsFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Promo and statement hooks
// ──────────────────────────────────────────────────

// OnPromoRedeemed implements plugin.OnPromoRedeemed.
func (m *MetricsExtension) OnPromoRedeemed(_ context.Context, _, _ string, _ types.Credits) error {
	m.PromosRedeemed.Inc()
	return nil
}

// OnStatementGenerated implements plugin.OnStatementGenerated.
func (m *MetricsExtension) OnStatementGenerated(_ context.Context, _ interface{}) error {
	m.StatementsGenerated.Inc()
	return nil
}
