package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/adscore/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onTierCreated         []OnTierCreated
	onTierUpdated         []OnTierUpdated
	onTierArchived        []OnTierArchived
	onLedgerProvisioned   []OnLedgerProvisioned
	onCreditsDebited      []OnCreditsDebited
	onCreditsGranted      []OnCreditsGranted
	onInsufficientCredits []OnInsufficientCredits
	onCycleReset          []OnCycleReset
	onLedgerDiverged      []OnLedgerDiverged
	onAnalysisRequested   []OnAnalysisRequested
	onToolStarted         []OnToolStarted
	onToolCompleted       []OnToolCompleted
	onToolFailed          []OnToolFailed
	onProjectCompleted    []OnProjectCompleted
	onProjectFailed       []OnProjectFailed
	onPromoRedeemed       []OnPromoRedeemed
	onStatementGenerated  []OnStatementGenerated
	scoreAggregators      map[string]ScoreAggregator
	promoValidators       []PromoValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:           slog.Default(),
		scoreAggregators: make(map[string]ScoreAggregator),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTierCreated); ok {
		r.onTierCreated = append(r.onTierCreated, v)
	}
	if v, ok := p.(OnTierUpdated); ok {
		r.onTierUpdated = append(r.onTierUpdated, v)
	}
	if v, ok := p.(OnTierArchived); ok {
		r.onTierArchived = append(r.onTierArchived, v)
	}
	if v, ok := p.(OnLedgerProvisioned); ok {
		r.onLedgerProvisioned = append(r.onLedgerProvisioned, v)
	}
	if v, ok := p.(OnCreditsDebited); ok {
		r.onCreditsDebited = append(r.onCreditsDebited, v)
	}
	if v, ok := p.(OnCreditsGranted); ok {
		r.onCreditsGranted = append(r.onCreditsGranted, v)
	}
	if v, ok := p.(OnInsufficientCredits); ok {
		r.onInsufficientCredits = append(r.onInsufficientCredits, v)
	}
	if v, ok := p.(OnCycleReset); ok {
		r.onCycleReset = append(r.onCycleReset, v)
	}
	if v, ok := p.(OnLedgerDiverged); ok {
		r.onLedgerDiverged = append(r.onLedgerDiverged, v)
	}
	if v, ok := p.(OnAnalysisRequested); ok {
		r.onAnalysisRequested = append(r.onAnalysisRequested, v)
	}
	if v, ok := p.(OnToolStarted); ok {
		r.onToolStarted = append(r.onToolStarted, v)
	}
	if v, ok := p.(OnToolCompleted); ok {
		r.onToolCompleted = append(r.onToolCompleted, v)
	}
	if v, ok := p.(OnToolFailed); ok {
		r.onToolFailed = append(r.onToolFailed, v)
	}
	if v, ok := p.(OnProjectCompleted); ok {
		r.onProjectCompleted = append(r.onProjectCompleted, v)
	}
	if v, ok := p.(OnProjectFailed); ok {
		r.onProjectFailed = append(r.onProjectFailed, v)
	}
	if v, ok := p.(OnPromoRedeemed); ok {
		r.onPromoRedeemed = append(r.onPromoRedeemed, v)
	}
	if v, ok := p.(OnStatementGenerated); ok {
		r.onStatementGenerated = append(r.onStatementGenerated, v)
	}
	if v, ok := p.(ScoreAggregator); ok {
		r.scoreAggregators[v.AggregatorName()] = v
	}
	if v, ok := p.(PromoValidator); ok {
		r.promoValidators = append(r.promoValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTierCreated)(nil)).Elem(), "OnTierCreated")
	checkInterface(reflect.TypeOf((*OnLedgerProvisioned)(nil)).Elem(), "OnLedgerProvisioned")
	checkInterface(reflect.TypeOf((*OnCreditsDebited)(nil)).Elem(), "OnCreditsDebited")
	checkInterface(reflect.TypeOf((*OnInsufficientCredits)(nil)).Elem(), "OnInsufficientCredits")
	checkInterface(reflect.TypeOf((*OnAnalysisRequested)(nil)).Elem(), "OnAnalysisRequested")
	checkInterface(reflect.TypeOf((*OnProjectCompleted)(nil)).Elem(), "OnProjectCompleted")
	checkInterface(reflect.TypeOf((*ScoreAggregator)(nil)).Elem(), "ScoreAggregator")
	checkInterface(reflect.TypeOf((*PromoValidator)(nil)).Elem(), "PromoValidator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTierCreated emits a tier created event.
func (r *Registry) EmitTierCreated(ctx context.Context, t interface{}) {
	r.mu.RLock()
	plugins := r.onTierCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTierCreated(ctx, t)
		}); err != nil {
			r.logger.Warn("plugin OnTierCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTierUpdated emits a tier updated event.
func (r *Registry) EmitTierUpdated(ctx context.Context, oldTier, newTier interface{}) {
	r.mu.RLock()
	plugins := r.onTierUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTierUpdated(ctx, oldTier, newTier)
		}); err != nil {
			r.logger.Warn("plugin OnTierUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitTierArchived emits a tier archived event.
func (r *Registry) EmitTierArchived(ctx context.Context, tierID string) {
	r.mu.RLock()
	plugins := r.onTierArchived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTierArchived(ctx, tierID)
		}); err != nil {
			r.logger.Warn("plugin OnTierArchived failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitLedgerProvisioned emits a ledger provisioned event.
func (r *Registry) EmitLedgerProvisioned(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onLedgerProvisioned
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerProvisioned(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerProvisioned failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCreditsDebited emits a credits debited event.
func (r *Registry) EmitCreditsDebited(ctx context.Context, accountID, operation string, amount types.Credits) {
	r.mu.RLock()
	plugins := r.onCreditsDebited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCreditsDebited(ctx, accountID, operation, amount)
		}); err != nil {
			r.logger.Warn("plugin OnCreditsDebited failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCreditsGranted emits a credits granted event.
func (r *Registry) EmitCreditsGranted(ctx context.Context, accountID string, amount types.Credits, reason string) {
	r.mu.RLock()
	plugins := r.onCreditsGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCreditsGranted(ctx, accountID, amount, reason)
		}); err != nil {
			r.logger.Warn("plugin OnCreditsGranted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitInsufficientCredits emits an insufficient credits event.
func (r *Registry) EmitInsufficientCredits(ctx context.Context, accountID, operation string, required, available types.Credits) {
	r.mu.RLock()
	plugins := r.onInsufficientCredits
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInsufficientCredits(ctx, accountID, operation, required, available)
		}); err != nil {
			r.logger.Warn("plugin OnInsufficientCredits failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCycleReset emits a cycle reset event.
func (r *Registry) EmitCycleReset(ctx context.Context, accountID string, newBalance types.Credits) {
	r.mu.RLock()
	plugins := r.onCycleReset
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCycleReset(ctx, accountID, newBalance)
		}); err != nil {
			r.logger.Warn("plugin OnCycleReset failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitLedgerDiverged emits a ledger diverged event.
func (r *Registry) EmitLedgerDiverged(ctx context.Context, accountID string, divergence error) {
	r.mu.RLock()
	plugins := r.onLedgerDiverged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerDiverged(ctx, accountID, divergence)
		}); err != nil {
			r.logger.Warn("plugin OnLedgerDiverged failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitAnalysisRequested emits an analysis requested event.
func (r *Registry) EmitAnalysisRequested(ctx context.Context, projectID string, tools []string, debited types.Credits) {
	r.mu.RLock()
	plugins := r.onAnalysisRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAnalysisRequested(ctx, projectID, tools, debited)
		}); err != nil {
			r.logger.Warn("plugin OnAnalysisRequested failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitToolStarted emits a tool started event.
func (r *Registry) EmitToolStarted(ctx context.Context, projectID, toolName string) {
	r.mu.RLock()
	plugins := r.onToolStarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnToolStarted(ctx, projectID, toolName)
		}); err != nil {
			r.logger.Warn("plugin OnToolStarted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitToolCompleted emits a tool completed event.
func (r *Registry) EmitToolCompleted(ctx context.Context, projectID, toolName string, score int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onToolCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnToolCompleted(ctx, projectID, toolName, score, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnToolCompleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitToolFailed emits a tool failed event.
func (r *Registry) EmitToolFailed(ctx context.Context, projectID, toolName, reason string) {
	r.mu.RLock()
	plugins := r.onToolFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnToolFailed(ctx, projectID, toolName, reason)
		}); err != nil {
			r.logger.Warn("plugin OnToolFailed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitProjectCompleted emits a project completed event.
func (r *Registry) EmitProjectCompleted(ctx context.Context, projectID string, overallScore int) {
	r.mu.RLock()
	plugins := r.onProjectCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProjectCompleted(ctx, projectID, overallScore)
		}); err != nil {
			r.logger.Warn("plugin OnProjectCompleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitProjectFailed emits a project failed event.
func (r *Registry) EmitProjectFailed(ctx context.Context, projectID string) {
	r.mu.RLock()
	plugins := r.onProjectFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProjectFailed(ctx, projectID)
		}); err != nil {
			r.logger.Warn("plugin OnProjectFailed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPromoRedeemed emits a promo redeemed event.
func (r *Registry) EmitPromoRedeemed(ctx context.Context, accountID, code string, credits types.Credits) {
	r.mu.RLock()
	plugins := r.onPromoRedeemed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPromoRedeemed(ctx, accountID, code, credits)
		}); err != nil {
			r.logger.Warn("plugin OnPromoRedeemed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitStatementGenerated emits a statement generated event.
func (r *Registry) EmitStatementGenerated(ctx context.Context, stmt interface{}) {
	r.mu.RLock()
	plugins := r.onStatementGenerated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStatementGenerated(ctx, stmt)
		}); err != nil {
			r.logger.Warn("plugin OnStatementGenerated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// GetScoreAggregator returns a score aggregator by name.
func (r *Registry) GetScoreAggregator(name string) ScoreAggregator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scoreAggregators[name]
}

// GetPromoValidators returns all registered promo validators.
func (r *Registry) GetPromoValidators() []PromoValidator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PromoValidator, len(r.promoValidators))
	copy(result, r.promoValidators)
	return result
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the analysis pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
