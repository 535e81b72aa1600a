package adscore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/adscore/credit"
	"github.com/xraph/adscore/entitlement"
	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/tool"
	"github.com/xraph/adscore/types"
)

// Receipt acknowledges an accepted analysis request. The run itself
// proceeds in the background; poll GetProjectStatus or use Analyze to
// block until it finishes.
type Receipt struct {
	ProjectID id.ProjectID  `json:"project_id"`
	Tools     []string      `json:"tools"`
	Debited   types.Credits `json:"debited"`
}

// RequestAnalysis validates and accepts an analysis run for the project,
// debiting credits up front and launching the tools in the background.
// The debit covers one tool_run per enabled tool and is taken before any
// tool starts; tool failures afterwards are not refunded.
//
// If enabledTools is empty the project's own enabled set is used. A
// project already analyzing is rejected; a project in a terminal status
// starts a fresh round, replacing its previous results.
func (e *Engine) RequestAnalysis(ctx context.Context, projectID id.ProjectID, enabledTools []string) (*Receipt, error) {
	if e.stopped() {
		return nil, ErrEngineStopped
	}

	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	tools := enabledTools
	if len(tools) == 0 {
		tools = p.EnabledTools
	}
	if len(tools) == 0 {
		return nil, ErrNoToolsSelected
	}
	if p.Content.Empty() {
		return nil, ErrEmptyContent
	}
	for _, name := range tools {
		if _, ok := e.tools.Get(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotRegistered, name)
		}
	}
	if !p.CanRequestAnalysis() {
		return nil, ErrAnalysisInProgress
	}

	l, err := e.store.GetLedgerByAccount(ctx, p.AccountID, p.AppID)
	if err != nil {
		return nil, err
	}
	t, err := e.store.GetTierByKey(ctx, l.TierKey, p.AppID)
	if err != nil {
		return nil, err
	}
	ent := entitlement.Resolve(t)

	var debited, perTool types.Credits
	if ent.Unlimited {
		audit := &credit.Transaction{
			ID:          id.NewTransactionID(),
			LedgerID:    l.ID,
			AccountID:   l.AccountID,
			AppID:       l.AppID,
			Operation:   OperationToolRun,
			Kind:        credit.KindAudit,
			Description: fmt.Sprintf("analysis of %s with %d tools", p.ID, len(tools)),
			Timestamp:   time.Now().UTC(),
		}
		if err := e.store.AppendTransaction(ctx, audit); err != nil {
			return nil, err
		}
	} else {
		cost, ok := ent.CostOf(OperationToolRun)
		if !ok {
			return nil, fmt.Errorf("%w: %s on tier %s", ErrUnknownOperation, OperationToolRun, ent.TierKey)
		}
		perTool = cost
		total := cost.MulQty(int64(len(tools)))

		txn, err := e.store.Debit(ctx, l.ID, OperationToolRun,
			total, fmt.Sprintf("analysis of %s with %d tools", p.ID, len(tools)))
		if err != nil {
			if IsInsufficientCredits(err) {
				e.plugins.EmitInsufficientCredits(ctx, p.AccountID, OperationToolRun, total, l.Available())
			}
			return nil, err
		}
		debited = txn.BalanceDelta.Add(txn.BonusDelta).Negate()
		e.plugins.EmitCreditsDebited(ctx, p.AccountID, OperationToolRun, debited)
	}

	started := time.Now().UTC()
	p, err = e.store.BeginAnalysis(ctx, projectID, tools, started)
	if err != nil {
		// A racing request won the transition. Return the charge so the
		// loser is not billed for a run that never happened.
		if debited > 0 {
			if _, rerr := e.store.Refund(ctx, l.ID, OperationToolRun, debited, "analysis rejected"); rerr != nil {
				e.logger.Error("refund after rejected analysis failed",
					"project_id", projectID,
					"error", rerr,
				)
			}
		}
		return nil, err
	}

	e.plugins.EmitAnalysisRequested(ctx, p.ID.String(), tools, debited)
	e.logger.Info("analysis requested",
		"project_id", p.ID,
		"account_id", p.AccountID,
		"tools", len(tools),
		"debited", debited,
	)

	done := make(chan struct{})
	e.mu.Lock()
	e.pending[p.ID.String()] = done
	e.mu.Unlock()

	e.runs.Add(1)
	go e.runAnalysis(context.WithoutCancel(ctx), p, l.ID, perTool, done)

	return &Receipt{
		ProjectID: p.ID,
		Tools:     tools,
		Debited:   debited,
	}, nil
}

// Analyze is the blocking variant of RequestAnalysis: it waits for the
// run to reach a terminal status and returns the finished project.
func (e *Engine) Analyze(ctx context.Context, projectID id.ProjectID, enabledTools []string) (*project.Project, error) {
	if _, err := e.RequestAnalysis(ctx, projectID, enabledTools); err != nil {
		return nil, err
	}
	return e.waitForProject(ctx, projectID)
}

func (e *Engine) waitForProject(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	e.mu.Lock()
	done, inFlight := e.pending[projectID.String()]
	e.mu.Unlock()

	if inFlight {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.store.GetProject(ctx, projectID)
}

// runAnalysis fans the enabled tools out, one goroutine each, bounded by
// the engine-wide semaphore. Each tool gets an independent timeout and
// writes only its own result slot; one tool's failure never cancels the
// others. The round finalizes when every slot is terminal.
func (e *Engine) runAnalysis(ctx context.Context, p *project.Project, ledgerID id.LedgerID, perTool types.Credits, done chan struct{}) {
	defer e.runs.Done()
	defer func() {
		e.mu.Lock()
		delete(e.pending, p.ID.String())
		e.mu.Unlock()
		close(done)
	}()

	var wg sync.WaitGroup
	for _, name := range p.EnabledTools {
		inv, ok := e.tools.Get(name)
		if !ok {
			// The tool vanished between validation and launch. It never
			// ran, so its share of the debit goes back.
			e.recordFailure(ctx, p.ID, name, "tool no longer registered", nil, nil)
			if perTool > 0 {
				if _, err := e.store.Refund(ctx, ledgerID, OperationToolRun, perTool, "tool "+name+" never started"); err != nil {
					e.logger.Error("refund for unstarted tool failed",
						"project_id", p.ID,
						"tool", name,
						"error", err,
					)
				}
			}
			continue
		}

		wg.Add(1)
		go func(name string, inv tool.Invoker) {
			defer wg.Done()
			e.invokeTool(ctx, p, name, inv)
		}(name, inv)
	}
	wg.Wait()

	e.finalizeRun(ctx, p.ID)
}

func (e *Engine) invokeTool(ctx context.Context, p *project.Project, name string, inv tool.Invoker) {
	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	started := time.Now().UTC()
	running := &project.ToolResult{
		ID:        id.NewToolRunID(),
		ToolName:  name,
		Status:    project.ResultRunning,
		StartedAt: &started,
	}
	if err := e.store.PutToolResult(ctx, p.ID, running); err != nil {
		e.logger.Error("failed to mark tool running",
			"project_id", p.ID,
			"tool", name,
			"error", err,
		)
	}
	e.plugins.EmitToolStarted(ctx, p.ID.String(), name)

	tctx, cancel := context.WithTimeout(ctx, e.toolTimeout)
	defer cancel()

	out, err := safeInvoke(tctx, inv, p.Content)
	finished := time.Now().UTC()

	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("timed out after %s", e.toolTimeout)
		}
		e.recordFailure(ctx, p.ID, name, reason, &started, &finished)
		return
	}

	score := clampScore(out.OverallScore)
	result := &project.ToolResult{
		ID:           running.ID,
		ToolName:     name,
		Status:       project.ResultCompleted,
		OverallScore: &score,
		ResultData:   out.Data,
		StartedAt:    &started,
		FinishedAt:   &finished,
	}
	if err := e.store.PutToolResult(ctx, p.ID, result); err != nil {
		e.logger.Error("failed to record tool result",
			"project_id", p.ID,
			"tool", name,
			"error", err,
		)
		return
	}

	e.plugins.EmitToolCompleted(ctx, p.ID.String(), name, score, finished.Sub(started))
	e.logger.Debug("tool completed",
		"project_id", p.ID,
		"tool", name,
		"score", score,
		"elapsed_ms", finished.Sub(started).Milliseconds(),
	)
}

func (e *Engine) recordFailure(ctx context.Context, projectID id.ProjectID, name, reason string, started, finished *time.Time) {
	result := &project.ToolResult{
		ID:            id.NewToolRunID(),
		ToolName:      name,
		Status:        project.ResultFailed,
		FailureReason: reason,
		StartedAt:     started,
		FinishedAt:    finished,
	}
	if err := e.store.PutToolResult(ctx, projectID, result); err != nil {
		e.logger.Error("failed to record tool failure",
			"project_id", projectID,
			"tool", name,
			"error", err,
		)
	}

	e.plugins.EmitToolFailed(ctx, projectID.String(), name, reason)
	e.logger.Warn("tool failed",
		"project_id", projectID,
		"tool", name,
		"reason", reason,
	)
}

// finalizeRun settles the round: completed when at least one tool
// produced a score, failed when none did. No credits move here.
func (e *Engine) finalizeRun(ctx context.Context, projectID id.ProjectID) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		e.logger.Error("failed to load project for finalize",
			"project_id", projectID,
			"error", err,
		)
		return
	}

	score := e.aggregate(p.ToolResults)
	status := project.StatusFailed
	if p.CompletedCount() > 0 {
		status = project.StatusCompleted
	}

	if err := e.store.FinalizeProject(ctx, projectID, status, score, time.Now().UTC()); err != nil {
		e.logger.Error("failed to finalize project",
			"project_id", projectID,
			"error", err,
		)
		return
	}

	if status == project.StatusCompleted {
		overall := 0
		if score != nil {
			overall = *score
		}
		e.plugins.EmitProjectCompleted(ctx, projectID.String(), overall)
	} else {
		e.plugins.EmitProjectFailed(ctx, projectID.String())
	}

	e.logger.Info("analysis finished",
		"project_id", projectID,
		"status", status,
		"completed_tools", p.CompletedCount(),
		"enabled_tools", len(p.EnabledTools),
	)
}

func (e *Engine) aggregate(results map[string]*project.ToolResult) *int {
	if e.scoreAggregator != "" {
		if agg := e.plugins.GetScoreAggregator(e.scoreAggregator); agg != nil {
			return agg.Aggregate(results)
		}
	}
	return project.AggregateScore(results)
}

// safeInvoke shields the coordinator from misbehaving tools: a panic
// comes back as an error instead of taking the engine down.
func safeInvoke(ctx context.Context, inv tool.Invoker, content project.Content) (out *tool.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	out, err = inv.Invoke(ctx, content)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("tool returned no output")
	}
	return out, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
