// Package project models an analysis project: the ad content under review,
// the set of tools enabled for it, and the per-tool results of the most
// recent analysis round.
package project

import (
	"math"
	"time"

	"github.com/xraph/adscore/id"
	"github.com/xraph/adscore/types"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state of an analysis round.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Content is the ad copy handed to analysis tools. The engine never
// interprets it; only tools do.
type Content struct {
	Headline     string `json:"headline"`
	Body         string `json:"body"`
	CallToAction string `json:"call_to_action,omitempty"`
	Platform     string `json:"platform,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Audience     string `json:"audience,omitempty"`
}

// Empty reports whether there is anything for a tool to analyze.
func (c Content) Empty() bool {
	return c.Headline == "" && c.Body == ""
}

type Project struct {
	types.Entity
	ID             id.ProjectID           `json:"id"`
	AccountID      string                 `json:"account_id"`
	AppID          string                 `json:"app_id"`
	Name           string                 `json:"name"`
	Content        Content                `json:"content"`
	EnabledTools   []string               `json:"enabled_tools"`
	Status         Status                 `json:"status"`
	ToolResults    map[string]*ToolResult `json:"tool_results,omitempty"`
	OverallScore   *int                   `json:"overall_score,omitempty"`
	LastAnalyzedAt *time.Time             `json:"last_analyzed_at,omitempty"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Metadata       map[string]string      `json:"metadata,omitempty"`
}

type ResultStatus string

const (
	ResultPending   ResultStatus = "pending"
	ResultRunning   ResultStatus = "running"
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

// Terminal reports whether the tool run has finished, one way or the other.
func (s ResultStatus) Terminal() bool {
	return s == ResultCompleted || s == ResultFailed
}

type ToolResult struct {
	ID            id.ToolRunID   `json:"id"`
	ToolName      string         `json:"tool_name"`
	Status        ResultStatus   `json:"status"`
	OverallScore  *int           `json:"overall_score,omitempty"`
	ResultData    map[string]any `json:"result_data,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
}

// CanRequestAnalysis reports whether a new analysis round may begin.
// Only an in-flight round blocks a request.
func (p *Project) CanRequestAnalysis() bool {
	return p.Status != StatusAnalyzing
}

// CompletedCount counts tool results that finished successfully.
func (p *Project) CompletedCount() int {
	n := 0
	for _, r := range p.ToolResults {
		if r.Status == ResultCompleted {
			n++
		}
	}
	return n
}

// TerminalCount counts tool results in a terminal state. The round is done
// when this equals len(EnabledTools).
func (p *Project) TerminalCount() int {
	n := 0
	for _, r := range p.ToolResults {
		if r.Status.Terminal() {
			n++
		}
	}
	return n
}

// AggregateScore computes the overall score as the rounded mean of the
// scores of completed results only. Failed, pending and running results
// carry no weight. Nil when nothing completed.
func AggregateScore(results map[string]*ToolResult) *int {
	var sum, n int
	for _, r := range results {
		if r.Status != ResultCompleted || r.OverallScore == nil {
			continue
		}
		sum += *r.OverallScore
		n++
	}
	if n == 0 {
		return nil
	}
	score := int(math.Round(float64(sum) / float64(n)))
	return &score
}
