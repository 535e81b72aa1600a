package project_test

import (
	"testing"

	"github.com/xraph/adscore/project"
)

func completed(score int) *project.ToolResult {
	return &project.ToolResult{Status: project.ResultCompleted, OverallScore: &score}
}

func failed(reason string) *project.ToolResult {
	return &project.ToolResult{Status: project.ResultFailed, FailureReason: reason}
}

func TestAggregateScore(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]*project.ToolResult
		want    *int
	}{
		{
			name: "no results",
			want: nil,
		},
		{
			name: "single completed",
			results: map[string]*project.ToolResult{
				"clarity": completed(80),
			},
			want: ptr(80),
		},
		{
			name: "mean of two",
			results: map[string]*project.ToolResult{
				"clarity": completed(80),
				"tone":    completed(60),
			},
			want: ptr(70),
		},
		{
			name: "failed tools carry no weight",
			results: map[string]*project.ToolResult{
				"clarity": completed(80),
				"tone":    completed(60),
				"hooks":   failed("timeout"),
			},
			want: ptr(70),
		},
		{
			name: "rounds half up",
			results: map[string]*project.ToolResult{
				"a": completed(70),
				"b": completed(75),
			},
			want: ptr(73),
		},
		{
			name: "all failed",
			results: map[string]*project.ToolResult{
				"a": failed("boom"),
				"b": failed("timeout"),
			},
			want: nil,
		},
		{
			name: "pending ignored",
			results: map[string]*project.ToolResult{
				"a": completed(90),
				"b": {Status: project.ResultPending},
			},
			want: ptr(90),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := project.AggregateScore(tt.results)
			switch {
			case got == nil && tt.want != nil:
				t.Errorf("AggregateScore() = nil, want %d", *tt.want)
			case got != nil && tt.want == nil:
				t.Errorf("AggregateScore() = %d, want nil", *got)
			case got != nil && tt.want != nil && *got != *tt.want:
				t.Errorf("AggregateScore() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestAggregateScoreOrderIndependent(t *testing.T) {
	// Maps iterate in random order; run enough times to shake out any
	// order sensitivity in the mean.
	results := map[string]*project.ToolResult{
		"a": completed(33),
		"b": completed(67),
		"c": completed(50),
	}
	first := project.AggregateScore(results)
	for i := 0; i < 50; i++ {
		got := project.AggregateScore(results)
		if got == nil || first == nil || *got != *first {
			t.Fatalf("iteration %d: score %v, want %v", i, got, first)
		}
	}
}

func TestCanRequestAnalysis(t *testing.T) {
	tests := []struct {
		status project.Status
		want   bool
	}{
		{project.StatusDraft, true},
		{project.StatusAnalyzing, false},
		{project.StatusCompleted, true},
		{project.StatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := &project.Project{Status: tt.status}
			if got := p.CanRequestAnalysis(); got != tt.want {
				t.Errorf("CanRequestAnalysis() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminalCounts(t *testing.T) {
	p := &project.Project{
		EnabledTools: []string{"a", "b", "c"},
		ToolResults: map[string]*project.ToolResult{
			"a": completed(80),
			"b": failed("boom"),
			"c": {Status: project.ResultRunning},
		},
	}
	if got := p.TerminalCount(); got != 2 {
		t.Errorf("TerminalCount() = %d, want 2", got)
	}
	if got := p.CompletedCount(); got != 1 {
		t.Errorf("CompletedCount() = %d, want 1", got)
	}
}

func TestContentEmpty(t *testing.T) {
	if !(project.Content{}).Empty() {
		t.Error("zero content not reported empty")
	}
	if (project.Content{Headline: "Buy now"}).Empty() {
		t.Error("content with headline reported empty")
	}
	if (project.Content{Body: "text"}).Empty() {
		t.Error("content with body reported empty")
	}
}

func ptr(n int) *int { return &n }
