package project

import (
	"context"
	"time"

	"github.com/xraph/adscore/id"
)

type Store interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, projectID id.ProjectID) (*Project, error)
	List(ctx context.Context, accountID, appID string, opts ListOpts) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, projectID id.ProjectID) error

	// BeginAnalysis transitions the project into analyzing, but only from
	// a non-analyzing status, replacing previous tool results with fresh
	// pending slots for tools. The status check and the write are one
	// atomic step; a project already analyzing must be left untouched.
	BeginAnalysis(ctx context.Context, projectID id.ProjectID, tools []string, startedAt time.Time) (*Project, error)

	// PutToolResult writes one tool's result slot without touching the
	// others. Concurrent calls for different tools must not lose writes.
	PutToolResult(ctx context.Context, projectID id.ProjectID, result *ToolResult) error

	// Finalize moves the project to its terminal status with the
	// aggregated score.
	Finalize(ctx context.Context, projectID id.ProjectID, status Status, overallScore *int, completedAt time.Time) error
}

type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
