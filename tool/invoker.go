// Package tool defines the analysis tool contract and the registry the
// engine dispatches through.
package tool

import (
	"context"

	"github.com/xraph/adscore/project"
)

// Invoker is one analysis tool. Invoke must honor ctx cancellation and
// return either a scored output or an error; the engine treats anything
// else (including a panic) as a failed run.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, content project.Content) (*Output, error)
}

// Output is a tool's verdict on a piece of content. OverallScore is on a
// 0 to 100 scale; Data carries tool-specific detail the engine stores but
// never inspects.
type Output struct {
	OverallScore int            `json:"overall_score"`
	Data         map[string]any `json:"data,omitempty"`
}

// InvokerFunc adapts a plain function into an Invoker.
type InvokerFunc struct {
	ToolName string
	Fn       func(ctx context.Context, content project.Content) (*Output, error)
}

func (f InvokerFunc) Name() string { return f.ToolName }

func (f InvokerFunc) Invoke(ctx context.Context, content project.Content) (*Output, error) {
	return f.Fn(ctx, content)
}
