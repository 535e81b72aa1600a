package tool_test

import (
	"context"
	"sort"
	"testing"

	"github.com/xraph/adscore/project"
	"github.com/xraph/adscore/tool"
)

func stub(name string, score int) tool.Invoker {
	return tool.InvokerFunc{
		ToolName: name,
		Fn: func(ctx context.Context, content project.Content) (*tool.Output, error) {
			return &tool.Output{OverallScore: score}, nil
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	r := tool.NewRegistry()

	if err := r.Register(stub("clarity", 80)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(stub("tone", 60)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := r.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	names := r.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "clarity" || names[1] != "tone" {
		t.Errorf("Names() = %v", names)
	}
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := tool.NewRegistry()
	if err := r.Register(stub("clarity", 80)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(stub("clarity", 90)); err == nil {
		t.Error("duplicate registration accepted")
	}
	// The original must survive.
	inv, ok := r.Get("clarity")
	if !ok {
		t.Fatal("clarity missing after duplicate attempt")
	}
	out, err := inv.Invoke(context.Background(), project.Content{Headline: "x"})
	if err != nil || out.OverallScore != 80 {
		t.Errorf("Invoke = %v, %v; want score 80", out, err)
	}
}

func TestRegistryEmptyNameRejected(t *testing.T) {
	r := tool.NewRegistry()
	if err := r.Register(stub("", 10)); err == nil {
		t.Error("empty-name registration accepted")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := tool.NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Error("Get on empty registry reported ok")
	}
}

func TestMustRegisterPanics(t *testing.T) {
	r := tool.NewRegistry()
	r.MustRegister(stub("clarity", 80))
	defer func() {
		if recover() == nil {
			t.Error("MustRegister did not panic on duplicate")
		}
	}()
	r.MustRegister(stub("clarity", 80))
}
