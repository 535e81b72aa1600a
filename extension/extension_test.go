package extension

import (
	"testing"
	"time"
)

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestMergeKeepsExplicitZeroSweepInterval(t *testing.T) {
	e := &Extension{}

	// An explicit zero from YAML disables the sweeper and must survive
	// the merge rather than being rewritten to the default.
	cfg := e.mergeConfigurations(
		Config{ResetSweepInterval: durationPtr(0)},
		Config{},
	)
	if cfg.ResetSweepInterval == nil || *cfg.ResetSweepInterval != 0 {
		t.Errorf("ResetSweepInterval = %v, want explicit 0", cfg.ResetSweepInterval)
	}
}

func TestMergeFillsUnsetSweepInterval(t *testing.T) {
	e := &Extension{}

	tests := []struct {
		name          string
		yaml, program Config
		want          time.Duration
	}{
		{"both unset", Config{}, Config{}, time.Hour},
		{"programmatic wins when yaml unset", Config{}, Config{ResetSweepInterval: durationPtr(5 * time.Minute)}, 5 * time.Minute},
		{"programmatic zero survives", Config{}, Config{ResetSweepInterval: durationPtr(0)}, 0},
		{"yaml wins over programmatic", Config{ResetSweepInterval: durationPtr(2 * time.Hour)}, Config{ResetSweepInterval: durationPtr(time.Minute)}, 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := e.mergeConfigurations(tt.yaml, tt.program)
			if cfg.ResetSweepInterval == nil {
				t.Fatal("ResetSweepInterval = nil after merge")
			}
			if *cfg.ResetSweepInterval != tt.want {
				t.Errorf("ResetSweepInterval = %v, want %v", *cfg.ResetSweepInterval, tt.want)
			}
		})
	}
}

func TestMergeWithDefaultsFillsZeroFields(t *testing.T) {
	e := &Extension{}

	cfg := e.mergeWithDefaults(Config{})
	if cfg.ToolTimeout != 60*time.Second {
		t.Errorf("ToolTimeout = %v, want 60s", cfg.ToolTimeout)
	}
	if cfg.MaxConcurrentTools != 16 {
		t.Errorf("MaxConcurrentTools = %d, want 16", cfg.MaxConcurrentTools)
	}
	if cfg.ResetSweepInterval == nil || *cfg.ResetSweepInterval != time.Hour {
		t.Errorf("ResetSweepInterval = %v, want 1h", cfg.ResetSweepInterval)
	}
}
