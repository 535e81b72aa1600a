package extension

import "time"

// Config holds the adscore extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.adscore" or "adscore" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for adscore routes (default: "/adscore").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// ToolTimeout is the per-tool execution deadline during an analysis run.
	// A tool that exceeds it is recorded as failed without affecting the
	// other tools in the run (default: 60s).
	ToolTimeout time.Duration `json:"tool_timeout" mapstructure:"tool_timeout" yaml:"tool_timeout"`

	// MaxConcurrentTools caps how many tool invocations may run at once
	// across all in-flight analysis runs (default: 16).
	MaxConcurrentTools int `json:"max_concurrent_tools" mapstructure:"max_concurrent_tools" yaml:"max_concurrent_tools"`

	// ResetSweepInterval is how often the background sweeper looks for
	// ledgers whose billing cycle has elapsed (default: 1h). An explicit
	// zero disables the sweeper; leaving the key unset keeps the default.
	ResetSweepInterval *time.Duration `json:"reset_sweep_interval" mapstructure:"reset_sweep_interval" yaml:"reset_sweep_interval"`

	// GroveDriver selects the store backend constructed from a grove.DB
	// provided via WithGroveDB: "postgres", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	sweep := time.Hour
	return Config{
		ToolTimeout:        60 * time.Second,
		MaxConcurrentTools: 16,
		ResetSweepInterval: &sweep,
	}
}
