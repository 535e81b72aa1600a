package extension

import (
	"time"

	"github.com/xraph/grove"

	adscore "github.com/xraph/adscore"
	"github.com/xraph/adscore/plugin"
	"github.com/xraph/adscore/store"
)

// Option configures the adscore Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes an adscore.Option through to the underlying engine.
func WithEngineOption(opt adscore.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an adscore plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, adscore.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for adscore routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithToolTimeout sets the per-tool execution deadline.
func WithToolTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.ToolTimeout = d }
}

// WithMaxConcurrentTools caps concurrent tool invocations.
func WithMaxConcurrentTools(n int) Option {
	return func(e *Extension) { e.config.MaxConcurrentTools = n }
}

// WithResetSweepInterval sets how often due ledgers are swept for cycle
// resets. Zero disables the sweeper.
func WithResetSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ResetSweepInterval = &d }
}

// WithGroveDB provides the grove.DB the store backend is built from.
// The backend is selected by the grove_driver config key (postgres/sqlite/mongo);
// driver defaults to "postgres" when the key is unset.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.useGrove = true
		if driver != "" {
			e.config.GroveDriver = driver
		}
	}
}
