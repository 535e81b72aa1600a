// Package extension provides the Forge extension adapter for adscore.
//
// It implements the forge.Extension interface to integrate adscore
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.adscore" or "adscore" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	adscore "github.com/xraph/adscore"
	"github.com/xraph/adscore/store"
	"github.com/xraph/adscore/store/memory"
	mongostore "github.com/xraph/adscore/store/mongo"
	"github.com/xraph/adscore/store/postgres"
	"github.com/xraph/adscore/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "adscore"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Credit-metered ad copy analysis engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts adscore as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *adscore.Engine
	store      store.Store
	groveDB    *grove.DB
	useGrove   bool
	engineOpts []adscore.Option
}

// New creates a new adscore Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying adscore Engine instance.
// This is nil until Register is called.
func (e *Extension) Engine() *adscore.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Construct a store from the grove database when one was supplied;
	// otherwise fall back to the in-memory store.
	if e.store == nil {
		if e.useGrove {
			s, err := e.buildGroveStore()
			if err != nil {
				return err
			}
			e.store = s
		} else {
			e.store = memory.New()
		}
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()
	if e.config.DisableMigrate {
		opts = append(opts, adscore.WithDisableMigrate())
	}

	eng := adscore.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*adscore.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("adscore: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("adscore: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildGroveStore constructs the persistent store backend selected by
// the grove_driver config key.
func (e *Extension) buildGroveStore() (store.Store, error) {
	if e.groveDB == nil {
		return nil, errors.New("adscore: grove store requested but no grove.DB provided; use WithGroveDB")
	}
	switch e.config.GroveDriver {
	case "", "postgres", "pg":
		return postgres.New(e.groveDB), nil
	case "sqlite":
		return sqlite.New(e.groveDB), nil
	case "mongo", "mongodb":
		return mongostore.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("adscore: unknown grove driver %q (want postgres, sqlite or mongo)", e.config.GroveDriver)
	}
}

// buildEngineOpts constructs adscore.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []adscore.Option {
	opts := make([]adscore.Option, 0, len(e.engineOpts)+3)

	// Apply config-derived options.
	if e.config.ToolTimeout > 0 {
		opts = append(opts, adscore.WithToolTimeout(e.config.ToolTimeout))
	}
	if e.config.MaxConcurrentTools > 0 {
		opts = append(opts, adscore.WithMaxConcurrentTools(e.config.MaxConcurrentTools))
	}
	if e.config.ResetSweepInterval != nil {
		opts = append(opts, adscore.WithResetSweepInterval(*e.config.ResetSweepInterval))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("adscore: configuration is required but not found in config files; " +
				"ensure 'extensions.adscore' or 'adscore' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("adscore: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("tool_timeout", e.config.ToolTimeout),
		forge.F("max_concurrent_tools", e.config.MaxConcurrentTools),
		forge.F("reset_sweep_interval", *e.config.ResetSweepInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.adscore" first (namespaced pattern).
	if cm.IsSet("extensions.adscore") {
		if err := cm.Bind("extensions.adscore", &cfg); err == nil {
			e.Logger().Debug("adscore: loaded config from file",
				forge.F("key", "extensions.adscore"),
			)
			return cfg, true
		}
		e.Logger().Warn("adscore: failed to bind extensions.adscore config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "adscore" key.
	if cm.IsSet("adscore") {
		if err := cm.Bind("adscore", &cfg); err == nil {
			e.Logger().Debug("adscore: loaded config from file",
				forge.F("key", "adscore"),
			)
			return cfg, true
		}
		e.Logger().Warn("adscore: failed to bind adscore config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = defaults.ToolTimeout
	}
	if cfg.MaxConcurrentTools == 0 {
		cfg.MaxConcurrentTools = defaults.MaxConcurrentTools
	}
	// nil means "unset"; an explicit zero disables the sweeper and is
	// kept as-is.
	if cfg.ResetSweepInterval == nil {
		cfg.ResetSweepInterval = defaults.ResetSweepInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.GroveDriver == "" && programmaticConfig.GroveDriver != "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.ToolTimeout == 0 && programmaticConfig.ToolTimeout != 0 {
		yamlConfig.ToolTimeout = programmaticConfig.ToolTimeout
	}
	if yamlConfig.MaxConcurrentTools == 0 && programmaticConfig.MaxConcurrentTools != 0 {
		yamlConfig.MaxConcurrentTools = programmaticConfig.MaxConcurrentTools
	}
	if yamlConfig.ResetSweepInterval == nil && programmaticConfig.ResetSweepInterval != nil {
		yamlConfig.ResetSweepInterval = programmaticConfig.ResetSweepInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
