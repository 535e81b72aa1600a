package tool

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the analysis tools available to the engine, keyed by name.
type Registry struct {
	mu       sync.RWMutex
	invokers map[string]Invoker
	logger   *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		invokers: make(map[string]Invoker),
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a tool. Names must be unique and non-empty.
func (r *Registry) Register(inv Invoker) error {
	name := inv.Name()
	if name == "" {
		return fmt.Errorf("tool: invoker has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invokers[name]; exists {
		return fmt.Errorf("tool: duplicate registration: %s", name)
	}
	r.invokers[name] = inv

	r.logger.Debug("tool registered", "tool", name)
	return nil
}

// MustRegister is Register that panics on error, for wiring at startup.
func (r *Registry) MustRegister(inv Invoker) {
	if err := r.Register(inv); err != nil {
		panic(err)
	}
}

// Get returns the named tool, or false when it is not registered.
func (r *Registry) Get(name string) (Invoker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invokers[name]
	return inv, ok
}

// Names lists registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.invokers))
	for name := range r.invokers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.invokers)
}
