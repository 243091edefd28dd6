package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"opskit/pkg/logging"
)

// Registry owns the name-to-plugin mapping and the binding between plugins
// and the host application's command tree. All operations are safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	app     *cobra.Command
	plugins map[string]Plugin
}

// NewRegistry creates a registry bound to the given host application.
// Registered plugins are mounted as sub-groups of app.
func NewRegistry(app *cobra.Command) *Registry {
	return &Registry{
		app:     app,
		plugins: make(map[string]Plugin),
	}
}

// Register derives the plugin's name, builds a command sub-group carrying
// every command the plugin exposes, mounts the sub-group onto the host
// application, and records the plugin.
//
// Registering a name twice fails with DuplicatePluginError and leaves the
// first registration untouched. The mount-and-record sequence is atomic
// with respect to concurrent registrations.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("cannot register nil plugin")
	}

	name := DeriveName(p)
	if name == "" {
		return fmt.Errorf("cannot derive a name for plugin type %T", p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return &DuplicatePluginError{Name: name}
	}

	group := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Commands for %s plugin", name),
	}
	for _, c := range p.Commands() {
		sub := &cobra.Command{
			Use:   c.Name,
			Short: c.Help,
			RunE:  c.Run,
		}
		if c.Flags != nil {
			c.Flags(sub.Flags())
		}
		group.AddCommand(sub)
	}

	r.app.AddCommand(group)
	r.plugins[name] = p

	logging.Debug("plugin", "registered plugin %s with %d commands", name, len(p.Commands()))
	return nil
}

// Plugin returns a registered plugin by name.
func (r *Registry) Plugin(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.plugins[name]
	return p, exists
}

// Plugins returns the registered plugin names, sorted.
func (r *Registry) Plugins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// The process-wide default registry. It exists only for startup wiring;
// everything past the composition point receives the *Registry explicitly.
var (
	defaultRegistry *Registry
	defaultMu       sync.RWMutex
)

// Initialize binds the default registry to the host application and
// returns it. Calling Initialize again rebinds the default to a fresh
// registry; earlier mounts on the previous application are unaffected.
func Initialize(app *cobra.Command) *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultRegistry = NewRegistry(app)
	return defaultRegistry
}

// Default returns the registry created by Initialize. Before Initialize it
// fails with ErrRegistryNotInitialized.
func Default() (*Registry, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	if defaultRegistry == nil {
		return nil, ErrRegistryNotInitialized
	}
	return defaultRegistry, nil
}
