package plugin

import (
	"sort"
	"sync"
)

// SetupFunc builds a fully set-up plugin from the facade. The function is
// expected to construct the plugin and call its Setup before returning.
type SetupFunc func(client Facade) (Plugin, error)

var (
	moduleMu sync.RWMutex
	modules  = make(map[string]SetupFunc)
)

// RegisterModule makes a plugin module available for discovery under the
// given name. It is intended to be called from the init function of a
// plugin package. Registering a nil setup or the same name twice panics,
// like database/sql driver registration.
func RegisterModule(name string, setup SetupFunc) {
	moduleMu.Lock()
	defer moduleMu.Unlock()

	if setup == nil {
		panic("plugin: RegisterModule setup is nil")
	}
	if _, dup := modules[name]; dup {
		panic("plugin: RegisterModule called twice for module " + name)
	}
	modules[name] = setup
}

// Module returns the setup hook registered under name.
func Module(name string) (SetupFunc, bool) {
	moduleMu.RLock()
	defer moduleMu.RUnlock()

	setup, exists := modules[name]
	return setup, exists
}

// Modules returns the registered module names, sorted.
func Modules() []string {
	moduleMu.RLock()
	defer moduleMu.RUnlock()

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
