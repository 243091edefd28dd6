package client

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"opskit/internal/plugin"
	"opskit/pkg/logging"
)

const (
	extensionManifestDir = "extensions.d"
	pluginManifestDir    = "plugins.d"
)

// ExtensionSetupFunc builds an extension object from the facade. The
// module's registered name becomes the extension's registry key.
type ExtensionSetupFunc func(c *Client) (any, error)

var (
	extensionModuleMu sync.RWMutex
	extensionModules  = make(map[string]ExtensionSetupFunc)
)

// RegisterExtensionModule makes an extension module available for
// discovery under the given name. It is intended to be called from the
// init function of an extension package. Registering a nil setup or the
// same name twice panics, like database/sql driver registration.
func RegisterExtensionModule(name string, setup ExtensionSetupFunc) {
	extensionModuleMu.Lock()
	defer extensionModuleMu.Unlock()

	if setup == nil {
		panic("client: RegisterExtensionModule setup is nil")
	}
	if _, dup := extensionModules[name]; dup {
		panic("client: RegisterExtensionModule called twice for module " + name)
	}
	extensionModules[name] = setup
}

// ExtensionModules returns the registered extension module names, sorted.
func ExtensionModules() []string {
	extensionModuleMu.RLock()
	defer extensionModuleMu.RUnlock()

	names := make([]string, 0, len(extensionModules))
	for name := range extensionModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func extensionModule(name string) (ExtensionSetupFunc, bool) {
	extensionModuleMu.RLock()
	defer extensionModuleMu.RUnlock()

	setup, exists := extensionModules[name]
	return setup, exists
}

// ManifestDirs returns the extension and plugin manifest directories
// under the default configuration directory.
func ManifestDirs() ([]string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, extensionManifestDir),
		filepath.Join(dir, pluginManifestDir),
	}, nil
}

// manifest is one entry of an extensions.d or plugins.d directory. A
// manifest can disable a built-in module (enabled: false) or assert that
// a module is expected to exist.
type manifest struct {
	Module  string `yaml:"module"`
	Enabled *bool  `yaml:"enabled"`
}

func (m manifest) enabled() bool { return m.Enabled == nil || *m.Enabled }

// readManifests loads every *.yaml/*.yml manifest under dir. Unreadable
// or malformed manifests are skipped with a warning. A missing directory
// is not an error; it simply means no overrides.
func readManifests(dir string) map[string]bool {
	overrides := make(map[string]bool)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("discovery", "cannot read manifest directory %s: %v", dir, err)
		}
		return overrides
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Warn("discovery", "skipping manifest %s: %v", path, err)
			continue
		}

		var m manifest
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			logging.Warn("discovery", "skipping manifest %s: %v", path, err)
			continue
		}
		if m.Module == "" {
			logging.Warn("discovery", "skipping manifest %s: no module name", path)
			continue
		}

		overrides[m.Module] = m.enabled()
	}
	return overrides
}

// manifestDir resolves a manifest directory under the configuration
// directory.
func (c *Client) manifestDir(name string) string {
	dir := c.configDir
	if dir == "" {
		resolved, err := DefaultConfigDir()
		if err != nil {
			logging.Warn("discovery", "cannot resolve config directory: %v", err)
			return ""
		}
		dir = resolved
	}
	return filepath.Join(dir, name)
}

// LoadExtensions walks the extension module table, applies manifest
// overrides, and registers each module's object under the module name.
// A failing module is skipped with a warning and never aborts the rest.
// Modules already loaded by an earlier call are skipped. Returns the
// names loaded by this call.
func (c *Client) LoadExtensions() []string {
	c.discoveryMu.Lock()
	defer c.discoveryMu.Unlock()

	overrides := c.applyOverrides(c.manifestDir(extensionManifestDir), ExtensionModules(), "extension")

	var loaded []string
	for _, name := range ExtensionModules() {
		if _, done := c.loadedExtensions[name]; done {
			continue
		}
		if enabled, overridden := overrides[name]; overridden && !enabled {
			logging.Info("discovery", "extension module %s disabled by manifest", name)
			continue
		}

		setup, _ := extensionModule(name)
		ext, err := setup(c)
		if err != nil {
			logging.Warn("discovery", "skipping extension module %s: %v", name, err)
			continue
		}
		if err := c.RegisterExtension(name, ext); err != nil {
			logging.Warn("discovery", "skipping extension module %s: %v", name, err)
			continue
		}

		c.loadedExtensions[name] = struct{}{}
		loaded = append(loaded, name)
	}

	if len(loaded) > 0 {
		logging.Info("discovery", "loaded %d extension(s): %v", len(loaded), loaded)
	}
	return loaded
}

// LoadPlugins walks the plugin module table, applies manifest overrides,
// and registers each resulting plugin with the given registry, which
// mounts its command group. A nil registry skips plugin loading entirely;
// discovery can be re-run later once the registry exists. Per-module
// failures are warnings. Returns the names loaded by this call.
func (c *Client) LoadPlugins(registry *plugin.Registry) []string {
	if registry == nil {
		logging.Info("discovery", "plugin registry not initialized, skipping plugin discovery")
		return nil
	}

	c.discoveryMu.Lock()
	defer c.discoveryMu.Unlock()

	overrides := c.applyOverrides(c.manifestDir(pluginManifestDir), plugin.Modules(), "plugin")

	var loaded []string
	for _, name := range plugin.Modules() {
		if _, done := c.loadedPlugins[name]; done {
			continue
		}
		if enabled, overridden := overrides[name]; overridden && !enabled {
			logging.Info("discovery", "plugin module %s disabled by manifest", name)
			continue
		}

		setup, _ := plugin.Module(name)
		p, err := setup(c)
		if err != nil {
			logging.Warn("discovery", "skipping plugin module %s: %v", name, err)
			continue
		}
		if err := registry.Register(p); err != nil {
			logging.Warn("discovery", "skipping plugin module %s: %v", name, err)
			continue
		}

		c.loadedPlugins[name] = struct{}{}
		loaded = append(loaded, name)
	}

	if len(loaded) > 0 {
		logging.Info("discovery", "loaded %d plugin(s): %v", len(loaded), loaded)
	}
	return loaded
}

// applyOverrides reads the manifests under dir and warns about any that
// reference modules absent from the table.
func (c *Client) applyOverrides(dir string, known []string, kind string) map[string]bool {
	if dir == "" {
		return nil
	}
	overrides := readManifests(dir)

	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}
	for name := range overrides {
		if _, exists := knownSet[name]; !exists {
			logging.Warn("discovery", "manifest references unknown %s module %s", kind, name)
		}
	}
	return overrides
}
