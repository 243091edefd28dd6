package client

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opskit/internal/plugin"
)

type alphaPlugin struct{ plugin.Base }

type gammaPlugin struct{ plugin.Base }

// Plugin modules register once per process; each test gets isolation from
// the per-client loaded-module tracking instead.
func init() {
	plugin.RegisterModule("test-alpha", func(f plugin.Facade) (plugin.Plugin, error) {
		p := &alphaPlugin{plugin.Base{Client: f}}
		p.RegisterCommand(plugin.Command{Name: "ping", Help: "ping"})
		return p, nil
	})
	plugin.RegisterModule("test-beta", func(plugin.Facade) (plugin.Plugin, error) {
		return nil, errors.New("beta is broken")
	})
	plugin.RegisterModule("test-gamma", func(f plugin.Facade) (plugin.Plugin, error) {
		return &gammaPlugin{plugin.Base{Client: f}}, nil
	})
}

func stubExtensionModules(t *testing.T, mods map[string]ExtensionSetupFunc) {
	t.Helper()
	extensionModuleMu.Lock()
	orig := extensionModules
	extensionModules = mods
	extensionModuleMu.Unlock()
	t.Cleanup(func() {
		extensionModuleMu.Lock()
		extensionModules = orig
		extensionModuleMu.Unlock()
	})
}

func newDiscoveryClient(t *testing.T) *Client {
	t.Helper()
	c := New(Config{})
	c.configDir = t.TempDir()
	return c
}

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadExtensionsIsolatesFailures(t *testing.T) {
	stubExtensionModules(t, map[string]ExtensionSetupFunc{
		"alpha": func(*Client) (any, error) { return "alpha-object", nil },
		"beta":  func(*Client) (any, error) { return nil, errors.New("beta is broken") },
		"gamma": func(*Client) (any, error) { return "gamma-object", nil },
	})

	c := newDiscoveryClient(t)
	loaded := c.LoadExtensions()

	assert.Equal(t, []string{"alpha", "gamma"}, loaded)

	got, exists := c.Extension("alpha")
	require.True(t, exists)
	assert.Equal(t, "alpha-object", got)

	_, exists = c.Extension("beta")
	assert.False(t, exists)
}

func TestLoadExtensionsDedupAcrossCalls(t *testing.T) {
	constructed := 0
	stubExtensionModules(t, map[string]ExtensionSetupFunc{
		"alpha": func(*Client) (any, error) {
			constructed++
			return "alpha-object", nil
		},
	})

	c := newDiscoveryClient(t)
	assert.Equal(t, []string{"alpha"}, c.LoadExtensions())
	assert.Empty(t, c.LoadExtensions())
	assert.Equal(t, 1, constructed)
}

func TestLoadExtensionsFailedModuleRetries(t *testing.T) {
	healthy := false
	stubExtensionModules(t, map[string]ExtensionSetupFunc{
		"flaky": func(*Client) (any, error) {
			if !healthy {
				return nil, errors.New("not ready")
			}
			return "flaky-object", nil
		},
	})

	c := newDiscoveryClient(t)
	assert.Empty(t, c.LoadExtensions())

	healthy = true
	assert.Equal(t, []string{"flaky"}, c.LoadExtensions())
}

func TestLoadExtensionsManifestDisable(t *testing.T) {
	stubExtensionModules(t, map[string]ExtensionSetupFunc{
		"alpha": func(*Client) (any, error) { return "alpha-object", nil },
		"gamma": func(*Client) (any, error) { return "gamma-object", nil },
	})

	c := newDiscoveryClient(t)
	writeManifest(t, filepath.Join(c.configDir, extensionManifestDir), "alpha.yaml",
		"module: alpha\nenabled: false\n")

	loaded := c.LoadExtensions()

	assert.Equal(t, []string{"gamma"}, loaded)
	_, exists := c.Extension("alpha")
	assert.False(t, exists)
}

func TestLoadExtensionsManifestUnknownModule(t *testing.T) {
	stubExtensionModules(t, map[string]ExtensionSetupFunc{
		"alpha": func(*Client) (any, error) { return "alpha-object", nil },
	})

	c := newDiscoveryClient(t)
	writeManifest(t, filepath.Join(c.configDir, extensionManifestDir), "ghost.yaml",
		"module: ghost\n")

	// Unknown modules only warn; discovery proceeds.
	assert.Equal(t, []string{"alpha"}, c.LoadExtensions())
}

func TestReadManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "alpha.yaml", "module: alpha\n")
	writeManifest(t, dir, "beta.yml", "module: beta\nenabled: false\n")
	writeManifest(t, dir, "broken.yaml", "module: [oops\n")
	writeManifest(t, dir, "unknown-key.yaml", "module: x\ncolor: red\n")
	writeManifest(t, dir, "notes.txt", "not a manifest")

	overrides := readManifests(dir)

	assert.Equal(t, map[string]bool{"alpha": true, "beta": false}, overrides)
}

func TestReadManifestsMissingDir(t *testing.T) {
	overrides := readManifests(filepath.Join(t.TempDir(), "absent"))
	assert.Empty(t, overrides)
}

func TestLoadPluginsNilRegistrySkips(t *testing.T) {
	c := newDiscoveryClient(t)

	assert.Nil(t, c.LoadPlugins(nil))

	// Nothing was marked loaded; a later call with a live registry works.
	registry := plugin.NewRegistry(&cobra.Command{Use: "opskit"})
	loaded := c.LoadPlugins(registry)
	assert.Contains(t, loaded, "test-alpha")
}

func TestLoadPluginsIsolatesFailures(t *testing.T) {
	c := newDiscoveryClient(t)
	app := &cobra.Command{Use: "opskit"}
	registry := plugin.NewRegistry(app)

	loaded := c.LoadPlugins(registry)

	assert.Equal(t, []string{"test-alpha", "test-gamma"}, loaded)
	assert.Equal(t, []string{"alpha", "gamma"}, registry.Plugins())

	// No partial entry for the broken module.
	_, exists := registry.Plugin("beta")
	assert.False(t, exists)

	// The alpha plugin's command group is mounted on the app.
	names := make([]string, 0, len(app.Commands()))
	for _, cmd := range app.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "alpha")
}

func TestLoadPluginsDedupAcrossCalls(t *testing.T) {
	c := newDiscoveryClient(t)
	registry := plugin.NewRegistry(&cobra.Command{Use: "opskit"})

	first := c.LoadPlugins(registry)
	assert.NotEmpty(t, first)
	assert.Empty(t, c.LoadPlugins(registry))
}

func TestLoadPluginsManifestDisable(t *testing.T) {
	c := newDiscoveryClient(t)
	writeManifest(t, filepath.Join(c.configDir, pluginManifestDir), "gamma.yaml",
		"module: test-gamma\nenabled: false\n")

	registry := plugin.NewRegistry(&cobra.Command{Use: "opskit"})
	loaded := c.LoadPlugins(registry)

	assert.Equal(t, []string{"test-alpha"}, loaded)
	_, exists := registry.Plugin("gamma")
	assert.False(t, exists)
}
