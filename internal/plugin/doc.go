// Package plugin defines the plugin system contract: the Plugin interface,
// the command descriptor plugins register, the name derivation rule, the
// process-wide Registry that mounts plugin command groups onto the host
// cobra application, and the module table through which plugin packages
// make themselves discoverable.
//
// # Architecture
//
// Plugins never touch cobra directly. A concrete plugin embeds Base,
// receives the client facade once at construction, and declares its
// commands in Setup via RegisterCommand. Mounting those commands onto the
// live application is the Registry's job, so plugins stay independent of
// the command-line framework.
//
// The Registry must be initialized with the host application before any
// plugin can be registered:
//
//	registry := plugin.Initialize(rootCmd)
//	if err := registry.Register(myPlugin); err != nil { ... }
//
// Fetching the default registry before Initialize fails with
// ErrRegistryNotInitialized. This always indicates a startup-ordering bug.
//
// # Discovery
//
// Go links plugins at build time. A plugin package registers a setup hook
// in its init function:
//
//	func init() {
//		plugin.RegisterModule("resource-manager", NewPlugin)
//	}
//
// and the command layer blank-imports the package. The client facade's
// LoadPlugins walks the module table, applies any manifest overrides from
// the configuration directory, and registers each resulting plugin,
// isolating per-module failures so one broken plugin cannot take down the
// rest.
package plugin
