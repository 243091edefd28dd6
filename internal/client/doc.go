// Package client provides the unified client facade: the single place
// command code and plugins obtain capability objects from.
//
// # Overview
//
// A Client holds the flat configuration record and constructs capability
// wrappers lazily. Each accessor validates the capability's required
// configuration, constructs the wrapper on first use, caches it, and
// returns the cached instance on every later call:
//
//	c := client.New(client.ConfigFromEnv())
//	gh, err := c.GitHub()
//	if err != nil { ... }
//
// Configuration changes after first access do not affect capabilities that
// are already constructed; each capability object is stable for the
// process lifetime. SSH and Compose are not cached because they target a
// caller-supplied host or project each call.
//
// # Extensions
//
// Plugins and discovered extension modules contribute named auxiliary
// objects through RegisterExtension. Names are unique; registering a
// duplicate fails with DuplicateExtensionError so packaging mistakes
// surface instead of silently shadowing an object.
//
// # Discovery
//
// Built-in extension and plugin modules self-register into module tables
// at link time (see RegisterExtensionModule and plugin.RegisterModule).
// LoadExtensions and LoadPlugins walk those tables, apply the enablement
// manifests under the configuration directory (extensions.d, plugins.d),
// and register each module's product. A module that fails is skipped with
// a warning; one broken module never aborts discovery of the rest.
package client
