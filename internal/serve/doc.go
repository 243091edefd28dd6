// Package serve exposes the toolkit's capabilities as MCP tools over a
// stdio transport, so AI assistants and other MCP clients can drive the
// same operations the CLI commands offer.
//
// The server is a thin bridge: every tool handler pulls the capability it
// needs from the shared client facade (constructing it lazily, exactly as
// the command layer does), calls one wrapper operation, and returns the
// result as JSON text. Configuration errors and remote failures surface
// as MCP tool errors rather than protocol failures, so a partially
// configured toolkit still serves the tools that do work.
//
// The package also provides a manifest watcher that observes the
// extensions.d and plugins.d directories while the server runs. Module
// discovery happens once at startup; the watcher cannot hot-reload
// plugins, it only tells the operator that a restart is needed.
package serve
