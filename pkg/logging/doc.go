// Package logging provides the structured logging system for opskit.
//
// It is a thin layer over Go's standard slog package. Every entry carries a
// subsystem identifier so that output from the facade, discovery, capability
// wrappers, and commands can be filtered independently.
//
// # Usage
//
//	import "opskit/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo)
//
//	logging.Info("client", "configuration loaded from %s", path)
//	logging.Warn("discovery", "skipping plugin module %s: %v", name, err)
//	logging.Error("jira", err, "failed to create issue")
//
// Logs are written to stderr so that stdout remains reserved for command
// output (tables, JSON). Level filtering happens in the slog handler; debug
// entries cost nothing when the level is info or higher.
//
// Common subsystems: "bootstrap", "config", "client", "discovery", "plugin",
// "audit", "serve", plus one per capability wrapper ("github", "jira", ...).
package logging
