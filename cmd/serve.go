package cmd

import (
	"context"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"opskit/internal/client"
	"opskit/internal/serve"
	"opskit/pkg/logging"
)

// serveCmd starts the MCP server on stdio. The server shares the facade
// with the rest of the command layer, so the configuration and plugin
// discovery that already ran apply to the served tools as well.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve capability operations as MCP tools on stdio",
	Long: `Expose the toolkit's operations (GitHub, Jira, Kubernetes, log search)
as MCP tools over a stdio transport, for AI assistants and other MCP clients.

The server uses the same configuration as the CLI commands. Capabilities are
constructed lazily per tool call; an unconfigured capability reports a
configuration error for its tools and leaves the rest working.

Module manifests (extensions.d, plugins.d) are watched while serving: a
change is logged as requiring a restart, since discovery runs only at
startup. When run under systemd, readiness and shutdown are signalled via
sd_notify.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	watcher := newManifestWatcher()
	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			logging.Warn("serve", "manifest watching disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	// Both notify calls are no-ops outside a systemd unit.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("serve", "sd_notify ready failed: %v", err)
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	return serve.NewServer(toolkit, GetVersion()).Start(ctx)
}

// newManifestWatcher builds a watcher for the manifest directories, or
// nil when the configuration directory cannot be resolved.
func newManifestWatcher() *serve.ManifestWatcher {
	dirs, err := client.ManifestDirs()
	if err != nil {
		logging.Warn("serve", "cannot resolve manifest directories: %v", err)
		return nil
	}
	return serve.NewManifestWatcher(dirs...)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
