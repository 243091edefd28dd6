package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/client"
	"opskit/internal/plugin"
	"opskit/pkg/logging"

	// Built-in extension and plugin modules register themselves with the
	// discovery tables at link time.
	_ "opskit/internal/extensions/cloudresources"
	_ "opskit/internal/plugins/example"
	_ "opskit/internal/plugins/resourcemanager"
)

// toolkit is the shared client facade used by every command. Execute creates
// it before cobra parses the command line so plugin discovery can mount its
// command groups; the root PersistentPreRunE finalizes its configuration once
// flags are known.
var toolkit *client.Client

// rootConfigPath holds the --config flag value.
var rootConfigPath string

// rootDebug enables debug logging across all commands.
var rootDebug bool

// rootCmd represents the base command for the opskit application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "opskit",
	Short: "Unified toolkit for day-to-day operations work",
	Long: `opskit bundles the services operations work touches every day (GitHub,
Jira, Confluence, Docker, Kubernetes, OpenSearch, Postgres, SSH, Google Docs
and Sheets) behind one CLI with shared configuration and a plugin system for
team-specific command groups.

Configuration is read from --config, then $OPSKIT_CONFIG, then
~/.config/opskit/config.yaml; every field can also be set through its
environment variable (GITHUB_TOKEN, JIRA_URL, ...).`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: configureToolkit,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
// This can be used by other commands to access the build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It builds the shared facade, runs module discovery so plugin command groups
// exist before argument parsing, and maps errors to semantic exit codes.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "opskit version %s\n" .Version}}`)

	logging.InitForCLI(startupLogLevel())
	initToolkit()

	if err := rootCmd.Execute(); err != nil {
		if hint := cli.ClassifyConnectionError(err).Hint(); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(cli.ExitCode(err))
	}
}

// initToolkit creates the facade from the environment and runs extension and
// plugin discovery. Discovery has to finish before cobra parses the command
// line, otherwise plugin command groups would not resolve as subcommands.
func initToolkit() {
	toolkit = client.New(client.ConfigFromEnv())
	registry := plugin.Initialize(rootCmd)
	toolkit.LoadExtensions()
	toolkit.LoadPlugins(registry)
}

// startupLogLevel picks the log level for the discovery phase, which runs
// before cobra has parsed the --debug flag.
func startupLogLevel() logging.LogLevel {
	for _, arg := range os.Args[1:] {
		if arg == "--debug" {
			return logging.LevelDebug
		}
	}
	return logging.LevelWarn
}

// configureToolkit is the root PersistentPreRunE. It loads the config file
// selected by flags and environment into the facade and exports the result to
// the process environment, so capability construction and subprocesses see
// the final configuration before any command runs.
func configureToolkit(cmd *cobra.Command, args []string) error {
	if rootDebug {
		logging.InitForCLI(logging.LevelDebug)
	}
	if toolkit == nil {
		toolkit = client.New(client.ConfigFromEnv())
	}

	path, required, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if path != "" {
		err := toolkit.LoadConfigFile(path)
		switch {
		case err == nil:
		case !required && errors.Is(err, fs.ErrNotExist):
			logging.Debug("config", "no config file at %s, using environment only", path)
		default:
			return err
		}
	}

	return toolkit.ExportConfig()
}

// resolveConfigPath returns the config file to load and whether it must
// exist. An explicitly requested file (--config flag or $OPSKIT_CONFIG) is
// required; the default location is optional.
func resolveConfigPath() (string, bool, error) {
	if rootConfigPath != "" {
		return rootConfigPath, true, nil
	}
	if env := os.Getenv("OPSKIT_CONFIG"); env != "" {
		return env, true, nil
	}
	path, err := client.DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	return path, false, nil
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands and persistent flags to the root command.
func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Config file path (default $OPSKIT_CONFIG, then ~/.config/opskit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
