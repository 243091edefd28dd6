package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/client"
	"opskit/internal/plugin"
)

var clientFlags cli.CommandFlags

var clientConfigShowSecrets bool

// clientCmd groups the introspection subcommands.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Inspect configuration, plugins and extensions",
	Long: `Inspect the resolved configuration and the plugins and extensions the
running binary carries.

Examples:
  opskit client config
  opskit client plugins
  opskit client modules -o json`,
}

func newClientConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long: `Show the resolved configuration after merging the config file and the
environment. Secret values are masked unless --show-secrets is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := clientFlags.Formatter()
			if err != nil {
				return err
			}
			values := toolkit.Config().Values()
			if !clientConfigShowSecrets {
				maskSecrets(values)
			}
			return f.Data(cmd.OutOrStdout(), values)
		},
	}
	cmd.Flags().BoolVar(&clientConfigShowSecrets, "show-secrets", false, "Print secret values instead of masking them")
	return cmd
}

func newClientPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the registered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := plugin.Default()
			if err != nil {
				return err
			}
			f, err := clientFlags.Formatter()
			if err != nil {
				return err
			}
			names := registry.Plugins()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				p, ok := registry.Plugin(name)
				if !ok {
					continue
				}
				commands := make([]string, 0, len(p.Commands()))
				for _, c := range p.Commands() {
					commands = append(commands, c.Name)
				}
				rows = append(rows, []string{name, strings.Join(commands, ", ")})
			}
			return f.Table(cmd.OutOrStdout(), []string{"PLUGIN", "COMMANDS"}, rows, names)
		},
	}
}

func newClientExtensionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List the registered extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := clientFlags.Formatter()
			if err != nil {
				return err
			}
			names := toolkit.Extensions()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				ext, ok := toolkit.Extension(name)
				if !ok {
					continue
				}
				rows = append(rows, []string{name, fmt.Sprintf("%T", ext)})
			}
			return f.Table(cmd.OutOrStdout(), []string{"EXTENSION", "TYPE"}, rows, names)
		},
	}
}

func newClientModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the compiled-in extension and plugin modules",
		Long: `List the extension and plugin modules compiled into the binary,
whether or not discovery loaded them. A module can be disabled through a
manifest under the configuration directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := clientFlags.Formatter()
			if err != nil {
				return err
			}
			type module struct {
				Name string `json:"name"`
				Kind string `json:"kind"`
			}
			var modules []module
			for _, name := range client.ExtensionModules() {
				modules = append(modules, module{Name: name, Kind: "extension"})
			}
			for _, name := range plugin.Modules() {
				modules = append(modules, module{Name: name, Kind: "plugin"})
			}
			rows := make([][]string, 0, len(modules))
			for _, m := range modules {
				rows = append(rows, []string{m.Name, m.Kind})
			}
			return f.Table(cmd.OutOrStdout(), []string{"MODULE", "KIND"}, rows, modules)
		},
	}
}

func newClientCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List capabilities and whether they are configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := clientFlags.Formatter()
			if err != nil {
				return err
			}
			cfg := toolkit.Config()
			type capability struct {
				Name       string `json:"name"`
				Configured bool   `json:"configured"`
			}
			capabilities := []capability{
				{"github", cfg.GitHubToken != ""},
				{"jira", cfg.JiraURL != "" && cfg.JiraUsername != "" && cfg.JiraToken != ""},
				{"confluence", cfg.ConfluenceURL != "" && cfg.ConfluenceUsername != "" && cfg.ConfluenceToken != ""},
				{"docker", true},
				{"kube", true},
				{"opensearch", cfg.OpenSearchInitialAdminPassword != ""},
				{"postgres", cfg.PostgresHost != "" && cfg.PostgresUser != "" && cfg.PostgresDatabase != ""},
				{"google", cfg.GoogleCredentialsFile != ""},
			}
			rows := make([][]string, 0, len(capabilities))
			for _, c := range capabilities {
				rows = append(rows, []string{c.Name, strconv.FormatBool(c.Configured)})
			}
			return f.Table(cmd.OutOrStdout(), []string{"CAPABILITY", "CONFIGURED"}, rows, capabilities)
		},
	}
}

// maskSecrets replaces set token and password values in place.
func maskSecrets(values map[string]string) {
	for k, v := range values {
		if v == "" {
			continue
		}
		if strings.Contains(k, "token") || strings.Contains(k, "password") {
			values[k] = "********"
		}
	}
}

func init() {
	rootCmd.AddCommand(clientCmd)
	cli.RegisterOutputFlags(clientCmd, &clientFlags)

	clientCmd.AddCommand(newClientConfigCmd())
	clientCmd.AddCommand(newClientPluginsCmd())
	clientCmd.AddCommand(newClientExtensionsCmd())
	clientCmd.AddCommand(newClientModulesCmd())
	clientCmd.AddCommand(newClientCapabilitiesCmd())
}
