package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/compose"
)

var composeFlags cli.CommandFlags

var (
	composeFiles       []string
	composeProjectDir  string
	composeProjectName string
	composeUpDetach    bool
	composeDownVolumes bool
	composeLogsTail    int
)

// composeCmd groups the docker compose subcommands.
var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Manage docker compose projects",
	Long: `Manage docker compose projects: bring stacks up and down, inspect
service status and stream logs.

Examples:
  opskit compose up -f deploy/compose.yaml
  opskit compose status
  opskit compose logs web --tail 100`,
}

// composeProject builds the compose client for the project selected by the
// group flags.
func composeProject() *compose.Client {
	return toolkit.Compose(compose.Options{
		Dir:         composeProjectDir,
		Files:       composeFiles,
		ProjectName: composeProjectName,
	})
}

// composeRun executes op under a spinner and prints its output.
func composeRun(cmd *cobra.Command, message string, op func() (string, error)) error {
	var out string
	err := cli.WithSpinner(!composeFlags.ShowProgress(), message, func() error {
		var err error
		out, err = op()
		return err
	})
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

func newComposeUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up [SERVICE...]",
		Short: "Create and start services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "starting services", func() (string, error) {
				return composeProject().Up(cmd.Context(), args, composeUpDetach)
			})
		},
	}
	cmd.Flags().BoolVarP(&composeUpDetach, "detach", "d", true, "Run containers in the background")
	return cmd
}

func newComposeDownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop and remove services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "stopping services", func() (string, error) {
				return composeProject().Down(cmd.Context(), composeDownVolumes)
			})
		},
	}
	cmd.Flags().BoolVar(&composeDownVolumes, "volumes", false, "Also remove data volumes")
	return cmd
}

func newComposeStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start [SERVICE...]",
		Short: "Start existing services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "starting services", func() (string, error) {
				return composeProject().Start(cmd.Context(), args...)
			})
		},
	}
}

func newComposeStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [SERVICE...]",
		Short: "Stop services without removing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "stopping services", func() (string, error) {
				return composeProject().Stop(cmd.Context(), args...)
			})
		},
	}
}

func newComposeRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart [SERVICE...]",
		Short: "Restart services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "restarting services", func() (string, error) {
				return composeProject().Restart(cmd.Context(), args...)
			})
		},
	}
}

func newComposeLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [SERVICE...]",
		Short: "Show service logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := composeProject().Logs(cmd.Context(), args, composeLogsTail)
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&composeLogsTail, "tail", 0, "Number of lines to show from the end (0 for all)")
	return cmd
}

func newComposePullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [SERVICE...]",
		Short: "Pull service images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "pulling images", func() (string, error) {
				return composeProject().Pull(cmd.Context(), args...)
			})
		},
	}
}

func newComposeBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [SERVICE...]",
		Short: "Build service images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return composeRun(cmd, "building images", func() (string, error) {
				return composeProject().Build(cmd.Context(), args...)
			})
		},
	}
}

func newComposeServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services the project defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := composeFlags.Formatter()
			if err != nil {
				return err
			}
			services, err := composeProject().Services(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(services))
			for _, s := range services {
				rows = append(rows, []string{s})
			}
			return f.Table(cmd.OutOrStdout(), []string{"SERVICE"}, rows, services)
		},
	}
}

func newComposeStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show container status for every service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := composeFlags.Formatter()
			if err != nil {
				return err
			}
			statuses, err := composeProject().Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{s.Service, s.Name, s.State, s.Status, publishedPorts(s.Publishers)})
			}
			return f.Table(cmd.OutOrStdout(), []string{"SERVICE", "NAME", "STATE", "STATUS", "PORTS"}, rows, statuses)
		},
	}
}

func newComposeValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the compose configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := composeProject().Validate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newComposeConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved compose configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := composeProject().Config(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// publishedPorts renders the published ports of a service container.
func publishedPorts(publishers []compose.Publisher) string {
	ports := make([]string, 0, len(publishers))
	for _, p := range publishers {
		if p.PublishedPort == 0 {
			continue
		}
		ports = append(ports, fmt.Sprintf("%d->%d/%s", p.PublishedPort, p.TargetPort, p.Protocol))
	}
	return strings.Join(ports, ", ")
}

func init() {
	rootCmd.AddCommand(composeCmd)
	cli.RegisterOutputFlags(composeCmd, &composeFlags)
	composeCmd.PersistentFlags().StringArrayVarP(&composeFiles, "file", "f", nil, "Compose file (repeatable)")
	composeCmd.PersistentFlags().StringVar(&composeProjectDir, "project-dir", "", "Directory the project runs in")
	composeCmd.PersistentFlags().StringVar(&composeProjectName, "project-name", "", "Override the project name")

	composeCmd.AddCommand(newComposeUpCmd())
	composeCmd.AddCommand(newComposeDownCmd())
	composeCmd.AddCommand(newComposeStartCmd())
	composeCmd.AddCommand(newComposeStopCmd())
	composeCmd.AddCommand(newComposeRestartCmd())
	composeCmd.AddCommand(newComposeLogsCmd())
	composeCmd.AddCommand(newComposePullCmd())
	composeCmd.AddCommand(newComposeBuildCmd())
	composeCmd.AddCommand(newComposeServicesCmd())
	composeCmd.AddCommand(newComposeStatusCmd())
	composeCmd.AddCommand(newComposeValidateCmd())
	composeCmd.AddCommand(newComposeConfigCmd())
}
