package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/docker"
)

var dockerFlags cli.CommandFlags

var (
	dockerPsAll       bool
	dockerRunName     string
	dockerRunEnv      []string
	dockerRunPorts    []string
	dockerRunVolumes  []string
	dockerRunCmd      []string
	dockerStopTimeout time.Duration
	dockerRmForce     bool
	dockerLogsTail    int
)

// dockerCmd groups the Docker subcommands.
var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Manage local Docker containers",
	Long: `Manage containers on the local Docker daemon.

Examples:
  opskit docker ps --all
  opskit docker run nginx:alpine --name web --port 8080:80
  opskit docker logs web --tail 50
  opskit docker stats web`,
}

func newDockerPsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			f, err := dockerFlags.Formatter()
			if err != nil {
				return err
			}
			containers, err := dc.Containers(cmd.Context(), dockerPsAll)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(containers))
			for _, c := range containers {
				rows = append(rows, []string{c.ID, c.Name, c.Image, c.Status, strings.Join(c.Ports, ", ")})
			}
			return f.Table(cmd.OutOrStdout(), []string{"ID", "NAME", "IMAGE", "STATUS", "PORTS"}, rows, containers)
		},
	}
	cmd.Flags().BoolVarP(&dockerPsAll, "all", "a", false, "Include stopped containers")
	return cmd
}

func newDockerRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run IMAGE",
		Short: "Create and start a container",
		Long: `Create a container from an image and start it. The image is pulled
first when it is not available locally.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseKeyValues(dockerRunEnv)
			if err != nil {
				return err
			}
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			var id string
			err = cli.WithSpinner(!dockerFlags.ShowProgress(), "starting container", func() error {
				var err error
				id, err = dc.CreateContainer(cmd.Context(), args[0], dockerRunName, docker.CreateOptions{
					Env:     env,
					Ports:   dockerRunPorts,
					Volumes: dockerRunVolumes,
					Cmd:     dockerRunCmd,
				})
				if err != nil {
					return err
				}
				return dc.StartContainer(cmd.Context(), id)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&dockerRunName, "name", "", "Container name")
	cmd.Flags().StringArrayVar(&dockerRunEnv, "env", nil, "Environment variable as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&dockerRunPorts, "port", nil, "Port mapping as host:container (repeatable)")
	cmd.Flags().StringArrayVar(&dockerRunVolumes, "volume", nil, "Bind mount as host:container (repeatable)")
	cmd.Flags().StringArrayVar(&dockerRunCmd, "cmd", nil, "Command to run in the container")
	return cmd
}

func newDockerStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start CONTAINER",
		Short: "Start a stopped container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			if err := dc.StartContainer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s\n", args[0])
			return nil
		},
	}
}

func newDockerStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop CONTAINER",
		Short: "Stop a running container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			if err := dc.StopContainer(cmd.Context(), args[0], dockerStopTimeout); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopped %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&dockerStopTimeout, "timeout", 10*time.Second, "How long to wait before killing the container")
	return cmd
}

func newDockerRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm CONTAINER",
		Short: "Remove a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			if err := dc.RemoveContainer(cmd.Context(), args[0], dockerRmForce); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dockerRmForce, "force", "f", false, "Remove a running container")
	return cmd
}

func newDockerLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs CONTAINER",
		Short: "Show container logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			logs, err := dc.Logs(cmd.Context(), args[0], dockerLogsTail)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), logs)
			return nil
		},
	}
	cmd.Flags().IntVar(&dockerLogsTail, "tail", 0, "Number of lines from the end (0 for everything)")
	return cmd
}

func newDockerStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats CONTAINER",
		Short: "Show a one-shot resource usage snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, err := toolkit.Docker()
			if err != nil {
				return err
			}
			f, err := dockerFlags.Formatter()
			if err != nil {
				return err
			}
			stats, err := dc.Stats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), stats)
		},
	}
}

func init() {
	rootCmd.AddCommand(dockerCmd)
	cli.RegisterOutputFlags(dockerCmd, &dockerFlags)

	dockerCmd.AddCommand(newDockerPsCmd())
	dockerCmd.AddCommand(newDockerRunCmd())
	dockerCmd.AddCommand(newDockerStartCmd())
	dockerCmd.AddCommand(newDockerStopCmd())
	dockerCmd.AddCommand(newDockerRmCmd())
	dockerCmd.AddCommand(newDockerLogsCmd())
	dockerCmd.AddCommand(newDockerStatsCmd())
}
