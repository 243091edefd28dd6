package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"opskit/internal/audit"
	"opskit/internal/cli"
	"opskit/internal/ssh"
)

var sshFlags cli.CommandFlags

var (
	sshUser      string
	sshPort      int
	sshKeyFile   string
	sshPassword  string
	sshTimeout   time.Duration
	sshMkdirMode uint32
)

// sshCmd groups the SSH subcommands. Connections are per invocation; nothing
// is pooled between commands.
var sshCmd = &cobra.Command{
	Use:   "ssh",
	Short: "Run commands and copy files over SSH",
	Long: `Run commands on remote hosts, copy files back and forth and open an
interactive remote shell.

Authentication uses --key (private key file) and falls back to --password.

Examples:
  opskit ssh exec db1.internal -- uptime
  opskit ssh copy-to db1.internal ./dump.sql /tmp/dump.sql
  opskit ssh shell db1.internal --user admin`,
}

// sshClient opens a connection to host using the group's connection flags.
// The caller owns the connection and must close it.
func sshClient(host string) (*ssh.Client, *audit.SSH, error) {
	sc, err := toolkit.SSH(host, ssh.Options{
		User:     sshUser,
		Port:     sshPort,
		KeyFile:  sshKeyFile,
		Password: sshPassword,
		Timeout:  sshTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return sc, audit.NewSSH(sc, auditRecorder()), nil
}

func newSSHExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec HOST COMMAND...",
		Short: "Run a command on a remote host",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, audited, err := sshClient(args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			result, err := audited.ExecCommand(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if result.Output != "" {
				fmt.Fprintln(cmd.OutOrStdout(), result.Output)
			}
			if result.Error != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), result.Error)
			}
			if !result.Success {
				return fmt.Errorf("command exited with code %d", result.ExitCode)
			}
			return nil
		},
	}
}

func newSSHCopyToCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy-to HOST LOCAL REMOTE",
		Short: "Copy a local file to a remote host",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, _, err := sshClient(args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			err = cli.WithSpinner(!sshFlags.ShowProgress(), "copying "+args[1], func() error {
				return sc.CopyTo(args[1], args[2])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s to %s:%s\n", args[1], args[0], args[2])
			return nil
		},
	}
}

func newSSHCopyFromCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy-from HOST REMOTE LOCAL",
		Short: "Copy a remote file to the local machine",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, _, err := sshClient(args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			err = cli.WithSpinner(!sshFlags.ShowProgress(), "copying "+args[1], func() error {
				return sc.CopyFrom(args[1], args[2])
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %s:%s to %s\n", args[0], args[1], args[2])
			return nil
		},
	}
}

func newSSHCopyDirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy-dir HOST LOCALDIR REMOTEDIR",
		Short: "Copy a local directory tree to a remote host",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, _, err := sshClient(args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			var copied []string
			err = cli.WithSpinner(!sshFlags.ShowProgress(), "copying "+args[1], func() error {
				var err error
				copied, err = sc.CopyDirectory(args[1], args[2])
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied %d file(s) to %s:%s\n", len(copied), args[0], args[2])
			return nil
		},
	}
}

func newSSHListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls HOST PATH",
		Short: "List a remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, _, err := sshClient(args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			f, err := sshFlags.Formatter()
			if err != nil {
				return err
			}
			entries, err := sc.ListDirectory(args[1])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Mode, strconv.FormatInt(e.Size, 10), e.ModTime, e.Name})
			}
			return f.Table(cmd.OutOrStdout(), []string{"MODE", "SIZE", "MODIFIED", "NAME"}, rows, entries)
		},
	}
}

func newSSHMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir HOST PATH",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, _, err := sshClient(args[0])
			if err != nil {
				return err
			}
			defer sc.Close()

			if err := sc.CreateDirectory(args[1], os.FileMode(sshMkdirMode)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s:%s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().Uint32Var(&sshMkdirMode, "mode", 0o755, "Directory mode")
	return cmd
}

func newSSHShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell HOST",
		Short: "Open an interactive remote command loop",
		Long: `Open an interactive command loop against a remote host with history and
line editing. Every line runs in a fresh session, so state like the working
directory does not carry over between commands. Type exit or press Ctrl+D to
leave.`,
		Args: cobra.ExactArgs(1),
		RunE: runSSHShell,
	}
}

func runSSHShell(cmd *cobra.Command, args []string) error {
	host := args[0]
	sc, audited, err := sshClient(host)
	if err != nil {
		return err
	}
	defer sc.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            host + "> ",
		HistoryFile:       filepath.Join(os.TempDir(), ".opskit_ssh_history"),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s. Type exit or press Ctrl+D to leave.\n", host)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		result, err := audited.ExecCommand(input)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		if result.Output != "" {
			fmt.Fprintln(out, result.Output)
		}
		if result.Error != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), result.Error)
		}
		if !result.Success {
			fmt.Fprintf(cmd.ErrOrStderr(), "exit code %d\n", result.ExitCode)
		}
	}
}

func init() {
	rootCmd.AddCommand(sshCmd)
	cli.RegisterOutputFlags(sshCmd, &sshFlags)
	sshCmd.PersistentFlags().StringVar(&sshUser, "user", "", "Remote user (default: current user)")
	sshCmd.PersistentFlags().IntVar(&sshPort, "port", 22, "SSH port")
	sshCmd.PersistentFlags().StringVar(&sshKeyFile, "key", "", "Private key file")
	sshCmd.PersistentFlags().StringVar(&sshPassword, "password", "", "Password (prefer --key)")
	sshCmd.PersistentFlags().DurationVar(&sshTimeout, "timeout", 15*time.Second, "Connection timeout")

	sshCmd.AddCommand(newSSHExecCmd())
	sshCmd.AddCommand(newSSHCopyToCmd())
	sshCmd.AddCommand(newSSHCopyFromCmd())
	sshCmd.AddCommand(newSSHCopyDirCmd())
	sshCmd.AddCommand(newSSHListCmd())
	sshCmd.AddCommand(newSSHMkdirCmd())
	sshCmd.AddCommand(newSSHShellCmd())
}
