package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
)

var depsFlags cli.CommandFlags

var (
	depsCask  bool
	depsForce bool
)

// depsCmd groups the Homebrew dependency subcommands.
var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Manage local tool dependencies through Homebrew",
	Long: `Check, install and upgrade local tool dependencies through Homebrew.

Examples:
  opskit deps check kubectl
  opskit deps install docker --cask
  opskit deps list`,
}

func newDepsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check NAME",
		Short: "Check whether a package is installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, installed := toolkit.Brew().IsInstalled(cmd.Context(), args[0], depsCask)
			if !installed {
				return fmt.Errorf("%s is not installed", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is installed\n", args[0], version)
			return nil
		},
	}
}

func newDepsInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install NAME",
		Short: "Install a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			err := cli.WithSpinner(!depsFlags.ShowProgress(), "installing "+args[0], func() error {
				var err error
				out, err = toolkit.Brew().Install(cmd.Context(), args[0], depsCask, depsForce)
				return err
			})
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&depsForce, "force", false, "Reinstall even when already installed")
	return cmd
}

func newDepsUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall NAME",
		Short: "Uninstall a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := toolkit.Brew().Uninstall(cmd.Context(), args[0], depsCask)
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uninstalled %s\n", args[0])
			return nil
		},
	}
}

func newDepsUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade NAME",
		Short: "Upgrade a package to its latest version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			err := cli.WithSpinner(!depsFlags.ShowProgress(), "upgrading "+args[0], func() error {
				var err error
				out, err = toolkit.Brew().Upgrade(cmd.Context(), args[0])
				return err
			})
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "upgraded %s\n", args[0])
			return nil
		},
	}
}

func newDepsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := depsFlags.Formatter()
			if err != nil {
				return err
			}
			packages, err := toolkit.Brew().ListInstalled(cmd.Context(), depsCask)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(packages))
			for _, p := range packages {
				rows = append(rows, []string{p.Name, p.Version})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAME", "VERSION"}, rows, packages)
		},
	}
}

func newDepsInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info NAME",
		Short: "Show package details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := depsFlags.Formatter()
			if err != nil {
				return err
			}
			info, err := toolkit.Brew().Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), info)
		},
	}
}

func init() {
	rootCmd.AddCommand(depsCmd)
	cli.RegisterOutputFlags(depsCmd, &depsFlags)
	depsCmd.PersistentFlags().BoolVar(&depsCask, "cask", false, "Treat the package as a cask")

	depsCmd.AddCommand(newDepsCheckCmd())
	depsCmd.AddCommand(newDepsInstallCmd())
	depsCmd.AddCommand(newDepsUninstallCmd())
	depsCmd.AddCommand(newDepsUpgradeCmd())
	depsCmd.AddCommand(newDepsListCmd())
	depsCmd.AddCommand(newDepsInfoCmd())
}
