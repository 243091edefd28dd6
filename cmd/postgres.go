package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"opskit/internal/audit"
	"opskit/internal/cli"
	"opskit/internal/postgres"
)

var postgresFlags cli.CommandFlags

var postgresKillMinAge time.Duration

// postgresCmd groups the Postgres subcommands. They focus on lock triage:
// finding what blocks what and terminating the offenders.
var postgresCmd = &cobra.Command{
	Use:   "postgres",
	Short: "Triage Postgres locks and runaway queries",
	Long: `Inspect blocked and blocking queries, walk lock chains and terminate
backends.

Requires postgres_host, postgres_user and postgres_database; postgres_port,
postgres_password and postgres_sslmode are optional.

Examples:
  opskit postgres blocked
  opskit postgres locks --output json
  opskit postgres kill 4711
  opskit postgres kill-blocking --min-age 5m`,
}

// postgresClient builds the audit-decorated Postgres capability.
func postgresClient() (*postgres.Client, *audit.Postgres, error) {
	pc, err := toolkit.Postgres()
	if err != nil {
		return nil, nil, err
	}
	return pc, audit.NewPostgres(pc, auditRecorder()), nil
}

func killResultRows(results []postgres.KillResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{strconv.Itoa(r.PID), strconv.FormatBool(r.Terminated), r.Error})
	}
	return rows
}

func newPostgresBlockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocked",
		Short: "List queries waiting on a lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, _, err := postgresClient()
			if err != nil {
				return err
			}
			f, err := postgresFlags.Formatter()
			if err != nil {
				return err
			}
			var blocked []postgres.BlockedQuery
			err = cli.WithSpinner(!postgresFlags.ShowProgress(), "querying pg_stat_activity", func() error {
				var err error
				blocked, err = pc.BlockedQueries(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(blocked))
			for _, b := range blocked {
				rows = append(rows, []string{
					strconv.Itoa(b.BlockedPID), b.BlockedQuery,
					strconv.Itoa(b.BlockingPID), b.BlockingQuery,
				})
			}
			return f.Table(cmd.OutOrStdout(), []string{"BLOCKED PID", "BLOCKED QUERY", "BLOCKING PID", "BLOCKING QUERY"}, rows, blocked)
		},
	}
}

func newPostgresBlockingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocking",
		Short: "List queries holding locks others wait on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, _, err := postgresClient()
			if err != nil {
				return err
			}
			f, err := postgresFlags.Formatter()
			if err != nil {
				return err
			}
			var blocking []postgres.BlockingQuery
			err = cli.WithSpinner(!postgresFlags.ShowProgress(), "querying pg_stat_activity", func() error {
				var err error
				blocking, err = pc.BlockingQueries(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(blocking))
			for _, b := range blocking {
				rows = append(rows, []string{strconv.Itoa(b.PID), b.State, strconv.Itoa(b.BlockedCount), b.Query})
			}
			return f.Table(cmd.OutOrStdout(), []string{"PID", "STATE", "BLOCKS", "QUERY"}, rows, blocking)
		},
	}
}

func newPostgresLocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locks",
		Short: "Show lock chains",
		Long: `Show granted and waiting locks together with the chain of PIDs each
waiter is stuck behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, _, err := postgresClient()
			if err != nil {
				return err
			}
			f, err := postgresFlags.Formatter()
			if err != nil {
				return err
			}
			var locks []postgres.Lock
			err = cli.WithSpinner(!postgresFlags.ShowProgress(), "querying pg_locks", func() error {
				var err error
				locks, err = pc.Locks(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(locks))
			for _, l := range locks {
				rows = append(rows, []string{
					strconv.Itoa(l.PID), l.LockType, l.Table, l.Mode,
					strconv.FormatBool(l.Granted), strconv.Itoa(l.ChainLength),
				})
			}
			return f.Table(cmd.OutOrStdout(), []string{"PID", "TYPE", "TABLE", "MODE", "GRANTED", "CHAIN"}, rows, locks)
		},
	}
}

func newPostgresActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List currently running queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, _, err := postgresClient()
			if err != nil {
				return err
			}
			f, err := postgresFlags.Formatter()
			if err != nil {
				return err
			}
			var active []postgres.ActiveQuery
			err = cli.WithSpinner(!postgresFlags.ShowProgress(), "querying pg_stat_activity", func() error {
				var err error
				active, err = pc.ActiveQueries(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(active))
			for _, a := range active {
				rows = append(rows, []string{strconv.Itoa(a.PID), a.User, a.State, a.Duration, a.Query})
			}
			return f.Table(cmd.OutOrStdout(), []string{"PID", "USER", "STATE", "DURATION", "QUERY"}, rows, active)
		},
	}
}

func newPostgresKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill PID [PID...]",
		Short: "Terminate backends by PID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids := make([]int, 0, len(args))
			for _, arg := range args {
				pid, err := strconv.Atoi(arg)
				if err != nil {
					return err
				}
				pids = append(pids, pid)
			}
			_, audited, err := postgresClient()
			if err != nil {
				return err
			}
			f, err := postgresFlags.Formatter()
			if err != nil {
				return err
			}
			results := audited.KillProcesses(cmd.Context(), pids)
			return f.Table(cmd.OutOrStdout(), []string{"PID", "TERMINATED", "ERROR"}, killResultRows(results), results)
		},
	}
}

func newPostgresKillBlockingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill-blocking",
		Short: "Terminate every backend that blocks others",
		Long: `Terminate every backend that currently blocks other queries. With
--min-age only backends whose query has been running at least that long are
terminated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, audited, err := postgresClient()
			if err != nil {
				return err
			}
			f, err := postgresFlags.Formatter()
			if err != nil {
				return err
			}
			results, err := audited.KillBlockingQueries(cmd.Context(), postgresKillMinAge)
			if err != nil {
				return err
			}
			return f.Table(cmd.OutOrStdout(), []string{"PID", "TERMINATED", "ERROR"}, killResultRows(results), results)
		},
	}
	cmd.Flags().DurationVar(&postgresKillMinAge, "min-age", 0, "Only kill backends running at least this long")
	return cmd
}

func init() {
	rootCmd.AddCommand(postgresCmd)
	cli.RegisterOutputFlags(postgresCmd, &postgresFlags)

	postgresCmd.AddCommand(newPostgresBlockedCmd())
	postgresCmd.AddCommand(newPostgresBlockingCmd())
	postgresCmd.AddCommand(newPostgresLocksCmd())
	postgresCmd.AddCommand(newPostgresActiveCmd())
	postgresCmd.AddCommand(newPostgresKillCmd())
	postgresCmd.AddCommand(newPostgresKillBlockingCmd())
}
