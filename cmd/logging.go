package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/compose"
	"opskit/internal/opensearch"
)

var loggingFlags cli.CommandFlags

var (
	loggingIndex        string
	loggingComposeFiles []string
	loggingComposeDir   string
	loggingDownVolumes  bool
	loggingWriteService string
	loggingWriteLevel   string
	loggingWriteMeta    []string
	loggingSearchOpts   struct {
		service string
		level   string
		text    string
		since   time.Duration
		until   time.Duration
		size    int
		asc     bool
	}
	loggingCleanupOlderThan time.Duration
	loggingTemplatePatterns []string
)

// loggingCmd groups the OpenSearch log store subcommands.
var loggingCmd = &cobra.Command{
	Use:   "logging",
	Short: "Write, search and manage logs in OpenSearch",
	Long: `Write, search and manage structured logs in an OpenSearch index.

The up and down subcommands manage a local OpenSearch stack through docker
compose; the remaining subcommands talk to the configured cluster directly.

Examples:
  opskit logging up --compose-file deploy/opensearch.yaml
  opskit logging write "deploy finished" --service deployer --level info
  opskit logging search --service deployer --since 24h
  opskit logging cleanup --older-than 720h`,
}

// loggingCompose builds the compose client for the local OpenSearch stack.
// Configuration such as OPENSEARCH_INITIAL_ADMIN_PASSWORD is already in the
// environment via ExportConfig, where compose picks it up.
func loggingCompose() *compose.Client {
	return toolkit.Compose(compose.Options{
		Dir:   loggingComposeDir,
		Files: loggingComposeFiles,
	})
}

func newLoggingUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Start the local OpenSearch stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			err := cli.WithSpinner(!loggingFlags.ShowProgress(), "starting opensearch stack", func() error {
				var err error
				out, err = loggingCompose().Up(cmd.Context(), nil, true)
				return err
			})
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "opensearch stack is up")
			return nil
		},
	}
}

func newLoggingDownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the local OpenSearch stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			err := cli.WithSpinner(!loggingFlags.ShowProgress(), "stopping opensearch stack", func() error {
				var err error
				out, err = loggingCompose().Down(cmd.Context(), loggingDownVolumes)
				return err
			})
			if err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "opensearch stack is down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&loggingDownVolumes, "volumes", false, "Also remove data volumes")
	return cmd
}

func newLoggingCreateIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-index [NAME]",
		Short: "Create a log index with the default log mappings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			index := loggingIndex
			if len(args) == 1 {
				index = args[0]
			}
			if err := osc.CreateIndex(cmd.Context(), index, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", index)
			return nil
		},
	}
}

func newLoggingDeleteIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-index NAME",
		Short: "Delete a log index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			if err := osc.DeleteIndex(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted index %s\n", args[0])
			return nil
		},
	}
}

func newLoggingWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write MESSAGE",
		Short: "Write a single log entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			meta, err := parseKeyValues(loggingWriteMeta)
			if err != nil {
				return err
			}
			entry := opensearch.LogEntry{
				Level:   loggingWriteLevel,
				Service: loggingWriteService,
				Message: args[0],
			}
			if len(meta) > 0 {
				entry.Metadata = make(map[string]any, len(meta))
				for k, v := range meta {
					entry.Metadata[k] = v
				}
			}
			if err := osc.WriteLog(cmd.Context(), loggingIndex, entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote log entry to %s\n", loggingIndex)
			return nil
		},
	}
	cmd.Flags().StringVar(&loggingWriteService, "service", "opskit", "Service name the entry belongs to")
	cmd.Flags().StringVar(&loggingWriteLevel, "level", "info", "Log level")
	cmd.Flags().StringArrayVar(&loggingWriteMeta, "meta", nil, "Metadata as key=value (repeatable)")
	return cmd
}

func newLoggingSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search log entries",
		Long: `Search log entries with optional service, level, text and time filters.
Time filters are durations relative to now, so --since 24h means "entries
from the last 24 hours".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			f, err := loggingFlags.Formatter()
			if err != nil {
				return err
			}
			opts := opensearch.SearchOptions{
				Service:   loggingSearchOpts.service,
				Level:     loggingSearchOpts.level,
				Text:      loggingSearchOpts.text,
				Size:      loggingSearchOpts.size,
				Ascending: loggingSearchOpts.asc,
			}
			now := time.Now().UTC()
			if loggingSearchOpts.since > 0 {
				opts.Since = now.Add(-loggingSearchOpts.since)
			}
			if loggingSearchOpts.until > 0 {
				opts.Until = now.Add(-loggingSearchOpts.until)
			}

			var entries []opensearch.LogEntry
			err = cli.WithSpinner(!loggingFlags.ShowProgress(), "searching logs", func() error {
				var err error
				entries, err = osc.SearchLogs(cmd.Context(), loggingIndex, opts)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Timestamp.Format(time.RFC3339),
					e.Level,
					e.Service,
					e.Message,
				})
			}
			return f.Table(cmd.OutOrStdout(), []string{"TIMESTAMP", "LEVEL", "SERVICE", "MESSAGE"}, rows, entries)
		},
	}
	cmd.Flags().StringVar(&loggingSearchOpts.service, "service", "", "Only entries from this service")
	cmd.Flags().StringVar(&loggingSearchOpts.level, "level", "", "Only entries with this level")
	cmd.Flags().StringVar(&loggingSearchOpts.text, "text", "", "Full-text match on the message")
	cmd.Flags().DurationVar(&loggingSearchOpts.since, "since", 0, "Only entries newer than this, relative to now")
	cmd.Flags().DurationVar(&loggingSearchOpts.until, "until", 0, "Only entries older than this, relative to now")
	cmd.Flags().IntVar(&loggingSearchOpts.size, "size", 100, "Maximum number of entries")
	cmd.Flags().BoolVar(&loggingSearchOpts.asc, "asc", false, "Oldest entries first")
	return cmd
}

func newLoggingCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete log entries older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			cutoff := time.Now().UTC().Add(-loggingCleanupOlderThan)
			var deleted int64
			err = cli.WithSpinner(!loggingFlags.ShowProgress(), "deleting old logs", func() error {
				var err error
				deleted, err = osc.DeleteOldLogs(cmd.Context(), loggingIndex, cutoff)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d log entries from %s\n", deleted, loggingIndex)
			return nil
		},
	}
	cmd.Flags().DurationVar(&loggingCleanupOlderThan, "older-than", 0, "Delete entries older than this (e.g. 720h)")
	_ = cmd.MarkFlagRequired("older-than")
	return cmd
}

func newLoggingStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [NAME]",
		Short: "Show index statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			f, err := loggingFlags.Formatter()
			if err != nil {
				return err
			}
			index := loggingIndex
			if len(args) == 1 {
				index = args[0]
			}
			stats, err := osc.Stats(cmd.Context(), index)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), stats)
		},
	}
}

func newLoggingPutTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put-template NAME",
		Short: "Install an index template with the default log mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			osc, err := toolkit.OpenSearch()
			if err != nil {
				return err
			}
			if err := osc.PutIndexTemplate(cmd.Context(), args[0], loggingTemplatePatterns, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed index template %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&loggingTemplatePatterns, "pattern", nil, "Index pattern the template applies to (repeatable)")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func init() {
	rootCmd.AddCommand(loggingCmd)
	cli.RegisterOutputFlags(loggingCmd, &loggingFlags)
	loggingCmd.PersistentFlags().StringVar(&loggingIndex, "index", "opskit-logs", "Log index name")
	loggingCmd.PersistentFlags().StringArrayVar(&loggingComposeFiles, "compose-file", nil, "Compose file for the local stack (repeatable)")
	loggingCmd.PersistentFlags().StringVar(&loggingComposeDir, "compose-dir", "", "Directory the compose stack runs in")

	loggingCmd.AddCommand(newLoggingUpCmd())
	loggingCmd.AddCommand(newLoggingDownCmd())
	loggingCmd.AddCommand(newLoggingCreateIndexCmd())
	loggingCmd.AddCommand(newLoggingDeleteIndexCmd())
	loggingCmd.AddCommand(newLoggingWriteCmd())
	loggingCmd.AddCommand(newLoggingSearchCmd())
	loggingCmd.AddCommand(newLoggingCleanupCmd())
	loggingCmd.AddCommand(newLoggingStatsCmd())
	loggingCmd.AddCommand(newLoggingPutTemplateCmd())
}
