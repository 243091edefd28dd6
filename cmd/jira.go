package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"opskit/internal/audit"
	"opskit/internal/cli"
	"opskit/internal/jira"
)

var jiraFlags cli.CommandFlags

var (
	jiraCreateProject string
	jiraCreateSummary string
	jiraCreateDesc    string
	jiraCreateType    string
	jiraUpdateFields  []string
	jiraSearchMax     int
)

// jiraCmd groups the Jira subcommands.
var jiraCmd = &cobra.Command{
	Use:   "jira",
	Short: "Work with Jira issues",
	Long: `Create, inspect, search and transition Jira issues.

Requires jira_url, jira_username and jira_token in the config file or the
matching environment variables.

Examples:
  opskit jira my-issues
  opskit jira issue OPS-123
  opskit jira create-issue --project OPS --summary "Rotate certificates"
  opskit jira search 'project = OPS AND status = "In Progress"'
  opskit jira transition OPS-123 31`,
}

// jiraClient builds the audit-decorated Jira capability. Mutating commands go
// through the decorator so the action lands in the audit index.
func jiraClient() (*jira.Client, *audit.Jira, error) {
	jc, err := toolkit.Jira()
	if err != nil {
		return nil, nil, err
	}
	return jc, audit.NewJira(jc, auditRecorder()), nil
}

func issueRows(issues []jira.Issue) [][]string {
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{is.Key, is.Summary, is.Status, is.Assignee})
	}
	return rows
}

func newJiraIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue KEY",
		Short: "Show a single issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, _, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			issue, err := jc.Issue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), issue)
		},
	}
}

func newJiraCreateIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-issue",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jiraCreateProject == "" || jiraCreateSummary == "" {
				return fmt.Errorf("--project and --summary are required")
			}
			_, audited, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			issue, err := audited.CreateIssue(cmd.Context(), jiraCreateProject, jiraCreateSummary, jiraCreateDesc, jiraCreateType)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), issue)
		},
	}
	cmd.Flags().StringVar(&jiraCreateProject, "project", "", "Project key (required)")
	cmd.Flags().StringVar(&jiraCreateSummary, "summary", "", "Issue summary (required)")
	cmd.Flags().StringVar(&jiraCreateDesc, "description", "", "Issue description")
	cmd.Flags().StringVar(&jiraCreateType, "type", "Task", "Issue type")
	return cmd
}

func newJiraUpdateIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-issue KEY",
		Short: "Update fields of an issue",
		Long: `Update fields of an issue. Fields are given as repeated --set flags,
for example --set summary="New summary" --set priority=High.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parseKeyValues(jiraUpdateFields)
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				return fmt.Errorf("at least one --set field is required")
			}
			fields := make(map[string]interface{}, len(pairs))
			for k, v := range pairs {
				fields[k] = v
			}
			_, audited, err := jiraClient()
			if err != nil {
				return err
			}
			if err := audited.UpdateIssue(cmd.Context(), args[0], fields); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&jiraUpdateFields, "set", nil, "Field to set as key=value (repeatable)")
	return cmd
}

func newJiraDeleteIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-issue KEY",
		Short: "Delete an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, audited, err := jiraClient()
			if err != nil {
				return err
			}
			if err := audited.DeleteIssue(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newJiraSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search JQL",
		Short: "Search issues with JQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, _, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			var issues []jira.Issue
			err = cli.WithSpinner(!jiraFlags.ShowProgress(), "searching issues", func() error {
				var err error
				issues, err = jc.SearchIssues(cmd.Context(), args[0], jiraSearchMax)
				return err
			})
			if err != nil {
				return err
			}
			return f.Table(cmd.OutOrStdout(), []string{"KEY", "SUMMARY", "STATUS", "ASSIGNEE"}, issueRows(issues), issues)
		},
	}
	cmd.Flags().IntVar(&jiraSearchMax, "max", 50, "Maximum number of results")
	return cmd
}

func newJiraMyIssuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "my-issues",
		Short: "List open issues assigned to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, _, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			var issues []jira.Issue
			err = cli.WithSpinner(!jiraFlags.ShowProgress(), "fetching your issues", func() error {
				var err error
				issues, err = jc.MyIssues(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			return f.Table(cmd.OutOrStdout(), []string{"KEY", "SUMMARY", "STATUS", "ASSIGNEE"}, issueRows(issues), issues)
		},
	}
}

func newJiraValidateJQLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jql JQL",
		Short: "Validate a JQL query without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, _, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			result, err := jc.ValidateJQL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), result)
		},
	}
}

func newJiraMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, _, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			user, err := jc.UserInfo(cmd.Context())
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), user)
		},
	}
}

func newJiraTransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions KEY",
		Short: "List the transitions available for an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc, _, err := jiraClient()
			if err != nil {
				return err
			}
			f, err := jiraFlags.Formatter()
			if err != nil {
				return err
			}
			transitions, err := jc.Transitions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(transitions))
			for _, tr := range transitions {
				rows = append(rows, []string{tr.ID, tr.Name, tr.To})
			}
			return f.Table(cmd.OutOrStdout(), []string{"ID", "NAME", "TO"}, rows, transitions)
		},
	}
}

func newJiraTransitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition KEY TRANSITION_ID",
		Short: "Move an issue through a workflow transition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, audited, err := jiraClient()
			if err != nil {
				return err
			}
			if err := audited.TransitionIssue(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transitioned %s\n", args[0])
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(jiraCmd)
	cli.RegisterOutputFlags(jiraCmd, &jiraFlags)

	jiraCmd.AddCommand(newJiraIssueCmd())
	jiraCmd.AddCommand(newJiraCreateIssueCmd())
	jiraCmd.AddCommand(newJiraUpdateIssueCmd())
	jiraCmd.AddCommand(newJiraDeleteIssueCmd())
	jiraCmd.AddCommand(newJiraSearchCmd())
	jiraCmd.AddCommand(newJiraMyIssuesCmd())
	jiraCmd.AddCommand(newJiraValidateJQLCmd())
	jiraCmd.AddCommand(newJiraMeCmd())
	jiraCmd.AddCommand(newJiraTransitionsCmd())
	jiraCmd.AddCommand(newJiraTransitionCmd())
}
