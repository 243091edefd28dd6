package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/github"
)

var githubFlags cli.CommandFlags

var (
	githubReposUser     string
	githubReposOrg      string
	githubCreateOrg     string
	githubCreateDesc    string
	githubCreatePrivate bool
	githubIssueState    string
	githubIssueTitle    string
	githubIssueBody     string
	githubIssueLabels   []string
	githubPRState       string
	githubPRTitle       string
	githubPRBody        string
	githubPRHead        string
	githubPRBase        string
	githubFileBranch    string
	githubFileMessage   string
	githubFileSource    string
	githubPackageType   string
)

// githubCmd groups the GitHub subcommands.
var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Work with GitHub repositories, issues and pull requests",
	Long: `Work with GitHub repositories, issues, pull requests, branches, tags,
releases and packages.

Requires github_token in the config file or GITHUB_TOKEN in the environment.

Examples:
  opskit github repos --org my-org
  opskit github issues my-org/api --state closed
  opskit github create-issue my-org/api --title "Fix login" --label bug
  opskit github pull-requests my-org/api --output json`,
}

// splitRepo parses an "owner/name" argument.
func splitRepo(arg string) (string, string, error) {
	owner, name, ok := strings.Cut(arg, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", arg)
	}
	return owner, name, nil
}

func repoVisibility(private bool) string {
	if private {
		return "private"
	}
	return "public"
}

func newGithubReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List repositories for a user, an organization or yourself",
		Args:  cobra.NoArgs,
		RunE:  runGithubRepos,
	}
	cmd.Flags().StringVar(&githubReposUser, "user", "", "List repositories of this user (default: authenticated user)")
	cmd.Flags().StringVar(&githubReposOrg, "org", "", "List repositories of this organization")
	return cmd
}

func runGithubRepos(cmd *cobra.Command, args []string) error {
	gh, err := toolkit.GitHub()
	if err != nil {
		return err
	}
	f, err := githubFlags.Formatter()
	if err != nil {
		return err
	}

	var repos []github.Repo
	err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching repositories", func() error {
		var err error
		if githubReposOrg != "" {
			repos, err = gh.OrgRepos(cmd.Context(), githubReposOrg)
		} else {
			repos, err = gh.UserRepos(cmd.Context(), githubReposUser)
		}
		return err
	})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(repos))
	for _, r := range repos {
		rows = append(rows, []string{r.Name, repoVisibility(r.Private), strconv.Itoa(r.Stars), r.URL})
	}
	return f.Table(cmd.OutOrStdout(), []string{"NAME", "VISIBILITY", "STARS", "URL"}, rows, repos)
}

func newGithubCreateRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-repo NAME",
		Short: "Create a repository for yourself or an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			repo, err := gh.CreateRepo(cmd.Context(), githubCreateOrg, args[0], githubCreateDesc, githubCreatePrivate)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), repo)
		},
	}
	cmd.Flags().StringVar(&githubCreateOrg, "org", "", "Create the repository in this organization")
	cmd.Flags().StringVar(&githubCreateDesc, "description", "", "Repository description")
	cmd.Flags().BoolVar(&githubCreatePrivate, "private", false, "Create a private repository")
	return cmd
}

func newGithubDeleteRepoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-repo OWNER/NAME",
		Short: "Delete a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			if err := gh.DeleteRepo(cmd.Context(), owner, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", owner, name)
			return nil
		},
	}
}

func newGithubBranchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branches OWNER/NAME",
		Short: "List branches of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			var branches []github.Branch
			err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching branches", func() error {
				var err error
				branches, err = gh.Branches(cmd.Context(), owner, name)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(branches))
			for _, b := range branches {
				rows = append(rows, []string{b.Name, b.SHA, strconv.FormatBool(b.Protected)})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAME", "SHA", "PROTECTED"}, rows, branches)
		},
	}
}

func newGithubIssuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues OWNER/NAME",
		Short: "List issues of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			var issues []github.Issue
			err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching issues", func() error {
				var err error
				issues, err = gh.Issues(cmd.Context(), owner, name, githubIssueState)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(issues))
			for _, is := range issues {
				rows = append(rows, []string{strconv.Itoa(is.Number), is.Title, is.State, strings.Join(is.Labels, ",")})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NUMBER", "TITLE", "STATE", "LABELS"}, rows, issues)
		},
	}
	cmd.Flags().StringVar(&githubIssueState, "state", "open", "Issue state filter (open, closed, all)")
	return cmd
}

func newGithubCreateIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-issue OWNER/NAME",
		Short: "Create an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if githubIssueTitle == "" {
				return fmt.Errorf("--title is required")
			}
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			issue, err := gh.CreateIssue(cmd.Context(), owner, name, githubIssueTitle, githubIssueBody, githubIssueLabels)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), issue)
		},
	}
	cmd.Flags().StringVar(&githubIssueTitle, "title", "", "Issue title (required)")
	cmd.Flags().StringVar(&githubIssueBody, "body", "", "Issue body")
	cmd.Flags().StringArrayVar(&githubIssueLabels, "label", nil, "Label to apply (repeatable)")
	return cmd
}

func newGithubPullRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pull-requests OWNER/NAME",
		Aliases: []string{"prs"},
		Short:   "List pull requests of a repository",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			var prs []github.PullRequest
			err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching pull requests", func() error {
				var err error
				prs, err = gh.PullRequests(cmd.Context(), owner, name, githubPRState)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(prs))
			for _, pr := range prs {
				rows = append(rows, []string{strconv.Itoa(pr.Number), pr.Title, pr.State, pr.Head + " -> " + pr.Base})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NUMBER", "TITLE", "STATE", "BRANCHES"}, rows, prs)
		},
	}
	cmd.Flags().StringVar(&githubPRState, "state", "open", "Pull request state filter (open, closed, all)")
	return cmd
}

func newGithubCreatePRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-pr OWNER/NAME",
		Short: "Open a pull request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if githubPRTitle == "" || githubPRHead == "" || githubPRBase == "" {
				return fmt.Errorf("--title, --head and --base are required")
			}
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			pr, err := gh.CreatePullRequest(cmd.Context(), owner, name, githubPRTitle, githubPRBody, githubPRHead, githubPRBase)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), pr)
		},
	}
	cmd.Flags().StringVar(&githubPRTitle, "title", "", "Pull request title (required)")
	cmd.Flags().StringVar(&githubPRBody, "body", "", "Pull request body")
	cmd.Flags().StringVar(&githubPRHead, "head", "", "Branch with the changes (required)")
	cmd.Flags().StringVar(&githubPRBase, "base", "", "Branch to merge into (required)")
	return cmd
}

func newGithubUpdateFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-file OWNER/NAME PATH",
		Short: "Create or update a file in a repository",
		Long: `Create or update a file in a repository with a single commit.
The new content is read from the local file given by --from.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if githubFileMessage == "" || githubFileSource == "" {
				return fmt.Errorf("--message and --from are required")
			}
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			content, err := os.ReadFile(githubFileSource)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", githubFileSource, err)
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			result, err := gh.UpdateFile(cmd.Context(), owner, name, args[1], githubFileBranch, githubFileMessage, content)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&githubFileBranch, "branch", "", "Branch to commit to (default: repository default branch)")
	cmd.Flags().StringVar(&githubFileMessage, "message", "", "Commit message (required)")
	cmd.Flags().StringVar(&githubFileSource, "from", "", "Local file with the new content (required)")
	return cmd
}

func newGithubPackagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages ORG",
		Short: "List packages of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			var pkgs []github.Package
			err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching packages", func() error {
				var err error
				pkgs, err = gh.Packages(cmd.Context(), args[0], githubPackageType)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pkgs))
			for _, p := range pkgs {
				rows = append(rows, []string{p.Name, p.Type, p.Visibility})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAME", "TYPE", "VISIBILITY"}, rows, pkgs)
		},
	}
	cmd.Flags().StringVar(&githubPackageType, "type", "container", "Package type (container, npm, maven, ...)")
	return cmd
}

func newGithubTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags OWNER/NAME",
		Short: "List tags of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			var tags []github.Tag
			err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching tags", func() error {
				var err error
				tags, err = gh.Tags(cmd.Context(), owner, name)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tags))
			for _, tag := range tags {
				rows = append(rows, []string{tag.Name, tag.SHA})
			}
			return f.Table(cmd.OutOrStdout(), []string{"NAME", "SHA"}, rows, tags)
		},
	}
}

func newGithubReleasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "releases OWNER/NAME",
		Short: "List releases of a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			gh, err := toolkit.GitHub()
			if err != nil {
				return err
			}
			f, err := githubFlags.Formatter()
			if err != nil {
				return err
			}
			var releases []github.Release
			err = cli.WithSpinner(!githubFlags.ShowProgress(), "fetching releases", func() error {
				var err error
				releases, err = gh.Releases(cmd.Context(), owner, name)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(releases))
			for _, r := range releases {
				rows = append(rows, []string{r.Tag, r.Name, r.PublishedAt})
			}
			return f.Table(cmd.OutOrStdout(), []string{"TAG", "NAME", "PUBLISHED"}, rows, releases)
		},
	}
}

func init() {
	rootCmd.AddCommand(githubCmd)
	cli.RegisterOutputFlags(githubCmd, &githubFlags)

	githubCmd.AddCommand(newGithubReposCmd())
	githubCmd.AddCommand(newGithubCreateRepoCmd())
	githubCmd.AddCommand(newGithubDeleteRepoCmd())
	githubCmd.AddCommand(newGithubBranchesCmd())
	githubCmd.AddCommand(newGithubIssuesCmd())
	githubCmd.AddCommand(newGithubCreateIssueCmd())
	githubCmd.AddCommand(newGithubPullRequestsCmd())
	githubCmd.AddCommand(newGithubCreatePRCmd())
	githubCmd.AddCommand(newGithubUpdateFileCmd())
	githubCmd.AddCommand(newGithubPackagesCmd())
	githubCmd.AddCommand(newGithubTagsCmd())
	githubCmd.AddCommand(newGithubReleasesCmd())
}
