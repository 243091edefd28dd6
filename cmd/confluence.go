package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"opskit/internal/cli"
	"opskit/internal/confluence"
)

var confluenceFlags cli.CommandFlags

var (
	confluenceBody        string
	confluenceBodyFile    string
	confluenceTemplate    string
	confluenceVars        []string
	confluenceParent      string
	confluenceSearchLimit int
)

// confluenceCmd groups the Confluence subcommands.
var confluenceCmd = &cobra.Command{
	Use:   "confluence",
	Short: "Work with Confluence pages and spaces",
	Long: `Create, read, update, delete and search Confluence pages.

Page bodies can be given inline (--body), from a file (--body-file) or
rendered from a Go template with sprig functions (--template with --var).

Requires confluence_url, confluence_username and confluence_token.

Examples:
  opskit confluence page 123456
  opskit confluence create-page OPS "Runbook" --template runbook.tmpl --var service=api
  opskit confluence search 'space = OPS AND title ~ "postmortem"'`,
}

// resolvePageBody picks the page body from the inline, file or template flag.
// At most one source may be set.
func resolvePageBody() (string, error) {
	set := 0
	for _, s := range []string{confluenceBody, confluenceBodyFile, confluenceTemplate} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return "", fmt.Errorf("--body, --body-file and --template are mutually exclusive")
	}
	switch {
	case confluenceBodyFile != "":
		data, err := os.ReadFile(confluenceBodyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", confluenceBodyFile, err)
		}
		return string(data), nil
	case confluenceTemplate != "":
		pairs, err := parseKeyValues(confluenceVars)
		if err != nil {
			return "", err
		}
		vars := make(map[string]any, len(pairs))
		for k, v := range pairs {
			vars[k] = v
		}
		return confluence.RenderPageTemplate(confluenceTemplate, vars)
	default:
		return confluenceBody, nil
	}
}

func registerBodyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&confluenceBody, "body", "", "Page body (Confluence storage format)")
	cmd.Flags().StringVar(&confluenceBodyFile, "body-file", "", "File with the page body")
	cmd.Flags().StringVar(&confluenceTemplate, "template", "", "Template file rendered with --var values")
	cmd.Flags().StringArrayVar(&confluenceVars, "var", nil, "Template variable as key=value (repeatable)")
}

func newConfluencePageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page ID",
		Short: "Show a page by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			page, err := cc.Page(args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), page)
		},
	}
}

func newConfluencePageByTitleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page-by-title SPACE TITLE",
		Short: "Find a page by space and title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			page, err := cc.PageByTitle(args[0], args[1])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), page)
		},
	}
}

func newConfluenceCreatePageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-page SPACE TITLE",
		Short: "Create a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := resolvePageBody()
			if err != nil {
				return err
			}
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			page, err := cc.CreatePage(args[0], args[1], body, confluenceParent)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), page)
		},
	}
	registerBodyFlags(cmd)
	cmd.Flags().StringVar(&confluenceParent, "parent", "", "Parent page ID")
	return cmd
}

func newConfluenceUpdatePageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-page ID TITLE",
		Short: "Replace a page's title and body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := resolvePageBody()
			if err != nil {
				return err
			}
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			page, err := cc.UpdatePage(args[0], args[1], body)
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), page)
		},
	}
	registerBodyFlags(cmd)
	return cmd
}

func newConfluenceDeletePageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-page ID",
		Short: "Delete a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			if err := cc.DeletePage(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted page %s\n", args[0])
			return nil
		},
	}
}

func newConfluenceSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search CQL",
		Short: "Search content with CQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			var hits []confluence.SearchHit
			err = cli.WithSpinner(!confluenceFlags.ShowProgress(), "searching", func() error {
				var err error
				hits, err = cc.Search(args[0], confluenceSearchLimit)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(hits))
			for _, hit := range hits {
				rows = append(rows, []string{hit.ID, hit.Title, hit.Type})
			}
			return f.Table(cmd.OutOrStdout(), []string{"ID", "TITLE", "TYPE"}, rows, hits)
		},
	}
	cmd.Flags().IntVar(&confluenceSearchLimit, "limit", 25, "Maximum number of results")
	return cmd
}

func newConfluenceSpaceContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space-content SPACE",
		Short: "List the pages of a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			var pages []confluence.Page
			err = cli.WithSpinner(!confluenceFlags.ShowProgress(), "fetching space content", func() error {
				var err error
				pages, err = cc.SpaceContent(args[0], confluenceSearchLimit)
				return err
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(pages))
			for _, page := range pages {
				rows = append(rows, []string{page.ID, page.Title, page.URL})
			}
			return f.Table(cmd.OutOrStdout(), []string{"ID", "TITLE", "URL"}, rows, pages)
		},
	}
	cmd.Flags().IntVar(&confluenceSearchLimit, "limit", 25, "Maximum number of results")
	return cmd
}

func newConfluenceSpaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "space SPACE",
		Short: "Show information about a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := toolkit.Confluence()
			if err != nil {
				return err
			}
			f, err := confluenceFlags.Formatter()
			if err != nil {
				return err
			}
			space, err := cc.SpaceInfo(args[0])
			if err != nil {
				return err
			}
			return f.Data(cmd.OutOrStdout(), space)
		},
	}
}

func init() {
	rootCmd.AddCommand(confluenceCmd)
	cli.RegisterOutputFlags(confluenceCmd, &confluenceFlags)

	confluenceCmd.AddCommand(newConfluencePageCmd())
	confluenceCmd.AddCommand(newConfluencePageByTitleCmd())
	confluenceCmd.AddCommand(newConfluenceCreatePageCmd())
	confluenceCmd.AddCommand(newConfluenceUpdatePageCmd())
	confluenceCmd.AddCommand(newConfluenceDeletePageCmd())
	confluenceCmd.AddCommand(newConfluenceSearchCmd())
	confluenceCmd.AddCommand(newConfluenceSpaceContentCmd())
	confluenceCmd.AddCommand(newConfluenceSpaceCmd())
}
