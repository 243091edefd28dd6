// Package resourcemanager is the built-in plugin that surfaces the
// aggregated resource inventory as CLI commands. It mounts as
// "resource-manager" under the root command.
package resourcemanager

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"opskit/internal/cli"
	"opskit/internal/extensions/cloudresources"
	"opskit/internal/formatting"
	"opskit/internal/plugin"
)

func init() {
	plugin.RegisterModule("resource-manager", func(client plugin.Facade) (plugin.Plugin, error) {
		p := New(client)
		if err := p.Setup(); err != nil {
			return nil, err
		}
		return p, nil
	})
}

// ResourceManagerPlugin lists repositories and cluster workloads through the
// cloud-resources aggregator.
type ResourceManagerPlugin struct {
	plugin.Base

	output    string
	user      string
	namespace string
	prState   string
}

// New creates the plugin bound to the given facade. Callers invoke Setup
// before handing it to a registry.
func New(client plugin.Facade) *ResourceManagerPlugin {
	p := &ResourceManagerPlugin{}
	p.Client = client
	return p
}

// Setup registers the plugin commands.
func (p *ResourceManagerPlugin) Setup() error {
	p.RegisterCommand(plugin.Command{
		Name: "list",
		Help: "List resources across all configured capabilities",
		Flags: func(fs *pflag.FlagSet) {
			p.registerOutputFlag(fs)
			fs.StringVar(&p.user, "user", "", "GitHub user to list repositories for (default: authenticated user)")
			fs.StringVar(&p.namespace, "namespace", "", "Kubernetes namespace (default: all namespaces)")
		},
		Run: p.runList,
	})
	p.RegisterCommand(plugin.Command{
		Name: "github",
		Help: "List GitHub repositories",
		Flags: func(fs *pflag.FlagSet) {
			p.registerOutputFlag(fs)
			fs.StringVar(&p.user, "user", "", "GitHub user to list repositories for (default: authenticated user)")
		},
		Run: p.runGitHub,
	})
	p.RegisterCommand(plugin.Command{
		Name: "kubernetes",
		Help: "List cluster workloads",
		Flags: func(fs *pflag.FlagSet) {
			p.registerOutputFlag(fs)
			fs.StringVar(&p.namespace, "namespace", "", "Kubernetes namespace (default: all namespaces)")
		},
		Run: p.runKubernetes,
	})
	p.RegisterCommand(plugin.Command{
		Name: "pull-requests",
		Help: "List pull requests for a repository (owner/name)",
		Flags: func(fs *pflag.FlagSet) {
			p.registerOutputFlag(fs)
			fs.StringVar(&p.prState, "state", "open", "Pull request state (open, closed, all)")
		},
		Run: p.runPullRequests,
	})
	return nil
}

func (p *ResourceManagerPlugin) registerOutputFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&p.output, "output", "o", "table", "Output format (text, json, yaml, table)")
}

func (p *ResourceManagerPlugin) formatter() (formatting.Formatter, error) {
	flags := cli.CommandFlags{OutputFormat: p.output}
	return flags.Formatter()
}

// aggregator returns the shared cloud-resources extension when it is loaded
// and falls back to a private instance otherwise.
func (p *ResourceManagerPlugin) aggregator() *cloudresources.Aggregator {
	if ext, ok := p.Client.Extension(cloudresources.Name); ok {
		if agg, ok := ext.(*cloudresources.Aggregator); ok {
			return agg
		}
	}
	return cloudresources.New(p.Client)
}

func (p *ResourceManagerPlugin) runList(cmd *cobra.Command, args []string) error {
	f, err := p.formatter()
	if err != nil {
		return err
	}

	inv, err := p.aggregator().Collect(cmd.Context(), cloudresources.Options{
		GitHubUser: p.user,
		Namespace:  p.namespace,
	})
	if err != nil {
		return err
	}

	var rows [][]string
	for _, r := range inv.Repos {
		rows = append(rows, []string{"repo", r.FullName, repoVisibility(r.Private)})
	}
	for _, pod := range inv.Pods {
		rows = append(rows, []string{"pod", pod.Namespace + "/" + pod.Name, pod.Status})
	}
	for _, d := range inv.Deployments {
		rows = append(rows, []string{"deployment", d.Namespace + "/" + d.Name, d.Ready})
	}

	if len(inv.Skipped) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped (not configured): %s\n", strings.Join(inv.Skipped, ", "))
	}
	return f.Table(cmd.OutOrStdout(), []string{"KIND", "NAME", "STATUS"}, rows, inv)
}

func (p *ResourceManagerPlugin) runGitHub(cmd *cobra.Command, args []string) error {
	f, err := p.formatter()
	if err != nil {
		return err
	}

	gh, err := p.Client.GitHub()
	if err != nil {
		return err
	}
	repos, err := gh.UserRepos(cmd.Context(), p.user)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(repos))
	for _, r := range repos {
		rows = append(rows, []string{r.FullName, repoVisibility(r.Private), strconv.Itoa(r.Stars), r.URL})
	}
	return f.Table(cmd.OutOrStdout(), []string{"NAME", "VISIBILITY", "STARS", "URL"}, rows, repos)
}

func (p *ResourceManagerPlugin) runKubernetes(cmd *cobra.Command, args []string) error {
	f, err := p.formatter()
	if err != nil {
		return err
	}

	kc, err := p.Client.Kubernetes()
	if err != nil {
		return err
	}
	inv := &cloudresources.Inventory{}
	if inv.Pods, err = kc.Pods(cmd.Context(), p.namespace); err != nil {
		return err
	}
	if inv.Deployments, err = kc.Deployments(cmd.Context(), p.namespace); err != nil {
		return err
	}

	var rows [][]string
	for _, pod := range inv.Pods {
		rows = append(rows, []string{"pod", pod.Namespace + "/" + pod.Name, pod.Ready, pod.Status})
	}
	for _, d := range inv.Deployments {
		rows = append(rows, []string{"deployment", d.Namespace + "/" + d.Name, d.Ready, ""})
	}
	return f.Table(cmd.OutOrStdout(), []string{"KIND", "NAME", "READY", "STATUS"}, rows, inv)
}

func (p *ResourceManagerPlugin) runPullRequests(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one argument in the form owner/name")
	}
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("invalid repository %q: expected owner/name", args[0])
	}

	f, err := p.formatter()
	if err != nil {
		return err
	}

	gh, err := p.Client.GitHub()
	if err != nil {
		return err
	}
	prs, err := gh.PullRequests(cmd.Context(), owner, repo, p.prState)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(prs))
	for _, pr := range prs {
		rows = append(rows, []string{strconv.Itoa(pr.Number), pr.Title, pr.State, pr.User, pr.Head + " -> " + pr.Base})
	}
	return f.Table(cmd.OutOrStdout(), []string{"NUMBER", "TITLE", "STATE", "AUTHOR", "BRANCHES"}, rows, prs)
}

func repoVisibility(private bool) string {
	if private {
		return "private"
	}
	return "public"
}
