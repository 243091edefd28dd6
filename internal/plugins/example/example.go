// Package example is a small built-in plugin demonstrating the plugin
// surface: one static command and one that drives a capability. It mounts
// as "example" under the root command.
package example

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"opskit/internal/plugin"
)

func init() {
	plugin.RegisterModule("example", func(client plugin.Facade) (plugin.Plugin, error) {
		p := New(client)
		if err := p.Setup(); err != nil {
			return nil, err
		}
		return p, nil
	})
}

// ExamplePlugin greets the user and files Jira issues.
type ExamplePlugin struct {
	plugin.Base

	project     string
	summary     string
	description string
	issueType   string
}

// New creates the plugin bound to the given facade. Callers invoke Setup
// before handing it to a registry.
func New(client plugin.Facade) *ExamplePlugin {
	p := &ExamplePlugin{}
	p.Client = client
	return p
}

// Setup registers the plugin commands.
func (p *ExamplePlugin) Setup() error {
	p.RegisterCommand(plugin.Command{
		Name: "hello",
		Help: "Print a greeting naming the loaded extensions",
		Run:  p.runHello,
	})
	p.RegisterCommand(plugin.Command{
		Name: "create-issue",
		Help: "Create a Jira issue",
		Flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&p.project, "project", "", "Jira project key")
			fs.StringVar(&p.summary, "summary", "", "Issue summary")
			fs.StringVar(&p.description, "description", "", "Issue description")
			fs.StringVar(&p.issueType, "type", "Task", "Issue type")
		},
		Run: p.runCreateIssue,
	})
	return nil
}

func (p *ExamplePlugin) runHello(cmd *cobra.Command, args []string) error {
	exts := p.Client.Extensions()
	if len(exts) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "hello from the example plugin")
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "hello from the example plugin (extensions: %s)\n", strings.Join(exts, ", "))
	return err
}

func (p *ExamplePlugin) runCreateIssue(cmd *cobra.Command, args []string) error {
	if p.project == "" || p.summary == "" {
		return fmt.Errorf("--project and --summary are required")
	}

	jc, err := p.Client.Jira()
	if err != nil {
		return err
	}
	issue, err := jc.CreateIssue(cmd.Context(), p.project, p.summary, p.description, p.issueType)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s: %s\n", issue.Key, issue.URL)
	return err
}
