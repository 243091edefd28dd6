package resourcemanager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opskit/internal/client"
	"opskit/internal/github"
	"opskit/internal/kube"
	"opskit/internal/plugin"
)

// fakeFacade overrides the handful of facade methods the tests exercise.
// Calling anything else panics through the embedded nil interface.
type fakeFacade struct {
	plugin.Facade

	gh      *github.Client
	ghErr   error
	kubeErr error
}

func (f *fakeFacade) GitHub() (*github.Client, error)   { return f.gh, f.ghErr }
func (f *fakeFacade) Kubernetes() (*kube.Client, error) { return nil, f.kubeErr }
func (f *fakeFacade) Extension(string) (any, bool)      { return nil, false }

func newTestCommand(out, errOut *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetContext(context.Background())
	return cmd
}

func githubAt(t *testing.T, handler http.HandlerFunc) *github.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	gh, err := github.NewEnterpriseClient(server.URL, "token")
	require.NoError(t, err)
	return gh
}

func TestDerivedName(t *testing.T) {
	assert.Equal(t, "resource-manager", plugin.DeriveName(New(nil)))
}

func TestSetupRegistersCommands(t *testing.T) {
	p := New(nil)
	require.NoError(t, p.Setup())

	commands := p.Commands()
	require.Len(t, commands, 4)
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"list", "github", "kubernetes", "pull-requests"}, names)
}

func TestModuleFactoryReturnsSetUpPlugin(t *testing.T) {
	setup, ok := plugin.Module("resource-manager")
	require.True(t, ok, "module not registered")

	p, err := setup(&fakeFacade{})
	require.NoError(t, err)
	assert.NotEmpty(t, p.Commands())
}

func TestRunGitHubRendersRepos(t *testing.T) {
	gh := githubAt(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"name":"toolkit","full_name":"octo/toolkit","private":true,"stargazers_count":3}]`)
	})

	p := New(&fakeFacade{gh: gh})
	require.NoError(t, p.Setup())
	p.output = "json"
	p.user = "octo"

	var out, errOut bytes.Buffer
	require.NoError(t, p.runGitHub(newTestCommand(&out, &errOut), nil))

	assert.Contains(t, out.String(), `"full_name": "octo/toolkit"`)
	assert.Contains(t, out.String(), `"private": true`)
}

func TestRunListReportsSkippedCapabilities(t *testing.T) {
	p := New(&fakeFacade{
		ghErr:   client.NewConfigurationError("github", "github_token"),
		kubeErr: errors.New("no kubeconfig"),
	})
	require.NoError(t, p.Setup())
	p.output = "table"

	var out, errOut bytes.Buffer
	require.NoError(t, p.runList(newTestCommand(&out, &errOut), nil))

	assert.Contains(t, errOut.String(), "skipped (not configured): github, kubernetes")
	assert.Contains(t, out.String(), "No results")
}

func TestRunPullRequestsValidatesRepoArgument(t *testing.T) {
	p := New(&fakeFacade{})
	require.NoError(t, p.Setup())
	p.output = "table"

	var out, errOut bytes.Buffer

	err := p.runPullRequests(newTestCommand(&out, &errOut), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/name")

	err = p.runPullRequests(newTestCommand(&out, &errOut), []string{"not-a-repo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid repository "not-a-repo"`)
}

func TestRunPullRequestsRendersTable(t *testing.T) {
	gh := githubAt(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/octo/toolkit/pulls", r.URL.Path)
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"number":7,"title":"add retries","state":"closed","user":{"login":"octocat"},"head":{"ref":"feature"},"base":{"ref":"main"}}]`)
	})

	p := New(&fakeFacade{gh: gh})
	require.NoError(t, p.Setup())
	p.output = "table"
	p.prState = "closed"

	var out, errOut bytes.Buffer
	require.NoError(t, p.runPullRequests(newTestCommand(&out, &errOut), []string{"octo/toolkit"}))

	assert.Contains(t, out.String(), "add retries")
	assert.Contains(t, out.String(), "feature -> main")
}
