package example

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opskit/internal/client"
	"opskit/internal/plugin"
)

func newTestCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetContext(context.Background())
	return cmd
}

func TestDerivedName(t *testing.T) {
	assert.Equal(t, "example", plugin.DeriveName(New(nil)))
}

func TestSetupRegistersCommands(t *testing.T) {
	p := New(nil)
	require.NoError(t, p.Setup())

	commands := p.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, "hello", commands[0].Name)
	assert.Equal(t, "create-issue", commands[1].Name)
}

func TestModuleFactoryReturnsSetUpPlugin(t *testing.T) {
	setup, ok := plugin.Module("example")
	require.True(t, ok, "module not registered")

	p, err := setup(client.New(client.Config{}))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Commands())
}

func TestHelloWithoutExtensions(t *testing.T) {
	p := New(client.New(client.Config{}))
	require.NoError(t, p.Setup())

	var out bytes.Buffer
	require.NoError(t, p.runHello(newTestCommand(&out), nil))

	assert.Equal(t, "hello from the example plugin\n", out.String())
}

func TestHelloNamesLoadedExtensions(t *testing.T) {
	c := client.New(client.Config{})
	require.NoError(t, c.RegisterExtension("cloud-resources", struct{}{}))

	p := New(c)
	require.NoError(t, p.Setup())

	var out bytes.Buffer
	require.NoError(t, p.runHello(newTestCommand(&out), nil))

	assert.Equal(t, "hello from the example plugin (extensions: cloud-resources)\n", out.String())
}

func TestCreateIssueRequiresProjectAndSummary(t *testing.T) {
	p := New(client.New(client.Config{}))
	require.NoError(t, p.Setup())

	var out bytes.Buffer
	err := p.runCreateIssue(newTestCommand(&out), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--project and --summary are required")
}

func TestCreateIssueAgainstServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"10001","key":"OPS-1"}`)
	})
	mux.HandleFunc("/rest/api/2/issue/OPS-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"key":"OPS-1","fields":{"summary":"do the thing"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	facade := client.New(client.Config{
		JiraURL:      server.URL,
		JiraUsername: "bot",
		JiraToken:    "token",
	})

	p := New(facade)
	require.NoError(t, p.Setup())
	p.project = "OPS"
	p.summary = "do the thing"

	var out bytes.Buffer
	require.NoError(t, p.runCreateIssue(newTestCommand(&out), nil))

	assert.Contains(t, out.String(), "created OPS-1:")
	assert.Contains(t, out.String(), "/browse/OPS-1")
}

func TestCreateIssueSurfacesConfigurationError(t *testing.T) {
	p := New(client.New(client.Config{}))
	require.NoError(t, p.Setup())
	p.project = "OPS"
	p.summary = "do the thing"

	var out bytes.Buffer
	err := p.runCreateIssue(newTestCommand(&out), nil)
	require.Error(t, err)
	assert.True(t, client.IsConfiguration(err))
}
