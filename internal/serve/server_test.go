package serve

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opskit/internal/client"
	"opskit/internal/opensearch"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestUnconfiguredCapabilityReportsToolError(t *testing.T) {
	srv := NewServer(client.New(client.Config{}), "test")

	result, err := srv.handleGitHubUserRepos(context.Background(),
		callRequest("github_user_repos", nil))
	require.NoError(t, err, "configuration problems must stay inside the tool result")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "github")
}

func TestMissingRequiredArgument(t *testing.T) {
	srv := NewServer(client.New(client.Config{}), "test")

	result, err := srv.handleGitHubOrgRepos(context.Background(),
		callRequest("github_org_repos", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestScaleDeploymentRejectsNegativeReplicas(t *testing.T) {
	srv := NewServer(client.New(client.Config{}), "test")

	result, err := srv.handleKubeScaleDeployment(context.Background(),
		callRequest("kube_scale_deployment", map[string]any{
			"namespace": "default",
			"name":      "api",
			"replicas":  -1,
		}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "replicas")
}

func TestLogsSearchRejectsBadTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("search must fail before reaching OpenSearch")
	}))
	t.Cleanup(server.Close)

	srv := NewServer(client.New(client.Config{
		OpenSearchURL:                  server.URL,
		OpenSearchInitialAdminPassword: "secret",
	}), "test")

	result, err := srv.handleLogsSearch(context.Background(),
		callRequest("logs_search", map[string]any{"since": "yesterday"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "since")
}

func TestLogsWriteRoundTrip(t *testing.T) {
	var capturedPath string
	var doc opensearch.LogEntry
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"result":"created"}`)
	}))
	t.Cleanup(server.Close)

	srv := NewServer(client.New(client.Config{
		OpenSearchURL:                  server.URL,
		OpenSearchInitialAdminPassword: "secret",
	}), "test")

	result, err := srv.handleLogsWrite(context.Background(),
		callRequest("logs_write", map[string]any{
			"service": "api",
			"message": "deploy finished",
		}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Contains(t, capturedPath, "/opskit-logs/")
	assert.Equal(t, "api", doc.Service)
	assert.Equal(t, "deploy finished", doc.Message)
	assert.Contains(t, resultText(t, result), "opskit-logs")
}

func TestHandlersShareTheFacadeCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"result":"created"}`)
	}))
	t.Cleanup(server.Close)

	toolkit := client.New(client.Config{
		OpenSearchURL:                  server.URL,
		OpenSearchInitialAdminPassword: "secret",
	})
	srv := NewServer(toolkit, "test")

	_, err := srv.handleLogsWrite(context.Background(),
		callRequest("logs_write", map[string]any{"service": "api", "message": "x"}))
	require.NoError(t, err)

	first, err := toolkit.OpenSearch()
	require.NoError(t, err)
	second, err := toolkit.OpenSearch()
	require.NoError(t, err)
	assert.Same(t, first, second, "the server must reuse the facade's cached capability")
}
