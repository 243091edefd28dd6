package serve

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"opskit/internal/client"
	"opskit/pkg/logging"
)

// Server bridges the client facade to MCP clients over stdio. Each
// registered tool maps onto one capability operation.
type Server struct {
	toolkit   *client.Client
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server exposing the toolkit's capability
// operations as tools. The facade is shared with the command layer, so
// capabilities constructed by either side are reused by the other.
func NewServer(toolkit *client.Client, version string) *Server {
	s := &Server{
		toolkit: toolkit,
		mcpServer: server.NewMCPServer(
			"opskit",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// Start serves the MCP protocol on stdin/stdout. It blocks until the
// stdio connection closes or the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	logging.Info("serve", "serving MCP tools on stdio")
	return server.ServeStdio(s.mcpServer)
}

// registerTools declares every exposed tool and binds its handler.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("github_user_repos",
		mcp.WithDescription("List GitHub repositories owned by a user (empty user means the authenticated account)"),
		mcp.WithString("user", mcp.Description("GitHub username")),
	), s.handleGitHubUserRepos)

	s.mcpServer.AddTool(mcp.NewTool("github_org_repos",
		mcp.WithDescription("List GitHub repositories of an organization"),
		mcp.WithString("org", mcp.Required(), mcp.Description("Organization name")),
	), s.handleGitHubOrgRepos)

	s.mcpServer.AddTool(mcp.NewTool("github_issues",
		mcp.WithDescription("List issues of a GitHub repository"),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("state", mcp.Description("Issue state filter: open, closed or all (default open)")),
	), s.handleGitHubIssues)

	s.mcpServer.AddTool(mcp.NewTool("github_create_issue",
		mcp.WithDescription("Create an issue in a GitHub repository"),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("body", mcp.Description("Issue body")),
	), s.handleGitHubCreateIssue)

	s.mcpServer.AddTool(mcp.NewTool("github_pull_requests",
		mcp.WithDescription("List pull requests of a GitHub repository"),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Repository owner")),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithString("state", mcp.Description("Pull request state filter: open, closed or all (default open)")),
	), s.handleGitHubPullRequests)

	s.mcpServer.AddTool(mcp.NewTool("jira_issue",
		mcp.WithDescription("Get a Jira issue by key"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Issue key, for example OPS-123")),
	), s.handleJiraIssue)

	s.mcpServer.AddTool(mcp.NewTool("jira_search",
		mcp.WithDescription("Search Jira issues with a JQL query"),
		mcp.WithString("jql", mcp.Required(), mcp.Description("JQL query string")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of issues to return (default 50)")),
	), s.handleJiraSearch)

	s.mcpServer.AddTool(mcp.NewTool("jira_create_issue",
		mcp.WithDescription("Create a Jira issue"),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project key")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("Issue summary")),
		mcp.WithString("description", mcp.Description("Issue description")),
		mcp.WithString("type", mcp.Description("Issue type (default Task)")),
	), s.handleJiraCreateIssue)

	s.mcpServer.AddTool(mcp.NewTool("kube_pods",
		mcp.WithDescription("List Kubernetes pods in a namespace (empty namespace means all namespaces)"),
		mcp.WithString("namespace", mcp.Description("Namespace to list")),
	), s.handleKubePods)

	s.mcpServer.AddTool(mcp.NewTool("kube_deployments",
		mcp.WithDescription("List Kubernetes deployments in a namespace (empty namespace means all namespaces)"),
		mcp.WithString("namespace", mcp.Description("Namespace to list")),
	), s.handleKubeDeployments)

	s.mcpServer.AddTool(mcp.NewTool("kube_scale_deployment",
		mcp.WithDescription("Scale a Kubernetes deployment to a replica count"),
		mcp.WithString("namespace", mcp.Required(), mcp.Description("Deployment namespace")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Deployment name")),
		mcp.WithNumber("replicas", mcp.Required(), mcp.Description("Desired replica count")),
	), s.handleKubeScaleDeployment)

	s.mcpServer.AddTool(mcp.NewTool("logs_search",
		mcp.WithDescription("Search structured log entries in OpenSearch"),
		mcp.WithString("index", mcp.Description("Log index name (default opskit-logs)")),
		mcp.WithString("service", mcp.Description("Filter by service name")),
		mcp.WithString("level", mcp.Description("Filter by log level")),
		mcp.WithString("text", mcp.Description("Full-text filter on the message field")),
		mcp.WithString("since", mcp.Description("Only entries after this RFC 3339 timestamp")),
		mcp.WithNumber("size", mcp.Description("Maximum number of entries to return (default 100)")),
	), s.handleLogsSearch)

	s.mcpServer.AddTool(mcp.NewTool("logs_write",
		mcp.WithDescription("Write one structured log entry to OpenSearch"),
		mcp.WithString("service", mcp.Required(), mcp.Description("Originating service name")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Log message")),
		mcp.WithString("level", mcp.Description("Log level (default info)")),
		mcp.WithString("index", mcp.Description("Log index name (default opskit-logs)")),
	), s.handleLogsWrite)
}
