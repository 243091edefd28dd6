package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"opskit/internal/opensearch"
)

const defaultLogIndex = "opskit-logs"

// jsonResult renders v as indented JSON tool output.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

func (s *Server) handleGitHubUserRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gh, err := s.toolkit.GitHub()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	repos, err := gh.UserRepos(ctx, request.GetString("user", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(repos), nil
}

func (s *Server) handleGitHubOrgRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	org, err := request.RequireString("org")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gh, err := s.toolkit.GitHub()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	repos, err := gh.OrgRepos(ctx, org)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(repos), nil
}

func (s *Server) handleGitHubIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gh, err := s.toolkit.GitHub()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issues, err := gh.Issues(ctx, owner, repo, request.GetString("state", "open"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issues), nil
}

func (s *Server) handleGitHubCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gh, err := s.toolkit.GitHub()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issue, err := gh.CreateIssue(ctx, owner, repo, title, request.GetString("body", ""), nil)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue), nil
}

func (s *Server) handleGitHubPullRequests(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := request.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repo, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	gh, err := s.toolkit.GitHub()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	prs, err := gh.PullRequests(ctx, owner, repo, request.GetString("state", "open"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(prs), nil
}

func (s *Server) handleJiraIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jc, err := s.toolkit.Jira()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issue, err := jc.Issue(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue), nil
}

func (s *Server) handleJiraSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jql, err := request.RequireString("jql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jc, err := s.toolkit.Jira()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issues, err := jc.SearchIssues(ctx, jql, request.GetInt("max_results", 50))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issues), nil
}

func (s *Server) handleJiraCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := request.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jc, err := s.toolkit.Jira()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issue, err := jc.CreateIssue(ctx, project, summary,
		request.GetString("description", ""),
		request.GetString("type", "Task"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(issue), nil
}

func (s *Server) handleKubePods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kc, err := s.toolkit.Kubernetes()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pods, err := kc.Pods(ctx, request.GetString("namespace", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pods), nil
}

func (s *Server) handleKubeDeployments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kc, err := s.toolkit.Kubernetes()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	deployments, err := kc.Deployments(ctx, request.GetString("namespace", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(deployments), nil
}

func (s *Server) handleKubeScaleDeployment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := request.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	replicas, err := request.RequireInt("replicas")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if replicas < 0 {
		return mcp.NewToolResultError("replicas must not be negative"), nil
	}

	kc, err := s.toolkit.Kubernetes()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	deployment, err := kc.ScaleDeployment(ctx, namespace, name, int32(replicas))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(deployment), nil
}

func (s *Server) handleLogsSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	osc, err := s.toolkit.OpenSearch()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := opensearch.SearchOptions{
		Service: request.GetString("service", ""),
		Level:   request.GetString("level", ""),
		Text:    request.GetString("text", ""),
		Size:    request.GetInt("size", 100),
	}
	if since := request.GetString("since", ""); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid since timestamp %q: %v", since, err)), nil
		}
		opts.Since = t
	}

	entries, err := osc.SearchLogs(ctx, request.GetString("index", defaultLogIndex), opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) handleLogsWrite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := request.RequireString("service")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	osc, err := s.toolkit.OpenSearch()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	index := request.GetString("index", defaultLogIndex)
	entry := opensearch.LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     request.GetString("level", "info"),
		Service:   service,
		Message:   message,
	}
	if err := osc.WriteLog(ctx, index, entry); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("wrote log entry to %s", index)), nil
}
