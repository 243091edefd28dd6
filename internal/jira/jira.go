package jira

import (
	"context"
	"fmt"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
)

// Client wraps the Jira REST API. Methods translate between plain result
// structs and the go-jira SDK, and convert every SDK failure into *Error.
type Client struct {
	jc      *jira.Client
	baseURL string
}

// Error is the generic failure kind for Jira operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("jira: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient creates a Jira client using basic auth (username + API token).
func NewClient(baseURL, username, token string) (*Client, error) {
	tp := jira.BasicAuthTransport{
		Username: username,
		Password: token,
	}
	jc, err := jira.NewClient(tp.Client(), baseURL)
	if err != nil {
		return nil, opErr("create client", err)
	}
	return &Client{jc: jc, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Issue describes a Jira issue.
type Issue struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Reporter    string `json:"reporter,omitempty"`
	Created     string `json:"created,omitempty"`
	URL         string `json:"url"`
}

// Transition describes a workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   string `json:"to"`
}

// User describes the authenticated Jira user.
type User struct {
	AccountID   string `json:"account_id,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
}

// JQLResult reports whether a JQL expression is accepted by the server.
type JQLResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// CreateIssue creates an issue in the given project.
func (c *Client) CreateIssue(ctx context.Context, project, summary, description, issueType string) (*Issue, error) {
	if issueType == "" {
		issueType = "Task"
	}
	created, _, err := c.jc.Issue.CreateWithContext(ctx, &jira.Issue{
		Fields: &jira.IssueFields{
			Project:     jira.Project{Key: project},
			Summary:     summary,
			Description: description,
			Type:        jira.IssueType{Name: issueType},
		},
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("create issue in %s", project), err)
	}
	// The create response carries only the key; fetch the full issue.
	return c.Issue(ctx, created.Key)
}

// Issue fetches an issue by key.
func (c *Client) Issue(ctx context.Context, key string) (*Issue, error) {
	issue, _, err := c.jc.Issue.GetWithContext(ctx, key, nil)
	if err != nil {
		return nil, opErr(fmt.Sprintf("get issue %s", key), err)
	}
	out := c.convertIssue(issue)
	return &out, nil
}

// UpdateIssue applies a partial field update to an issue. Keys of fields are
// Jira field names ("summary", "description", ...).
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	_, err := c.jc.Issue.UpdateIssueWithContext(ctx, key, map[string]interface{}{"fields": fields})
	if err != nil {
		return opErr(fmt.Sprintf("update issue %s", key), err)
	}
	return nil
}

// DeleteIssue deletes an issue by key.
func (c *Client) DeleteIssue(ctx context.Context, key string) error {
	if _, err := c.jc.Issue.DeleteWithContext(ctx, key); err != nil {
		return opErr(fmt.Sprintf("delete issue %s", key), err)
	}
	return nil
}

// ValidateJQL checks a JQL expression by running a zero-cost search with it.
// A rejected expression yields Valid=false with the server's message rather
// than an error.
func (c *Client) ValidateJQL(ctx context.Context, jql string) (*JQLResult, error) {
	_, _, err := c.jc.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: 1})
	if err != nil {
		return &JQLResult{Valid: false, Message: err.Error()}, nil
	}
	return &JQLResult{Valid: true}, nil
}

// SearchIssues runs a JQL search, returning at most maxResults issues
// (50 when zero).
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	if maxResults <= 0 {
		maxResults = 50
	}
	issues, _, err := c.jc.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: maxResults})
	if err != nil {
		return nil, opErr("search issues", err)
	}
	out := make([]Issue, 0, len(issues))
	for i := range issues {
		out = append(out, c.convertIssue(&issues[i]))
	}
	return out, nil
}

// MyIssues lists open issues assigned to the authenticated user.
func (c *Client) MyIssues(ctx context.Context) ([]Issue, error) {
	return c.SearchIssues(ctx, "assignee = currentUser() AND resolution = Unresolved ORDER BY updated DESC", 50)
}

// UserInfo returns the authenticated user.
func (c *Client) UserInfo(ctx context.Context) (*User, error) {
	self, _, err := c.jc.User.GetSelfWithContext(ctx)
	if err != nil {
		return nil, opErr("get current user", err)
	}
	return &User{
		AccountID:   self.AccountID,
		Name:        self.Name,
		DisplayName: self.DisplayName,
		Email:       self.EmailAddress,
		TimeZone:    self.TimeZone,
	}, nil
}

// Transitions lists the workflow transitions currently available on an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	transitions, _, err := c.jc.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return nil, opErr(fmt.Sprintf("get transitions for %s", key), err)
	}
	out := make([]Transition, 0, len(transitions))
	for _, tr := range transitions {
		out = append(out, Transition{
			ID:   tr.ID,
			Name: tr.Name,
			To:   tr.To.Name,
		})
	}
	return out, nil
}

// TransitionIssue applies a transition (by ID) to an issue.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	if _, err := c.jc.Issue.DoTransitionWithContext(ctx, key, transitionID); err != nil {
		return opErr(fmt.Sprintf("transition issue %s", key), err)
	}
	return nil
}

func (c *Client) convertIssue(issue *jira.Issue) Issue {
	out := Issue{
		Key: issue.Key,
		URL: c.baseURL + "/browse/" + issue.Key,
	}
	f := issue.Fields
	if f == nil {
		return out
	}
	out.Summary = f.Summary
	out.Description = f.Description
	out.Type = f.Type.Name
	if f.Status != nil {
		out.Status = f.Status.Name
	}
	if f.Priority != nil {
		out.Priority = f.Priority.Name
	}
	if f.Assignee != nil {
		out.Assignee = f.Assignee.DisplayName
	}
	if f.Reporter != nil {
		out.Reporter = f.Reporter.DisplayName
	}
	if created := time.Time(f.Created); !created.IsZero() {
		out.Created = created.Format("2006-01-02 15:04")
	}
	return out
}
