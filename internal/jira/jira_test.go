package jira

import (
	"errors"
	"testing"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient("https://jira.example.com/", "bot", "token")
	require.NoError(t, err)
	return c
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, "https://jira.example.com", c.baseURL)
}

func TestConvertIssue(t *testing.T) {
	c := newTestClient(t)
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	issue := &jira.Issue{
		Key: "OPS-17",
		Fields: &jira.IssueFields{
			Summary:     "database failover drill",
			Description: "quarterly drill",
			Type:        jira.IssueType{Name: "Task"},
			Status:      &jira.Status{Name: "In Progress"},
			Priority:    &jira.Priority{Name: "High"},
			Assignee:    &jira.User{DisplayName: "Sam Ops"},
			Reporter:    &jira.User{DisplayName: "Dana Dev"},
			Created:     jira.Time(created),
		},
	}

	got := c.convertIssue(issue)

	assert.Equal(t, "OPS-17", got.Key)
	assert.Equal(t, "database failover drill", got.Summary)
	assert.Equal(t, "In Progress", got.Status)
	assert.Equal(t, "Task", got.Type)
	assert.Equal(t, "High", got.Priority)
	assert.Equal(t, "Sam Ops", got.Assignee)
	assert.Equal(t, "Dana Dev", got.Reporter)
	assert.Equal(t, "2025-03-14 09:30", got.Created)
	assert.Equal(t, "https://jira.example.com/browse/OPS-17", got.URL)
}

func TestConvertIssueWithoutFields(t *testing.T) {
	c := newTestClient(t)

	got := c.convertIssue(&jira.Issue{Key: "OPS-1"})

	assert.Equal(t, "OPS-1", got.Key)
	assert.Empty(t, got.Summary)
	assert.Empty(t, got.Status)
}

func TestErrorFormatting(t *testing.T) {
	underlying := errors.New("401 unauthorized")
	err := opErr("get issue OPS-17", underlying)

	assert.EqualError(t, err, "jira: get issue OPS-17: 401 unauthorized")

	var jiraErr *Error
	assert.True(t, errors.As(err, &jiraErr))
	assert.ErrorIs(t, err, underlying)
}
