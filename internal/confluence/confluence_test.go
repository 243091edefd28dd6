package confluence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goconfluence "github.com/virtomize/confluence-go-api"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient("https://acme.atlassian.net/wiki/", "user@acme.org", "token")
	require.NoError(t, err)
	return c
}

func TestNewClientBaseURL(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, "https://acme.atlassian.net/wiki", c.baseURL)

	// An endpoint that already carries the API suffix is kept as is.
	c2, err := NewClient("https://acme.atlassian.net/wiki/rest/api", "user@acme.org", "token")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.atlassian.net/wiki/rest/api", c2.baseURL)
}

func TestConvertContent(t *testing.T) {
	c := newTestClient(t)

	content := &goconfluence.Content{
		ID:    "12345",
		Type:  "page",
		Title: "Runbook",
		Space: &goconfluence.Space{Key: "OPS"},
		Body: goconfluence.Body{
			Storage: goconfluence.Storage{
				Value:          "<p>hello</p>",
				Representation: "storage",
			},
		},
		Version: &goconfluence.Version{Number: 4},
	}

	page := c.convertContent(content, true)
	assert.Equal(t, "12345", page.ID)
	assert.Equal(t, "Runbook", page.Title)
	assert.Equal(t, "OPS", page.Space)
	assert.Equal(t, 4, page.Version)
	assert.Equal(t, "<p>hello</p>", page.Body)
	assert.Equal(t, "https://acme.atlassian.net/wiki/pages/viewpage.action?pageId=12345", page.URL)

	// Without the body flag the storage value stays out of the result.
	page = c.convertContent(content, false)
	assert.Empty(t, page.Body)
}

func TestConvertContentSparse(t *testing.T) {
	c := newTestClient(t)

	page := c.convertContent(&goconfluence.Content{ID: "9", Title: "Bare"}, true)
	assert.Equal(t, "9", page.ID)
	assert.Empty(t, page.Space)
	assert.Zero(t, page.Version)
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate(
		"<h1>{{ .title | upper }}</h1><p>{{ .owner | default \"nobody\" }}</p>",
		map[string]any{"title": "weekly report", "owner": ""},
	)
	require.NoError(t, err)
	assert.Equal(t, "<h1>WEEKLY REPORT</h1><p>nobody</p>", out)
}

func TestRenderTemplateMissingVariable(t *testing.T) {
	_, err := RenderTemplate("{{ .missing }}", map[string]any{})
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "render template", cerr.Op)
}

func TestRenderTemplateParseError(t *testing.T) {
	_, err := RenderTemplate("{{ .unclosed", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confluence: parse template")
}

func TestErrorFormatting(t *testing.T) {
	underlying := errors.New("404 not found")
	err := opErr("get page 12345", underlying)

	assert.EqualError(t, err, "confluence: get page 12345: 404 not found")

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "get page 12345", cerr.Op)
	assert.ErrorIs(t, err, underlying)
}
