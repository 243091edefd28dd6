package confluence

import (
	"fmt"
	"strings"

	goconfluence "github.com/virtomize/confluence-go-api"
)

// Client wraps the Confluence REST API. Results come back as plain structs
// and all SDK failures surface as *Error.
type Client struct {
	api     *goconfluence.API
	baseURL string
}

// Error is the generic failure kind for Confluence operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("confluence: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient creates a Confluence client using basic auth (username + API
// token). baseURL is the wiki root, e.g. https://acme.atlassian.net/wiki.
func NewClient(baseURL, username, token string) (*Client, error) {
	base := strings.TrimRight(baseURL, "/")
	endpoint := base
	if !strings.HasSuffix(endpoint, "/rest/api") {
		endpoint += "/rest/api"
	}
	api, err := goconfluence.NewAPI(endpoint, username, token)
	if err != nil {
		return nil, opErr("create client", err)
	}
	return &Client{api: api, baseURL: base}, nil
}

// Page describes a wiki page.
type Page struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Space   string `json:"space,omitempty"`
	Version int    `json:"version,omitempty"`
	Body    string `json:"body,omitempty"`
	URL     string `json:"url"`
}

// SearchHit is a single CQL search result.
type SearchHit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Type    string `json:"type,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	URL     string `json:"url"`
}

// Space describes a Confluence space.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// CreatePage creates a page in a space. parentID may be empty for a
// top-level page. body is Confluence storage format.
func (c *Client) CreatePage(space, title, body, parentID string) (*Page, error) {
	data := &goconfluence.Content{
		Type:  "page",
		Title: title,
		Space: &goconfluence.Space{Key: space},
		Body: goconfluence.Body{
			Storage: goconfluence.Storage{
				Value:          body,
				Representation: "storage",
			},
		},
	}
	if parentID != "" {
		data.Ancestors = []goconfluence.Ancestor{{ID: parentID}}
	}
	created, err := c.api.CreateContent(data)
	if err != nil {
		return nil, opErr(fmt.Sprintf("create page %q in space %s", title, space), err)
	}
	p := c.convertContent(created, false)
	return &p, nil
}

// Page fetches a page by ID including its storage-format body.
func (c *Client) Page(id string) (*Page, error) {
	content, err := c.api.GetContentByID(id, goconfluence.ContentQuery{
		Expand: []string{"body.storage", "version", "space"},
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("get page %s", id), err)
	}
	p := c.convertContent(content, true)
	return &p, nil
}

// PageByTitle finds a page by exact title within a space.
func (c *Client) PageByTitle(space, title string) (*Page, error) {
	res, err := c.api.GetContent(goconfluence.ContentQuery{
		SpaceKey: space,
		Title:    title,
		Type:     "page",
		Expand:   []string{"version", "space"},
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("find page %q in space %s", title, space), err)
	}
	if len(res.Results) == 0 {
		return nil, opErr(fmt.Sprintf("find page %q in space %s", title, space), fmt.Errorf("no page with that title"))
	}
	p := c.convertContent(&res.Results[0], false)
	return &p, nil
}

// UpdatePage replaces a page's title and body, bumping the version. The
// current version is fetched first so the update applies cleanly.
func (c *Client) UpdatePage(id, title, body string) (*Page, error) {
	current, err := c.api.GetContentByID(id, goconfluence.ContentQuery{
		Expand: []string{"version", "space"},
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("get page %s", id), err)
	}

	version := 1
	if current.Version != nil {
		version = current.Version.Number + 1
	}
	if title == "" {
		title = current.Title
	}

	data := &goconfluence.Content{
		ID:    id,
		Type:  "page",
		Title: title,
		Body: goconfluence.Body{
			Storage: goconfluence.Storage{
				Value:          body,
				Representation: "storage",
			},
		},
		Version: &goconfluence.Version{Number: version},
	}
	if current.Space != nil {
		data.Space = current.Space
	}

	updated, err := c.api.UpdateContent(data)
	if err != nil {
		return nil, opErr(fmt.Sprintf("update page %s", id), err)
	}
	p := c.convertContent(updated, false)
	return &p, nil
}

// DeletePage deletes a page by ID.
func (c *Client) DeletePage(id string) error {
	if _, err := c.api.DelContent(id); err != nil {
		return opErr(fmt.Sprintf("delete page %s", id), err)
	}
	return nil
}

// Search runs a CQL query, returning at most limit hits (25 when zero).
func (c *Client) Search(cql string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 25
	}
	res, err := c.api.Search(goconfluence.SearchQuery{
		CQL:   cql,
		Limit: limit,
	})
	if err != nil {
		return nil, opErr("search", err)
	}
	hits := make([]SearchHit, 0, len(res.Results))
	for _, r := range res.Results {
		hits = append(hits, SearchHit{
			ID:      r.Content.ID,
			Title:   r.Content.Title,
			Type:    r.Content.Type,
			Excerpt: r.Excerpt,
			URL:     c.pageURL(r.Content.ID),
		})
	}
	return hits, nil
}

// SpaceContent lists the pages of a space, at most limit entries (25 when
// zero).
func (c *Client) SpaceContent(space string, limit int) ([]Page, error) {
	if limit <= 0 {
		limit = 25
	}
	res, err := c.api.GetContent(goconfluence.ContentQuery{
		SpaceKey: space,
		Type:     "page",
		Limit:    limit,
		Expand:   []string{"version", "space"},
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("list content of space %s", space), err)
	}
	pages := make([]Page, 0, len(res.Results))
	for i := range res.Results {
		pages = append(pages, c.convertContent(&res.Results[i], false))
	}
	return pages, nil
}

// SpaceInfo returns metadata about a space.
func (c *Client) SpaceInfo(space string) (*Space, error) {
	res, err := c.api.GetAllSpaces(goconfluence.AllSpacesQuery{
		SpaceKey: space,
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("get space %s", space), err)
	}
	for _, s := range res.Results {
		if s.Key == space {
			return &Space{Key: s.Key, Name: s.Name, Type: s.Type}, nil
		}
	}
	return nil, opErr(fmt.Sprintf("get space %s", space), fmt.Errorf("space not found"))
}

func (c *Client) convertContent(content *goconfluence.Content, includeBody bool) Page {
	p := Page{
		ID:    content.ID,
		Title: content.Title,
		URL:   c.pageURL(content.ID),
	}
	if content.Space != nil {
		p.Space = content.Space.Key
	}
	if content.Version != nil {
		p.Version = content.Version.Number
	}
	if includeBody {
		p.Body = content.Body.Storage.Value
	}
	return p
}

func (c *Client) pageURL(id string) string {
	if id == "" {
		return ""
	}
	return c.baseURL + "/pages/viewpage.action?pageId=" + id
}
