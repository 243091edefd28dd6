package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub REST API for the operations the toolkit needs.
// All methods return plain result structs and convert SDK failures into
// *Error values; callers never have to handle go-github types.
type Client struct {
	gh *github.Client
}

// Error is the generic failure kind for GitHub operations. The underlying
// SDK error text is preserved in the message.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("github: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient creates a GitHub client authenticated with a personal access
// token. Construction performs no network calls.
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{gh: github.NewClient(tc)}
}

// NewEnterpriseClient creates a client for a GitHub Enterprise Server
// instance. baseURL is the root of the instance, for example
// "https://github.example.com"; the SDK derives the API paths from it.
func NewEnterpriseClient(baseURL, token string) (*Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	gh, err := github.NewClient(tc).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, opErr("configure enterprise endpoint", err)
	}
	return &Client{gh: gh}, nil
}

// Repo describes a repository.
type Repo struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description,omitempty"`
	Private     bool   `json:"private"`
	Fork        bool   `json:"fork"`
	Stars       int    `json:"stars"`
	URL         string `json:"url"`
}

// Branch describes a repository branch.
type Branch struct {
	Name      string `json:"name"`
	SHA       string `json:"sha"`
	Protected bool   `json:"protected"`
}

// Issue describes an issue.
type Issue struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	State  string   `json:"state"`
	User   string   `json:"user,omitempty"`
	Labels []string `json:"labels,omitempty"`
	URL    string   `json:"url"`
}

// PullRequest describes a pull request.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   string `json:"user,omitempty"`
	Head   string `json:"head"`
	Base   string `json:"base"`
	URL    string `json:"url"`
}

// Package describes a published package.
type Package struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Visibility string `json:"visibility,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Tag describes a repository tag.
type Tag struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Release describes a published release.
type Release struct {
	Tag         string `json:"tag"`
	Name        string `json:"name,omitempty"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
	PublishedAt string `json:"published_at,omitempty"`
	URL         string `json:"url"`
}

// CommitResult describes the commit produced by a file update.
type CommitResult struct {
	Path      string `json:"path"`
	SHA       string `json:"sha"`
	CommitSHA string `json:"commit_sha"`
	Branch    string `json:"branch,omitempty"`
}

// UserRepos lists the repositories owned by a user. An empty user lists the
// repositories of the authenticated account.
func (c *Client) UserRepos(ctx context.Context, user string) ([]Repo, error) {
	var all []Repo
	opts := &github.RepositoryListByUserOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if user == "" {
		authOpts := &github.RepositoryListByAuthenticatedUserOptions{
			ListOptions: github.ListOptions{PerPage: 100},
		}
		for {
			repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, authOpts)
			if err != nil {
				return nil, opErr("list repositories", err)
			}
			for _, r := range repos {
				all = append(all, convertRepo(r))
			}
			if resp.NextPage == 0 {
				break
			}
			authOpts.Page = resp.NextPage
		}
		return all, nil
	}
	for {
		repos, resp, err := c.gh.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list repositories for user %s", user), err)
		}
		for _, r := range repos {
			all = append(all, convertRepo(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// OrgRepos lists the repositories of an organization.
func (c *Client) OrgRepos(ctx context.Context, org string) ([]Repo, error) {
	var all []Repo
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list repositories for org %s", org), err)
		}
		for _, r := range repos {
			all = append(all, convertRepo(r))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateRepo creates a repository. An empty org creates it under the
// authenticated user.
func (c *Client) CreateRepo(ctx context.Context, org, name, description string, private bool) (*Repo, error) {
	repo := &github.Repository{
		Name:        github.Ptr(name),
		Description: github.Ptr(description),
		Private:     github.Ptr(private),
	}
	created, _, err := c.gh.Repositories.Create(ctx, org, repo)
	if err != nil {
		return nil, opErr(fmt.Sprintf("create repository %s", name), err)
	}
	r := convertRepo(created)
	return &r, nil
}

// DeleteRepo deletes a repository.
func (c *Client) DeleteRepo(ctx context.Context, owner, name string) error {
	if _, err := c.gh.Repositories.Delete(ctx, owner, name); err != nil {
		return opErr(fmt.Sprintf("delete repository %s/%s", owner, name), err)
	}
	return nil
}

// Branches lists the branches of a repository.
func (c *Client) Branches(ctx context.Context, owner, repo string) ([]Branch, error) {
	var all []Branch
	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list branches for %s/%s", owner, repo), err)
		}
		for _, b := range branches {
			all = append(all, Branch{
				Name:      b.GetName(),
				SHA:       b.GetCommit().GetSHA(),
				Protected: b.GetProtected(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// Issues lists issues of a repository filtered by state ("open", "closed",
// "all"; empty means open).
func (c *Client) Issues(ctx context.Context, owner, repo, state string) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	var all []Issue
	opts := &github.IssueListByRepoOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list issues for %s/%s", owner, repo), err)
		}
		for _, is := range issues {
			// Pull requests show up in the issues API; skip them here.
			if is.IsPullRequest() {
				continue
			}
			all = append(all, convertIssue(is))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}
	return all, nil
}

// CreateIssue opens an issue.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (*Issue, error) {
	req := &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	created, _, err := c.gh.Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return nil, opErr(fmt.Sprintf("create issue in %s/%s", owner, repo), err)
	}
	is := convertIssue(created)
	return &is, nil
}

// UpdateFile creates or updates a file on a branch with a single commit.
// When the file already exists, its blob SHA is resolved first so the
// contents API accepts the update.
func (c *Client) UpdateFile(ctx context.Context, owner, repo, path, branch, message string, content []byte) (*CommitResult, error) {
	fileOpts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}
	if branch != "" {
		fileOpts.Branch = github.Ptr(branch)
	}

	getOpts := &github.RepositoryContentGetOptions{Ref: branch}
	existing, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, getOpts)
	switch {
	case err == nil && existing != nil:
		fileOpts.SHA = github.Ptr(existing.GetSHA())
	case resp != nil && resp.StatusCode == 404:
		// New file; create it below.
	case err != nil:
		return nil, opErr(fmt.Sprintf("resolve %s in %s/%s", path, owner, repo), err)
	}

	var result *github.RepositoryContentResponse
	if fileOpts.SHA != nil {
		result, _, err = c.gh.Repositories.UpdateFile(ctx, owner, repo, path, fileOpts)
	} else {
		result, _, err = c.gh.Repositories.CreateFile(ctx, owner, repo, path, fileOpts)
	}
	if err != nil {
		return nil, opErr(fmt.Sprintf("update %s in %s/%s", path, owner, repo), err)
	}

	return &CommitResult{
		Path:      path,
		SHA:       result.GetContent().GetSHA(),
		CommitSHA: result.GetSHA(),
		Branch:    branch,
	}, nil
}

// PullRequests lists pull requests filtered by state ("open", "closed",
// "all"; empty means open).
func (c *Client) PullRequests(ctx context.Context, owner, repo, state string) ([]PullRequest, error) {
	if state == "" {
		state = "open"
	}
	var all []PullRequest
	opts := &github.PullRequestListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list pull requests for %s/%s", owner, repo), err)
		}
		for _, pr := range prs {
			all = append(all, convertPullRequest(pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreatePullRequest opens a pull request from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (*PullRequest, error) {
	created, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	})
	if err != nil {
		return nil, opErr(fmt.Sprintf("create pull request in %s/%s", owner, repo), err)
	}
	pr := convertPullRequest(created)
	return &pr, nil
}

// Packages lists an organization's packages of the given type (defaults to
// "container").
func (c *Client) Packages(ctx context.Context, org, packageType string) ([]Package, error) {
	if packageType == "" {
		packageType = "container"
	}
	var all []Package
	opts := &github.PackageListOptions{
		PackageType: github.Ptr(packageType),
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		pkgs, resp, err := c.gh.Organizations.ListPackages(ctx, org, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list packages for org %s", org), err)
		}
		for _, p := range pkgs {
			all = append(all, Package{
				Name:       p.GetName(),
				Type:       p.GetPackageType(),
				Visibility: p.GetVisibility(),
				URL:        p.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// Tags lists the tags of a repository.
func (c *Client) Tags(ctx context.Context, owner, repo string) ([]Tag, error) {
	var all []Tag
	opts := &github.ListOptions{PerPage: 100}
	for {
		tags, resp, err := c.gh.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list tags for %s/%s", owner, repo), err)
		}
		for _, tag := range tags {
			all = append(all, Tag{
				Name: tag.GetName(),
				SHA:  tag.GetCommit().GetSHA(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// Releases lists the releases of a repository.
func (c *Client) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	var all []Release
	opts := &github.ListOptions{PerPage: 100}
	for {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, opErr(fmt.Sprintf("list releases for %s/%s", owner, repo), err)
		}
		for _, rel := range releases {
			r := Release{
				Tag:        rel.GetTagName(),
				Name:       rel.GetName(),
				Draft:      rel.GetDraft(),
				Prerelease: rel.GetPrerelease(),
				URL:        rel.GetHTMLURL(),
			}
			if ts := rel.GetPublishedAt(); !ts.IsZero() {
				r.PublishedAt = ts.Format("2006-01-02T15:04:05Z")
			}
			all = append(all, r)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func convertRepo(r *github.Repository) Repo {
	return Repo{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Private:     r.GetPrivate(),
		Fork:        r.GetFork(),
		Stars:       r.GetStargazersCount(),
		URL:         r.GetHTMLURL(),
	}
}

func convertIssue(is *github.Issue) Issue {
	out := Issue{
		Number: is.GetNumber(),
		Title:  is.GetTitle(),
		State:  is.GetState(),
		User:   is.GetUser().GetLogin(),
		URL:    is.GetHTMLURL(),
	}
	for _, l := range is.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}
	return out
}

func convertPullRequest(pr *github.PullRequest) PullRequest {
	return PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		State:  pr.GetState(),
		User:   pr.GetUser().GetLogin(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
		URL:    pr.GetHTMLURL(),
	}
}
