package plugin

import (
	"context"

	"opskit/internal/brew"
	"opskit/internal/compose"
	"opskit/internal/confluence"
	"opskit/internal/docker"
	"opskit/internal/github"
	"opskit/internal/google"
	"opskit/internal/jira"
	"opskit/internal/kube"
	"opskit/internal/opensearch"
	"opskit/internal/postgres"
	"opskit/internal/ssh"
)

// Facade is the capability surface plugins program against. It is
// implemented by the client facade; declaring it here keeps concrete
// plugins dependent on this package only.
//
// Capability accessors construct lazily on first use and return the cached
// instance afterwards. SSH and Compose are the exceptions: both target
// caller-supplied endpoints, so every call builds a fresh client.
type Facade interface {
	GitHub() (*github.Client, error)
	Jira() (*jira.Client, error)
	Confluence() (*confluence.Client, error)
	Docker() (*docker.Client, error)
	Kubernetes() (*kube.Client, error)
	OpenSearch() (*opensearch.Client, error)
	Postgres() (*postgres.Client, error)
	Docs(ctx context.Context) (*google.DocsClient, error)
	Sheets(ctx context.Context) (*google.SheetsClient, error)
	Brew() *brew.Client
	SSH(host string, opts ssh.Options) (*ssh.Client, error)
	Compose(opts compose.Options) *compose.Client

	// RegisterExtension stores an auxiliary object under a unique name.
	// Registering an already-taken name fails.
	RegisterExtension(name string, ext any) error

	// Extension looks up a registered extension. The second return value
	// reports whether the name is known; lookup itself never fails.
	Extension(name string) (any, bool)

	// Extensions returns the registered extension names, sorted.
	Extensions() []string
}
