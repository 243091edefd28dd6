package client

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"opskit/internal/brew"
	"opskit/internal/compose"
	"opskit/internal/confluence"
	"opskit/internal/docker"
	"opskit/internal/github"
	"opskit/internal/google"
	"opskit/internal/jira"
	"opskit/internal/kube"
	"opskit/internal/opensearch"
	"opskit/internal/plugin"
	"opskit/internal/postgres"
	"opskit/internal/ssh"
	"opskit/pkg/logging"
)

// Client is the unified facade. It owns the configuration, the lazily
// constructed capability cache, and the extension registry. All methods
// are safe for concurrent use.
type Client struct {
	mu     sync.Mutex
	config Config
	cache  map[string]any
	brew   *brew.Client

	extMu      sync.RWMutex
	extensions map[string]any

	// configDir is where manifests (extensions.d, plugins.d) live.
	// Empty means resolve DefaultConfigDir on first use.
	configDir string

	// discoveryMu serializes LoadExtensions and LoadPlugins, which track
	// already-loaded module names across calls.
	discoveryMu      sync.Mutex
	loadedExtensions map[string]struct{}
	loadedPlugins    map[string]struct{}
}

// Compile-time check that the facade satisfies the plugin contract.
var _ plugin.Facade = (*Client)(nil)

// New creates a facade with the given configuration.
func New(cfg Config) *Client {
	return &Client{
		config:           cfg,
		cache:            make(map[string]any),
		brew:             brew.NewClient(),
		extensions:       make(map[string]any),
		loadedExtensions: make(map[string]struct{}),
		loadedPlugins:    make(map[string]struct{}),
	}
}

// Config returns a copy of the current configuration.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// LoadConfigFile parses the file at path and replaces the stored
// configuration wholesale. Capabilities constructed before the call keep
// the configuration they were built with.
func (c *Client) LoadConfigFile(path string) error {
	cfg, err := ParseConfigFile(path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()

	logging.Info("config", "loaded configuration from %s", path)
	return nil
}

// ExportConfig writes every non-empty configuration field to the process
// environment under its canonical variable name. Unset fields produce no
// entry. Used to propagate settings to child processes, such as the
// compose stack reading OPENSEARCH_INITIAL_ADMIN_PASSWORD.
func (c *Client) ExportConfig() error {
	c.mu.Lock()
	cfg := c.config
	c.mu.Unlock()

	for _, f := range configFields {
		v := f.get(&cfg)
		if v == "" {
			continue
		}
		if err := os.Setenv(f.env, v); err != nil {
			return fmt.Errorf("failed to export %s: %w", f.env, err)
		}
	}
	return nil
}

// cached returns the capability stored under name, constructing and
// storing it on first use. Construction failures are not cached; the next
// access retries.
func (c *Client) cached(name string, build func() (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if inst, exists := c.cache[name]; exists {
		return inst, nil
	}

	inst, err := build()
	if err != nil {
		return nil, err
	}
	c.cache[name] = inst

	logging.Debug("client", "constructed %s capability", name)
	return inst, nil
}

// required pairs a configuration field name with its current value.
type required struct {
	field string
	value string
}

// checkRequired fails with a ConfigurationError listing every unset field.
func checkRequired(capability string, reqs ...required) error {
	var missing []string
	for _, r := range reqs {
		if r.value == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return NewConfigurationError(capability, missing...)
	}
	return nil
}

// GitHub returns the GitHub capability.
func (c *Client) GitHub() (*github.Client, error) {
	inst, err := c.cached("github", func() (any, error) {
		if err := checkRequired("github",
			required{"github_token", c.config.GitHubToken},
		); err != nil {
			return nil, err
		}
		return github.NewClient(c.config.GitHubToken), nil
	})
	if err != nil {
		return nil, err
	}
	return inst.(*github.Client), nil
}

// Jira returns the Jira capability.
func (c *Client) Jira() (*jira.Client, error) {
	inst, err := c.cached("jira", func() (any, error) {
		if err := checkRequired("jira",
			required{"jira_url", c.config.JiraURL},
			required{"jira_username", c.config.JiraUsername},
			required{"jira_token", c.config.JiraToken},
		); err != nil {
			return nil, err
		}
		return jira.NewClient(c.config.JiraURL, c.config.JiraUsername, c.config.JiraToken)
	})
	if err != nil {
		return nil, err
	}
	return inst.(*jira.Client), nil
}

// Confluence returns the Confluence capability.
func (c *Client) Confluence() (*confluence.Client, error) {
	inst, err := c.cached("confluence", func() (any, error) {
		if err := checkRequired("confluence",
			required{"confluence_url", c.config.ConfluenceURL},
			required{"confluence_username", c.config.ConfluenceUsername},
			required{"confluence_token", c.config.ConfluenceToken},
		); err != nil {
			return nil, err
		}
		return confluence.NewClient(c.config.ConfluenceURL, c.config.ConfluenceUsername, c.config.ConfluenceToken)
	})
	if err != nil {
		return nil, err
	}
	return inst.(*confluence.Client), nil
}

// Docker returns the Docker capability. It needs no configuration; the
// client talks to the ambient daemon.
func (c *Client) Docker() (*docker.Client, error) {
	inst, err := c.cached("docker", func() (any, error) {
		return docker.NewClient()
	})
	if err != nil {
		return nil, err
	}
	return inst.(*docker.Client), nil
}

// Kubernetes returns the Kubernetes capability, built from the configured
// kubeconfig path and context (both optional; defaults follow kubeconfig
// conventions).
func (c *Client) Kubernetes() (*kube.Client, error) {
	inst, err := c.cached("kubernetes", func() (any, error) {
		return kube.NewClient(c.config.KubeConfigPath, c.config.KubeContext)
	})
	if err != nil {
		return nil, err
	}
	return inst.(*kube.Client), nil
}

// OpenSearch returns the OpenSearch capability. URL and username default
// to the local development stack (https://localhost:9200, admin).
func (c *Client) OpenSearch() (*opensearch.Client, error) {
	inst, err := c.cached("opensearch", func() (any, error) {
		if err := checkRequired("opensearch",
			required{"opensearch_initial_admin_password", c.config.OpenSearchInitialAdminPassword},
		); err != nil {
			return nil, err
		}
		url := c.config.OpenSearchURL
		if url == "" {
			url = "https://localhost:9200"
		}
		username := c.config.OpenSearchUsername
		if username == "" {
			username = "admin"
		}
		return opensearch.NewClient(url, username, c.config.OpenSearchInitialAdminPassword)
	})
	if err != nil {
		return nil, err
	}
	return inst.(*opensearch.Client), nil
}

// Postgres returns the PostgreSQL capability.
func (c *Client) Postgres() (*postgres.Client, error) {
	inst, err := c.cached("postgres", func() (any, error) {
		if err := checkRequired("postgres",
			required{"postgres_host", c.config.PostgresHost},
			required{"postgres_user", c.config.PostgresUser},
			required{"postgres_database", c.config.PostgresDatabase},
		); err != nil {
			return nil, err
		}

		port := 0
		if c.config.PostgresPort != "" {
			p, err := strconv.Atoi(c.config.PostgresPort)
			if err != nil {
				return nil, &ConfigurationError{
					Capability: "postgres",
					Message:    fmt.Sprintf("invalid postgres_port %q: not a number", c.config.PostgresPort),
				}
			}
			port = p
		}

		return postgres.NewClient(postgres.Config{
			Host:     c.config.PostgresHost,
			Port:     port,
			User:     c.config.PostgresUser,
			Password: c.config.PostgresPassword,
			Database: c.config.PostgresDatabase,
			SSLMode:  c.config.PostgresSSLMode,
		})
	})
	if err != nil {
		return nil, err
	}
	return inst.(*postgres.Client), nil
}

// Docs returns the Google Docs capability.
func (c *Client) Docs(ctx context.Context) (*google.DocsClient, error) {
	inst, err := c.cached("docs", func() (any, error) {
		if err := checkRequired("google",
			required{"google_credentials_file", c.config.GoogleCredentialsFile},
		); err != nil {
			return nil, err
		}
		return google.NewDocsClient(ctx, c.config.GoogleCredentialsFile)
	})
	if err != nil {
		return nil, err
	}
	return inst.(*google.DocsClient), nil
}

// Sheets returns the Google Sheets capability.
func (c *Client) Sheets(ctx context.Context) (*google.SheetsClient, error) {
	inst, err := c.cached("sheets", func() (any, error) {
		if err := checkRequired("google",
			required{"google_credentials_file", c.config.GoogleCredentialsFile},
		); err != nil {
			return nil, err
		}
		return google.NewSheetsClient(ctx, c.config.GoogleCredentialsFile)
	})
	if err != nil {
		return nil, err
	}
	return inst.(*google.SheetsClient), nil
}

// Brew returns the Homebrew capability.
func (c *Client) Brew() *brew.Client {
	return c.brew
}

// SSH builds a connection to host. Unlike the other capabilities it is
// never cached: every call dials the given host fresh.
func (c *Client) SSH(host string, opts ssh.Options) (*ssh.Client, error) {
	return ssh.NewClient(host, opts)
}

// Compose returns a compose client for the project described by opts.
// Like SSH it is per-call; projects differ per invocation.
func (c *Client) Compose(opts compose.Options) *compose.Client {
	return compose.NewClient(opts)
}

// RegisterExtension stores ext under name. The name must be unused;
// collisions fail with DuplicateExtensionError and leave the first
// registration in place.
func (c *Client) RegisterExtension(name string, ext any) error {
	c.extMu.Lock()
	defer c.extMu.Unlock()

	if _, exists := c.extensions[name]; exists {
		return &DuplicateExtensionError{Name: name}
	}
	c.extensions[name] = ext

	logging.Debug("client", "registered extension %s", name)
	return nil
}

// Extension looks up a registered extension by name.
func (c *Client) Extension(name string) (any, bool) {
	c.extMu.RLock()
	defer c.extMu.RUnlock()

	ext, exists := c.extensions[name]
	return ext, exists
}

// Extensions returns the registered extension names, sorted.
func (c *Client) Extensions() []string {
	c.extMu.RLock()
	defer c.extMu.RUnlock()

	names := make([]string, 0, len(c.extensions))
	for name := range c.extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
