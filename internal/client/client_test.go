package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opskit/internal/compose"
)

func fullConfig() Config {
	return Config{
		GitHubToken:        "gh-abc",
		JiraURL:            "https://jira.example.com",
		JiraUsername:       "ops",
		JiraToken:          "jira-token",
		ConfluenceURL:      "https://wiki.example.com",
		ConfluenceUsername: "ops",
		ConfluenceToken:    "wiki-token",
	}
}

func TestCapabilityCachedIdentity(t *testing.T) {
	c := New(fullConfig())

	gh1, err := c.GitHub()
	require.NoError(t, err)
	gh2, err := c.GitHub()
	require.NoError(t, err)
	assert.Same(t, gh1, gh2)

	j1, err := c.Jira()
	require.NoError(t, err)
	j2, err := c.Jira()
	require.NoError(t, err)
	assert.Same(t, j1, j2)

	w1, err := c.Confluence()
	require.NoError(t, err)
	w2, err := c.Confluence()
	require.NoError(t, err)
	assert.Same(t, w1, w2)
}

func TestMissingConfigFailsBeforeConstruction(t *testing.T) {
	c := New(Config{})

	_, err := c.GitHub()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "github", cfgErr.Capability)
	assert.Equal(t, []string{"github_token"}, cfgErr.Missing)

	// Nothing was constructed or cached; the next access re-validates.
	assert.Empty(t, c.cache)
	_, err = c.GitHub()
	assert.True(t, IsConfiguration(err))
}

func TestMissingConfigListsEveryAbsentField(t *testing.T) {
	c := New(Config{JiraURL: "https://jira.example.com"})

	_, err := c.Jira()

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "jira", cfgErr.Capability)
	assert.Equal(t, []string{"jira_username", "jira_token"}, cfgErr.Missing)
}

func TestPostgresInvalidPort(t *testing.T) {
	c := New(Config{
		PostgresHost:     "db.example.com",
		PostgresUser:     "ops",
		PostgresDatabase: "app",
		PostgresPort:     "not-a-port",
	})

	_, err := c.Postgres()

	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Contains(t, err.Error(), `invalid postgres_port "not-a-port"`)
	assert.Empty(t, c.cache)
}

func TestBrewSharedAndComposePerCall(t *testing.T) {
	c := New(Config{})

	assert.Same(t, c.Brew(), c.Brew())

	opts := compose.Options{Dir: "/srv/logging"}
	assert.NotSame(t, c.Compose(opts), c.Compose(opts))
}

func TestRegisterExtensionDuplicate(t *testing.T) {
	c := New(Config{})

	first := &struct{ name string }{name: "first"}
	require.NoError(t, c.RegisterExtension("metrics", first))

	err := c.RegisterExtension("metrics", &struct{ name string }{name: "second"})
	require.Error(t, err)
	assert.True(t, IsDuplicateExtension(err))

	var dupErr *DuplicateExtensionError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "metrics", dupErr.Name)

	// The first registration stays retrievable.
	got, exists := c.Extension("metrics")
	require.True(t, exists)
	assert.Same(t, any(first), got)
}

func TestExtensionLookupMiss(t *testing.T) {
	c := New(Config{})

	_, exists := c.Extension("ghost")
	assert.False(t, exists)
}

func TestExtensionsSorted(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.RegisterExtension("zeta", 1))
	require.NoError(t, c.RegisterExtension("alpha", 2))

	assert.Equal(t, []string{"alpha", "zeta"}, c.Extensions())
}

func TestLoadConfigFileReplacesWholesale(t *testing.T) {
	c := New(Config{GitHubToken: "old-token", JiraURL: "https://jira.example.com"})

	gh1, err := c.GitHub()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("github_token: new-token\n"), 0o644))
	require.NoError(t, c.LoadConfigFile(path))

	// Replacement is wholesale: fields absent from the file are cleared.
	cfg := c.Config()
	assert.Equal(t, "new-token", cfg.GitHubToken)
	assert.Empty(t, cfg.JiraURL)

	// Already-constructed capabilities are unaffected.
	gh2, err := c.GitHub()
	require.NoError(t, err)
	assert.Same(t, gh1, gh2)
}

func TestLoadConfigFileBadFileKeepsConfig(t *testing.T) {
	c := New(Config{GitHubToken: "keep"})

	err := c.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.Equal(t, "keep", c.Config().GitHubToken)
}

func TestConfigurationErrorFormatting(t *testing.T) {
	err := NewConfigurationError("jira", "jira_url", "jira_token")
	assert.EqualError(t, err, "missing configuration for jira: jira_url, jira_token")

	custom := &ConfigurationError{Capability: "postgres", Message: "invalid postgres_port \"x\": not a number"}
	assert.EqualError(t, custom, "invalid postgres_port \"x\": not a number")
}

func TestDuplicateExtensionErrorFormatting(t *testing.T) {
	err := &DuplicateExtensionError{Name: "metrics"}
	assert.EqualError(t, err, "extension metrics already registered")
}
