package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/opskit"
	configFileName = "config.yaml"
)

// Config is the flat record of settings for every capability. All fields
// are optional strings; a capability's accessor checks its own required
// subset at construction time.
type Config struct {
	GitHubToken string `yaml:"github_token"`

	JiraURL      string `yaml:"jira_url"`
	JiraUsername string `yaml:"jira_username"`
	JiraToken    string `yaml:"jira_token"`

	ConfluenceURL      string `yaml:"confluence_url"`
	ConfluenceUsername string `yaml:"confluence_username"`
	ConfluenceToken    string `yaml:"confluence_token"`

	GoogleCredentialsFile string `yaml:"google_credentials_file"`

	KubeConfigPath string `yaml:"kube_config_path"`
	KubeContext    string `yaml:"kube_context"`

	OpenSearchURL                  string `yaml:"opensearch_url"`
	OpenSearchUsername             string `yaml:"opensearch_username"`
	OpenSearchInitialAdminPassword string `yaml:"opensearch_initial_admin_password"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDatabase string `yaml:"postgres_database"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
}

// configField binds one Config field to its yaml key and environment
// variable name. The table drives ConfigFromEnv and ExportConfig so the
// two stay in sync.
type configField struct {
	name string
	env  string
	get  func(*Config) string
	set  func(*Config, string)
}

var configFields = []configField{
	{"github_token", "GITHUB_TOKEN",
		func(c *Config) string { return c.GitHubToken },
		func(c *Config, v string) { c.GitHubToken = v }},
	{"jira_url", "JIRA_URL",
		func(c *Config) string { return c.JiraURL },
		func(c *Config, v string) { c.JiraURL = v }},
	{"jira_username", "JIRA_USERNAME",
		func(c *Config) string { return c.JiraUsername },
		func(c *Config, v string) { c.JiraUsername = v }},
	{"jira_token", "JIRA_TOKEN",
		func(c *Config) string { return c.JiraToken },
		func(c *Config, v string) { c.JiraToken = v }},
	{"confluence_url", "CONFLUENCE_URL",
		func(c *Config) string { return c.ConfluenceURL },
		func(c *Config, v string) { c.ConfluenceURL = v }},
	{"confluence_username", "CONFLUENCE_USERNAME",
		func(c *Config) string { return c.ConfluenceUsername },
		func(c *Config, v string) { c.ConfluenceUsername = v }},
	{"confluence_token", "CONFLUENCE_TOKEN",
		func(c *Config) string { return c.ConfluenceToken },
		func(c *Config, v string) { c.ConfluenceToken = v }},
	{"google_credentials_file", "GOOGLE_CREDENTIALS_FILE",
		func(c *Config) string { return c.GoogleCredentialsFile },
		func(c *Config, v string) { c.GoogleCredentialsFile = v }},
	{"kube_config_path", "KUBE_CONFIG_PATH",
		func(c *Config) string { return c.KubeConfigPath },
		func(c *Config, v string) { c.KubeConfigPath = v }},
	{"kube_context", "KUBE_CONTEXT",
		func(c *Config) string { return c.KubeContext },
		func(c *Config, v string) { c.KubeContext = v }},
	{"opensearch_url", "OPENSEARCH_URL",
		func(c *Config) string { return c.OpenSearchURL },
		func(c *Config, v string) { c.OpenSearchURL = v }},
	{"opensearch_username", "OPENSEARCH_USERNAME",
		func(c *Config) string { return c.OpenSearchUsername },
		func(c *Config, v string) { c.OpenSearchUsername = v }},
	{"opensearch_initial_admin_password", "OPENSEARCH_INITIAL_ADMIN_PASSWORD",
		func(c *Config) string { return c.OpenSearchInitialAdminPassword },
		func(c *Config, v string) { c.OpenSearchInitialAdminPassword = v }},
	{"postgres_host", "POSTGRES_HOST",
		func(c *Config) string { return c.PostgresHost },
		func(c *Config, v string) { c.PostgresHost = v }},
	{"postgres_port", "POSTGRES_PORT",
		func(c *Config) string { return c.PostgresPort },
		func(c *Config, v string) { c.PostgresPort = v }},
	{"postgres_user", "POSTGRES_USER",
		func(c *Config) string { return c.PostgresUser },
		func(c *Config, v string) { c.PostgresUser = v }},
	{"postgres_password", "POSTGRES_PASSWORD",
		func(c *Config) string { return c.PostgresPassword },
		func(c *Config, v string) { c.PostgresPassword = v }},
	{"postgres_database", "POSTGRES_DATABASE",
		func(c *Config) string { return c.PostgresDatabase },
		func(c *Config, v string) { c.PostgresDatabase = v }},
	{"postgres_sslmode", "POSTGRES_SSLMODE",
		func(c *Config) string { return c.PostgresSSLMode },
		func(c *Config, v string) { c.PostgresSSLMode = v }},
}

// Values returns every field as a name/value pair, including unset ones.
// The keys are the yaml field names.
func (c Config) Values() map[string]string {
	values := make(map[string]string, len(configFields))
	for _, f := range configFields {
		values[f.name] = f.get(&c)
	}
	return values
}

// ConfigFromEnv builds a Config from the process environment, reading the
// environment variable bound to each field.
func ConfigFromEnv() Config {
	var cfg Config
	for _, f := range configFields {
		if v, ok := os.LookupEnv(f.env); ok {
			f.set(&cfg, v)
		}
	}
	return cfg
}

// ParseConfigFile reads a YAML configuration file. Parsing is strict:
// unknown keys are rejected so typos fail loudly instead of silently
// leaving a capability unconfigured. An empty file yields a zero Config.
func ParseConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfigDir returns ~/.config/opskit.
func DefaultConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// DefaultConfigPath returns ~/.config/opskit/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// osUserHomeDir is replaceable in tests.
var osUserHomeDir = os.UserHomeDir
