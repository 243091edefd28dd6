// Package compose drives Docker Compose projects through the docker CLI
// plugin. Compose has no stable Go API, so commands are executed directly.
package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Options locate a compose project.
type Options struct {
	// Dir is the working directory commands run in.
	Dir string
	// Files are explicit compose file paths. Empty means compose default
	// lookup in Dir.
	Files []string
	// ProjectName overrides the compose project name.
	ProjectName string
}

// Client runs compose commands for a single project.
type Client struct {
	opts Options
}

// Error is the generic failure kind for compose operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("compose: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient returns a client for the project described by opts.
func NewClient(opts Options) *Client {
	return &Client{opts: opts}
}

// ServiceStatus mirrors one entry of "docker compose ps --format json".
type ServiceStatus struct {
	ID         string      `json:"ID"`
	Name       string      `json:"Name"`
	Service    string      `json:"Service"`
	State      string      `json:"State"`
	Status     string      `json:"Status"`
	Health     string      `json:"Health,omitempty"`
	ExitCode   int         `json:"ExitCode"`
	Publishers []Publisher `json:"Publishers,omitempty"`
}

// Publisher is a published port of a service container.
type Publisher struct {
	URL           string `json:"URL"`
	TargetPort    int    `json:"TargetPort"`
	PublishedPort int    `json:"PublishedPort"`
	Protocol      string `json:"Protocol"`
}

// runCompose executes the docker binary. Replaceable in tests.
var runCompose = func(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func (c *Client) args(sub ...string) []string {
	args := []string{"compose"}
	for _, f := range c.opts.Files {
		args = append(args, "-f", f)
	}
	if c.opts.ProjectName != "" {
		args = append(args, "-p", c.opts.ProjectName)
	}
	return append(args, sub...)
}

func (c *Client) run(ctx context.Context, op string, sub ...string) (string, error) {
	stdout, stderr, err := runCompose(ctx, c.opts.Dir, c.args(sub...)...)
	if err != nil {
		return "", opErr(op, commandError(err, stderr))
	}
	return stdout, nil
}

// Up creates and starts the project services.
func (c *Client) Up(ctx context.Context, services []string, detach bool) (string, error) {
	sub := []string{"up"}
	if detach {
		sub = append(sub, "-d")
	}
	sub = append(sub, services...)
	return c.run(ctx, "up", sub...)
}

// Down stops and removes the project containers and networks.
func (c *Client) Down(ctx context.Context, removeVolumes bool) (string, error) {
	sub := []string{"down"}
	if removeVolumes {
		sub = append(sub, "--volumes")
	}
	return c.run(ctx, "down", sub...)
}

// Start starts existing containers.
func (c *Client) Start(ctx context.Context, services ...string) (string, error) {
	return c.run(ctx, "start", append([]string{"start"}, services...)...)
}

// Stop stops running containers without removing them.
func (c *Client) Stop(ctx context.Context, services ...string) (string, error) {
	return c.run(ctx, "stop", append([]string{"stop"}, services...)...)
}

// Restart restarts service containers.
func (c *Client) Restart(ctx context.Context, services ...string) (string, error) {
	return c.run(ctx, "restart", append([]string{"restart"}, services...)...)
}

// Logs returns service logs. A positive tail limits output to the last
// tail lines per container.
func (c *Client) Logs(ctx context.Context, services []string, tail int) (string, error) {
	sub := []string{"logs", "--no-color"}
	if tail > 0 {
		sub = append(sub, "--tail", strconv.Itoa(tail))
	}
	sub = append(sub, services...)
	return c.run(ctx, "logs", sub...)
}

// Pull pulls service images.
func (c *Client) Pull(ctx context.Context, services ...string) (string, error) {
	return c.run(ctx, "pull", append([]string{"pull"}, services...)...)
}

// Build builds service images.
func (c *Client) Build(ctx context.Context, services ...string) (string, error) {
	return c.run(ctx, "build", append([]string{"build"}, services...)...)
}

// Services lists the service names defined by the project.
func (c *Client) Services(ctx context.Context) ([]string, error) {
	stdout, err := c.run(ctx, "list services", "config", "--services")
	if err != nil {
		return nil, err
	}

	var services []string
	for _, line := range strings.Split(stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			services = append(services, line)
		}
	}
	return services, nil
}

// Status reports the state of the project containers, including stopped
// ones.
func (c *Client) Status(ctx context.Context) ([]ServiceStatus, error) {
	stdout, err := c.run(ctx, "get status", "ps", "--all", "--format", "json")
	if err != nil {
		return nil, err
	}
	statuses, perr := parseStatus(stdout)
	if perr != nil {
		return nil, opErr("get status", perr)
	}
	return statuses, nil
}

// Config returns the rendered project configuration.
func (c *Client) Config(ctx context.Context) (string, error) {
	return c.run(ctx, "get config", "config")
}

// Validate checks the project configuration without printing it.
func (c *Client) Validate(ctx context.Context) error {
	_, err := c.run(ctx, "validate config", "config", "--quiet")
	return err
}

// parseStatus handles both ps JSON shapes: one object per line (compose
// v2.21 and later) and a single JSON array (older releases).
func parseStatus(out string) ([]ServiceStatus, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	if strings.HasPrefix(out, "[") {
		var statuses []ServiceStatus
		if err := json.Unmarshal([]byte(out), &statuses); err != nil {
			return nil, err
		}
		return statuses, nil
	}

	var statuses []ServiceStatus
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		var status ServiceStatus
		if err := json.Unmarshal([]byte(line), &status); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// commandError folds captured stderr into the exec error.
func commandError(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}
