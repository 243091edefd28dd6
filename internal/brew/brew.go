// Package brew shells out to Homebrew for dependency management. There is
// no usable API surface beyond the CLI, so commands are executed directly.
package brew

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client runs brew commands.
type Client struct{}

// Error is the generic failure kind for Homebrew operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("brew: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient returns a brew client.
func NewClient() *Client { return &Client{} }

// Package is an installed formula or cask.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// runBrew executes the brew binary. Replaceable in tests.
var runBrew = func(ctx context.Context, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "brew", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// IsInstalled reports whether a formula or cask is installed and, if so,
// its version.
func (c *Client) IsInstalled(ctx context.Context, name string, cask bool) (string, bool) {
	args := []string{"list"}
	if cask {
		args = append(args, "--cask")
	}
	args = append(args, "--versions", name)

	stdout, _, err := runBrew(ctx, args...)
	if err != nil {
		return "", false
	}

	// Output format: "name 1.2.3"
	fields := strings.Fields(stdout)
	if len(fields) < 2 {
		return "", true
	}
	return fields[len(fields)-1], true
}

// Install installs a formula or cask.
func (c *Client) Install(ctx context.Context, name string, cask, force bool) (string, error) {
	args := []string{"install"}
	if cask {
		args = append(args, "--cask")
	}
	if force {
		args = append(args, "--force")
	}
	args = append(args, name)

	stdout, stderr, err := runBrew(ctx, args...)
	if err != nil {
		return "", opErr(fmt.Sprintf("install %s", name), commandError(err, stderr))
	}
	return stdout, nil
}

// Uninstall removes a formula or cask.
func (c *Client) Uninstall(ctx context.Context, name string, cask bool) (string, error) {
	args := []string{"uninstall"}
	if cask {
		args = append(args, "--cask")
	}
	args = append(args, name)

	stdout, stderr, err := runBrew(ctx, args...)
	if err != nil {
		return "", opErr(fmt.Sprintf("uninstall %s", name), commandError(err, stderr))
	}
	return stdout, nil
}

// Upgrade upgrades a formula to its latest version.
func (c *Client) Upgrade(ctx context.Context, name string) (string, error) {
	stdout, stderr, err := runBrew(ctx, "upgrade", name)
	if err != nil {
		return "", opErr(fmt.Sprintf("upgrade %s", name), commandError(err, stderr))
	}
	return stdout, nil
}

// ListInstalled lists installed formulas or casks with versions.
func (c *Client) ListInstalled(ctx context.Context, cask bool) ([]Package, error) {
	args := []string{"list"}
	if cask {
		args = append(args, "--cask")
	}
	args = append(args, "--versions")

	stdout, stderr, err := runBrew(ctx, args...)
	if err != nil {
		return nil, opErr("list installed packages", commandError(err, stderr))
	}

	var packages []Package
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		pkg := Package{Name: fields[0]}
		if len(fields) > 1 {
			pkg.Version = fields[1]
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

// Info returns the brew info output of a formula or cask.
func (c *Client) Info(ctx context.Context, name string) (string, error) {
	stdout, stderr, err := runBrew(ctx, "info", name)
	if err != nil {
		return "", opErr(fmt.Sprintf("info %s", name), commandError(err, stderr))
	}
	return strings.TrimSpace(stdout), nil
}

// commandError folds captured stderr into the exec error.
func commandError(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}
