package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// Client wraps the Docker Engine API.
type Client struct {
	cli *client.Client
}

// Error is the generic failure kind for Docker operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("docker: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// NewClient connects to the local Docker daemon using the standard
// environment configuration and verifies it responds.
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, opErr("create client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, opErr("ping daemon", err)
	}

	return &Client{cli: cli}, nil
}

// Close releases the daemon connection.
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}

// Container describes a container in listings.
type Container struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Image   string   `json:"image"`
	State   string   `json:"state"`
	Status  string   `json:"status"`
	Ports   []string `json:"ports,omitempty"`
	Created string   `json:"created"`
}

// Stats is a one-shot resource usage snapshot of a running container.
type Stats struct {
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsage   uint64  `json:"memory_usage"`
	MemoryLimit   uint64  `json:"memory_limit"`
	MemoryPercent float64 `json:"memory_percent"`
}

// CreateOptions holds the optional parts of a container creation.
type CreateOptions struct {
	Env     map[string]string
	Ports   []string // "8080:80" or "8080:80/tcp"
	Volumes []string // "host:container" bind specs
	Cmd     []string
}

// Containers lists containers. With all set, stopped containers are
// included.
func (c *Client) Containers(ctx context.Context, all bool) ([]Container, error) {
	summaries, err := c.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, opErr("list containers", err)
	}

	containers := make([]Container, 0, len(summaries))
	for _, s := range summaries {
		containers = append(containers, convertSummary(s))
	}
	return containers, nil
}

// CreateContainer pulls the image if needed and creates a container,
// returning its ID. The container is not started.
func (c *Client) CreateContainer(ctx context.Context, imageRef, name string, opts CreateOptions) (string, error) {
	if err := c.ensureImage(ctx, imageRef); err != nil {
		return "", err
	}

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	config := &container.Config{
		Image: imageRef,
		Env:   env,
		Cmd:   opts.Cmd,
	}
	hostConfig := &container.HostConfig{
		Binds: opts.Volumes,
	}

	if len(opts.Ports) > 0 {
		exposed, bindings, err := nat.ParsePortSpecs(opts.Ports)
		if err != nil {
			return "", opErr(fmt.Sprintf("parse port specs for %s", name), err)
		}
		config.ExposedPorts = exposed
		hostConfig.PortBindings = bindings
	}

	resp, err := c.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return "", opErr(fmt.Sprintf("create container %s", name), err)
	}
	return resp.ID, nil
}

// StartContainer starts a created or stopped container.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	if err := c.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return opErr(fmt.Sprintf("start container %s", id), err)
	}
	return nil
}

// StopContainer stops a running container, waiting up to timeout before
// the daemon kills it. A zero timeout uses the daemon default.
func (c *Client) StopContainer(ctx context.Context, id string, timeout time.Duration) error {
	opts := container.StopOptions{}
	if timeout > 0 {
		seconds := int(timeout.Seconds())
		opts.Timeout = &seconds
	}
	if err := c.cli.ContainerStop(ctx, id, opts); err != nil {
		return opErr(fmt.Sprintf("stop container %s", id), err)
	}
	return nil
}

// RemoveContainer removes a container. With force set, a running
// container is killed first.
func (c *Client) RemoveContainer(ctx context.Context, id string, force bool) error {
	err := c.cli.ContainerRemove(ctx, id, container.RemoveOptions{
		Force:         force,
		RemoveVolumes: true,
	})
	if err != nil {
		return opErr(fmt.Sprintf("remove container %s", id), err)
	}
	return nil
}

// Logs returns the last tail lines of a container's combined output.
// A zero tail returns everything.
func (c *Client) Logs(ctx context.Context, id string, tail int) (string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	}
	if tail > 0 {
		opts.Tail = fmt.Sprintf("%d", tail)
	}

	reader, err := c.cli.ContainerLogs(ctx, id, opts)
	if err != nil {
		return "", opErr(fmt.Sprintf("get logs of %s", id), err)
	}
	defer reader.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		return "", opErr(fmt.Sprintf("read logs of %s", id), err)
	}
	if stderr.Len() > 0 {
		stdout.Write(stderr.Bytes())
	}
	return stdout.String(), nil
}

// Stats takes a one-shot usage snapshot of a running container.
func (c *Client) Stats(ctx context.Context, id string) (*Stats, error) {
	resp, err := c.cli.ContainerStatsOneShot(ctx, id)
	if err != nil {
		return nil, opErr(fmt.Sprintf("get stats of %s", id), err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, opErr(fmt.Sprintf("decode stats of %s", id), err)
	}
	return convertStats(&raw), nil
}

func (c *Client) ensureImage(ctx context.Context, imageRef string) error {
	if _, err := c.cli.ImageInspect(ctx, imageRef); err == nil {
		return nil
	}

	pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	reader, err := c.cli.ImagePull(pullCtx, imageRef, image.PullOptions{})
	if err != nil {
		return opErr(fmt.Sprintf("pull image %s", imageRef), err)
	}
	defer reader.Close()
	io.Copy(io.Discard, reader)
	return nil
}

func convertSummary(s container.Summary) Container {
	name := ""
	if len(s.Names) > 0 {
		name = s.Names[0]
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
	}

	ports := make([]string, 0, len(s.Ports))
	for _, p := range s.Ports {
		if p.PublicPort > 0 {
			ports = append(ports, fmt.Sprintf("%d->%d/%s", p.PublicPort, p.PrivatePort, p.Type))
		} else {
			ports = append(ports, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
		}
	}

	return Container{
		ID:      shortID(s.ID),
		Name:    name,
		Image:   s.Image,
		State:   s.State,
		Status:  s.Status,
		Ports:   ports,
		Created: time.Unix(s.Created, 0).UTC().Format("2006-01-02 15:04"),
	}
}

func convertStats(raw *container.StatsResponse) *Stats {
	stats := &Stats{
		Name:        raw.Name,
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
	}
	if len(stats.Name) > 0 && stats.Name[0] == '/' {
		stats.Name = stats.Name[1:]
	}
	if stats.MemoryLimit > 0 {
		stats.MemoryPercent = float64(stats.MemoryUsage) / float64(stats.MemoryLimit) * 100.0
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if cpuDelta > 0 && sysDelta > 0 {
		cpus := float64(raw.CPUStats.OnlineCPUs)
		if cpus == 0 {
			cpus = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
		}
		if cpus == 0 {
			cpus = 1
		}
		stats.CPUPercent = cpuDelta / sysDelta * cpus * 100.0
	}
	return stats
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
