package ssh

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	gossh "golang.org/x/crypto/ssh"
)

// Client is an SSH connection to one host. Unlike the other capability
// clients it is not cached; every session gets a fresh connection.
type Client struct {
	host string
	ssh  *gossh.Client
}

// Error is the generic failure kind for SSH operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("ssh: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func opErr(op string, err error) error { return &Error{Op: op, Err: err} }

// Options configure a connection. Zero values fall back to port 22, a 30s
// dial timeout, and the usual key files under ~/.ssh.
type Options struct {
	User     string
	Port     int
	Password string
	KeyFile  string
	Timeout  time.Duration
}

// NewClient dials host and authenticates. Host keys are not verified.
func NewClient(host string, opts Options) (*Client, error) {
	if opts.Port == 0 {
		opts.Port = 22
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	auth, err := buildAuth(opts)
	if err != nil {
		return nil, opErr(fmt.Sprintf("connect to %s", host), err)
	}

	config := &gossh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         opts.Timeout,
	}

	conn, err := gossh.Dial("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", opts.Port)), config)
	if err != nil {
		return nil, opErr(fmt.Sprintf("connect to %s", host), err)
	}
	return &Client{host: host, ssh: conn}, nil
}

// buildAuth assembles auth methods from the options. Without an explicit
// password or key file, default key files that exist are used.
func buildAuth(opts Options) ([]gossh.AuthMethod, error) {
	var methods []gossh.AuthMethod

	keyFiles := []string{}
	if opts.KeyFile != "" {
		keyFiles = append(keyFiles, opts.KeyFile)
	} else if opts.Password == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			for _, name := range []string{"id_ed25519", "id_rsa"} {
				candidate := filepath.Join(home, ".ssh", name)
				if _, err := os.Stat(candidate); err == nil {
					keyFiles = append(keyFiles, candidate)
				}
			}
		}
	}

	for _, keyFile := range keyFiles {
		raw, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", keyFile, err)
		}
		signer, err := gossh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse key %s: %w", keyFile, err)
		}
		methods = append(methods, gossh.PublicKeys(signer))
	}

	if opts.Password != "" {
		methods = append(methods, gossh.Password(opts.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication method available (no password, no key)")
	}
	return methods, nil
}

// Close terminates the connection.
func (c *Client) Close() error {
	if c.ssh != nil {
		return c.ssh.Close()
	}
	return nil
}

// Host returns the host this client is connected to.
func (c *Client) Host() string { return c.host }

// ExecResult is the outcome of one remote command.
type ExecResult struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

// DirEntry is one entry of a remote directory listing.
type DirEntry struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Mode    string `json:"mode"`
	ModTime string `json:"mtime"`
	Type    string `json:"type"`
}

// ExecCommand runs a command remotely and captures its outcome. A nonzero
// exit status is reported in the result, not as an error.
func (c *Client) ExecCommand(command string) (*ExecResult, error) {
	session, err := c.ssh.NewSession()
	if err != nil {
		return nil, opErr(fmt.Sprintf("open session on %s", c.host), err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	result := &ExecResult{Command: command}
	err = session.Run(command)
	switch e := err.(type) {
	case nil:
		result.ExitCode = 0
	case *gossh.ExitError:
		result.ExitCode = e.ExitStatus()
	default:
		return nil, opErr(fmt.Sprintf("run %q on %s", command, c.host), err)
	}

	result.Output = strings.TrimSpace(stdout.String())
	result.Error = strings.TrimSpace(stderr.String())
	result.Success = result.ExitCode == 0
	return result, nil
}

// ExecCommands runs commands in order, stopping after the first one that
// fails. All results gathered so far are returned.
func (c *Client) ExecCommands(commands []string) ([]ExecResult, error) {
	results := make([]ExecResult, 0, len(commands))
	for _, command := range commands {
		result, err := c.ExecCommand(command)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
		if !result.Success {
			break
		}
	}
	return results, nil
}

// CopyTo uploads a local file, preserving its permission bits.
func (c *Client) CopyTo(localPath, remotePath string) error {
	op := fmt.Sprintf("copy %s to %s:%s", localPath, c.host, remotePath)

	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return opErr(op, err)
	}
	defer client.Close()

	return c.uploadFile(client, op, localPath, remotePath)
}

func (c *Client) uploadFile(client *sftp.Client, op, localPath, remotePath string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return opErr(op, err)
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return opErr(op, err)
	}

	remote, err := client.Create(remotePath)
	if err != nil {
		return opErr(op, err)
	}
	if _, err := io.Copy(remote, local); err != nil {
		remote.Close()
		return opErr(op, err)
	}
	if err := remote.Close(); err != nil {
		return opErr(op, err)
	}

	if err := client.Chmod(remotePath, info.Mode().Perm()); err != nil {
		return opErr(op, err)
	}
	return nil
}

// CopyFrom downloads a remote file, preserving its permission bits.
func (c *Client) CopyFrom(remotePath, localPath string) error {
	op := fmt.Sprintf("copy %s:%s to %s", c.host, remotePath, localPath)

	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return opErr(op, err)
	}
	defer client.Close()

	remote, err := client.Open(remotePath)
	if err != nil {
		return opErr(op, err)
	}
	defer remote.Close()

	info, err := remote.Stat()
	if err != nil {
		return opErr(op, err)
	}

	local, err := os.Create(localPath)
	if err != nil {
		return opErr(op, err)
	}
	if _, err := io.Copy(local, remote); err != nil {
		local.Close()
		return opErr(op, err)
	}
	if err := local.Close(); err != nil {
		return opErr(op, err)
	}

	if err := os.Chmod(localPath, info.Mode().Perm()); err != nil {
		return opErr(op, err)
	}
	return nil
}

// CopyDirectory uploads a local directory tree, creating remote
// directories as needed. It returns the relative paths that were copied.
func (c *Client) CopyDirectory(localDir, remoteDir string) ([]string, error) {
	op := fmt.Sprintf("copy directory %s to %s:%s", localDir, c.host, remoteDir)

	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return nil, opErr(op, err)
	}
	defer client.Close()

	var copied []string
	err = filepath.WalkDir(localDir, func(localPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, localPath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		remotePath := path.Join(remoteDir, rel)

		if err := client.MkdirAll(path.Dir(remotePath)); err != nil {
			return err
		}
		if err := c.uploadFile(client, op, localPath, remotePath); err != nil {
			return err
		}
		copied = append(copied, rel)
		return nil
	})
	if err != nil {
		if _, ok := err.(*Error); ok {
			return copied, err
		}
		return copied, opErr(op, err)
	}
	return copied, nil
}

// ListDirectory lists a remote directory.
func (c *Client) ListDirectory(remotePath string) ([]DirEntry, error) {
	op := fmt.Sprintf("list %s:%s", c.host, remotePath)

	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return nil, opErr(op, err)
	}
	defer client.Close()

	infos, err := client.ReadDir(remotePath)
	if err != nil {
		return nil, opErr(op, err)
	}

	entries := make([]DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, convertFileInfo(info))
	}
	return entries, nil
}

// CreateDirectory creates a remote directory with the given permissions.
func (c *Client) CreateDirectory(remotePath string, mode os.FileMode) error {
	op := fmt.Sprintf("create directory %s:%s", c.host, remotePath)

	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return opErr(op, err)
	}
	defer client.Close()

	if err := client.MkdirAll(remotePath); err != nil {
		return opErr(op, err)
	}
	if err := client.Chmod(remotePath, mode); err != nil {
		return opErr(op, err)
	}
	return nil
}

func convertFileInfo(info os.FileInfo) DirEntry {
	entryType := "file"
	if info.IsDir() {
		entryType = "directory"
	}
	return DirEntry{
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    fmt.Sprintf("%04o", info.Mode().Perm()),
		ModTime: info.ModTime().UTC().Format("2006-01-02 15:04"),
		Type:    entryType,
	}
}
