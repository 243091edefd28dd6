package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := gossh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestBuildAuthPassword(t *testing.T) {
	methods, err := buildAuth(Options{User: "deploy", Password: "hunter2"})
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestBuildAuthKeyFile(t *testing.T) {
	methods, err := buildAuth(Options{User: "deploy", KeyFile: writeTestKey(t)})
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestBuildAuthKeyFileAndPassword(t *testing.T) {
	methods, err := buildAuth(Options{
		User:     "deploy",
		KeyFile:  writeTestKey(t),
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Len(t, methods, 2)
}

func TestBuildAuthMissingKeyFile(t *testing.T) {
	_, err := buildAuth(Options{User: "deploy", KeyFile: "/nonexistent/key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read key")
}

func TestBuildAuthGarbageKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := buildAuth(Options{User: "deploy", KeyFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse key")
}

func TestConvertFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	info, err := os.Stat(path)
	require.NoError(t, err)

	entry := convertFileInfo(info)
	assert.Equal(t, "report.txt", entry.Name)
	assert.Equal(t, int64(5), entry.Size)
	assert.Equal(t, "0644", entry.Mode)
	assert.Equal(t, "file", entry.Type)
	assert.NotEmpty(t, entry.ModTime)

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, "directory", convertFileInfo(dirInfo).Type)
}

func TestErrorFormatting(t *testing.T) {
	underlying := errors.New("connection refused")
	err := opErr("connect to db1.internal", underlying)

	assert.EqualError(t, err, "ssh: connect to db1.internal: connection refused")

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "connect to db1.internal", serr.Op)
	assert.ErrorIs(t, err, underlying)
}
